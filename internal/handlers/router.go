package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"resurface-backend/internal/middleware"
	"resurface-backend/internal/observability"
	"resurface-backend/internal/service"
	"resurface-backend/pkg/api"
)

// NewRouter assembles the full HTTP surface.
func NewRouter(svc *service.Service, metrics *observability.Collector, logger *zap.Logger) http.Handler {
	relationships := NewRelationshipHandler(svc, logger)
	suggestions := NewSuggestionHandler(svc, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger, metrics))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/content/{id}/related", relationships.GetRelated)

		r.Route("/relationships", func(r chi.Router) {
			r.Get("/", relationships.Query)
			r.Get("/stats", relationships.Stats)
			r.Post("/rebuild", relationships.Rebuild)
		})

		r.Post("/events/content", relationships.ContentEvent)

		r.Route("/suggestions", func(r chi.Router) {
			r.Post("/rank", suggestions.Rank)
			r.Post("/timing", suggestions.Timing)
		})

		r.Post("/interactions", suggestions.RecordInteraction)

		r.Route("/preferences", func(r chi.Router) {
			r.Get("/", suggestions.GetPreferences)
			r.Get("/export", suggestions.Export)
			r.Post("/import", suggestions.Import)
		})
	})

	return r
}
