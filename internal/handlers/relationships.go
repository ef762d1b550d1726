package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"resurface-backend/internal/domain/relationship"
	"resurface-backend/internal/service"
	"resurface-backend/pkg/api"
)

// RelationshipHandler serves the relationship graph endpoints.
type RelationshipHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

// NewRelationshipHandler creates the handler.
func NewRelationshipHandler(svc *service.Service, logger *zap.Logger) *RelationshipHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelationshipHandler{svc: svc, logger: logger}
}

// GetRelated handles GET /api/v1/content/{id}/related.
func (h *RelationshipHandler) GetRelated(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit := queryInt(r, "limit", 10)

	related, err := h.svc.GetRelatedContent(r.Context(), id, limit)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]any{
		"contentId": id,
		"related":   related,
	})
}

// Query handles GET /api/v1/relationships with optional filter parameters.
func (h *RelationshipHandler) Query(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := relationship.Filter{
		SourceID: q.Get("sourceId"),
		TargetID: q.Get("targetId"),
		Type:     relationship.Type(q.Get("type")),
		Limit:    queryInt(r, "limit", 0),
	}
	if v, err := strconv.ParseFloat(q.Get("minStrength"), 64); err == nil {
		filter.MinStrength = v
	}
	if v, err := strconv.ParseFloat(q.Get("minConfidence"), 64); err == nil {
		filter.MinConfidence = v
	}

	rels := h.svc.QueryRelationships(filter)
	api.Success(w, http.StatusOK, map[string]any{
		"relationships": rels,
		"count":         len(rels),
	})
}

// Stats handles GET /api/v1/relationships/stats.
func (h *RelationshipHandler) Stats(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, h.svc.RelationshipStats())
}

// Rebuild handles POST /api/v1/relationships/rebuild.
func (h *RelationshipHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RebuildGraph(r.Context()); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	api.Success(w, http.StatusOK, h.svc.RelationshipStats())
}

// contentEventRequest is the lifecycle notification payload.
type contentEventRequest struct {
	ContentID string `json:"contentId" validate:"required"`
	Event     string `json:"event" validate:"required,oneof=created updated deleted"`
}

// ContentEvent handles POST /api/v1/events/content: the capture layer
// notifies this engine about content lifecycle changes.
func (h *RelationshipHandler) ContentEvent(w http.ResponseWriter, r *http.Request) {
	var req contentEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	switch req.Event {
	case "created":
		if err := h.svc.NotifyContentCreated(req.ContentID); err != nil {
			handleServiceError(w, r, h.logger, err)
			return
		}
		api.Success(w, http.StatusAccepted, map[string]any{"queued": true})
	case "updated":
		if err := h.svc.NotifyContentUpdated(req.ContentID); err != nil {
			handleServiceError(w, r, h.logger, err)
			return
		}
		api.Success(w, http.StatusAccepted, map[string]any{"queued": true})
	case "deleted":
		removed, err := h.svc.NotifyContentDeleted(r.Context(), req.ContentID)
		if err != nil {
			handleServiceError(w, r, h.logger, err)
			return
		}
		api.Success(w, http.StatusOK, map[string]any{"removedRelationships": removed})
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
