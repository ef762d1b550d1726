package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"resurface-backend/internal/domain/interaction"
	"resurface-backend/internal/domain/suggestion"
	"resurface-backend/internal/service"
	"resurface-backend/pkg/api"
)

// SuggestionHandler serves the ranking, timing and feedback endpoints.
type SuggestionHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

// NewSuggestionHandler creates the handler.
func NewSuggestionHandler(svc *service.Service, logger *zap.Logger) *SuggestionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SuggestionHandler{svc: svc, logger: logger}
}

// rankRequest carries candidate refs plus the browsing context.
type rankRequest struct {
	Candidates []service.CandidateRef `json:"candidates" validate:"required,min=1,dive"`
	Context    suggestion.Context     `json:"context"`
}

// Rank handles POST /api/v1/suggestions/rank.
func (h *SuggestionHandler) Rank(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	candidates, err := h.svc.ResolveCandidates(r.Context(), req.Candidates)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	result := h.svc.RankSuggestions(candidates, req.Context, time.Now())
	api.Success(w, http.StatusOK, result)
}

// timingRequest asks for a delivery plan for one candidate.
type timingRequest struct {
	Candidate service.CandidateRef `json:"candidate" validate:"required"`
}

// Timing handles POST /api/v1/suggestions/timing.
func (h *SuggestionHandler) Timing(w http.ResponseWriter, r *http.Request) {
	var req timingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		api.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	candidates, err := h.svc.ResolveCandidates(r.Context(), []service.CandidateRef{req.Candidate})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	if len(candidates) == 0 {
		api.Error(w, http.StatusNotFound, "candidate content not found")
		return
	}

	plan, err := h.svc.CalculateOptimalTiming(candidates[0], time.Now())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	api.Success(w, http.StatusOK, plan)
}

// RecordInteraction handles POST /api/v1/interactions.
func (h *SuggestionHandler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	var event interaction.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := h.svc.RecordInteraction(event); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	api.Success(w, http.StatusAccepted, map[string]any{"recorded": true})
}

// GetPreferences handles GET /api/v1/preferences.
func (h *SuggestionHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, map[string]any{
		"preferences": h.svc.Preferences(),
		"metrics":     h.svc.LearningMetrics(),
	})
}

// Export handles GET /api/v1/preferences/export.
func (h *SuggestionHandler) Export(w http.ResponseWriter, r *http.Request) {
	state, err := h.svc.ExportData(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	api.Success(w, http.StatusOK, state)
}

// Import handles POST /api/v1/preferences/import.
func (h *SuggestionHandler) Import(w http.ResponseWriter, r *http.Request) {
	var state service.LearnedState
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.svc.ImportData(r.Context(), &state); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	api.Success(w, http.StatusOK, map[string]any{"imported": true})
}
