// Package handlers implements the HTTP surface over the service facade.
package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"resurface-backend/internal/middleware"
	"resurface-backend/pkg/api"
	appErrors "resurface-backend/pkg/errors"
)

// validate checks request payloads against their struct tags. Shared and
// concurrency-safe per the validator documentation.
var validate = validator.New()

// handleServiceError maps service errors onto HTTP status codes, always
// using the standard envelope.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	requestID := middleware.GetRequestIDFromRequest(r)

	switch {
	case appErrors.IsValidation(err):
		logger.Warn("request rejected", zap.String("request_id", requestID), zap.Error(err))
		api.Error(w, http.StatusBadRequest, err.Error())
	case appErrors.IsNotFound(err):
		logger.Warn("resource not found", zap.String("request_id", requestID), zap.Error(err))
		api.Error(w, http.StatusNotFound, err.Error())
	case appErrors.IsUnavailable(err):
		logger.Error("dependency unavailable", zap.String("request_id", requestID), zap.Error(err))
		api.Error(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
	case appErrors.IsPersistence(err):
		logger.Error("persistence failure", zap.String("request_id", requestID), zap.Error(err))
		api.Error(w, http.StatusBadGateway, "Storage backend failure")
	default:
		logger.Error("internal error", zap.String("request_id", requestID), zap.Error(err))
		api.Error(w, http.StatusInternalServerError, "An internal error occurred")
	}
}
