package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"resurface-backend/pkg/api"
)

// Recovery converts panics into 500 responses with the standard envelope.
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered",
						zap.String("request_id", GetRequestIDFromRequest(r)),
						zap.String("path", r.URL.Path),
						zap.Any("panic", err),
						zap.ByteString("stack", debug.Stack()),
					)

					// If the response was already partially written there is
					// nothing left to do; the server closes the connection.
					if w.Header().Get("Content-Type") == "" {
						api.Error(w, http.StatusInternalServerError, "Internal server error")
					}
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
