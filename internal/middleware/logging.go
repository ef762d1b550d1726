package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"resurface-backend/internal/observability"
)

// Logging emits one structured log line per request and records the HTTP
// metrics. Route patterns, not raw paths, label the metrics to keep
// cardinality bounded.
func Logging(logger *zap.Logger, metrics *observability.Collector) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			elapsed := time.Since(start)
			route := routePattern(r)

			if metrics != nil {
				metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
				metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
			}

			logger.Info("http request",
				zap.String("request_id", GetRequestIDFromRequest(r)),
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", elapsed),
			)
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
