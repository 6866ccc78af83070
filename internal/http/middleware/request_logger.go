package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const CorrelationHeader = "X-Correlation-Id"

type correlationKey struct{}

// StatusObserver receives the outcome of every request.
type StatusObserver interface {
	ObserveRequest(method string, code int)
}

// CorrelationID returns the correlation id stored by RequestLogger.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// RequestLogger echoes or assigns the X-Correlation-Id header and emits one
// structured log line per request. obs may be nil.
func RequestLogger(logger *slog.Logger, obs StatusObserver) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := strings.TrimSpace(r.Header.Get(CorrelationHeader))
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(CorrelationHeader, reqID)

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), correlationKey{}, reqID)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if obs != nil {
				obs.ObserveRequest(r.Method, status)
			}
			logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"correlation_id", reqID,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
