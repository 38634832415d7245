package middleware

import (
	"log/slog"
	"net/http"

	"github.com/tasklane/tasklane-api/internal/api/shared"
	"github.com/tasklane/tasklane-api/internal/platform/logger"
)

// TraceMiddleware assigns a trace ID to each request and attaches a
// request-scoped logger carrying it. A well-formed X-Trace-ID request header
// is reused. Apply it early so later handlers see both.
func TraceMiddleware(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID, ok := shared.SanitizeTraceID(r.Header.Get(shared.TraceIDHeader))
			if !ok {
				traceID = shared.NewTraceID()
			}
			w.Header().Set(shared.TraceIDHeader, traceID)

			log := logger.FromContextOrDefault(r.Context(), base).With(slog.String("trace_id", traceID))
			ctx := logger.WithLogger(shared.WithTraceID(r.Context(), traceID), log)

			log.Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
