package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ymzk-dev/mediavault/internal/perf"
)

// LatencyRecorder receives per-request timing samples. Implemented by
// *perf.Collector.
type LatencyRecorder interface {
	RecordLatency(id string, d time.Duration, isError bool)
	RecordDBQueries(n int)
}

// Metrics times every request and feeds the performance collector. The
// sample identifier is "METHOD route-pattern" so path parameters collapse
// into one series, and a 5xx status marks the sample as an error. A query
// counter is attached to the request context so the persistence gateway can
// report the request's durable-store fanout.
func Metrics(rec LatencyRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)
			ctx := perf.WithQueryCounter(r.Context())

			next.ServeHTTP(wrapped, r.WithContext(ctx))

			// The route pattern is only resolved after routing ran.
			var pattern string
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				pattern = rctx.RoutePattern()
			}
			if pattern == "" {
				pattern = r.URL.Path
			}

			rec.RecordLatency(r.Method+" "+pattern, time.Since(start), wrapped.status >= 500)
			if n := perf.QueriesFromContext(ctx); n > 0 {
				rec.RecordDBQueries(int(n))
			}
		})
	}
}
