package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"enrolcli/internal/infrastructure"
)

// Metrics records request count, duration, and in-flight requests for
// every handled request. A nil instrument set disables recording, so the
// middleware can be installed unconditionally.
func Metrics(m *infrastructure.BusinessMetrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			start := time.Now()

			m.HTTPActiveRequests.Add(ctx, 1)
			defer m.HTTPActiveRequests.Add(ctx, -1)

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// Prefer the route pattern to keep cardinality bounded.
			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				path = rctx.RoutePattern()
			}

			attrs := metric.WithAttributes(
				attribute.String("method", r.Method),
				attribute.String("path", path),
				attribute.String("status", strconv.Itoa(ww.Status())),
			)
			m.HTTPRequestsTotal.Add(ctx, 1, attrs)
			m.HTTPRequestDuration.Record(ctx, time.Since(start).Seconds(), attrs)
		})
	}
}
