package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pkordes/travel-journal/internal/metrics"
)

// NewMetrics returns a middleware that observes request latency labelled by
// the matched chi route pattern, so /records/{id} is one series no matter
// which id was requested. Unmatched requests are labelled "unmatched".
func NewMetrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			m.ObserveRequest(r.Method, routePattern(r.Context()), responseStatus(ww), time.Since(start))
		})
	}
}
