package middleware

import (
	"net/http"
	"strconv"

	"github.com/hszk-dev/streamresolve/internal/infrastructure/metrics"
)

// Metrics counts served requests by chi route pattern, method and status.
// Route patterns keep label cardinality bounded.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := wrapResponseWriter(w)

		defer func() {
			metrics.HTTPRequestsTotal.
				WithLabelValues(routePattern(r), r.Method, strconv.Itoa(wrapped.status)).
				Inc()
		}()

		next.ServeHTTP(wrapped, r)
	})
}
