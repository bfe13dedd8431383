/*
metrics.go - Prometheus instrumentation

PURPOSE:
  Registers and exposes the service's Prometheus metrics. The /metrics
  endpoint is mounted by server.go via promhttp.

METRICS:
  settle_http_requests_total           Counter by method/route/status
  settle_http_request_duration_seconds Histogram by method/route
  settle_expenses_recorded_total       Counter of created expenses
  settle_balance_reports_total         Counter of computed balance reports

SEE ALSO:
  - server.go: mounts the middleware and the /metrics endpoint
*/
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settle_http_requests_total",
		Help: "Total HTTP requests handled, by method, route and status.",
	}, []string{"method", "route", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settle_http_request_duration_seconds",
		Help:    "HTTP request latency, by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	expensesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settle_expenses_recorded_total",
		Help: "Total expenses recorded.",
	})

	reportsComputed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settle_balance_reports_total",
		Help: "Total balance reports computed.",
	})
)

// Metrics is chi middleware that records request counts and latency.
// The route label uses the chi route pattern, not the raw path, so
// /api/groups/{id} stays one series no matter how many groups exist.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
