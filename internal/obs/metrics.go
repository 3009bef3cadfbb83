// Package obs holds the prometheus collectors of the API.
package obs

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storedesk_http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storedesk_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storedesk_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	authRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storedesk_auth_rejections_total",
			Help: "Rejected authentications and authorizations by error code.",
		},
		[]string{"code"},
	)

	compensationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storedesk_compensation_failures_total",
			Help: "Undo steps that failed while rolling back a multi-step operation.",
		},
		[]string{"operation", "step"},
	)

	auditDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storedesk_audit_entries_dropped_total",
		Help: "Audit entries dropped because the recorder queue was full or stopped.",
	})

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storedesk_build_info",
			Help: "Build information.",
		},
		[]string{"version"},
	)
)

// Init registers the collectors in the default registry. Safe to call more than once.
func Init(version string) {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			authRejections, compensationFailures, auditDropped, buildInfo,
		)
	})
	buildInfo.WithLabelValues(version).Set(1)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func AuthRejected(code string) {
	authRejections.WithLabelValues(code).Inc()
}

func CompensationFailed(operation, step string) {
	compensationFailures.WithLabelValues(operation, step).Inc()
}

func AuditDropped() {
	auditDropped.Inc()
}

// Instrument records RPS, latency and in-flight requests. The route label is
// chi's matched pattern so ids do not explode cardinality.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := RoutePattern(r)
		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
	})
}

// RoutePattern returns the matched chi pattern, or "unmatched".
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
