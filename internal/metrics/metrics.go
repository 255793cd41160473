// Package metrics exposes the Prometheus instrumentation for the
// backend: sync run tallies, export counts and HTTP request metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SyncRunsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_runs_started_total",
		Help: "Total number of sync runs started",
	})
	SyncRunsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_runs_completed_total",
		Help: "Total number of sync runs that completed successfully",
	})
	SyncRunsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_runs_failed_total",
		Help: "Total number of sync runs that failed",
	})
	RecordsSynced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_records_fetched_total",
		Help: "Total number of records fetched across all sync runs",
	})

	ExportsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exports_generated_total",
		Help: "Total number of report exports generated",
	}, []string{"format"})

	EmailSharesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "email_shares_sent_total",
		Help: "Total number of email shares by delivery outcome",
	}, []string{"status"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware instruments each request with count and latency metrics.
// The chi route pattern is used as the path label so ids in URLs do
// not blow up metric cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		path := r.URL.Path
		if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
			if pattern := routeCtx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(recorder.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
