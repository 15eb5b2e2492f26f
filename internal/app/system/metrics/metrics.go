// Package metrics holds the Prometheus instruments exported on /metrics.
//
// All methods are safe to call on a nil *Metrics so that packages can be
// constructed without instrumentation in tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Remote (GitHub) API metrics
	RemoteCallsTotal   *prometheus.CounterVec
	RemoteCallDuration *prometheus.HistogramVec

	// Billing metrics
	SyncRunsTotal             *prometheus.CounterVec
	SyncSeatFallbacksTotal    prometheus.Counter
	BillingStatusChangesTotal *prometheus.CounterVec
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilotbilling_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "copilotbilling_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		RemoteCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilotbilling_github_calls_total",
				Help: "Total number of GitHub API calls",
			},
			[]string{"operation", "outcome"},
		),
		RemoteCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "copilotbilling_github_call_duration_seconds",
				Help:    "GitHub API call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		SyncRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilotbilling_sync_runs_total",
				Help: "Total number of billing synchronizations",
			},
			[]string{"outcome"},
		),
		SyncSeatFallbacksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "copilotbilling_sync_seat_fallbacks_total",
				Help: "Seats whose usage fetch failed and were billed at the default cost",
			},
		),
		BillingStatusChangesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilotbilling_billing_status_changes_total",
				Help: "Billing status updates by new status",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RemoteCallsTotal,
		m.RemoteCallDuration,
		m.SyncRunsTotal,
		m.SyncSeatFallbacksTotal,
		m.BillingStatusChangesTotal,
	)

	return m
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request count and latency keyed by the chi route
// pattern, so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// ObserveRemoteCall records one GitHub API call.
func (m *Metrics) ObserveRemoteCall(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.RemoteCallsTotal.WithLabelValues(operation, outcome).Inc()
	m.RemoteCallDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// ObserveSync records the outcome of one synchronization run.
func (m *Metrics) ObserveSync(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.SyncRunsTotal.WithLabelValues(outcome).Inc()
}

// SeatFallback counts a seat billed at the default cost.
func (m *Metrics) SeatFallback() {
	if m == nil {
		return
	}
	m.SyncSeatFallbacksTotal.Inc()
}

// StatusChanged counts a billing status update.
func (m *Metrics) StatusChanged(status string) {
	if m == nil {
		return
	}
	m.BillingStatusChangesTotal.WithLabelValues(status).Inc()
}
