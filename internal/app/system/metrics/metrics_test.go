package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRemoteCall("get_billing", time.Now(), nil)
	m.ObserveSync(errors.New("boom"))
	m.SeatFallback()
	m.StatusChanged("paid")

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestObserveRemoteCall(t *testing.T) {
	m := New()
	m.ObserveRemoteCall("get_seats", time.Now(), nil)
	m.ObserveRemoteCall("get_seats", time.Now(), errors.New("boom"))
	m.ObserveRemoteCall("get_seats", time.Now(), errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemoteCallsTotal.WithLabelValues("get_seats", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RemoteCallsTotal.WithLabelValues("get_seats", "error")))
}

func TestSyncCounters(t *testing.T) {
	m := New()
	m.ObserveSync(nil)
	m.SeatFallback()
	m.SeatFallback()
	m.StatusChanged("paid")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SyncRunsTotal.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SyncSeatFallbacksTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BillingStatusChangesTotal.WithLabelValues("paid")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/billing/{billingId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/billing/abc123", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/billing/{billingId}", "404")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveSync(nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "copilotbilling_sync_runs_total"))
}
