package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/lid-trainer/backend/internal/infrastructure/metrics"
)

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.SessionCreated("normal")
		m.SessionCompleted("normal", true)
		m.SessionAbandoned("user")
		m.QuotaExceeded()
		m.Cleanup()
		m.StorageFailure("set")
		m.AutosaveFlushed("interval")
		m.AutosaveSkip("interval")
		m.ContentPage(true)
		m.ObserveRequest(http.MethodGet, "/api/sessions", 200, time.Millisecond)
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCountersAndHandler(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	m.SessionCompleted("normal", true)
	m.SessionCompleted("normal", true)
	m.SessionCompleted("mistake-practice", false)
	m.ContentPage(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SessionsCompleted.WithLabelValues("normal", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ContentPages.WithLabelValues("error")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "trainer_sessions_completed_total")
}
