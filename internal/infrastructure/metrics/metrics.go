package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of the trainer. A nil *Metrics is valid and
// records nothing, so components can be built without a registry in tests.
type Metrics struct {
	gatherer prometheus.Gatherer

	SessionsCreated   *prometheus.CounterVec
	SessionsCompleted *prometheus.CounterVec
	SessionsAbandoned *prometheus.CounterVec
	QuotaErrors       prometheus.Counter
	Cleanups          prometheus.Counter
	StorageFailures   *prometheus.CounterVec
	AutosaveFlushes   *prometheus.CounterVec
	AutosaveSkipped   *prometheus.CounterVec
	ContentPages      *prometheus.CounterVec
	RequestCounter    *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		SessionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainer_sessions_created_total",
			Help: "Test sessions created, by test type",
		}, []string{"type"}),
		SessionsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainer_sessions_completed_total",
			Help: "Test sessions completed, by test type and outcome",
		}, []string{"type", "passed"}),
		SessionsAbandoned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainer_sessions_abandoned_total",
			Help: "Test sessions abandoned, by reason",
		}, []string{"reason"}),
		QuotaErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trainer_storage_quota_exceeded_total",
			Help: "Writes that hit the storage quota",
		}),
		Cleanups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trainer_storage_cleanups_total",
			Help: "Retention passes run after a quota failure",
		}),
		StorageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainer_storage_failures_total",
			Help: "Storage operations that failed after retry",
		}, []string{"op"}),
		AutosaveFlushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainer_autosave_flushes_total",
			Help: "Auto-save flushes written, by trigger",
		}, []string{"trigger"}),
		AutosaveSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainer_autosave_skipped_total",
			Help: "Auto-save triggers skipped because nothing changed",
		}, []string{"trigger"}),
		ContentPages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trainer_content_pages_total",
			Help: "Question content pages fetched, by result",
		}, []string{"result"}),
		RequestCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2},
		}, []string{"method", "endpoint"}),
	}

	reg.MustRegister(
		m.SessionsCreated,
		m.SessionsCompleted,
		m.SessionsAbandoned,
		m.QuotaErrors,
		m.Cleanups,
		m.StorageFailures,
		m.AutosaveFlushes,
		m.AutosaveSkipped,
		m.ContentPages,
		m.RequestCounter,
		m.RequestDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) SessionCreated(testType string) {
	if m == nil {
		return
	}
	m.SessionsCreated.WithLabelValues(testType).Inc()
}

func (m *Metrics) SessionCompleted(testType string, passed bool) {
	if m == nil {
		return
	}
	m.SessionsCompleted.WithLabelValues(testType, strconv.FormatBool(passed)).Inc()
}

func (m *Metrics) SessionAbandoned(reason string) {
	if m == nil {
		return
	}
	m.SessionsAbandoned.WithLabelValues(reason).Inc()
}

func (m *Metrics) QuotaExceeded() {
	if m == nil {
		return
	}
	m.QuotaErrors.Inc()
}

func (m *Metrics) Cleanup() {
	if m == nil {
		return
	}
	m.Cleanups.Inc()
}

func (m *Metrics) StorageFailure(op string) {
	if m == nil {
		return
	}
	m.StorageFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) AutosaveFlushed(trigger string) {
	if m == nil {
		return
	}
	m.AutosaveFlushes.WithLabelValues(trigger).Inc()
}

func (m *Metrics) AutosaveSkip(trigger string) {
	if m == nil {
		return
	}
	m.AutosaveSkipped.WithLabelValues(trigger).Inc()
}

func (m *Metrics) ContentPage(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.ContentPages.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveRequest(method, endpoint string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestCounter.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, endpoint).Observe(d.Seconds())
}
