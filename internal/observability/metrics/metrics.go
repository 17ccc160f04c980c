package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace = "hospital"
	subsystem = "booking"

	fetchTotalName       = "hospital_booking_fetch_total"
	submissionsTotalName = "hospital_booking_submissions_total"
	activeSessionsName   = "hospital_booking_active_sessions"
)

// BookingMetrics exposes counters/histograms for the booking workflow.
type BookingMetrics struct {
	fetchTotal       *prometheus.CounterVec
	fetchLatency     *prometheus.HistogramVec
	submissionsTotal *prometheus.CounterVec
	activeSessions   prometheus.Gauge
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fetch_total",
			Help:      "Dependent fetch results by kind and outcome (applied, stale, failed)",
		}, []string{"kind", "outcome"}),
		fetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "fetch_latency_seconds",
			Help:      "Latency of dependent fetches against the hospital API",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "submissions_total",
			Help:      "Submit actions by outcome",
		}, []string{"outcome"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "active_sessions",
			Help:      "Booking sessions currently open",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.fetchTotal, m.fetchLatency, m.submissionsTotal, m.activeSessions)
	return m
}

func (m *BookingMetrics) ObserveFetch(kind, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(kind, outcome).Inc()
	m.fetchLatency.WithLabelValues(kind).Observe(seconds)
}

func (m *BookingMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *BookingMetrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}
