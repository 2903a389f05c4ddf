package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the verification service.
type Metrics struct {
	// Counters
	Verifications  *prometheus.CounterVec
	CheckFailures  *prometheus.CounterVec
	ForwardErrors  prometheus.Counter
	StoreErrors    *prometheus.CounterVec
	ShipperDropped prometheus.Counter
	HTTPRequests   *prometheus.CounterVec

	// Histograms
	HTTPDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// NewMetrics creates the collectors and registers them on a private
// registry so several instances can coexist in one process.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := newMetrics(registry)
	m.gatherer = registry
	return m
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "behaviorgate_verifications_total",
				Help: "Verification outcomes by verdict",
			},
			[]string{"verdict"},
		),

		CheckFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "behaviorgate_check_failures_total",
				Help: "Failed checks by reason",
			},
			[]string{"reason"},
		),

		ForwardErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "behaviorgate_forward_errors_total",
				Help: "Failed calls to the downstream service",
			},
		),

		StoreErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "behaviorgate_store_errors_total",
				Help: "Failed store operations by operation",
			},
			[]string{"operation"},
		),

		ShipperDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "behaviorgate_shipper_dropped_total",
				Help: "Audit records dropped because the publish queue was full",
			},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "behaviorgate_http_requests_total",
				Help: "HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),

		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "behaviorgate_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"route", "method"},
		),
	}

	reg.MustRegister(
		m.Verifications,
		m.CheckFailures,
		m.ForwardErrors,
		m.StoreErrors,
		m.ShipperDropped,
		m.HTTPRequests,
		m.HTTPDuration,
	)

	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveVerdict records one finished verification and its failed checks.
// Safe to call on a nil receiver.
func (m *Metrics) ObserveVerdict(isBot bool, failures []string) {
	if m == nil {
		return
	}

	verdict := "human"
	if isBot {
		verdict = "bot"
	}
	m.Verifications.WithLabelValues(verdict).Inc()

	for _, reason := range failures {
		m.CheckFailures.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) ObserveStoreError(operation string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(operation).Inc()
}

func (m *Metrics) ObserveForwardError() {
	if m == nil {
		return
	}
	m.ForwardErrors.Inc()
}

func (m *Metrics) ObserveShipperDrop() {
	if m == nil {
		return
	}
	m.ShipperDropped.Inc()
}
