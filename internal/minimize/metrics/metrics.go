package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the minimize module.
type Metrics struct {
	// Filter outcomes per law
	FilterOutcome *prometheus.CounterVec

	// Minimal-data collection latency by field
	CollectLatency *prometheus.HistogramVec

	// Minimal-data collection failures by field
	CollectFailures *prometheus.CounterVec
}

// New creates a new Metrics instance with all minimize module metrics registered.
func New() *Metrics {
	return &Metrics{
		FilterOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "machinelaw_minimize_filter_outcomes_total",
			Help: "Early-elimination filter outcomes by law and result",
		}, []string{"law", "result"}), // result: "eliminated", "survived"

		CollectLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "machinelaw_minimize_collect_duration_seconds",
			Help:    "Duration of minimal-data field collection by field",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"field"}),

		CollectFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "machinelaw_minimize_collect_failures_total",
			Help: "Minimal-data field collection failures by field",
		}, []string{"field"}),
	}
}

// IncrementOutcome records one filter outcome for a law.
func (m *Metrics) IncrementOutcome(law, result string) {
	if m != nil {
		m.FilterOutcome.WithLabelValues(law, result).Inc()
	}
}

// ObserveCollectLatency records the duration of one field collection.
func (m *Metrics) ObserveCollectLatency(field string, d time.Duration) {
	if m != nil {
		m.CollectLatency.WithLabelValues(field).Observe(d.Seconds())
	}
}

// IncrementCollectFailure records a failed field collection.
func (m *Metrics) IncrementCollectFailure(field string) {
	if m != nil {
		m.CollectFailures.WithLabelValues(field).Inc()
	}
}
