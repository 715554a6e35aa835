package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the engine module.
type Metrics struct {
	// Evaluation latencies by law
	EvaluateLatency *prometheus.HistogramVec

	// Evaluation outcomes by law and status
	EvaluationOutcome *prometheus.CounterVec

	// Source lookup latencies by table
	SourceLatency *prometheus.HistogramVec
}

// New creates a new Metrics instance with all engine module metrics registered.
func New() *Metrics {
	return &Metrics{
		EvaluateLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "machinelaw_engine_evaluate_duration_seconds",
			Help:    "Duration of law evaluations by law",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"law"}),

		EvaluationOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "machinelaw_engine_evaluations_total",
			Help: "Total law evaluations by law and status",
		}, []string{"law", "status"}), // status: "ok", "missing_required", "error"

		SourceLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "machinelaw_engine_source_duration_seconds",
			Help:    "Duration of data source lookups by table",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		}, []string{"table"}),
	}
}

// ObserveEvaluateLatency records the duration of one law evaluation.
func (m *Metrics) ObserveEvaluateLatency(law string, d time.Duration) {
	if m != nil {
		m.EvaluateLatency.WithLabelValues(law).Observe(d.Seconds())
	}
}

// IncrementOutcome records an evaluation outcome.
func (m *Metrics) IncrementOutcome(law, status string) {
	if m != nil {
		m.EvaluationOutcome.WithLabelValues(law, status).Inc()
	}
}

// ObserveSourceLatency records the duration of a data source lookup.
func (m *Metrics) ObserveSourceLatency(table string, d time.Duration) {
	if m != nil {
		m.SourceLatency.WithLabelValues(table).Observe(d.Seconds())
	}
}
