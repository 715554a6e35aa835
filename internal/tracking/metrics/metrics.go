package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the tracking module.
type Metrics struct {
	// Finished sessions
	SessionsTotal prometheus.Counter

	// Per-session elimination rate distribution, in percent
	EliminationRate prometheus.Histogram

	// Early eliminations by reason
	EliminationsTotal *prometheus.CounterVec

	// Field accesses by sensitivity level
	FieldAccessTotal *prometheus.CounterVec
}

// New creates a new Metrics instance with all tracking module metrics registered.
func New() *Metrics {
	return &Metrics{
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "machinelaw_tracking_sessions_total",
			Help: "Total finished minimization sessions",
		}),

		EliminationRate: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "machinelaw_tracking_elimination_rate",
			Help:    "Percentage of laws eliminated early per session",
			Buckets: []float64{0, 10, 25, 50, 75, 90, 100},
		}),

		EliminationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "machinelaw_tracking_eliminations_total",
			Help: "Total early eliminations by reason",
		}, []string{"reason"}),

		FieldAccessTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "machinelaw_tracking_field_access_total",
			Help: "Total field accesses by sensitivity level",
		}, []string{"sensitivity"}),
	}
}

// ObserveSession records a finished session and its elimination rate.
func (m *Metrics) ObserveSession(rate float64) {
	if m != nil {
		m.SessionsTotal.Inc()
		m.EliminationRate.Observe(rate)
	}
}

// IncrementElimination records one early elimination.
func (m *Metrics) IncrementElimination(reason string) {
	if m != nil {
		m.EliminationsTotal.WithLabelValues(reason).Inc()
	}
}

// IncrementFieldAccess records one field access at a sensitivity level.
func (m *Metrics) IncrementFieldAccess(level int) {
	if m != nil {
		m.FieldAccessTotal.WithLabelValues(strconv.Itoa(level)).Inc()
	}
}
