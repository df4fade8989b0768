package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the compliance module.
type Metrics struct {
	// Rule evaluations by rule type and outcome
	RuleEvaluations *prometheus.CounterVec

	// Transfers blocked, labelled by the failing rule type
	TransfersBlocked *prometheus.CounterVec

	// Full aggregator evaluation latency
	EvaluateLatency prometheus.Histogram
}

// New creates a Metrics instance with all compliance metrics registered.
func New() *Metrics {
	return &Metrics{
		RuleEvaluations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tokengate_rule_evaluations_total",
			Help: "Total rule evaluations by rule type and outcome",
		}, []string{"rule", "outcome"}), // outcome: "pass", "block"

		TransfersBlocked: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tokengate_transfers_blocked_total",
			Help: "Total transfers blocked by the failing rule type",
		}, []string{"rule"}),

		EvaluateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tokengate_compliance_evaluate_duration_seconds",
			Help:    "Duration of full aggregator evaluation across active rules",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025},
		}),
	}
}

// IncrementEvaluation records one rule evaluation outcome.
func (m *Metrics) IncrementEvaluation(rule, outcome string) {
	if m != nil {
		m.RuleEvaluations.WithLabelValues(rule, outcome).Inc()
	}
}

// IncrementBlocked records a blocked transfer.
func (m *Metrics) IncrementBlocked(rule string) {
	if m != nil {
		m.TransfersBlocked.WithLabelValues(rule).Inc()
	}
}

// ObserveEvaluateLatency records the total evaluation duration.
func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}
