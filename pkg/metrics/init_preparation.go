package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initPreparationMetrics() {
	r.ProceduresPrepared = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "synthrig_procedures_prepared_total",
			Help: "Total number of procedures prepared for execution",
		},
		[]string{"status"},
	)

	r.PreparationDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "synthrig_preparation_duration_seconds",
			Help:    "Procedure preparation duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
	)

	r.StepsExpanded = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "synthrig_steps_expanded_total",
			Help: "Total number of steps expanded during preparation",
		},
		[]string{"kind"},
	)

	r.SanityFailures = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "synthrig_sanity_failures_total",
			Help: "Total number of failed sanity checks",
		},
		[]string{"kind"},
	)

	r.StepsElided = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "synthrig_steps_elided_total",
			Help: "Total number of steps removed by optimization passes",
		},
		[]string{"pass"},
	)

	r.ImpliedStepsAdded = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "synthrig_implied_steps_added_total",
			Help: "Total number of implied steps inserted during preparation",
		},
		[]string{"pass"},
	)
}
