package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initExecutionMetrics() {
	r.CommandsExecuted = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "synthrig_commands_executed_total",
			Help: "Total number of primitive device commands executed",
		},
		[]string{"kind", "status"},
	)

	r.CommandDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "synthrig_command_duration_seconds",
			Help:    "Device command execution duration in seconds",
			Buckets: []float64{0.01, 0.1, 1.0, 10.0, 60.0, 600.0, 3600.0},
		},
		[]string{"kind"},
	)

	r.PhaseSeparationReads = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "synthrig_phase_separation_reads_total",
			Help: "Total number of conductivity sensor reads during phase separation",
		},
	)

	r.PhaseSeparationRetries = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "synthrig_phase_separation_retries_total",
			Help: "Total number of phase separation retry attempts",
		},
	)

	r.ExecutionFailures = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "synthrig_execution_failures_total",
			Help: "Total number of device command failures",
		},
		[]string{"kind"},
	)
}
