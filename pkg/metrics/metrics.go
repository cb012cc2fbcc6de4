package metrics

import (
	"time"
)

// RecordPreparation records one completed preparation run with its duration.
func (r *Registry) RecordPreparation(status string, duration time.Duration) {
	r.ProceduresPrepared.WithLabelValues(status).Inc()
	r.PreparationDuration.Observe(duration.Seconds())
}

// RecordStepExpanded records one step expansion by kind.
func (r *Registry) RecordStepExpanded(kind string) {
	r.StepsExpanded.WithLabelValues(kind).Inc()
}

// RecordSanityFailure records one failed sanity check by step kind.
func (r *Registry) RecordSanityFailure(kind string) {
	r.SanityFailures.WithLabelValues(kind).Inc()
}

// RecordElision records one step removed by the named optimization pass.
func (r *Registry) RecordElision(pass string) {
	r.StepsElided.WithLabelValues(pass).Inc()
}

// RecordImpliedStep records one implied step inserted by the named pass.
func (r *Registry) RecordImpliedStep(pass string) {
	r.ImpliedStepsAdded.WithLabelValues(pass).Inc()
}

// RecordCommand records one executed primitive command with its duration.
func (r *Registry) RecordCommand(kind, status string, duration time.Duration) {
	r.CommandsExecuted.WithLabelValues(kind, status).Inc()
	r.CommandDuration.WithLabelValues(kind).Observe(duration.Seconds())

	if status != "ok" {
		r.ExecutionFailures.WithLabelValues(kind).Inc()
	}
}
