package metrics

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	// Verify all metrics are initialized
	if r.ProceduresPrepared == nil {
		t.Error("ProceduresPrepared not initialized")
	}
	if r.PreparationDuration == nil {
		t.Error("PreparationDuration not initialized")
	}
	if r.StepsExpanded == nil {
		t.Error("StepsExpanded not initialized")
	}
	if r.CommandsExecuted == nil {
		t.Error("CommandsExecuted not initialized")
	}
	if r.registry == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	// Should return the same instance
	r1 := DefaultRegistry()
	r2 := DefaultRegistry()

	if r1 != r2 {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestRecordPreparation(t *testing.T) {
	r := NewRegistry()

	r.RecordPreparation("ok", 100*time.Millisecond)
	r.RecordPreparation("ok", 200*time.Millisecond)
	r.RecordPreparation("error", 50*time.Millisecond)

	counter, err := r.ProceduresPrepared.GetMetricWithLabelValues("ok")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if got := metric.GetCounter().GetValue(); got != 2 {
		t.Errorf("ProceduresPrepared[ok] = %v, want 2", got)
	}
}

func TestRecordStepExpanded(t *testing.T) {
	r := NewRegistry()

	r.RecordStepExpanded("Separate")
	r.RecordStepExpanded("Separate")
	r.RecordStepExpanded("Add")

	counter, err := r.StepsExpanded.GetMetricWithLabelValues("Separate")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if got := metric.GetCounter().GetValue(); got != 2 {
		t.Errorf("StepsExpanded[Separate] = %v, want 2", got)
	}
}

func TestRecordCommandFailureIncrementsFailures(t *testing.T) {
	r := NewRegistry()

	r.RecordCommand("CmdMove", "ok", time.Second)
	r.RecordCommand("CmdMove", "error", time.Second)

	counter, err := r.ExecutionFailures.GetMetricWithLabelValues("CmdMove")
	if err != nil {
		t.Fatalf("Failed to get metric: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if got := metric.GetCounter().GetValue(); got != 1 {
		t.Errorf("ExecutionFailures[CmdMove] = %v, want 1", got)
	}
}

func TestRegistryGathers(t *testing.T) {
	r := NewRegistry()
	r.RecordElision("backbone-clean")
	r.RecordImpliedStep("filter-dead-volume")
	r.PhaseSeparationRetries.Inc()

	families, err := r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	want := map[string]bool{
		"synthrig_steps_elided_total":             false,
		"synthrig_implied_steps_added_total":      false,
		"synthrig_phase_separation_retries_total": false,
	}
	for _, fam := range families {
		if _, ok := want[fam.GetName()]; ok {
			want[fam.GetName()] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("metric family %s not gathered", name)
		}
	}
}
