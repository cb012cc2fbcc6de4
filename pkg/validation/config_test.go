package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/labforge/synthrig/pkg/pipeline"
)

func TestConfigValidatorCollectsErrors(t *testing.T) {
	cv := NewConfigValidator("TestConfig").
		Required("Name", "").
		PositiveFloat("Volume", -5).
		NonNegativeFloat("DeadVolume", -1).
		MinDuration("Settle", time.Second, 2*time.Second)

	if !cv.HasErrors() {
		t.Fatal("expected validation errors")
	}
	if got := len(cv.Errors()); got != 4 {
		t.Fatalf("collected %d errors, want 4", got)
	}
	err := cv.Validate()
	if err == nil {
		t.Fatal("Validate should fail")
	}
	if !strings.Contains(err.Error(), "TestConfig") {
		t.Errorf("error should carry the config name: %v", err)
	}
}

func TestConfigValidatorPasses(t *testing.T) {
	err := NewConfigValidator("TestConfig").
		Required("Name", "rig").
		PositiveFloat("Volume", 10).
		NonNegativeFloat("DeadVolume", 0).
		Validate()
	if err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestConfigValidatorWhen(t *testing.T) {
	cv := NewConfigValidator("TestConfig").
		When(false, func(cv *ConfigValidator) {
			cv.Required("Skipped", "")
		}).
		When(true, func(cv *ConfigValidator) {
			cv.Required("Checked", "")
		})
	if got := len(cv.Errors()); got != 1 {
		t.Fatalf("collected %d errors, want 1", got)
	}
}

func TestValidateRunOptions(t *testing.T) {
	for _, method := range []string{"", pipeline.DeadVolumeSolvent, pipeline.DeadVolumeInertGas} {
		opts := pipeline.Options{FilterDeadVolumeMethod: method}
		if err := ValidateRunOptions(opts); err != nil {
			t.Errorf("method %q rejected: %v", method, err)
		}
	}

	err := ValidateRunOptions(pipeline.Options{FilterDeadVolumeMethod: "backfill"})
	if err == nil {
		t.Fatal("unknown dead-volume method must be rejected")
	}
	if !strings.Contains(err.Error(), "FilterDeadVolumeMethod") {
		t.Errorf("error should name the field: %v", err)
	}
}

type validatableConfig struct {
	ok bool
}

func (c *validatableConfig) Validate() error {
	return NewConfigValidator("validatableConfig").
		When(!c.ok, func(cv *ConfigValidator) {
			cv.Required("ok", "")
		}).
		Validate()
}

func TestValidateConfig(t *testing.T) {
	if err := ValidateConfig(&validatableConfig{ok: true}); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if err := ValidateConfig(&validatableConfig{ok: false}); err == nil {
		t.Fatal("invalid config must be rejected")
	}
	if err := ValidateConfig(nil); err == nil {
		t.Fatal("nil config must be rejected")
	}
}
