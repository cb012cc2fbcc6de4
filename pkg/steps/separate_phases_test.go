package steps

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/labforge/synthrig/pkg/rig"
)

func testSeparatePhases(t *testing.T, g *rig.Graph, lower string) *SeparatePhases {
	t.Helper()
	sp := &SeparatePhases{
		SeparationVessel: "separator",
		LowerPhaseVessel: lower,
		UpperPhaseVessel: "reactor",
	}
	mustResolve(t, g, sp)
	return sp
}

func countCommands(cmds []string, substr string) int {
	n := 0
	for _, c := range cmds {
		if strings.Contains(c, substr) {
			n++
		}
	}
	return n
}

// A sensor returning the simulation sentinel terminates the loop on the
// very first read, before any withdrawal.
func TestSeparatePhasesSimulationSentinel(t *testing.T) {
	g := testBench(t)
	sp := testSeparatePhases(t, g, "buffer1")
	dev := NewSimDevice()

	if err := sp.Execute(dev); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := countCommands(dev.Commands, "read-conductivity"); got != 1 {
		t.Fatalf("expected a single sensor read, got %d", got)
	}
	if got := countCommands(dev.Commands, "-> pump2"); got != 0 {
		t.Fatalf("expected no withdrawals, got %d", got)
	}
	// Prime plus the upper-phase move.
	if got := countCommands(dev.Commands, "move "); got != 2 {
		t.Fatalf("expected 2 moves, got %d: %v", got, dev.Commands)
	}
}

// A conductivity jump after a stable baseline ends the withdrawal loop,
// with pump drains interleaved whenever the pump fills.
func TestSeparatePhasesDetectsJump(t *testing.T) {
	g := testBench(t)
	sp := testSeparatePhases(t, g, "buffer1")
	dev := NewSimDevice()
	dev.Readings = []float64{100, 100, 100, 100, 100, 100, 600}

	if err := sp.Execute(dev); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(dev.Readings) != 0 {
		t.Fatalf("expected all scripted readings consumed, %d left", len(dev.Readings))
	}
	if got := countCommands(dev.Commands, "read-conductivity"); got != 7 {
		t.Fatalf("expected 7 sensor reads, got %d", got)
	}
	// Six 1 mL withdrawals into a 3 mL pump: one mid-loop drain plus the
	// final flush of the remaining 3 mL.
	if got := countCommands(dev.Commands, "-> pump2"); got != 6 {
		t.Fatalf("expected 6 withdrawals, got %d", got)
	}
	if got := countCommands(dev.Commands, "move pump2"); got != 2 {
		t.Fatalf("expected 2 pump drains, got %d", got)
	}
}

// Draining the whole separator without a jump triggers a retry: held
// liquid goes back into the separator and the loop restarts.
func TestSeparatePhasesRetriesAfterExhaustion(t *testing.T) {
	g := testBench(t)
	sp := testSeparatePhases(t, g, "buffer1")
	dev := NewSimDevice()
	flat := make([]float64, 11) // seed + 10 withdrawals drains the 10 mL separator
	for i := range flat {
		flat[i] = 100
	}
	dev.Readings = append(flat, 100, 100, 100, 100, 100, 100, 600)

	if err := sp.Execute(dev); err != nil {
		t.Fatalf("expected retry to rescue the separation, got %v", err)
	}
	if len(dev.Readings) != 0 {
		t.Fatalf("expected all scripted readings consumed, %d left", len(dev.Readings))
	}
	// Both the pump residue and the accumulated lower-phase volume go
	// back to the separator between attempts.
	if got := countCommands(dev.Commands, "-> separator"); got < 2 {
		t.Fatalf("expected return moves to the separator, got %d", got)
	}
	if got := countCommands(dev.Commands, "move buffer1"); got == 0 {
		t.Fatal("expected the parked lower phase to be pulled back from buffer1")
	}
}

// Liquid sent to a waste cannot come back, so a retry is never attempted
// when the lower phase drains to waste.
func TestSeparatePhasesRetryDeniedForWasteDestination(t *testing.T) {
	g := testBench(t)
	sp := testSeparatePhases(t, g, "waste1")
	dev := NewSimDevice()
	flat := make([]float64, 11)
	for i := range flat {
		flat[i] = 100
	}
	dev.Readings = flat

	err := sp.Execute(dev)
	if err == nil {
		t.Fatal("expected a terminal error")
	}
	if !strings.Contains(err.Error(), "after 1 attempt") {
		t.Fatalf("error should name the attempt count, got %q", err)
	}
	if got := countCommands(dev.Commands, "-> waste1"); got == 0 {
		t.Fatal("expected remaining liquid routed to the failure vessel")
	}
}

// Exceeding the retry budget routes everything to the failure vessel and
// reports how many attempts were made.
func TestSeparatePhasesRetriesExhausted(t *testing.T) {
	g := testBench(t)
	sp := testSeparatePhases(t, g, "buffer1")
	sp.MaxRetries = 1
	dev := NewSimDevice()
	flat := make([]float64, 22)
	for i := range flat {
		flat[i] = 100
	}
	dev.Readings = flat

	err := sp.Execute(dev)
	if err == nil {
		t.Fatal("expected a terminal error")
	}
	if !strings.Contains(err.Error(), "after 2 attempt") {
		t.Fatalf("error should name the attempt count, got %q", err)
	}
	if !strings.Contains(err.Error(), "waste1") {
		t.Fatalf("error should name the failure vessel, got %q", err)
	}
}

// A separator with no pump or no sensor cannot run the loop at all.
func TestSeparatePhasesResolveRequiresPumpAndSensor(t *testing.T) {
	g, err := rig.New(
		[]rig.Node{
			{ID: "separator", Kind: rig.KindSeparator, Class: "separator", MaxVolume: 100},
			{ID: "valve1", Kind: rig.KindValve, Class: "valve"},
			{ID: "waste1", Kind: rig.KindWaste, Class: "waste"},
		},
		[]rig.Edge{
			{From: "separator", To: "valve1", FromPort: rig.PortBottom, ToPort: "0"},
			{From: "valve1", To: "separator", FromPort: "0", ToPort: rig.PortBottom},
			{From: "valve1", To: "waste1", FromPort: "1", ToPort: "0"},
		},
	)
	if err != nil {
		t.Fatalf("building rig: %v", err)
	}
	sp := &SeparatePhases{
		SeparationVessel: "separator",
		LowerPhaseVessel: "waste1",
		UpperPhaseVessel: "separator",
	}
	if err := sp.Resolve(g); err == nil {
		t.Fatal("expected resolve to fail without a pump on the separator valve")
	}
}

func TestPhaseBoundaryNeedsSixPoints(t *testing.T) {
	readings := []float64{100, 100, 100, 100, 900}
	if phaseBoundary(readings, EdgeEither) {
		t.Fatal("boundary flagged with fewer than six readings")
	}
}

func TestPhaseBoundaryDirections(t *testing.T) {
	rising := []float64{100, 100, 100, 100, 100, 600}
	falling := []float64{600, 600, 600, 600, 600, 100}

	if !phaseBoundary(rising, EdgeRising) {
		t.Fatal("rising edge not flagged")
	}
	if phaseBoundary(rising, EdgeFalling) {
		t.Fatal("rising edge flagged as falling")
	}
	if !phaseBoundary(falling, EdgeFalling) {
		t.Fatal("falling edge not flagged")
	}
	if !phaseBoundary(rising, EdgeEither) || !phaseBoundary(falling, EdgeEither) {
		t.Fatal("either-direction mode should flag both edges")
	}
}

// Property: on a flat baseline the std floor fixes the detection
// threshold, so any jump beyond sensitivity*floor is flagged and any
// excursion inside the band is not, regardless of the baseline level.
func TestPhaseBoundaryThresholdProperty(t *testing.T) {
	threshold := DiscriminantSensitivity * DiscriminantMinStd

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("jump beyond the band is always flagged", prop.ForAll(
		func(baseline, excess float64) bool {
			jump := threshold + excess
			readings := []float64{baseline, baseline, baseline, baseline, baseline, baseline + jump}
			return phaseBoundary(readings, EdgeRising) &&
				phaseBoundary(readings, EdgeEither)
		},
		gen.Float64Range(0, 2000),
		gen.Float64Range(1, 1000),
	))

	properties.Property("wobble inside the band is never flagged", prop.ForAll(
		func(baseline, fraction float64) bool {
			wobble := threshold * fraction
			readings := []float64{baseline, baseline, baseline, baseline, baseline, baseline + wobble}
			return !phaseBoundary(readings, EdgeEither)
		},
		gen.Float64Range(0, 2000),
		gen.Float64Range(-0.99, 0.99),
	))

	properties.TestingRun(t)
}
