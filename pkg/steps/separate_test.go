package steps

import (
	"fmt"
	"testing"
)

// Explicit cases of the buffer-flask requirement table.
func TestSeparateBufferFlasksRequired(t *testing.T) {
	cases := []struct {
		name     string
		purpose  string
		n        int
		bottom   bool
		toSep    bool
		wasteSep bool
		want     int
	}{
		{"multi extract top product staying in separator", PurposeExtract, 2, false, true, false, 2},
		{"single separation product bottom staying in separator", PurposeWash, 1, true, true, false, 1},
		{"multi wash product bottom staying in separator", PurposeWash, 3, true, true, false, 1},
		{"multi extract product bottom staying in separator", PurposeExtract, 2, true, true, false, 1},
		{"multi extract top product leaving separator", PurposeExtract, 2, false, false, false, 1},
		{"waste phase routed back to separator", PurposeWash, 1, false, false, true, 1},
		{"plain single wash", PurposeWash, 1, false, false, false, 0},
		{"plain single extract product bottom", PurposeExtract, 1, true, false, false, 0},
		{"multi wash product bottom leaving separator", PurposeWash, 2, true, false, false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := buildSeparate(tc.purpose, tc.n, tc.bottom, tc.toSep, tc.wasteSep)
			if got := s.BufferFlasksRequired(); got != tc.want {
				t.Fatalf("required %d buffer flasks, got %d", tc.want, got)
			}
		})
	}
}

func buildSeparate(purpose string, n int, bottom, toSep, wasteSep bool) *Separate {
	s := &Separate{
		Purpose:          purpose,
		FromVessel:       "reactor",
		SeparationVessel: "separator",
		ToVessel:         "reactor",
		ProductBottom:    bottom,
		Solvent:          "ether",
		NSeparations:     n,
	}
	if toSep {
		s.ToVessel = "separator"
	}
	if wasteSep {
		s.WastePhaseToVessel = "separator"
	}
	return s
}

// Sweeping the whole parameter space, the number of distinct buffer flasks
// the expansion actually touches must equal the requirement function. The
// two are maintained separately and have drifted apart before.
func TestSeparateExpansionMatchesRequirementTable(t *testing.T) {
	g := testBench(t)
	for _, purpose := range []string{PurposeWash, PurposeExtract} {
		for _, n := range []int{1, 2, 3} {
			for _, bottom := range []bool{false, true} {
				for _, toSep := range []bool{false, true} {
					for _, wasteSep := range []bool{false, true} {
						if toSep && wasteSep {
							// Product and waste phase to the same vessel
							// is rejected by the sanity checks.
							continue
						}
						name := fmt.Sprintf("%s/n=%d/bottom=%v/toSep=%v/wasteSep=%v",
							purpose, n, bottom, toSep, wasteSep)
						t.Run(name, func(t *testing.T) {
							s := buildSeparate(purpose, n, bottom, toSep, wasteSep)
							mustResolve(t, g, s)
							used := buffersUsed(s.Expand())
							if len(used) != s.BufferFlasksRequired() {
								t.Fatalf("expansion uses buffers %v but requirement is %d",
									used, s.BufferFlasksRequired())
							}
						})
					}
				}
			}
		}
	}
}

// buffersUsed collects the distinct buffer flasks referenced anywhere in
// an expansion, in first-use order.
func buffersUsed(steps []Step) []string {
	seen := map[string]bool{}
	var out []string
	mark := func(v string) {
		if (v == "buffer1" || v == "buffer2") && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, s := range steps {
		switch st := s.(type) {
		case *SeparatePhases:
			mark(st.LowerPhaseVessel)
			mark(st.UpperPhaseVessel)
			mark(st.DeadVolumeVessel)
		case *Transfer:
			mark(st.FromVessel)
			mark(st.ToVessel)
		}
	}
	return out
}

// A single extraction expands to transfer in, add solvent, two stir
// stages, a settle wait and one phase split.
func TestSeparateSingleExtractionExpansion(t *testing.T) {
	g := testBench(t)
	s := &Separate{
		Purpose:          PurposeExtract,
		FromVessel:       "reactor",
		SeparationVessel: "separator",
		ToVessel:         "rotavap1",
		ProductBottom:    false,
		Solvent:          "ether",
		SolventVolume:    50,
	}
	mustResolve(t, g, s)
	out := s.Expand()
	assertKinds(t, out,
		KindTransfer, KindAdd, KindStir, KindStir, KindCmdWait, KindSeparatePhases)

	sp := out[5].(*SeparatePhases)
	if sp.UpperPhaseVessel != "rotavap1" {
		t.Fatalf("product phase should go to rotavap1, got %q", sp.UpperPhaseVessel)
	}
	if sp.LowerPhaseVessel != "waste1" {
		t.Fatalf("waste phase should default to nearest waste, got %q", sp.LowerPhaseVessel)
	}
	if sp.DeadVolumeVessel != "waste1" {
		t.Fatalf("dead volume should be stripped to waste by default, got %q", sp.DeadVolumeVessel)
	}
}

// Multi-round washes re-add solvent and re-stir between every phase split.
func TestSeparateMultiWashRoundStructure(t *testing.T) {
	g := testBench(t)
	s := &Separate{
		Purpose:          PurposeWash,
		FromVessel:       "reactor",
		SeparationVessel: "separator",
		ToVessel:         "rotavap1",
		ProductBottom:    true,
		Solvent:          "water",
		NSeparations:     3,
	}
	mustResolve(t, g, s)
	out := s.Expand()

	var adds, splits int
	for _, st := range out {
		switch st.Kind() {
		case KindAdd:
			adds++
		case KindSeparatePhases:
			splits++
		}
	}
	if adds != 3 {
		t.Fatalf("expected one solvent addition per round, got %d", adds)
	}
	if splits != 3 {
		t.Fatalf("expected one phase split per round, got %d", splits)
	}

	// Each intermediate split must put the product phase back in the
	// separator for the next round.
	var intermediates []*SeparatePhases
	for _, st := range out[:len(out)-1] {
		if sp, ok := st.(*SeparatePhases); ok {
			intermediates = append(intermediates, sp)
		}
	}
	for i, sp := range intermediates {
		if sp.LowerPhaseVessel != "rotavap1" {
			t.Fatalf("round %d: product (lower) phase should pass through rotavap1, got %q",
				i+1, sp.LowerPhaseVessel)
		}
	}
}

// KeepDeadVolume suppresses the dead-volume strip on every split the
// routine emits.
func TestSeparateKeepDeadVolume(t *testing.T) {
	g := testBench(t)
	s := &Separate{
		Purpose:          PurposeExtract,
		FromVessel:       "reactor",
		SeparationVessel: "separator",
		ToVessel:         "rotavap1",
		ProductBottom:    true,
		Solvent:          "ether",
		KeepDeadVolume:   true,
	}
	mustResolve(t, g, s)
	for _, st := range s.Expand() {
		if sp, ok := st.(*SeparatePhases); ok {
			if sp.DeadVolumeVessel != "" {
				t.Fatalf("dead volume vessel should be empty, got %q", sp.DeadVolumeVessel)
			}
		}
	}
}

// Starting the separation in the separator itself skips the initial
// transfer.
func TestSeparateFromSeparatorSkipsTransfer(t *testing.T) {
	g := testBench(t)
	s := &Separate{
		Purpose:          PurposeWash,
		FromVessel:       "separator",
		SeparationVessel: "separator",
		ToVessel:         "reactor",
		ProductBottom:    true,
		Solvent:          "water",
	}
	mustResolve(t, g, s)
	out := s.Expand()
	if out[0].Kind() != KindAdd {
		t.Fatalf("expected expansion to start with solvent addition, got %s", out[0].Kind())
	}
}

// The product-through-cartridge route attaches the cartridge to the
// product phase moves only.
func TestSeparateThroughCartridge(t *testing.T) {
	g := testBench(t)
	s := &Separate{
		Purpose:          PurposeExtract,
		FromVessel:       "reactor",
		SeparationVessel: "separator",
		ToVessel:         "rotavap1",
		ProductBottom:    true,
		Solvent:          "ether",
		Through:          "celite",
	}
	mustResolve(t, g, s)
	out := s.Expand()
	sp := out[len(out)-1].(*SeparatePhases)
	if sp.LowerPhaseThrough != "celite_cart" {
		t.Fatalf("product phase should route through celite_cart, got %q", sp.LowerPhaseThrough)
	}
	if sp.UpperPhaseThrough != "" {
		t.Fatalf("waste phase must not route through the cartridge, got %q", sp.UpperPhaseThrough)
	}
}

func TestSeparateSanityChecks(t *testing.T) {
	g := testBench(t)

	s := buildSeparate("distill", 1, true, false, false)
	mustResolve(t, g, s)
	if !anyFailed(s.SanityChecks(g)) {
		t.Fatal("invalid purpose should fail sanity checks")
	}

	s = buildSeparate(PurposeWash, 1, false, false, false)
	s.ToVessel = "reactor"
	s.WastePhaseToVessel = "reactor"
	mustResolve(t, g, s)
	if !anyFailed(s.SanityChecks(g)) {
		t.Fatal("product and waste phase to the same vessel should fail sanity checks")
	}
}

func anyFailed(checks []Check) bool {
	for _, c := range checks {
		if !c.OK {
			return true
		}
	}
	return false
}
