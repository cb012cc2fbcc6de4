package pipeline

import (
	"testing"
	"time"

	"github.com/labforge/synthrig/pkg/steps"
)

func kindsOf(list []steps.Step) []steps.Kind {
	out := make([]steps.Kind, len(list))
	for i, s := range list {
		out[i] = s.Kind()
	}
	return out
}

func assertKinds(t *testing.T, got []steps.Step, want ...steps.Kind) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d steps %v, want %d %v", len(got), kindsOf(got), len(want), want)
	}
	for i, k := range want {
		if got[i].Kind() != k {
			t.Fatalf("step %d: got %v, want %v (full: %v)", i, got[i].Kind(), k, kindsOf(got))
		}
	}
}

func TestCleaningScheduleBackfillsAndCarriesForward(t *testing.T) {
	g := benchGraph(t)
	list := []steps.Step{
		&steps.Add{Reagent: "brine", Vessel: "reactor", Volume: 5},
		&steps.Add{Reagent: "ether", Vessel: "reactor", Volume: 5},
		&steps.Add{Reagent: "brine", Vessel: "reactor", Volume: 5},
	}

	got := cleaningSchedule(list, nil, g)
	want := []string{"ether", "ether", "ether"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("schedule[%d] = %q, want %q (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestCleaningScheduleWaterNeverCarriesForward(t *testing.T) {
	g := benchGraph(t)
	list := []steps.Step{
		&steps.Add{Reagent: "ether", Vessel: "reactor", Volume: 5},
		&steps.Add{Reagent: "water", Vessel: "reactor", Volume: 5},
		&steps.Add{Reagent: "brine", Vessel: "reactor", Volume: 5},
	}

	got := cleaningSchedule(list, nil, g)
	want := []string{"ether", "water", "ether"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("schedule[%d] = %q, want %q (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestCleaningScheduleHonorsReagentOverride(t *testing.T) {
	g := benchGraph(t)
	list := []steps.Step{
		&steps.Add{Reagent: "brine", Vessel: "reactor", Volume: 5},
	}
	reagents := []Reagent{{ID: "brine", CleaningSolvent: "water"}}

	got := cleaningSchedule(list, reagents, g)
	if got[0] != "water" {
		t.Fatalf("schedule[0] = %q, want override %q", got[0], "water")
	}
}

func TestInsertBackboneCleaning(t *testing.T) {
	g := benchGraph(t)
	p := NewPreparer(g, Options{AutoClean: true})

	list := []steps.Step{
		&steps.Add{Reagent: "water", Vessel: "reactor", Volume: 10},
		&steps.Add{Reagent: "ether", Vessel: "reactor", Volume: 10},
	}
	out := p.insertBackboneCleaning(list, nil)

	assertKinds(t, out,
		steps.KindAdd, steps.KindCleanBackbone, steps.KindCleanBackbone,
		steps.KindAdd, steps.KindCleanBackbone)

	// First clean chases the aqueous residue, second primes for the
	// upcoming organic addition.
	if s := out[1].(*steps.CleanBackbone).Solvent; s != "water" {
		t.Fatalf("first clean solvent = %q, want water", s)
	}
	if s := out[2].(*steps.CleanBackbone).Solvent; s != "ether" {
		t.Fatalf("second clean solvent = %q, want ether", s)
	}
	if s := out[4].(*steps.CleanBackbone).Solvent; s != "ether" {
		t.Fatalf("final clean solvent = %q, want ether", s)
	}
}

func TestRemovePointlessBackboneCleaning(t *testing.T) {
	g := benchGraph(t)
	p := NewPreparer(g, Options{})

	// Between a filtration and the dry of the same cake.
	out := p.removePointlessBackboneCleaning([]steps.Step{
		&steps.Filter{Vessel: "filter1"},
		&steps.CleanBackbone{Solvent: "ether"},
		&steps.Dry{Vessel: "filter1"},
	})
	assertKinds(t, out, steps.KindFilter, steps.KindDry)

	// Between two additions of the same reagent.
	out = p.removePointlessBackboneCleaning([]steps.Step{
		&steps.Add{Reagent: "water", Vessel: "reactor"},
		&steps.CleanBackbone{Solvent: "water"},
		&steps.Add{Reagent: "water", Vessel: "reactor"},
	})
	assertKinds(t, out, steps.KindAdd, steps.KindAdd)

	// Different reagents keep their clean.
	out = p.removePointlessBackboneCleaning([]steps.Step{
		&steps.Add{Reagent: "water", Vessel: "reactor"},
		&steps.CleanBackbone{Solvent: "water"},
		&steps.Add{Reagent: "ether", Vessel: "reactor"},
	})
	assertKinds(t, out, steps.KindAdd, steps.KindCleanBackbone, steps.KindAdd)
}

func TestElideSeparationDeadVolume(t *testing.T) {
	g := benchGraph(t)
	p := NewPreparer(g, Options{})

	wash := func(solvent string) *steps.Separate {
		return &steps.Separate{
			Purpose:          steps.PurposeWash,
			FromVessel:       "reactor",
			SeparationVessel: "separator",
			ToVessel:         "separator",
			Solvent:          solvent,
		}
	}
	final := func(solvent string) *steps.Separate {
		return &steps.Separate{
			Purpose:          steps.PurposeExtract,
			FromVessel:       "separator",
			SeparationVessel: "separator",
			ToVessel:         "reactor",
			Solvent:          solvent,
		}
	}

	first, second := wash("water"), final("water")
	p.elideSeparationDeadVolume([]steps.Step{first, second})
	if !first.KeepDeadVolume {
		t.Fatal("first separation should keep its dead volume for the next round")
	}
	if second.KeepDeadVolume {
		t.Fatal("last separation must still strip the interface layer")
	}

	// A wait between the two rounds does not break the pairing.
	first, second = wash("water"), final("water")
	p.elideSeparationDeadVolume([]steps.Step{
		first, &steps.CmdWait{Duration: time.Minute}, second,
	})
	if !first.KeepDeadVolume {
		t.Fatal("elision should look past intervening steps to the next separation")
	}
}

// Switching solvent class between rounds keeps the dead-volume strip: the
// interface layer belongs to the outgoing class.
func TestElideSeparationDeadVolumeSolventClassChange(t *testing.T) {
	g := benchGraph(t)
	p := NewPreparer(g, Options{})

	first := &steps.Separate{
		Purpose:          steps.PurposeWash,
		FromVessel:       "reactor",
		SeparationVessel: "separator",
		ToVessel:         "separator",
		Solvent:          "water",
	}
	second := &steps.Separate{
		Purpose:          steps.PurposeExtract,
		FromVessel:       "separator",
		SeparationVessel: "separator",
		ToVessel:         "reactor",
		Solvent:          "ether",
	}
	p.elideSeparationDeadVolume([]steps.Step{first, second})

	if first.KeepDeadVolume {
		t.Fatal("aqueous to organic solvent change must keep the dead-volume strip")
	}
}

func TestCollapseDryReturnToRT(t *testing.T) {
	g := benchGraph(t)
	p := NewPreparer(g, Options{})

	d := &steps.Dry{Vessel: "filter1", Temp: 60, HasTemp: true}
	p.collapseDryReturnToRT([]steps.Step{
		d,
		&steps.HeatChillToTemp{Vessel: "filter1", Temp: 60},
	})
	if !d.ContinueHeatChill {
		t.Fatal("dry before a hold at the same temperature should keep heating")
	}

	d2 := &steps.Dry{Vessel: "filter1", Temp: 60, HasTemp: true}
	p.collapseDryReturnToRT([]steps.Step{
		d2,
		&steps.HeatChillToTemp{Vessel: "filter1", Temp: 25},
	})
	if d2.ContinueHeatChill {
		t.Fatal("different target temperature must not suppress the cooldown")
	}
}

func TestConsolidateStirRates(t *testing.T) {
	g := benchGraph(t)
	p := NewPreparer(g, Options{})

	out := p.consolidateStirRates([]steps.Step{
		&steps.Separate{
			FromVessel:       "reactor",
			SeparationVessel: "separator",
			ToVessel:         "reactor",
		},
		&steps.Stir{Vessel: "reactor"},
	})

	assertKinds(t, out,
		steps.KindSetStirRate, steps.KindSetStirRate,
		steps.KindSeparate, steps.KindStir)

	// One per stirred vessel, sorted so runs stay reproducible.
	if v := out[0].(*steps.SetStirRate).Vessel; v != "reactor" {
		t.Fatalf("first stir rate vessel = %q, want reactor", v)
	}
	if v := out[1].(*steps.SetStirRate).Vessel; v != "separator" {
		t.Fatalf("second stir rate vessel = %q, want separator", v)
	}
}

func TestFlattenRepeats(t *testing.T) {
	inner := &steps.Repeat{Count: 2, Children: []steps.Step{
		&steps.Stir{Vessel: "reactor"},
	}}
	outer := &steps.Repeat{Count: 2, Children: []steps.Step{
		&steps.Add{Reagent: "water", Vessel: "reactor", Volume: 5},
		inner,
	}}

	out := flattenRepeats([]steps.Step{outer})
	assertKinds(t, out,
		steps.KindAdd, steps.KindStir, steps.KindStir,
		steps.KindAdd, steps.KindStir, steps.KindStir)
}

func TestFlattenRepeatsZeroCountRunsOnce(t *testing.T) {
	r := &steps.Repeat{Children: []steps.Step{
		&steps.Stir{Vessel: "reactor"},
	}}
	out := flattenRepeats([]steps.Step{r})
	assertKinds(t, out, steps.KindStir)
}

func TestAddFilterDeadVolume(t *testing.T) {
	g := benchGraph(t)
	p := NewPreparer(g, Options{FilterDeadVolumeMethod: DeadVolumeSolvent})

	list := []steps.Step{
		&steps.Add{Reagent: "water", Vessel: "filter1", Volume: 10},
		&steps.Filter{Vessel: "filter1"},
	}
	out := p.addFilterDeadVolume(list, nil)

	assertKinds(t, out,
		steps.KindAddFilterDeadVolume, steps.KindAdd,
		steps.KindRemoveFilterDeadVolume, steps.KindFilter)

	fill := out[0].(*steps.AddFilterDeadVolume)
	if fill.Vessel != "filter1" || fill.Volume != 2 {
		t.Fatalf("dead volume fill = %+v, want filter1 / 2 mL", fill)
	}
	drain := out[2].(*steps.RemoveFilterDeadVolume)
	if drain.Vessel != "filter1" || drain.DeadVolume != 2 {
		t.Fatalf("dead volume drain = %+v, want filter1 / 2 mL", drain)
	}
}

// Any step that empties the filter triggers the drain, not just a
// filtration: a full transfer out counts as the non-empty to empty
// transition too.
func TestAddFilterDeadVolumeDrainsOnTransferOut(t *testing.T) {
	g := benchGraph(t)
	p := NewPreparer(g, Options{FilterDeadVolumeMethod: DeadVolumeSolvent})

	list := []steps.Step{
		&steps.Add{Reagent: "water", Vessel: "filter1", Volume: 10},
		&steps.Transfer{FromVessel: "filter1", ToVessel: "reactor", All: true},
	}
	out := p.addFilterDeadVolume(list, nil)

	assertKinds(t, out,
		steps.KindAddFilterDeadVolume, steps.KindAdd,
		steps.KindRemoveFilterDeadVolume, steps.KindTransfer)

	// A partial withdrawal leaves liquid above the frit and must not
	// trigger the drain.
	list = []steps.Step{
		&steps.Add{Reagent: "water", Vessel: "filter1", Volume: 10},
		&steps.Transfer{FromVessel: "filter1", ToVessel: "reactor", Volume: 4},
	}
	out = p.addFilterDeadVolume(list, nil)
	assertKinds(t, out,
		steps.KindAddFilterDeadVolume, steps.KindAdd, steps.KindTransfer)
}

func TestApplyCleanVesselTemps(t *testing.T) {
	known := &steps.CleanVessel{Vessel: "reactor", Solvent: "water"}
	unknown := &steps.CleanVessel{Vessel: "reactor", Solvent: "brine"}
	pinned := &steps.CleanVessel{Vessel: "reactor", Solvent: "water", Temp: 50, HasTemp: true}
	applyCleanVesselTemps([]steps.Step{known, unknown, pinned})

	if !known.HasTemp || known.Temp != 80 {
		t.Fatalf("water clean temp = %v, want 80 (bp scaled down)", known.Temp)
	}
	if !unknown.HasTemp || unknown.Temp != 30 {
		t.Fatalf("unknown solvent clean temp = %v, want 30", unknown.Temp)
	}
	if pinned.Temp != 50 {
		t.Fatalf("explicit temp was overwritten: %v", pinned.Temp)
	}
}

func TestTrackerIgnoresGasFlushes(t *testing.T) {
	g := benchGraph(t)
	tr := newTracker(g)

	tr.fold(&steps.Add{Reagent: "water", Vessel: "filter1", Volume: 20}, []steps.Primitive{
		&steps.CmdMove{From: "water_flask", To: "filter1", Volume: 20},
		&steps.CmdMove{From: "nitrogen", To: "filter1", Volume: 5},
	})

	if v := tr.volume("filter1"); v != 20 {
		t.Fatalf("filter volume = %v, want 20 (gas flush must not count)", v)
	}
}

func TestTrackerFilterEmptiesVessel(t *testing.T) {
	g := benchGraph(t)
	tr := newTracker(g)

	tr.fold(&steps.Add{Reagent: "water", Vessel: "filter1", Volume: 20}, []steps.Primitive{
		&steps.CmdMove{From: "water_flask", To: "filter1", Volume: 20},
	})
	tr.fold(&steps.Filter{Vessel: "filter1"}, nil)

	if v := tr.volume("filter1"); v != 0 {
		t.Fatalf("filter volume after filtration = %v, want 0", v)
	}
}
