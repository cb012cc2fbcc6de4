package pipeline

import (
	"sort"
	"time"

	"github.com/labforge/synthrig/pkg/steps"
)

// Optimization passes. All of them are pure []Step transforms over the
// top-level list, run after implied-step insertion and before the final
// compile. None of them may change what liquid ends up where.

// elideSeparationDeadVolume keeps the interface layer in the separator
// when the next separation on that vessel picks it up anyway: a phase
// stays behind and both rounds use the same class of solvent, so draining
// the layer to waste would throw away product. An aqueous-to-organic
// change still strips the layer; the next round must not see it.
func (p *Preparer) elideSeparationDeadVolume(list []steps.Step) {
	for i, s := range list {
		sep, ok := s.(*steps.Separate)
		if !ok {
			continue
		}
		next := nextSeparate(list[i+1:])
		if next == nil || next.SeparationVessel != sep.SeparationVessel {
			continue
		}
		if isAqueous(next.Solvent) != isAqueous(sep.Solvent) {
			continue
		}
		if sep.WastePhaseToVessel == sep.SeparationVessel || sep.ToVessel == sep.SeparationVessel {
			sep.KeepDeadVolume = true
			p.recordElision("separation_dead_volume")
		}
	}
}

// nextSeparate finds the next separation regardless of what sits between.
func nextSeparate(list []steps.Step) *steps.Separate {
	for _, s := range list {
		if sep, ok := s.(*steps.Separate); ok {
			return sep
		}
	}
	return nil
}

// collapseDryReturnToRT drops the return-to-ambient tail of a heated Dry
// when the following step holds the vessel at the same temperature.
func (p *Preparer) collapseDryReturnToRT(list []steps.Step) {
	for i := 0; i+1 < len(list); i++ {
		d, ok := list[i].(*steps.Dry)
		if !ok || !d.HasTemp || d.ContinueHeatChill {
			continue
		}
		if temp, ok := targetTemp(list[i+1], d.Vessel); ok && temp == d.Temp {
			d.ContinueHeatChill = true
			p.recordElision("dry_return_to_rt")
		}
	}
}

// targetTemp reports the temperature the step holds the vessel at.
func targetTemp(s steps.Step, vessel string) (float64, bool) {
	switch st := s.(type) {
	case *steps.Dry:
		if st.Vessel == vessel && st.HasTemp {
			return st.Temp, true
		}
	case *steps.HeatChillToTemp:
		if st.Vessel == vessel {
			return st.Temp, true
		}
	case *steps.StartHeatChill:
		if st.Vessel == vessel {
			return st.Temp, true
		}
	}
	return 0, false
}

// removePointlessBackboneCleaning drops a CleanBackbone sitting between a
// filtration and the dry of the same cake, and between two additions of
// the same reagent; nothing new touches the backbone in between.
func (p *Preparer) removePointlessBackboneCleaning(list []steps.Step) []steps.Step {
	out := make([]steps.Step, 0, len(list))
	for i, s := range list {
		if s.Kind() == steps.KindCleanBackbone && i > 0 && i+1 < len(list) {
			if filterThenDry(list[i-1], list[i+1]) || sameReagentAdds(list[i-1], list[i+1]) {
				p.recordElision("backbone_clean")
				continue
			}
		}
		out = append(out, s)
	}
	return out
}

func filterThenDry(prev, next steps.Step) bool {
	f, ok := prev.(*steps.Filter)
	if !ok {
		return false
	}
	d, ok := next.(*steps.Dry)
	return ok && d.Vessel == f.Vessel
}

func sameReagentAdds(prev, next steps.Step) bool {
	a, ok := prev.(*steps.Add)
	if !ok {
		return false
	}
	b, ok := next.(*steps.Add)
	return ok && a.Reagent == b.Reagent
}

// stirredVessel names the vessel a step will stir, or "".
func stirredVessel(s steps.Step) string {
	switch st := s.(type) {
	case *steps.StartStir:
		return st.Vessel
	case *steps.Stir:
		return st.Vessel
	case *steps.Add:
		if st.Stir {
			return st.Vessel
		}
	case *steps.HeatChillToTemp:
		if st.Stir {
			return st.Vessel
		}
	case *steps.Filter:
		if st.Stir != steps.StirOff {
			return st.Vessel
		}
	case *steps.WashSolid:
		if st.Stir != steps.StirOff {
			return st.Vessel
		}
	case *steps.CleanVessel:
		return st.Vessel
	case *steps.Separate:
		return st.SeparationVessel
	}
	return ""
}

// consolidateStirRates inserts one SetStirRate per stirred vessel at the
// front of the procedure, so every later start-stir finds the plate
// already at a sane speed.
func (p *Preparer) consolidateStirRates(list []steps.Step) []steps.Step {
	seen := map[string]bool{}
	for _, s := range list {
		if v := stirredVessel(s); v != "" {
			seen[v] = true
		}
	}
	vessels := make([]string, 0, len(seen))
	for v := range seen {
		vessels = append(vessels, v)
	}
	sort.Strings(vessels)

	front := make([]steps.Step, 0, len(vessels))
	for _, v := range vessels {
		front = append(front, &steps.SetStirRate{
			Vessel:    v,
			StirSpeed: steps.DefaultStirSpeed,
		})
	}
	return append(front, list...)
}

// clampWaits cuts every wait to one second. Dry runs keep the command
// sequence intact while finishing in seconds instead of hours.
func clampWaits(cmds []steps.Primitive) {
	for _, c := range cmds {
		if w, ok := c.(*steps.CmdWait); ok {
			w.Duration = time.Second
		}
	}
}
