package pipeline

import (
	"fmt"
	"strings"

	"github.com/labforge/synthrig/pkg/rig"
	"github.com/labforge/synthrig/pkg/steps"
)

// Filter dead-volume handling methods.
const (
	// DeadVolumeSolvent fills the space below each filter frit with
	// solvent before the filter is used and drains it before filtration.
	DeadVolumeSolvent = "solvent"

	// DeadVolumeInertGas keeps each filter bottom connected to inert gas
	// so nothing can drain through the frit.
	DeadVolumeInertGas = "inert_gas"
)

// cleanVesselBoilingPointFactor scales a solvent's boiling point down to a
// safe hot-cleaning temperature.
const cleanVesselBoilingPointFactor = 0.8

// defaultCleanVesselTemp is used when the cleaning solvent's boiling point
// is unknown.
const defaultCleanVesselTemp = 30.0

// solventBoilingPoints is in degrees C, lowercase names.
var solventBoilingPoints = map[string]float64{
	"acetone":         56.0,
	"acetonitrile":    82.0,
	"chloroform":      61.2,
	"dcm":             39.6,
	"dichloromethane": 39.6,
	"diethyl ether":   34.6,
	"dmf":             153.0,
	"ethanol":         78.4,
	"ether":           34.6,
	"ethyl acetate":   77.1,
	"heptane":         98.4,
	"hexane":          68.7,
	"isopropanol":     82.6,
	"methanol":        64.7,
	"pentane":         36.1,
	"tetrahydrofuran": 66.0,
	"thf":             66.0,
	"water":           100.0,
}

// backboneCleanTriggers are the step kinds that contaminate the backbone.
var backboneCleanTriggers = map[steps.Kind]bool{
	steps.KindAdd:                    true,
	steps.KindTransfer:               true,
	steps.KindSeparate:               true,
	steps.KindWashSolid:              true,
	steps.KindFilter:                 true,
	steps.KindDry:                    true,
	steps.KindFilterThrough:          true,
	steps.KindCleanVessel:            true,
	steps.KindAddFilterDeadVolume:    true,
	steps.KindRemoveFilterDeadVolume: true,
}

// stepSolvent is the solvent a step leaves the backbone needing, or "".
func stepSolvent(s steps.Step, reagents []Reagent) string {
	switch st := s.(type) {
	case *steps.Add:
		return cleaningSolventFor(st.Reagent, reagents)
	case *steps.Separate:
		if st.Solvent != "" {
			return cleaningSolventFor(st.Solvent, reagents)
		}
	case *steps.WashSolid:
		return cleaningSolventFor(st.Solvent, reagents)
	case *steps.FilterThrough:
		if st.ElutingSolvent != "" {
			return cleaningSolventFor(st.ElutingSolvent, reagents)
		}
	case *steps.CleanVessel:
		return cleaningSolventFor(st.Solvent, reagents)
	}
	return ""
}

// cleaningSchedule assigns every step index the solvent the backbone
// should be cleaned with after it. Steps with no solvent of their own
// inherit the last organic solvent seen; water never carries forward past
// an organic step, matching how aqueous residue is chased with organics.
// Solvents the rig has no flask of fall back to whatever common solvent is
// available.
func cleaningSchedule(list []steps.Step, reagents []Reagent, g *rig.Graph) []string {
	schedule := make([]string, len(list))
	for i, s := range list {
		schedule[i] = stepSolvent(s, reagents)
	}

	available := availableSolvents(g)
	fallback := ""
	for _, s := range available {
		if !cleaningPreferNot[s] {
			fallback = s
			break
		}
	}
	if fallback == "" && len(available) > 0 {
		fallback = available[0]
	}

	onRig := func(solvent string) bool {
		_, ok := g.ReagentVessel(solvent)
		return ok && !cleaningBlacklist[solvent]
	}

	// Backfill the leading stretch with the first named organic solvent,
	// then forward fill, remembering the last usable organic seen.
	first := fallback
	for _, solvent := range schedule {
		if solvent != "" && solvent != "water" && onRig(solvent) {
			first = solvent
			break
		}
	}
	for i, solvent := range schedule {
		if solvent != "" {
			break
		}
		schedule[i] = first
	}
	last := first
	for i, solvent := range schedule {
		if solvent == "" || !onRig(solvent) {
			schedule[i] = last
			continue
		}
		if solvent != "water" {
			last = solvent
		}
	}
	return schedule
}

// insertBackboneCleaning puts a CleanBackbone after every contaminating
// step: one clean with the solvent just used, and a second with the next
// step's solvent when the two differ, so the backbone never carries the
// wrong residue into an addition.
func (p *Preparer) insertBackboneCleaning(list []steps.Step, reagents []Reagent) []steps.Step {
	schedule := cleaningSchedule(list, reagents, p.Graph)
	out := make([]steps.Step, 0, len(list))
	for i, s := range list {
		out = append(out, s)
		if !backboneCleanTriggers[s.Kind()] || schedule[i] == "" {
			continue
		}
		out = append(out, &steps.CleanBackbone{Solvent: schedule[i]})
		p.recordImplied("backbone_clean")
		if i+1 < len(list) && schedule[i+1] != "" && schedule[i+1] != schedule[i] {
			out = append(out, &steps.CleanBackbone{Solvent: schedule[i+1]})
			p.recordImplied("backbone_clean")
		}
	}
	return out
}

// vesselReceiving names the vessel a step adds material to, or "".
func vesselReceiving(s steps.Step) string {
	switch st := s.(type) {
	case *steps.Add:
		return st.Vessel
	case *steps.Transfer:
		return st.ToVessel
	case *steps.Separate:
		return st.ToVessel
	case *steps.FilterThrough:
		return st.ToVessel
	}
	return ""
}

// addFilterDeadVolume handles the space under each filter frit. The
// solvent method fills it right before the filter first receives material
// and drains it before each filtration on that filter; the inert-gas
// method instead connects every used filter bottom to gas up front.
func (p *Preparer) addFilterDeadVolume(list []steps.Step, reagents []Reagent) []steps.Step {
	if p.Options.FilterDeadVolumeMethod == DeadVolumeInertGas {
		return p.connectFiltersToInertGas(list)
	}

	schedule := cleaningSchedule(list, reagents, p.Graph)
	tr := newTracker(p.Graph)
	filled := map[string]bool{}
	out := make([]steps.Step, 0, len(list))
	for i, s := range list {
		if v := vesselReceiving(s); v != "" && !filled[v] &&
			p.Graph.VesselType(v) == "filter" {
			solvent := schedule[i]
			if solvent == "" {
				solvent = "water"
			}
			out = append(out, &steps.AddFilterDeadVolume{
				Vessel:  v,
				Solvent: solvent,
				Volume:  p.Graph.Node(v).DeadVolume,
			})
			p.recordImplied("filter_dead_volume")
			filled[v] = true
		}

		// The frit space is drained right before the step that takes the
		// filter from non-empty to empty, whatever kind of step that is.
		before := make(map[string]float64, len(filled))
		for v, ok := range filled {
			if ok {
				before[v] = tr.volume(v)
			}
		}
		tr.foldStep(s)
		for v, vol := range before {
			if vol > 0 && tr.volume(v) == 0 {
				out = append(out, &steps.RemoveFilterDeadVolume{
					Vessel:     v,
					DeadVolume: p.Graph.Node(v).DeadVolume,
				})
				p.recordImplied("filter_dead_volume")
				filled[v] = false
			}
		}
		out = append(out, s)
	}
	return out
}

// connectFiltersToInertGas prepends one connect per filter that receives
// material, so the frit holds pressure for the whole run.
func (p *Preparer) connectFiltersToInertGas(list []steps.Step) []steps.Step {
	seen := map[string]bool{}
	var connects []steps.Step
	for _, s := range list {
		v := vesselReceiving(s)
		if v == "" || seen[v] || p.Graph.VesselType(v) != "filter" {
			continue
		}
		seen[v] = true
		gas := p.Graph.VacuumConfiguration(v).InertGas
		if gas == "" {
			gas, _ = p.Graph.FlushGasVessel()
		}
		if gas == "" {
			continue
		}
		connects = append(connects, &steps.CmdConnect{From: gas, To: v})
		p.recordImplied("filter_inert_gas")
	}
	return append(connects, list...)
}

// addReagentConditioning brackets the run with stirring and temperature
// control on reagent flasks that ask for it.
func (p *Preparer) addReagentConditioning(list []steps.Step, reagents []Reagent) []steps.Step {
	var front, back []steps.Step
	for _, r := range reagents {
		vessel, ok := p.Graph.ReagentVessel(r.ID)
		if !ok {
			continue
		}
		if r.Stir {
			front = append(front, &steps.StartStir{
				Vessel:    vessel,
				StirSpeed: steps.DefaultReagentStirSpeed,
			})
			back = append(back, &steps.StopStir{Vessel: vessel})
			p.recordImplied("reagent_conditioning")
		}
		if r.HasTemp {
			front = append(front, &steps.StartHeatChill{Vessel: vessel, Temp: r.Temp})
			back = append(back, &steps.StopHeatChill{Vessel: vessel})
			p.recordImplied("reagent_conditioning")
		}
	}
	out := append(front, list...)
	return append(out, back...)
}

// reagentsDrawn names the reagents a step pumps out of their flasks.
func reagentsDrawn(s steps.Step) []string {
	switch st := s.(type) {
	case *steps.Add:
		return []string{st.Reagent}
	case *steps.Separate:
		if st.Solvent != "" {
			return []string{st.Solvent}
		}
	case *steps.WashSolid:
		return []string{st.Solvent}
	case *steps.CleanVessel:
		return []string{st.Solvent}
	case *steps.FilterThrough:
		if st.ElutingSolvent != "" {
			return []string{st.ElutingSolvent}
		}
	}
	return nil
}

// addLastMinuteAdditions inserts an operator confirmation right before the
// first step drawing a last-minute reagent, so air- or light-sensitive
// material spends as little time in its flask as possible.
func (p *Preparer) addLastMinuteAdditions(list []steps.Step, reagents []Reagent) []steps.Step {
	for _, r := range reagents {
		if !r.LastMinuteAddition {
			continue
		}
		vessel, ok := p.Graph.ReagentVessel(r.ID)
		if !ok {
			continue
		}
		for i, s := range list {
			if !drawsReagent(s, r.ID) {
				continue
			}
			msg := fmt.Sprintf("Add %s to %s now.", r.ID, vessel)
			if r.LastMinuteAdditionVolume > 0 {
				msg = fmt.Sprintf("Add %s (%.0f mL) to %s now.",
					r.ID, r.LastMinuteAdditionVolume, vessel)
			}
			list = append(list[:i], append([]steps.Step{
				&steps.CmdConfirm{Msg: msg},
			}, list[i:]...)...)
			p.recordImplied("last_minute_addition")
			break
		}
	}
	return list
}

func drawsReagent(s steps.Step, reagent string) bool {
	for _, r := range reagentsDrawn(s) {
		if strings.EqualFold(r, reagent) {
			return true
		}
	}
	return false
}

// applyCleanVesselTemps fills in the temperature of CleanVessel steps that
// name none: a known solvent is run just under its boiling point, an
// unknown one at a mild default.
func applyCleanVesselTemps(list []steps.Step) {
	for _, s := range list {
		c, ok := s.(*steps.CleanVessel)
		if !ok || c.HasTemp {
			continue
		}
		c.Temp = defaultCleanVesselTemp
		if bp, known := solventBoilingPoints[strings.ToLower(c.Solvent)]; known {
			c.Temp = bp * cleanVesselBoilingPointFactor
		}
		c.HasTemp = true
	}
}
