package pipeline

import (
	"strings"

	"github.com/labforge/synthrig/pkg/rig"
	"github.com/labforge/synthrig/pkg/steps"
)

// vesselContents is what one vessel holds at a point in the procedure.
type vesselContents struct {
	reagents []string
	volume   float64
}

// tracker folds the procedure forward, keeping per-vessel contents. It is
// the sole source of truth for "how much liquid sits in this vessel right
// now", which filter volume calculation and the dead-volume pass need.
// Separations and filtrations redistribute contents at the composite
// level; every other step is folded through its primitive moves.
type tracker struct {
	g        *rig.Graph
	contents map[string]*vesselContents
}

func newTracker(g *rig.Graph) *tracker {
	t := &tracker{g: g, contents: make(map[string]*vesselContents)}
	for _, n := range g.OfKind(rig.KindFlask) {
		if n.Chemical == "" {
			continue
		}
		t.contents[n.ID] = &vesselContents{
			reagents: []string{strings.ToLower(n.Chemical)},
			volume:   n.CurrentVolume,
		}
	}
	return t
}

func (t *tracker) at(vessel string) *vesselContents {
	if c, ok := t.contents[vessel]; ok {
		return c
	}
	c := &vesselContents{}
	t.contents[vessel] = c
	return c
}

// volume reports the liquid volume currently in a vessel.
func (t *tracker) volume(vessel string) float64 {
	if c, ok := t.contents[vessel]; ok {
		return c.volume
	}
	return 0
}

// fold advances the tracker past one top-level step, given the primitives
// it compiled to.
func (t *tracker) fold(top steps.Step, prims []steps.Primitive) {
	switch s := top.(type) {
	case *steps.Separate:
		t.foldSeparate(s)
	case *steps.Filter:
		t.foldFilter(s)
	case *steps.Dry:
		// Drying changes no liquid volume the tracker cares about.
	default:
		for _, pr := range prims {
			if mv, ok := pr.(*steps.CmdMove); ok {
				t.move(mv)
			}
		}
	}
}

// foldStep advances the tracker past one top-level step before it has
// been compiled, using the step's own declared volumes. Implied-step
// passes that run ahead of compilation fold with this instead of fold.
func (t *tracker) foldStep(s steps.Step) {
	switch st := s.(type) {
	case *steps.Add:
		c := t.at(st.Vessel)
		if st.Reagent != "" {
			c.reagents = union(c.reagents, []string{strings.ToLower(st.Reagent)})
		}
		c.volume += st.Volume
	case *steps.Transfer:
		t.transfer(st.FromVessel, st.ToVessel, st.Volume, st.All)
	case *steps.FilterThrough:
		t.transfer(st.FromVessel, st.ToVessel, 0, true)
	case *steps.Separate:
		t.foldSeparate(st)
	case *steps.Filter:
		t.foldFilter(st)
	}
}

// transfer moves liquid between two tracked vessels. Supply flasks with a
// chemical never run dry, matching move.
func (t *tracker) transfer(from, to string, vol float64, all bool) {
	if from == to {
		return
	}
	src := t.at(from)
	dst := t.at(to)

	if n := t.g.Node(from); n != nil && n.Kind == rig.KindFlask && n.Chemical != "" {
		if inertGasNames[strings.ToLower(n.Chemical)] {
			return
		}
		dst.reagents = union(dst.reagents, []string{strings.ToLower(n.Chemical)})
		dst.volume += vol
		return
	}

	if all || vol >= src.volume {
		vol = src.volume
		dst.reagents = union(dst.reagents, src.reagents)
		src.reagents, src.volume = nil, 0
	} else {
		dst.reagents = union(dst.reagents, src.reagents)
		src.volume -= vol
	}
	dst.volume += vol
}

// foldSeparate empties the source into the separation, then splits the
// mixture between the product and waste-phase destinations. The volume
// split is an estimate; only the reagent sets need to be exact.
func (t *tracker) foldSeparate(s *steps.Separate) {
	src := t.at(s.FromVessel)
	reagents, vol := src.reagents, src.volume
	src.reagents, src.volume = nil, 0

	if s.FromVessel != s.SeparationVessel {
		sep := t.at(s.SeparationVessel)
		reagents = union(reagents, sep.reagents)
		vol += sep.volume
		sep.reagents, sep.volume = nil, 0
	}

	to := t.at(s.ToVessel)
	to.reagents = union(to.reagents, reagents)
	waste := t.at(s.WastePhaseToVessel)
	waste.reagents = union(waste.reagents, reagents)

	solventVol := s.SolventVolume * float64(s.NSeparations)
	if s.Solvent != "" {
		if s.Purpose == steps.PurposeExtract {
			to.reagents = union(to.reagents, []string{strings.ToLower(s.Solvent)})
		} else {
			waste.reagents = union(waste.reagents, []string{strings.ToLower(s.Solvent)})
		}
	}
	to.volume += vol/2 + solventVol/2
	waste.volume += vol/2 + solventVol/2
}

// foldFilter sends everything above the frit out of the filter, either to
// the named filtrate vessel or to waste.
func (t *tracker) foldFilter(f *steps.Filter) {
	src := t.at(f.Vessel)
	dst := f.FiltrateVessel
	if dst == "" {
		dst, _ = t.g.Nearest(f.Vessel, rig.KindWaste)
	}
	if dst != "" {
		d := t.at(dst)
		d.reagents = union(d.reagents, src.reagents)
		d.volume += src.volume
	}
	src.reagents, src.volume = nil, 0
}

// inertGasNames are flask chemicals that are gases; moving them flushes
// tubing without adding liquid anywhere.
var inertGasNames = map[string]bool{
	"air": true, "argon": true, "ar": true, "nitrogen": true, "n2": true,
}

// move folds one primitive transfer. Flasks with a chemical are treated as
// supply vessels: drawing from one contributes its chemical to the
// destination without ever running the flask dry.
func (t *tracker) move(mv *steps.CmdMove) {
	src := t.at(mv.From)
	dst := t.at(mv.To)

	if n := t.g.Node(mv.From); n != nil && n.Kind == rig.KindFlask && n.Chemical != "" {
		if inertGasNames[strings.ToLower(n.Chemical)] {
			return
		}
		dst.reagents = union(dst.reagents, []string{strings.ToLower(n.Chemical)})
		dst.volume += mv.Volume
		return
	}

	moved := mv.Volume
	if moved >= src.volume {
		moved = src.volume
		dst.reagents = union(dst.reagents, src.reagents)
		src.reagents = nil
		src.volume = 0
	} else {
		dst.reagents = union(dst.reagents, src.reagents)
		src.volume -= moved
	}
	dst.volume += moved
}

func union(a, b []string) []string {
	out := a
	for _, s := range b {
		found := false
		for _, have := range out {
			if have == s {
				found = true
				break
			}
		}
		if !found {
			out = append(out, s)
		}
	}
	return out
}
