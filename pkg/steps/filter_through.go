package steps

import (
	"fmt"
	"math"

	"github.com/labforge/synthrig/pkg/rig"
)

// DefaultFilterThroughMoveSpeed is slow enough not to channel the
// cartridge packing.
const DefaultFilterThroughMoveSpeed = 5.0

// FilterThrough pushes the contents of a vessel through a packed
// cartridge (celite, silica, a drying agent) into another vessel,
// optionally eluting with solvent afterwards and flushing the cartridge
// dead volume with gas. Filtering a vessel into itself routes everything
// via a buffer flask.
type FilterThrough struct {
	FromVessel      string
	ToVessel        string
	Through         string
	ElutingSolvent  string
	ElutingVolume   float64
	ElutingRepeats  int
	MoveSpeed       float64
	AspirationSpeed float64

	bufferFlask          string
	elutingSolventVessel string
	flushVessel          string
	throughCartridge     string
	cartridgeDeadVolume  float64
	fromVesselMaxVolume  float64
	resolved             bool
}

func (ft *FilterThrough) Kind() Kind { return KindFilterThrough }

func (ft *FilterThrough) Resolve(g *rig.Graph) error {
	if ft.ElutingRepeats == 0 {
		ft.ElutingRepeats = 1
	}
	if ft.MoveSpeed == 0 {
		ft.MoveSpeed = DefaultFilterThroughMoveSpeed
	}
	if ft.AspirationSpeed == 0 {
		ft.AspirationSpeed = DefaultFilterAspirationSpeed
	}
	if ft.resolved {
		return nil
	}
	if flasks := g.BufferFlasks(ft.FromVessel, 1); len(flasks) > 0 {
		ft.bufferFlask = flasks[0]
	}
	if ft.ElutingSolvent != "" {
		ft.elutingSolventVessel, _ = g.ReagentVessel(ft.ElutingSolvent)
	}
	ft.flushVessel, _ = g.FlushGasVessel()
	ft.fromVesselMaxVolume = g.MaxVolume(ft.FromVessel)
	ft.throughCartridge, _ = g.Cartridge(ft.Through)
	ft.cartridgeDeadVolume = DefaultCartridgeDeadVolume
	if n := g.Node(ft.throughCartridge); n != nil && n.DeadVolume > 0 {
		ft.cartridgeDeadVolume = n.DeadVolume
	}
	ft.resolved = true
	return nil
}

// BufferFlasksRequired reports whether the routing needs an intermediate
// flask, which it does only when filtering a vessel into itself.
func (ft *FilterThrough) BufferFlasksRequired() int {
	if ft.FromVessel == ft.ToVessel {
		return 1
	}
	return 0
}

func (ft *FilterThrough) Expand() []Step {
	if ft.FromVessel != ft.ToVessel {
		switch {
		case ft.ElutingSolvent == "":
			return append(ft.transferSteps(ft.ToVessel), ft.flushSteps(ft.ToVessel)...)
		case ft.ElutingVolume <= ft.fromVesselMaxVolume:
			out := ft.transferSteps(ft.ToVessel)
			out = append(out, ft.elutionSteps(ft.ToVessel, ft.ElutingVolume)...)
			return append(out, ft.flushSteps(ft.ToVessel)...)
		default:
			out := ft.transferSteps(ft.ToVessel)
			out = append(out, ft.portionwiseElutionSteps(ft.ToVessel)...)
			return append(out, ft.flushSteps(ft.ToVessel)...)
		}
	}

	// Same vessel both ends: collect in the buffer flask, then bring the
	// filtrate home.
	switch {
	case ft.ElutingSolvent == "":
		out := ft.transferSteps(ft.bufferFlask)
		out = append(out, ft.flushSteps(ft.bufferFlask)...)
		return append(out, ft.transferBackSteps()...)
	case ft.ElutingVolume <= ft.fromVesselMaxVolume:
		out := ft.transferSteps(ft.bufferFlask)
		out = append(out, ft.flushSteps(ft.bufferFlask)...)
		out = append(out, ft.elutionSteps(ft.bufferFlask, ft.ElutingVolume)...)
		out = append(out, &CleanVessel{Vessel: ft.FromVessel, Solvent: ft.ElutingSolvent})
		return append(out, ft.transferBackSteps()...)
	default:
		out := ft.transferSteps(ft.bufferFlask)
		out = append(out, ft.flushSteps(ft.bufferFlask)...)
		out = append(out, ft.portionwiseElutionSteps(ft.bufferFlask)...)
		out = append(out, &CleanVessel{Vessel: ft.FromVessel, Solvent: ft.ElutingSolvent})
		return append(out, ft.transferBackSteps()...)
	}
}

func (ft *FilterThrough) transferSteps(to string) []Step {
	return []Step{&Transfer{
		FromVessel:      ft.FromVessel,
		ToVessel:        to,
		Through:         ft.Through,
		All:             true,
		MoveSpeed:       ft.MoveSpeed,
		AspirationSpeed: ft.AspirationSpeed,
	}}
}

// flushSteps pushes gas through the cartridge so the dead volume is not
// left behind in the packing.
func (ft *FilterThrough) flushSteps(to string) []Step {
	if ft.flushVessel == "" {
		return nil
	}
	return []Step{&Transfer{
		FromVessel:      ft.flushVessel,
		ToVessel:        to,
		Through:         ft.Through,
		Volume:          ft.cartridgeDeadVolume,
		MoveSpeed:       ft.MoveSpeed,
		AspirationSpeed: ft.AspirationSpeed,
	}}
}

func (ft *FilterThrough) elutionSteps(to string, volume float64) []Step {
	children := []Step{
		&Transfer{
			FromVessel: ft.elutingSolventVessel,
			ToVessel:   ft.FromVessel,
			Volume:     volume,
		},
		&Transfer{
			FromVessel:      ft.FromVessel,
			ToVessel:        to,
			Through:         ft.Through,
			Volume:          volume,
			MoveSpeed:       ft.MoveSpeed,
			AspirationSpeed: ft.AspirationSpeed,
		},
	}
	if ft.ElutingRepeats > 1 {
		return []Step{&Repeat{Count: ft.ElutingRepeats, Children: children}}
	}
	return children
}

// portionwiseElutionSteps splits an eluting volume bigger than the vessel
// into equal portions plus a remainder, each pushed through into to.
func (ft *FilterThrough) portionwiseElutionSteps(to string) []Step {
	nPortions := int(math.Floor(ft.ElutingVolume / ft.fromVesselMaxVolume))
	finalPortion := math.Mod(ft.ElutingVolume, ft.fromVesselMaxVolume)
	portion := (ft.ElutingVolume - finalPortion) / float64(nPortions)

	var out []Step
	out = append(out, &Repeat{
		Count:    nPortions,
		Children: ft.singlePortionSteps(to, portion),
	})
	out = append(out, ft.singlePortionSteps(to, finalPortion)...)
	if ft.ElutingRepeats > 1 {
		return []Step{&Repeat{Count: ft.ElutingRepeats, Children: out}}
	}
	return out
}

func (ft *FilterThrough) singlePortionSteps(to string, volume float64) []Step {
	if volume == 0 {
		return nil
	}
	return []Step{
		&Transfer{
			FromVessel: ft.elutingSolventVessel,
			ToVessel:   ft.FromVessel,
			Volume:     volume,
		},
		&Transfer{
			FromVessel:      ft.FromVessel,
			ToVessel:        to,
			Through:         ft.Through,
			Volume:          volume,
			MoveSpeed:       ft.MoveSpeed,
			AspirationSpeed: ft.AspirationSpeed,
		},
	}
}

func (ft *FilterThrough) transferBackSteps() []Step {
	return []Step{&Transfer{
		FromVessel:      ft.bufferFlask,
		ToVessel:        ft.ToVessel,
		All:             true,
		MoveSpeed:       ft.MoveSpeed,
		AspirationSpeed: ft.AspirationSpeed,
	}}
}

func (ft *FilterThrough) SanityChecks(g *rig.Graph) []Check {
	checks := []Check{
		{
			OK: ft.FromVessel != ft.ToVessel || ft.bufferFlask != "",
			Msg: fmt.Sprintf(
				"filtering %q through a cartridge into itself needs a buffer flask and none was found",
				ft.FromVessel),
		},
		{
			OK:  ft.throughCartridge != "",
			Msg: fmt.Sprintf("no cartridge containing %q on the rig", ft.Through),
		},
	}
	if ft.ElutingSolvent == "" {
		return checks
	}
	checks = append(checks, Check{
		OK:  ft.elutingSolventVessel != "",
		Msg: fmt.Sprintf("no flask of eluting solvent %q on the rig", ft.ElutingSolvent),
	})
	// Over-capacity elution into the source vessel is legal: it routes
	// through the buffer flask in vessel-sized portions instead.
	if ft.FromVessel != ft.ToVessel {
		total := ft.ElutingVolume * float64(ft.ElutingRepeats)
		checks = append(checks, Check{
			OK: total <= g.MaxVolume(ft.ToVessel),
			Msg: fmt.Sprintf("eluting volume %.1f mL exceeds %q max volume %.1f mL",
				total, ft.ToVessel, g.MaxVolume(ft.ToVessel)),
		})
	}
	return checks
}

func (ft *FilterThrough) MapVessels(f func(string) string) {
	ft.FromVessel = f(ft.FromVessel)
	ft.ToVessel = f(ft.ToVessel)
}
