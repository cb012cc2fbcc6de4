package steps

import (
	"fmt"
	"time"

	"github.com/labforge/synthrig/pkg/rig"
)

const (
	// DefaultFilterWaitTime is how long vacuum is left on after the
	// filtrate has been removed.
	DefaultFilterWaitTime = 2 * time.Minute

	// DefaultFilterAspirationSpeed is slow enough that the frit does not
	// clog on a normal filtration; anticloggingAspirationSpeed is for
	// suspensions known to pack the frit.
	DefaultFilterAspirationSpeed = 5.0
	anticloggingAspirationSpeed  = 2.0
)

// Filter pulls the liquid in a filter vessel through the frit, sending the
// filtrate to waste by default, then dries the solid under vacuum. Assumes
// the liquid is already sitting on top of the frit. Vessels that are not
// dedicated filters but can filter inline get a plain transfer instead.
type Filter struct {
	Vessel          string
	FiltrateVessel  string
	WaitTime        time.Duration
	AspirationSpeed float64
	Stir            StirMode
	StirSpeed       float64
	Anticlogging    bool

	// FilterTopVolume is the liquid volume above the frit. Filled in by
	// contents tracking during preparation.
	FilterTopVolume float64

	wasteVessel    string
	inlineFilter   bool
	vacuumAttached bool
	vesselChecked  bool
}

func (f *Filter) Kind() Kind { return KindFilter }

func (f *Filter) Resolve(g *rig.Graph) error {
	if f.WaitTime == 0 {
		f.WaitTime = DefaultFilterWaitTime
	}
	if f.AspirationSpeed == 0 {
		f.AspirationSpeed = DefaultFilterAspirationSpeed
	}
	if f.Stir == "" {
		f.Stir = StirOn
	}
	if f.StirSpeed == 0 {
		f.StirSpeed = DefaultWashStirSpeed
	}
	if f.wasteVessel == "" {
		f.wasteVessel, _ = g.Nearest(f.Vessel, rig.KindWaste)
	}
	if !f.vesselChecked {
		f.inlineFilter = g.VesselType(f.Vessel) != "filter"
		f.vacuumAttached = g.VacuumConfiguration(f.Vessel).Source != ""
		f.vesselChecked = true
	}
	return nil
}

func (f *Filter) Expand() []Step {
	out := []Step{f.initialStir()}

	if f.inlineFilter {
		out = append(out, &Transfer{
			FromVessel: f.Vessel,
			ToVessel:   f.filtrateVessel(),
			All:        true,
		})
		if !f.vacuumAttached {
			return out
		}
	} else {
		out = append(out, &CmdMove{
			From:            f.Vessel,
			FromPort:        rig.PortBottom,
			To:              f.filtrateVessel(),
			Volume:          f.FilterTopVolume * DefaultFilterExcessFactor,
			AspirationSpeed: f.aspirationSpeed(),
		})
	}

	// Filtrate kept for later use means the solid is not the product, so
	// skip the vacuum drying stage.
	if f.FiltrateVessel != "" && f.FiltrateVessel != f.wasteVessel {
		return out
	}
	if f.Stir == StirOn {
		out = append(out, &StopStir{Vessel: f.Vessel})
	}
	port := ""
	if !f.inlineFilter {
		port = rig.PortBottom
	}
	return append(out, &ApplyVacuum{
		Vessel: f.Vessel,
		Time:   f.WaitTime,
		Port:   port,
	})
}

func (f *Filter) initialStir() Step {
	if f.Stir == StirOn {
		return &StartStir{Vessel: f.Vessel, StirSpeed: f.StirSpeed}
	}
	return &StopStir{Vessel: f.Vessel}
}

func (f *Filter) aspirationSpeed() float64 {
	if f.Anticlogging {
		return anticloggingAspirationSpeed
	}
	return f.AspirationSpeed
}

func (f *Filter) filtrateVessel() string {
	if f.FiltrateVessel != "" {
		return f.FiltrateVessel
	}
	return f.wasteVessel
}

func (f *Filter) SanityChecks(g *rig.Graph) []Check {
	return []Check{
		{
			OK:  f.inlineFilter || f.FiltrateVessel == "" || f.FiltrateVessel != f.Vessel,
			Msg: fmt.Sprintf("cannot filter %q into itself", f.Vessel),
		},
		{
			OK:  f.wasteVessel != "",
			Msg: fmt.Sprintf("no waste vessel reachable from %q", f.Vessel),
		},
	}
}

func (f *Filter) MapVessels(fn func(string) string) {
	f.Vessel = fn(f.Vessel)
	if f.FiltrateVessel != "" {
		f.FiltrateVessel = fn(f.FiltrateVessel)
	}
}
