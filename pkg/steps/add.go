package steps

import (
	"fmt"
	"time"

	"github.com/labforge/synthrig/pkg/rig"
)

// Add meters a reagent into a vessel: prime the pump, move the volume from
// the reagent flask, push the tube contents after it with gas, then wait
// for mixing. Mass without volume is a solid addition, which only an
// operator can perform.
type Add struct {
	Reagent string
	Vessel  string
	Volume  float64
	Mass    float64 // g, solid addition when Volume is zero
	Port    string
	Through string
	Time    time.Duration // dispense-time override

	MoveSpeed       float64
	AspirationSpeed float64
	DispenseSpeed   float64

	Stir      bool
	StirSpeed float64

	reagentVessel    string
	wasteVessel      string
	flushTubeVessel  string
	throughCartridge string
	vesselType       string
	flushChecked     bool
}

func (a *Add) Kind() Kind { return KindAdd }

func (a *Add) Resolve(g *rig.Graph) error {
	if a.StirSpeed == 0 {
		a.StirSpeed = DefaultStirSpeed
	}
	if a.wasteVessel == "" {
		a.wasteVessel, _ = g.Nearest(a.Vessel, rig.KindWaste)
	}
	if a.reagentVessel == "" {
		a.reagentVessel, _ = g.ReagentVessel(a.Reagent)
	}
	if !a.flushChecked {
		a.flushTubeVessel, _ = g.FlushGasVessel()
		a.flushChecked = true
	}
	if a.throughCartridge == "" && a.Through != "" {
		a.throughCartridge, _ = g.Cartridge(a.Through)
	}
	if a.vesselType == "" {
		a.vesselType = g.VesselType(a.Vessel)
	}
	return nil
}

func (a *Add) Expand() []Step {
	if a.Volume == 0 && a.Mass > 0 {
		return []Step{&CmdConfirm{
			Msg: fmt.Sprintf("Is %s (%.1f g) in %s?", a.Reagent, a.Mass, a.Vessel),
		}}
	}

	out := []Step{
		&PrimePump{
			Reagent:       a.Reagent,
			reagentVessel: a.reagentVessel,
			wasteVessel:   a.wasteVessel,
		},
		&CmdMove{
			From:            a.reagentVessel,
			To:              a.Vessel,
			ToPort:          a.Port,
			Volume:          a.Volume,
			Through:         a.throughCartridge,
			MoveSpeed:       a.MoveSpeed,
			AspirationSpeed: a.AspirationSpeed,
			DispenseSpeed:   a.dispenseSpeed(),
		},
		&CmdWait{Duration: DefaultAfterAddWait},
	}

	if a.flushTubeVessel != "" {
		out = append(out, &CmdMove{
			From:   a.flushTubeVessel,
			To:     a.Vessel,
			ToPort: a.Port,
			Volume: DefaultAirFlushVolume,
		})
	}

	if a.Stir {
		out = append([]Step{&StartStir{
			Vessel:     a.Vessel,
			StirSpeed:  a.StirSpeed,
			vesselType: a.vesselType,
		}}, out...)
	} else {
		out = append([]Step{&StopStir{
			Vessel:     a.Vessel,
			vesselType: a.vesselType,
		}}, out...)
	}
	return out
}

func (a *Add) dispenseSpeed() float64 {
	if a.Time > 0 && a.Volume > 0 {
		return a.Volume / a.Time.Minutes()
	}
	return a.DispenseSpeed
}

func (a *Add) SanityChecks(g *rig.Graph) []Check {
	checks := []Check{
		{
			OK: a.Through == "" || a.throughCartridge != "",
			Msg: fmt.Sprintf("trying to add through %q but no cartridge contains it",
				a.Through),
		},
	}
	if a.Volume > 0 {
		checks = append(checks, Check{
			OK:  a.reagentVessel != "",
			Msg: fmt.Sprintf("no flask contains %q", a.Reagent),
		})
	}
	return checks
}

func (a *Add) MapVessels(f func(string) string) {
	a.Vessel = f(a.Vessel)
}
