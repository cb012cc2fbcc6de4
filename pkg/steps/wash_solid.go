package steps

import (
	"fmt"
	"time"

	"github.com/labforge/synthrig/pkg/rig"
)

// WashSolid washes a solid with solvent. In a filter vessel the solvent
// goes in the top, soaks the cake, is pulled out of the bottom and the
// cake is briefly dried under vacuum. In any other vessel it degrades to
// add, stir, drain to waste.
type WashSolid struct {
	Vessel          string
	Solvent         string
	Volume          float64
	Temp            float64
	HasTemp         bool
	VacuumTime      time.Duration
	Stir            StirMode
	StirTime        time.Duration
	StirSpeed       float64
	FiltrateVessel  string
	AspirationSpeed float64
	Anticlogging    bool

	wasteVessel      string
	vesselType       string
	filterDeadVolume float64
	vacuum           rig.VacuumConfiguration
	resolved         bool
}

func (w *WashSolid) Kind() Kind { return KindWashSolid }

func (w *WashSolid) Resolve(g *rig.Graph) error {
	if w.Volume == 0 {
		w.Volume = DefaultWashVolume
	}
	if w.VacuumTime == 0 {
		w.VacuumTime = DefaultVacuumTime
	}
	if w.Stir == "" {
		w.Stir = StirOn
	}
	if w.StirTime == 0 {
		w.StirTime = DefaultWashStirTime
	}
	if w.StirSpeed == 0 {
		w.StirSpeed = DefaultWashStirSpeed
	}
	if w.AspirationSpeed == 0 {
		w.AspirationSpeed = DefaultFilterAspirationSpeed
	}
	if w.resolved {
		return nil
	}
	w.wasteVessel, _ = g.Nearest(w.Vessel, rig.KindWaste)
	w.vesselType = g.VesselType(w.Vessel)
	if n := g.Node(w.Vessel); n != nil {
		w.filterDeadVolume = n.DeadVolume
	}
	w.vacuum = g.VacuumConfiguration(w.Vessel)
	w.resolved = true
	return nil
}

func (w *WashSolid) Expand() []Step {
	if w.vesselType != "filter" {
		return w.plainVesselSteps()
	}
	return w.filterVesselSteps()
}

// plainVesselSteps handles reactors and rotavaps: no frit, so the solvent
// is simply stirred with the solid and drained off.
func (w *WashSolid) plainVesselSteps() []Step {
	return []Step{
		&Add{Reagent: w.Solvent, Vessel: w.Vessel, Volume: w.Volume},
		&Stir{Vessel: w.Vessel, Time: w.StirTime, StirSpeed: w.StirSpeed},
		&Transfer{
			FromVessel:      w.Vessel,
			ToVessel:        w.wasteVessel,
			All:             true,
			AspirationSpeed: w.aspirationSpeed(),
		},
	}
}

func (w *WashSolid) filterVesselSteps() []Step {
	// More solvent is withdrawn than was added so the cake ends up dry,
	// plus whatever sits below the frit.
	withdrawVolume := w.Volume * DefaultFilterExcessFactor
	withdrawVolume += w.filterDeadVolume

	filtrate := w.FiltrateVessel
	if filtrate == "" {
		filtrate = w.wasteVessel
	}

	var out []Step
	if w.HasTemp {
		out = append(out, &HeatChillToTemp{Vessel: w.Vessel, Temp: w.Temp})
	}
	if w.Stir == StirOn {
		out = append(out, &StartStir{Vessel: w.Vessel, StirSpeed: w.StirSpeed})
	}
	out = append(out, &Add{
		Reagent:   w.Solvent,
		Vessel:    w.Vessel,
		Volume:    w.Volume,
		Port:      rig.PortTop,
		Stir:      w.Stir == StirOn,
		StirSpeed: w.StirSpeed,
	})
	if w.Stir == StirSolvent {
		out = append(out, &StartStir{Vessel: w.Vessel, StirSpeed: w.StirSpeed})
	}
	out = append(out,
		&CmdWait{Duration: w.StirTime},
		&CmdMove{
			From:            w.Vessel,
			FromPort:        rig.PortBottom,
			To:              filtrate,
			Volume:          withdrawVolume,
			AspirationSpeed: w.aspirationSpeed(),
		},
	)
	if w.Stir == StirSolvent {
		out = append(out, &StopStir{Vessel: w.Vessel})
	}
	if w.vacuum.Device != "" {
		out = append(out, &StartVacuum{
			Vessel:   w.vacuum.Device,
			Pressure: DefaultFilterVacuumPressure,
			source:   w.vacuum.Device,
		})
	}
	if w.Stir == StirOn {
		out = append(out, &StopStir{Vessel: w.Vessel})
	}
	out = append(out,
		&CmdConnect{From: w.Vessel, FromPort: rig.PortBottom, To: w.vacuum.Source},
		&CmdWait{Duration: w.VacuumTime},
	)
	out = append(out, vacuumReconnectSteps(w.vacuum, w.Vessel)...)
	if w.vacuum.Device != "" {
		out = append(out,
			&StopVacuum{Vessel: w.vacuum.Device, source: w.vacuum.Device},
			&CmdVentVacuum{Source: w.vacuum.Device},
		)
	}
	if w.HasTemp {
		out = append(out, &StopHeatChill{Vessel: w.Vessel})
	}
	return out
}

func (w *WashSolid) aspirationSpeed() float64 {
	if w.Anticlogging {
		return anticloggingAspirationSpeed
	}
	return w.AspirationSpeed
}

func (w *WashSolid) SanityChecks(g *rig.Graph) []Check {
	return []Check{
		{
			OK:  w.wasteVessel != "",
			Msg: fmt.Sprintf("no waste vessel reachable from %q", w.Vessel),
		},
		{
			OK:  w.vesselType != "filter" || w.vacuum.Source != "",
			Msg: fmt.Sprintf("filter vessel %q has no vacuum source to dry the cake", w.Vessel),
		},
		{
			OK:  w.Volume > 0,
			Msg: "wash solvent volume must be positive",
		},
	}
}

func (w *WashSolid) MapVessels(f func(string) string) {
	w.Vessel = f(w.Vessel)
	if w.FiltrateVessel != "" {
		w.FiltrateVessel = f(w.FiltrateVessel)
	}
}
