package steps

import (
	"fmt"
	"time"

	"github.com/labforge/synthrig/pkg/rig"
)

// vacuumReconnectSteps restores the valve a vessel shares with its vacuum
// source to an inert state after the vacuum has been used. Preference is
// to reconnect the vessel to an inert-gas flask; failing that the valve is
// parked on an unused port so the vessel is not left open to vacuum.
func vacuumReconnectSteps(cfg rig.VacuumConfiguration, vessel string) []Step {
	if cfg.InertGas != "" {
		return []Step{&CmdConnect{From: cfg.InertGas, To: vessel}}
	}
	if cfg.Valve != "" && cfg.UnusedPort != "" {
		return []Step{&CmdValveMove{Valve: cfg.Valve, Position: cfg.UnusedPort}}
	}
	return nil
}

// StartVacuum sets the vacuum set point and starts the pump on a vacuum
// device.
type StartVacuum struct {
	Vessel   string
	Pressure float64

	source string
}

func (s *StartVacuum) Kind() Kind { return KindStartVacuum }

func (s *StartVacuum) Resolve(g *rig.Graph) error {
	if s.Pressure == 0 {
		s.Pressure = DefaultFilterVacuumPressure
	}
	if s.source == "" {
		s.source = s.Vessel
	}
	return nil
}

func (s *StartVacuum) Expand() []Step {
	return []Step{
		&CmdSetVacuum{Source: s.source, Pressure: s.Pressure},
		&CmdStartVacuum{Source: s.source},
	}
}

func (s *StartVacuum) SanityChecks(*rig.Graph) []Check { return nil }

func (s *StartVacuum) MapVessels(f func(string) string) { s.Vessel = f(s.Vessel) }

// StopVacuum stops the pump on a vacuum device without venting.
type StopVacuum struct {
	Vessel string

	source string
}

func (s *StopVacuum) Kind() Kind { return KindStopVacuum }

func (s *StopVacuum) Resolve(g *rig.Graph) error {
	if s.source == "" {
		s.source = s.Vessel
	}
	return nil
}

func (s *StopVacuum) Expand() []Step {
	return []Step{&CmdStopVacuum{Source: s.source}}
}

func (s *StopVacuum) SanityChecks(*rig.Graph) []Check { return nil }

func (s *StopVacuum) MapVessels(f func(string) string) { s.Vessel = f(s.Vessel) }

// ApplyVacuum connects a vessel to its vacuum source for a fixed time,
// then restores the valve and vents. Rigs with a pneumatic controller on
// the vessel switch the controller instead of replumbing valves.
type ApplyVacuum struct {
	Vessel   string
	Time     time.Duration
	Pressure float64
	Port     string

	vacuum           rig.VacuumConfiguration
	pneumatic        string
	pneumaticChecked bool
}

func (a *ApplyVacuum) Kind() Kind { return KindApplyVacuum }

func (a *ApplyVacuum) Resolve(g *rig.Graph) error {
	if a.Pressure == 0 {
		a.Pressure = DefaultFilterVacuumPressure
	}
	if !a.pneumaticChecked {
		a.pneumatic, _, _ = g.PneumaticController(a.Vessel, a.Port)
		a.pneumaticChecked = true
	}
	if a.vacuum.Source == "" {
		a.vacuum = g.VacuumConfiguration(a.Vessel)
	}
	return nil
}

func (a *ApplyVacuum) Expand() []Step {
	if a.pneumatic != "" {
		return []Step{
			&CmdSwitchVacuum{Vessel: a.Vessel},
			&CmdWait{Duration: a.Time},
			&CmdSwitchArgon{Vessel: a.Vessel, Pressure: "low"},
		}
	}

	var out []Step
	if a.vacuum.Device != "" {
		out = append(out, &StartVacuum{
			Vessel:   a.Vessel,
			Pressure: a.Pressure,
			source:   a.vacuum.Device,
		})
	}
	out = append(out,
		&CmdConnect{From: a.Vessel, FromPort: a.Port, To: a.vacuum.Source},
		&CmdWait{Duration: a.Time},
	)
	out = append(out, vacuumReconnectSteps(a.vacuum, a.Vessel)...)
	if a.vacuum.Device != "" {
		out = append(out,
			&StopVacuum{Vessel: a.Vessel, source: a.vacuum.Device},
			&CmdVentVacuum{Source: a.vacuum.Device},
		)
	}
	return out
}

func (a *ApplyVacuum) SanityChecks(g *rig.Graph) []Check {
	return []Check{
		{
			OK: a.pneumatic != "" || a.vacuum.Source != "",
			Msg: fmt.Sprintf("no vacuum source reachable from %q", a.Vessel),
		},
		{
			OK: a.pneumatic != "" || a.vacuum.InertGas != "" || a.vacuum.UnusedPort != "",
			Msg: fmt.Sprintf(
				"vacuum valve for %q has no inert-gas flask and no free port to reconnect to",
				a.Vessel),
		},
		{
			OK:  a.Time > 0,
			Msg: "vacuum must be applied for a positive amount of time",
		},
	}
}

func (a *ApplyVacuum) MapVessels(f func(string) string) { a.Vessel = f(a.Vessel) }
