package steps

import (
	"time"

	"github.com/labforge/synthrig/pkg/rig"
)

// SetStirRate sets the stir speed without starting the stirrer. On a
// rotavap the rotation speed plays that role.
type SetStirRate struct {
	Vessel    string
	StirSpeed float64

	vesselType string
}

func (s *SetStirRate) Kind() Kind { return KindSetStirRate }

func (s *SetStirRate) Resolve(g *rig.Graph) error {
	if s.vesselType == "" {
		s.vesselType = g.VesselType(s.Vessel)
	}
	return nil
}

func (s *SetStirRate) Expand() []Step {
	if s.vesselType == "rotavap" {
		return []Step{&CmdRotavapSetRotation{Rotavap: s.Vessel, StirSpeed: s.StirSpeed}}
	}
	return []Step{&CmdSetStirRate{Vessel: s.Vessel, StirSpeed: s.StirSpeed}}
}

func (s *SetStirRate) SanityChecks(*rig.Graph) []Check { return nil }

func (s *SetStirRate) MapVessels(f func(string) string) { s.Vessel = f(s.Vessel) }

// StartStir starts stirring and leaves the stirrer running.
type StartStir struct {
	Vessel    string
	StirSpeed float64

	vesselType string
}

func (s *StartStir) Kind() Kind { return KindStartStir }

func (s *StartStir) Resolve(g *rig.Graph) error {
	if s.StirSpeed == 0 {
		s.StirSpeed = DefaultStirSpeed
	}
	if s.vesselType == "" {
		s.vesselType = g.VesselType(s.Vessel)
	}
	return nil
}

func (s *StartStir) Expand() []Step {
	if s.vesselType == "rotavap" {
		// Cap the speed, a rotavap cannot rotate as fast as a stir plate.
		speed := s.StirSpeed
		if speed > RotavapMaxStirRPM {
			speed = RotavapMaxStirRPM
		}
		return []Step{
			&CmdRotavapSetRotation{Rotavap: s.Vessel, StirSpeed: speed},
			&CmdRotavapStartRotation{Rotavap: s.Vessel},
		}
	}
	return []Step{
		&CmdStartStir{Vessel: s.Vessel},
		&CmdSetStirRate{Vessel: s.Vessel, StirSpeed: s.StirSpeed},
	}
}

func (s *StartStir) SanityChecks(*rig.Graph) []Check { return nil }

func (s *StartStir) MapVessels(f func(string) string) { s.Vessel = f(s.Vessel) }

// StopStir stops stirring. If the vessel has no stirrer and is not a
// rotavap it expands to nothing rather than failing, so callers can use it
// unconditionally.
type StopStir struct {
	Vessel string

	vesselType     string
	hasStirrer     bool
	stirrerChecked bool
}

func (s *StopStir) Kind() Kind { return KindStopStir }

func (s *StopStir) Resolve(g *rig.Graph) error {
	if s.vesselType == "" {
		s.vesselType = g.VesselType(s.Vessel)
	}
	if !s.stirrerChecked {
		_, s.hasStirrer = g.VesselStirrer(s.Vessel)
		s.stirrerChecked = true
	}
	return nil
}

func (s *StopStir) Expand() []Step {
	if s.hasStirrer {
		return []Step{&CmdStopStir{Vessel: s.Vessel}}
	}
	if s.vesselType == "rotavap" {
		return []Step{&CmdRotavapStopRotation{Rotavap: s.Vessel}}
	}
	return nil
}

func (s *StopStir) SanityChecks(*rig.Graph) []Check { return nil }

func (s *StopStir) MapVessels(f func(string) string) { s.Vessel = f(s.Vessel) }

// Stir stirs a vessel for a fixed time, stopping afterwards unless
// ContinueStirring is set.
type Stir struct {
	Vessel           string
	Time             time.Duration
	StirSpeed        float64
	ContinueStirring bool

	vesselType string
}

func (s *Stir) Kind() Kind { return KindStir }

func (s *Stir) Resolve(g *rig.Graph) error {
	if s.StirSpeed == 0 {
		s.StirSpeed = DefaultStirSpeed
	}
	if s.vesselType == "" {
		s.vesselType = g.VesselType(s.Vessel)
	}
	return nil
}

func (s *Stir) Expand() []Step {
	out := []Step{
		&StartStir{Vessel: s.Vessel, StirSpeed: s.StirSpeed, vesselType: s.vesselType},
		&CmdWait{Duration: s.Time},
	}
	if !s.ContinueStirring {
		out = append(out, &StopStir{Vessel: s.Vessel, vesselType: s.vesselType})
	}
	return out
}

func (s *Stir) SanityChecks(*rig.Graph) []Check { return nil }

func (s *Stir) MapVessels(f func(string) string) { s.Vessel = f(s.Vessel) }
