package steps

import (
	"fmt"
	"time"

	"github.com/labforge/synthrig/pkg/rig"
)

// rotavapWaitForTemp is how long a rotavap bath is given to reach its set
// point; it has no wait-for-temp readback.
const rotavapWaitForTemp = 5 * time.Minute

// heatChillTarget picks the device that can reach temp. A chiller is
// preferred when present and in range, matching how rigs are plumbed: a
// vessel with both devices uses the chiller for everything it covers.
func heatChillTarget(heater, chiller string, temp float64) (useHeater, useChiller bool) {
	if chiller != "" && temp >= ChillerMinTemp && temp <= ChillerMaxTemp {
		return false, true
	}
	if heater != "" && temp >= HeaterMinTemp && temp <= HeaterMaxTemp {
		return true, false
	}
	return false, false
}

// StartHeatChill sets a temperature and switches the heater/chiller on
// without waiting for the set point.
type StartHeatChill struct {
	Vessel string
	Temp   float64

	vesselType      string
	heater, chiller string
	devicesChecked  bool
}

func (s *StartHeatChill) Kind() Kind { return KindStartHeatChill }

func (s *StartHeatChill) Resolve(g *rig.Graph) error {
	if s.vesselType == "" {
		s.vesselType = g.VesselType(s.Vessel)
	}
	if !s.devicesChecked {
		s.heater, s.chiller = g.HeaterChiller(s.Vessel)
		s.devicesChecked = true
	}
	return nil
}

func (s *StartHeatChill) Expand() []Step {
	if s.vesselType == "rotavap" {
		return []Step{
			&CmdRotavapSetTemp{Rotavap: s.Vessel, Temp: s.Temp},
			&CmdRotavapStartHeater{Rotavap: s.Vessel},
		}
	}
	useHeater, useChiller := heatChillTarget(s.heater, s.chiller, s.Temp)
	switch {
	case useChiller:
		return []Step{
			&CmdChillerSetTemp{Vessel: s.Vessel, Temp: s.Temp},
			&CmdChillerStart{Vessel: s.Vessel},
		}
	case useHeater:
		return []Step{
			&CmdHeaterSetTemp{Vessel: s.Vessel, Temp: s.Temp},
			&CmdHeaterStart{Vessel: s.Vessel},
		}
	}
	return nil
}

func (s *StartHeatChill) SanityChecks(g *rig.Graph) []Check {
	useHeater, useChiller := heatChillTarget(s.heater, s.chiller, s.Temp)
	return []Check{
		{
			OK: s.vesselType == "rotavap" || s.heater != "" || s.chiller != "",
			Msg: fmt.Sprintf("trying to heat/chill %q with no heater or chiller attached",
				s.Vessel),
		},
		{
			OK: s.vesselType == "rotavap" || useHeater || useChiller,
			Msg: fmt.Sprintf("no device attached to %q can reach %.1f C",
				s.Vessel, s.Temp),
		},
	}
}

func (s *StartHeatChill) MapVessels(f func(string) string) { s.Vessel = f(s.Vessel) }

// HeatChillToTemp brings a vessel to a temperature and blocks until it is
// reached, optionally stirring throughout. The heater/chiller is left
// running when ContinueHeatChill is set.
type HeatChillToTemp struct {
	Vessel            string
	Temp              float64
	Stir              bool
	StirSpeed         float64
	ContinueHeatChill bool

	vesselType      string
	heater, chiller string
	devicesChecked  bool
}

func (h *HeatChillToTemp) Kind() Kind { return KindHeatChillToTemp }

func (h *HeatChillToTemp) Resolve(g *rig.Graph) error {
	if h.StirSpeed == 0 {
		h.StirSpeed = DefaultStirSpeed
	}
	if h.vesselType == "" {
		h.vesselType = g.VesselType(h.Vessel)
	}
	if !h.devicesChecked {
		h.heater, h.chiller = g.HeaterChiller(h.Vessel)
		h.devicesChecked = true
	}
	return nil
}

func (h *HeatChillToTemp) Expand() []Step {
	out := []Step{&StartHeatChill{
		Vessel:         h.Vessel,
		Temp:           h.Temp,
		vesselType:     h.vesselType,
		heater:         h.heater,
		chiller:        h.chiller,
		devicesChecked: true,
	}}

	if h.vesselType == "rotavap" {
		out = append(out, &CmdWait{Duration: rotavapWaitForTemp})
	} else {
		useHeater, useChiller := heatChillTarget(h.heater, h.chiller, h.Temp)
		switch {
		case useChiller:
			out = append(out, &CmdChillerWaitForTemp{Vessel: h.Vessel})
		case useHeater:
			out = append(out, &CmdHeaterWaitForTemp{Vessel: h.Vessel})
		}
	}

	if !h.ContinueHeatChill {
		out = append(out, &StopHeatChill{
			Vessel:         h.Vessel,
			vesselType:     h.vesselType,
			heater:         h.heater,
			chiller:        h.chiller,
			devicesChecked: true,
		})
	}

	if h.Stir {
		out = append([]Step{&StartStir{
			Vessel:     h.Vessel,
			StirSpeed:  h.StirSpeed,
			vesselType: h.vesselType,
		}}, out...)
	} else {
		out = append([]Step{&StopStir{
			Vessel:     h.Vessel,
			vesselType: h.vesselType,
		}}, out...)
	}
	return out
}

func (h *HeatChillToTemp) SanityChecks(g *rig.Graph) []Check {
	return []Check{
		{
			OK: h.vesselType == "rotavap" || h.heater != "" || h.chiller != "",
			Msg: fmt.Sprintf("trying to heat/chill %q with no heater or chiller attached",
				h.Vessel),
		},
	}
}

func (h *HeatChillToTemp) MapVessels(f func(string) string) { h.Vessel = f(h.Vessel) }

// StopHeatChill switches off whatever temperature device the vessel has.
type StopHeatChill struct {
	Vessel string

	vesselType      string
	heater, chiller string
	devicesChecked  bool
}

func (s *StopHeatChill) Kind() Kind { return KindStopHeatChill }

func (s *StopHeatChill) Resolve(g *rig.Graph) error {
	if s.vesselType == "" {
		s.vesselType = g.VesselType(s.Vessel)
	}
	if !s.devicesChecked {
		s.heater, s.chiller = g.HeaterChiller(s.Vessel)
		s.devicesChecked = true
	}
	return nil
}

func (s *StopHeatChill) Expand() []Step {
	if s.vesselType == "rotavap" {
		return []Step{&CmdRotavapStopHeater{Rotavap: s.Vessel}}
	}
	var out []Step
	if s.chiller != "" {
		out = append(out, &CmdChillerStop{Vessel: s.Vessel})
	}
	if s.heater != "" {
		out = append(out, &CmdHeaterStop{Vessel: s.Vessel})
	}
	return out
}

func (s *StopHeatChill) SanityChecks(*rig.Graph) []Check { return nil }

func (s *StopHeatChill) MapVessels(f func(string) string) { s.Vessel = f(s.Vessel) }
