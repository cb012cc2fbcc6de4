package steps

import (
	"fmt"
	"time"

	"github.com/labforge/synthrig/pkg/rig"
)

// Dry dries the contents of a vessel under vacuum, optionally while
// heating. Filter vessels first have the last few mL pulled out of the
// bottom so the vacuum works on the cake and not a puddle.
type Dry struct {
	Vessel            string
	Time              time.Duration
	Pressure          float64
	Temp              float64
	HasTemp           bool
	ContinueHeatChill bool

	wasteVessel string
	vesselType  string
	hasStirrer  bool
	resolved    bool
}

func (d *Dry) Kind() Kind { return KindDry }

func (d *Dry) Resolve(g *rig.Graph) error {
	if d.Time == 0 {
		d.Time = DefaultDryTime
	}
	if d.Pressure == 0 {
		d.Pressure = DefaultFilterVacuumPressure
	}
	if d.resolved {
		return nil
	}
	d.wasteVessel, _ = g.Nearest(d.Vessel, rig.KindWaste)
	d.vesselType = g.VesselType(d.Vessel)
	_, d.hasStirrer = g.VesselStirrer(d.Vessel)
	d.resolved = true
	return nil
}

func (d *Dry) Expand() []Step {
	var out []Step
	if d.HasTemp {
		out = append(out, &HeatChillToTemp{
			Vessel:            d.Vessel,
			Temp:              d.Temp,
			ContinueHeatChill: true,
		})
	}
	if d.hasStirrer || d.vesselType == "rotavap" {
		out = append(out, &StopStir{Vessel: d.Vessel})
	}
	port := ""
	if d.vesselType == "filter" {
		out = append(out, &CmdMove{
			From:     d.Vessel,
			FromPort: rig.PortBottom,
			To:       d.wasteVessel,
			Volume:   DefaultDryWasteVolume,
		})
		port = rig.PortBottom
	}
	out = append(out, &ApplyVacuum{
		Vessel:   d.Vessel,
		Time:     d.Time,
		Pressure: d.Pressure,
		Port:     port,
	})
	if d.HasTemp && !d.ContinueHeatChill {
		out = append(out, &HeatChillToTemp{Vessel: d.Vessel, Temp: RoomTemperature})
	}
	return out
}

func (d *Dry) SanityChecks(g *rig.Graph) []Check {
	return []Check{
		{
			OK:  d.vesselType != "filter" || d.wasteVessel != "",
			Msg: fmt.Sprintf("no waste vessel reachable from %q", d.Vessel),
		},
		{
			OK:  d.Time > 0,
			Msg: "drying time must be positive",
		},
	}
}

func (d *Dry) MapVessels(f func(string) string) { d.Vessel = f(d.Vessel) }
