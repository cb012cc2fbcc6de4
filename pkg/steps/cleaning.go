package steps

import (
	"fmt"
	"time"

	"github.com/labforge/synthrig/pkg/rig"
)

// cleanVesselVolumeFraction is the fraction of a vessel's max volume used
// as solvent volume when a CleanVessel step does not name one.
const cleanVesselVolumeFraction = 0.5

// CleanBackbone flushes the backbone with solvent, sending a portion to
// every waste so each stretch of tubing sees fresh solvent.
type CleanBackbone struct {
	Solvent string

	solventVessel string
	wasteVessels  []string
}

func (c *CleanBackbone) Kind() Kind { return KindCleanBackbone }

func (c *CleanBackbone) Resolve(g *rig.Graph) error {
	if c.solventVessel == "" {
		c.solventVessel, _ = g.ReagentVessel(c.Solvent)
	}
	if c.wasteVessels == nil {
		c.wasteVessels = g.Wastes()
	}
	return nil
}

func (c *CleanBackbone) Expand() []Step {
	out := make([]Step, 0, len(c.wasteVessels))
	for _, waste := range c.wasteVessels {
		out = append(out, &CmdMove{
			From:   c.solventVessel,
			To:     waste,
			Volume: DefaultCleanBackboneVolume,
		})
	}
	return out
}

func (c *CleanBackbone) SanityChecks(g *rig.Graph) []Check {
	return []Check{
		{
			OK:  c.solventVessel != "",
			Msg: fmt.Sprintf("no flask of %q to clean the backbone with", c.Solvent),
		},
		{
			OK:  len(c.wasteVessels) > 0,
			Msg: "no waste vessels to flush cleaning solvent to",
		},
	}
}

func (c *CleanBackbone) MapVessels(func(string) string) {}

// CleanVessel rinses a vessel with solvent a number of times, stirring
// each portion before sending it to waste, then dries the vessel. A
// cleaning temperature outside ambient adds a heat/chill bracket.
type CleanVessel struct {
	Vessel    string
	Solvent   string
	Volume    float64
	StirTime  time.Duration
	StirSpeed float64
	Temp      float64
	HasTemp   bool
	Cleans    int

	solventVessel string
	wasteVessel   string
}

func (c *CleanVessel) Kind() Kind { return KindCleanVessel }

func (c *CleanVessel) Resolve(g *rig.Graph) error {
	if c.StirTime == 0 {
		c.StirTime = time.Minute
	}
	if c.StirSpeed == 0 {
		c.StirSpeed = DefaultWashStirSpeed
	}
	if c.Cleans == 0 {
		c.Cleans = 2
	}
	if c.Volume == 0 {
		c.Volume = g.MaxVolume(c.Vessel) * cleanVesselVolumeFraction
	}
	if c.solventVessel == "" {
		c.solventVessel, _ = g.ReagentVessel(c.Solvent)
	}
	if c.wasteVessel == "" {
		c.wasteVessel, _ = g.Nearest(c.Vessel, rig.KindWaste)
	}
	return nil
}

func (c *CleanVessel) Expand() []Step {
	var out []Step
	for i := 0; i < c.Cleans; i++ {
		out = append(out,
			&StartStir{Vessel: c.Vessel, StirSpeed: c.StirSpeed},
			&CmdMove{From: c.solventVessel, To: c.Vessel, Volume: c.Volume},
			&CmdWait{Duration: c.StirTime},
			&CmdMove{From: c.Vessel, To: c.wasteVessel, Volume: c.Volume},
			&StopStir{Vessel: c.Vessel},
		)
	}
	out = append(out, &Dry{Vessel: c.Vessel})
	if c.HasTemp && (c.Temp < 20 || c.Temp > RoomTemperature) {
		out = append(out[:1], append([]Step{
			&HeatChillToTemp{Vessel: c.Vessel, Temp: c.Temp},
		}, out[1:]...)...)
		out = append(out, &HeatChillToTemp{Vessel: c.Vessel, Temp: RoomTemperature})
	}
	return out
}

func (c *CleanVessel) SanityChecks(g *rig.Graph) []Check {
	return []Check{
		{
			OK:  c.solventVessel != "",
			Msg: fmt.Sprintf("no flask of %q to clean %q with", c.Solvent, c.Vessel),
		},
		{
			OK:  c.wasteVessel != "",
			Msg: fmt.Sprintf("no waste vessel reachable from %q", c.Vessel),
		},
		{
			OK:  c.Cleans > 0,
			Msg: "number of cleans must be positive",
		},
		{
			OK:  c.Volume > 0,
			Msg: "cleaning solvent volume must be positive",
		},
	}
}

func (c *CleanVessel) MapVessels(f func(string) string) { c.Vessel = f(c.Vessel) }
