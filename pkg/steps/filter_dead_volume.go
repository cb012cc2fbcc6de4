package steps

import (
	"fmt"

	"github.com/labforge/synthrig/pkg/rig"
)

// AddFilterDeadVolume fills the space below a filter frit with solvent
// before the filter top is used, so material added on top does not drain
// into an empty void. The vacuum valve is parked on a free port afterwards
// rather than reconnected to inert gas; the dead volume must stay put.
type AddFilterDeadVolume struct {
	Vessel  string
	Solvent string
	Volume  float64

	solventVessel string
	vacuum        rig.VacuumConfiguration
}

func (a *AddFilterDeadVolume) Kind() Kind { return KindAddFilterDeadVolume }

func (a *AddFilterDeadVolume) Resolve(g *rig.Graph) error {
	if a.solventVessel == "" {
		a.solventVessel, _ = g.ReagentVessel(a.Solvent)
	}
	if a.vacuum.Valve == "" {
		a.vacuum = g.VacuumConfiguration(a.Vessel)
	}
	return nil
}

func (a *AddFilterDeadVolume) Expand() []Step {
	out := []Step{&CmdMove{
		From:   a.solventVessel,
		To:     a.Vessel,
		ToPort: rig.PortBottom,
		Volume: a.Volume,
	}}
	if a.vacuum.Valve != "" && a.vacuum.UnusedPort != "" {
		out = append(out, &CmdValveMove{
			Valve:    a.vacuum.Valve,
			Position: a.vacuum.UnusedPort,
		})
	}
	return out
}

func (a *AddFilterDeadVolume) SanityChecks(g *rig.Graph) []Check {
	return []Check{
		{
			OK:  a.solventVessel != "",
			Msg: fmt.Sprintf("no flask of %q to fill the dead volume of %q", a.Solvent, a.Vessel),
		},
		{
			OK:  a.Volume > 0,
			Msg: "filter dead volume must be positive",
		},
	}
}

func (a *AddFilterDeadVolume) MapVessels(f func(string) string) { a.Vessel = f(a.Vessel) }

// RemoveFilterDeadVolume drains the solvent below a filter frit to waste
// once the filter top is no longer in use.
type RemoveFilterDeadVolume struct {
	Vessel     string
	DeadVolume float64

	wasteVessel string
	vacuum      rig.VacuumConfiguration
}

func (r *RemoveFilterDeadVolume) Kind() Kind { return KindRemoveFilterDeadVolume }

func (r *RemoveFilterDeadVolume) Resolve(g *rig.Graph) error {
	if r.wasteVessel == "" {
		r.wasteVessel, _ = g.Nearest(r.Vessel, rig.KindWaste)
	}
	if r.vacuum.Valve == "" {
		r.vacuum = g.VacuumConfiguration(r.Vessel)
	}
	return nil
}

func (r *RemoveFilterDeadVolume) Expand() []Step {
	out := []Step{&CmdMove{
		From:     r.Vessel,
		FromPort: rig.PortBottom,
		To:       r.wasteVessel,
		Volume:   r.DeadVolume,
	}}
	if r.vacuum.Valve != "" && r.vacuum.UnusedPort != "" {
		out = append(out, &CmdValveMove{
			Valve:    r.vacuum.Valve,
			Position: r.vacuum.UnusedPort,
		})
	}
	return out
}

func (r *RemoveFilterDeadVolume) SanityChecks(g *rig.Graph) []Check {
	return []Check{
		{
			OK:  r.wasteVessel != "",
			Msg: fmt.Sprintf("no waste vessel reachable from %q", r.Vessel),
		},
	}
}

func (r *RemoveFilterDeadVolume) MapVessels(f func(string) string) { r.Vessel = f(r.Vessel) }
