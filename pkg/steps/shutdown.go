package steps

import "github.com/labforge/synthrig/pkg/rig"

// Shutdown switches off every device on the rig that can be running:
// rotavaps, stirrers, heaters, vacuum devices and chillers, in that order.
// Appended to the end of every procedure so nothing is left spinning or
// heating overnight.
type Shutdown struct {
	rotavaps []string
	stirrers []string
	heaters  []string
	vacuums  []string
	chillers []string
	resolved bool
}

func (s *Shutdown) Kind() Kind { return KindShutdown }

func (s *Shutdown) Resolve(g *rig.Graph) error {
	if s.resolved {
		return nil
	}
	for _, n := range g.Nodes() {
		switch n.Kind {
		case rig.KindRotavap:
			s.rotavaps = append(s.rotavaps, n.ID)
		case rig.KindStirrer:
			if v := attachedVessel(g, n.ID); v != "" {
				s.stirrers = append(s.stirrers, v)
			}
		case rig.KindHeater:
			if v := attachedVessel(g, n.ID); v != "" {
				s.heaters = append(s.heaters, v)
			}
		case rig.KindChiller:
			if v := attachedVessel(g, n.ID); v != "" {
				s.chillers = append(s.chillers, v)
			}
		case rig.KindVacuumDevice:
			s.vacuums = append(s.vacuums, n.ID)
		}
	}
	s.resolved = true
	return nil
}

func attachedVessel(g *rig.Graph, device string) string {
	neighbors := g.Neighbors(device)
	if len(neighbors) == 0 {
		return ""
	}
	return neighbors[0]
}

func (s *Shutdown) Expand() []Step {
	var out []Step
	for _, r := range s.rotavaps {
		out = append(out, &CmdRotavapStopRotation{Rotavap: r})
	}
	for _, r := range s.rotavaps {
		out = append(out, &CmdRotavapStopHeater{Rotavap: r})
	}
	for _, r := range s.rotavaps {
		out = append(out, &CmdRotavapLift{Rotavap: r})
	}
	for _, v := range s.stirrers {
		out = append(out, &CmdStopStir{Vessel: v})
	}
	for _, v := range s.heaters {
		out = append(out, &CmdHeaterStop{Vessel: v})
	}
	for _, v := range s.vacuums {
		out = append(out, &CmdStopVacuum{Source: v}, &CmdVentVacuum{Source: v})
	}
	for _, v := range s.chillers {
		out = append(out, &CmdChillerStop{Vessel: v})
	}
	return out
}

func (s *Shutdown) SanityChecks(*rig.Graph) []Check { return nil }

func (s *Shutdown) MapVessels(func(string) string) {}
