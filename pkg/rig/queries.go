package rig

import (
	"container/list"
	"sort"
	"strings"
)

// Nearest finds the closest node of the target kind to the given node using
// breadth-first search over the undirected view of the graph. Ties are
// broken by discovery order, which is fixed by edge insertion order, so
// repeated calls on an unchanged graph always return the same node.
// Absence is a normal outcome: ok is false and callers decide whether that
// is fatal.
func (g *Graph) Nearest(from string, kind NodeKind) (string, bool) {
	return g.NearestSuchThat(from, func(n *Node) bool {
		return n.Kind == kind
	})
}

// NearestSuchThat is Nearest with an arbitrary predicate. The start node
// itself is never a candidate.
func (g *Graph) NearestSuchThat(from string, pred func(*Node) bool) (string, bool) {
	if !g.Has(from) {
		return "", false
	}

	queue := list.New()
	queue.PushBack(from)
	visited := map[string]bool{from: true}

	for queue.Len() > 0 {
		current := queue.Remove(queue.Front()).(string)
		for _, neighbor := range g.Neighbors(current) {
			if visited[neighbor] {
				continue
			}
			visited[neighbor] = true
			if pred(g.nodes[neighbor]) {
				return neighbor, true
			}
			queue.PushBack(neighbor)
		}
	}

	return "", false
}

// distances returns BFS hop counts from the given node over the undirected
// view. Unreachable nodes are absent from the map.
func (g *Graph) distances(from string) map[string]int {
	dist := map[string]int{from: 0}
	queue := list.New()
	queue.PushBack(from)

	for queue.Len() > 0 {
		current := queue.Remove(queue.Front()).(string)
		for _, neighbor := range g.Neighbors(current) {
			if _, seen := dist[neighbor]; !seen {
				dist[neighbor] = dist[current] + 1
				queue.PushBack(neighbor)
			}
		}
	}
	return dist
}

// UnusedValvePort scans a valve's in/out edges for occupied ports and
// returns the first free position in the canonical order -1,0,1,2,3,4,5.
// ok is false when every position is occupied or the node is not a valve.
func (g *Graph) UnusedValvePort(valve string) (string, bool) {
	n := g.nodes[valve]
	if n == nil || n.Kind != KindValve {
		return "", false
	}

	used := make(map[string]bool)
	for _, e := range g.InEdges(valve) {
		if e.ToPort != "" {
			used[e.ToPort] = true
		}
	}
	for _, e := range g.OutEdges(valve) {
		if e.FromPort != "" {
			used[e.FromPort] = true
		}
	}

	for _, port := range ValvePortOrder {
		if !used[port] {
			return port, true
		}
	}
	return "", false
}

// VacuumConfiguration describes the vacuum plumbing reachable from a
// vessel: vessel <-> valve <-> vacuum source flask, optionally with a
// vacuum control device on the source and an inert-gas flask on the same
// valve. Any field may be empty; callers decide whether a missing piece is
// fatal.
type VacuumConfiguration struct {
	Valve      string // valve connecting the vessel to the vacuum source
	Source     string // vacuum source flask
	Device     string // vacuum control device, "" for a plain vacuum line
	UnusedPort string // free port on Valve, for reconnecting after use
	InertGas   string // inert-gas flask attached to the same valve
}

// VacuumConfiguration walks one hop to each connecting valve and one
// further hop to a vacuum source. The first valve (in edge order) with a
// vacuum source wins.
func (g *Graph) VacuumConfiguration(vessel string) VacuumConfiguration {
	var cfg VacuumConfiguration
	for _, neighbor := range g.Neighbors(vessel) {
		if g.Kind(neighbor) != KindValve {
			continue
		}
		for _, valveNeighbor := range g.Neighbors(neighbor) {
			switch g.Kind(valveNeighbor) {
			case KindVacuum:
				if cfg.Source == "" {
					cfg.Valve = neighbor
					cfg.Source = valveNeighbor
				}
			case KindFlask:
				if isInertGas(g.nodes[valveNeighbor].Chemical) && cfg.InertGas == "" {
					cfg.InertGas = valveNeighbor
				}
			}
		}
		if cfg.Source != "" {
			break
		}
	}

	if cfg.Valve != "" {
		cfg.UnusedPort, _ = g.UnusedValvePort(cfg.Valve)
	}
	if cfg.Source != "" {
		cfg.Device = g.vacuumDevice(cfg.Source)
	}
	return cfg
}

// vacuumDevice returns the vacuum control device attached to the given
// vacuum source flask, or "" for a plain vacuum line.
func (g *Graph) vacuumDevice(source string) string {
	for _, e := range g.InEdges(source) {
		if g.Kind(e.From) == KindVacuumDevice {
			return e.From
		}
	}
	return ""
}

// PneumaticController looks one hop for an inbound pneumatic-controller
// edge on the vessel. When portHint is non-empty only a controller edge
// leaving that controller port matches.
func (g *Graph) PneumaticController(vessel, portHint string) (controller, port string, ok bool) {
	for _, e := range g.InEdges(vessel) {
		if g.Kind(e.From) != KindPneumaticController {
			continue
		}
		if portHint != "" && e.FromPort != portHint {
			continue
		}
		return e.From, e.FromPort, true
	}
	return "", "", false
}

// BufferFlasks returns up to count chemical-empty flask nodes ordered by
// increasing undirected distance to near. Unreachable empty flasks are
// excluded. Fewer than count results is not an error.
func (g *Graph) BufferFlasks(near string, count int) []string {
	dist := g.distances(near)

	type candidate struct {
		id string
		d  int
	}
	var candidates []candidate
	for _, id := range g.order {
		n := g.nodes[id]
		if n.Kind != KindFlask || !n.Empty() {
			continue
		}
		if d, ok := dist[id]; ok {
			candidates = append(candidates, candidate{id, d})
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].d < candidates[j].d
	})

	var out []string
	for _, c := range candidates {
		if len(out) == count {
			break
		}
		out = append(out, c.id)
	}
	return out
}

// ReagentVessel returns the flask whose chemical matches the given reagent
// name (case-insensitive).
func (g *Graph) ReagentVessel(reagent string) (string, bool) {
	for _, id := range g.order {
		n := g.nodes[id]
		if n.Kind == KindFlask && strings.EqualFold(n.Chemical, reagent) {
			return id, true
		}
	}
	return "", false
}

// Cartridge returns the cartridge node packed with the given chemical.
func (g *Graph) Cartridge(chemical string) (string, bool) {
	for _, id := range g.order {
		n := g.nodes[id]
		if n.Kind == KindCartridge && strings.EqualFold(n.Chemical, chemical) {
			return id, true
		}
	}
	return "", false
}

// inertGasSynonyms are chemical names treated as inert gas supplies.
var inertGasSynonyms = []string{"nitrogen", "n2", "argon", "ar"}

func isInertGas(chemical string) bool {
	c := strings.ToLower(chemical)
	for _, s := range inertGasSynonyms {
		if c == s {
			return true
		}
	}
	return false
}

// FlushGasVessel looks for a gas flask for flushing tubing after liquid
// additions. Preference is inert gas > air > none.
func (g *Graph) FlushGasVessel() (string, bool) {
	air := ""
	for _, id := range g.order {
		n := g.nodes[id]
		if n.Kind != KindFlask {
			continue
		}
		if isInertGas(n.Chemical) {
			return id, true
		}
		if strings.EqualFold(n.Chemical, "air") && air == "" {
			air = id
		}
	}
	if air != "" {
		return air, true
	}
	return "", false
}

// HeaterChiller returns the heater and chiller directly attached to a
// vessel. Either may be absent.
func (g *Graph) HeaterChiller(vessel string) (heater, chiller string) {
	for _, neighbor := range g.Neighbors(vessel) {
		switch g.Kind(neighbor) {
		case KindHeater:
			if heater == "" {
				heater = neighbor
			}
		case KindChiller:
			if chiller == "" {
				chiller = neighbor
			}
		}
	}
	return heater, chiller
}

// VesselStirrer returns the stirrer directly attached to a vessel.
func (g *Graph) VesselStirrer(vessel string) (string, bool) {
	for _, neighbor := range g.Neighbors(vessel) {
		if g.Kind(neighbor) == KindStirrer {
			return neighbor, true
		}
	}
	return "", false
}

// AttachedPump finds the pump serving a vessel: one hop to a connecting
// valve, one further hop to a pump on that valve.
func (g *Graph) AttachedPump(vessel string) (string, bool) {
	for _, neighbor := range g.Neighbors(vessel) {
		if g.Kind(neighbor) != KindValve {
			continue
		}
		for _, valveNeighbor := range g.Neighbors(neighbor) {
			if g.Kind(valveNeighbor) == KindPump {
				return valveNeighbor, true
			}
		}
	}
	return "", false
}

// AttachedSensor returns the conductivity sensor directly attached to a
// vessel.
func (g *Graph) AttachedSensor(vessel string) (string, bool) {
	for _, neighbor := range g.Neighbors(vessel) {
		if g.Kind(neighbor) == KindSensor {
			return neighbor, true
		}
	}
	return "", false
}

// Wastes returns the ids of every waste vessel in insertion order.
func (g *Graph) Wastes() []string {
	var out []string
	for _, id := range g.order {
		if g.nodes[id].Kind == KindWaste {
			out = append(out, id)
		}
	}
	return out
}

// VesselType returns the vessel category name used by step branching:
// "reactor", "filter", "separator", "rotavap", "flask" or "".
func (g *Graph) VesselType(vessel string) string {
	switch g.Kind(vessel) {
	case KindReactor:
		return "reactor"
	case KindFilter:
		return "filter"
	case KindSeparator:
		return "separator"
	case KindRotavap:
		return "rotavap"
	case KindFlask:
		return "flask"
	}
	return ""
}
