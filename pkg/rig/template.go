package rig

import "fmt"

// Templating synthesizes hardware a procedure needs but the loaded graph
// lacks: extra buffer flasks near a vessel and cartridges on the backbone.
// It runs as a pre-pass before preparation, which is the only phase allowed
// to grow the topology.

// defaultBufferFlaskVolume is used for synthesized buffer flasks when the
// caller does not know a better value.
const defaultBufferFlaskVolume = 100 // mL

// AttachBufferFlask adds an empty flask on a free port of the valve closest
// to near and returns the new flask id. Edges run both ways so the flask is
// usable as both source and destination.
func (g *Graph) AttachBufferFlask(near string) (string, error) {
	valve, port, err := g.freeValvePortNear(near)
	if err != nil {
		return "", &GraphError{Op: "AttachBufferFlask", Node: near, Cause: err}
	}

	id := g.freshID("buffer_flask")
	g.addNode(&Node{
		ID:        id,
		Kind:      KindFlask,
		Class:     "flask",
		MaxVolume: defaultBufferFlaskVolume,
	})
	g.addEdge(Edge{From: valve, To: id, FromPort: port, ToPort: "0"})
	g.addEdge(Edge{From: id, To: valve, FromPort: "0", ToPort: port})
	return id, nil
}

// AttachCartridge adds a cartridge packed with the given chemical between
// two valves: the one nearest from feeds the cartridge inlet, the one
// nearest to drains its outlet. Returns the new cartridge id.
func (g *Graph) AttachCartridge(chemical string, from, to string, deadVolume float64) (string, error) {
	inValve, inPort, err := g.freeValvePortNear(from)
	if err != nil {
		return "", &GraphError{Op: "AttachCartridge", Node: from, Cause: err}
	}
	outValve, outPort, err := g.freeValvePortNearExcept(to, inValve, inPort)
	if err != nil {
		return "", &GraphError{Op: "AttachCartridge", Node: to, Cause: err}
	}

	id := g.freshID("cartridge_" + chemical)
	g.addNode(&Node{
		ID:         id,
		Kind:       KindCartridge,
		Class:      "cartridge",
		Chemical:   chemical,
		DeadVolume: deadVolume,
	})
	g.addEdge(Edge{From: inValve, To: id, FromPort: inPort, ToPort: PortIn})
	g.addEdge(Edge{From: id, To: outValve, FromPort: PortOut, ToPort: outPort})
	return id, nil
}

// freeValvePortNear finds the closest valve to the given node that still
// has a free port.
func (g *Graph) freeValvePortNear(near string) (valve, port string, err error) {
	if !g.Has(near) {
		return "", "", ErrNodeNotFound
	}
	valve, ok := g.NearestSuchThat(near, func(n *Node) bool {
		if n.Kind != KindValve {
			return false
		}
		_, free := g.UnusedValvePort(n.ID)
		return free
	})
	if !ok {
		return "", "", fmt.Errorf("%w: no valve with a free port near %s", ErrNoFreePort, near)
	}
	port, _ = g.UnusedValvePort(valve)
	return valve, port, nil
}

// freeValvePortNearExcept is freeValvePortNear but treats one port as
// already taken, for when a pending edge has claimed it.
func (g *Graph) freeValvePortNearExcept(near, takenValve, takenPort string) (valve, port string, err error) {
	if !g.Has(near) {
		return "", "", ErrNodeNotFound
	}
	free := func(id string) (string, bool) {
		p, ok := g.UnusedValvePort(id)
		if ok && id == takenValve && p == takenPort {
			// Scan past the pending claim.
			used := map[string]bool{p: true}
			for _, e := range g.InEdges(id) {
				used[e.ToPort] = true
			}
			for _, e := range g.OutEdges(id) {
				used[e.FromPort] = true
			}
			for _, candidate := range ValvePortOrder {
				if !used[candidate] {
					return candidate, true
				}
			}
			return "", false
		}
		return p, ok
	}
	valve, ok := g.NearestSuchThat(near, func(n *Node) bool {
		if n.Kind != KindValve {
			return false
		}
		_, hasFree := free(n.ID)
		return hasFree
	})
	if !ok {
		return "", "", fmt.Errorf("%w: no valve with a free port near %s", ErrNoFreePort, near)
	}
	port, _ = free(valve)
	return valve, port, nil
}

// freshID returns base if unused, otherwise base1, base2, ...
func (g *Graph) freshID(base string) string {
	if !g.Has(base) {
		return base
	}
	for i := 1; ; i++ {
		id := fmt.Sprintf("%s%d", base, i)
		if !g.Has(id) {
			return id
		}
	}
}

// addNode appends a node created by templating.
func (g *Graph) addNode(n *Node) {
	g.nodes[n.ID] = n
	g.order = append(g.order, n.ID)
}
