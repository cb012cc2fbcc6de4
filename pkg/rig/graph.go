package rig

import "fmt"

// Node is one physical device instance in the rig.
type Node struct {
	ID    string
	Kind  NodeKind
	Class string // original document class name, kept for diagnostics

	MaxVolume  float64 // mL
	DeadVolume float64 // mL, filters and cartridges only
	Position   int     // backbone ordering hint from the document

	// Chemical-content bookkeeping. Mutable during resolution; topology
	// never changes after load.
	Chemical      string
	CurrentVolume float64
}

// Empty reports whether the node holds no chemical. Only meaningful for
// flasks; an empty flask is an allocatable buffer flask.
func (n *Node) Empty() bool {
	return n.Chemical == ""
}

// Edge is a directed connection between two nodes carrying a port pair.
type Edge struct {
	From     string
	To       string
	FromPort string
	ToPort   string
}

// Graph owns the full node/edge collection of one rig and answers
// proximity/resource queries. Topology is immutable after construction;
// the only mutable node state is chemical-content bookkeeping.
type Graph struct {
	nodes map[string]*Node
	order []string // node ids in insertion order, for deterministic walks
	edges []Edge

	out        map[string][]int // node id -> indices into edges
	in         map[string][]int
	undirected map[string][]string // deduplicated neighbors, insertion order
}

// New builds a graph from nodes and edges, validating that node ids are
// unique, every edge endpoint exists and every edge port belongs to its
// endpoint kind's valid-port set. A graph violating port validity is
// rejected here, before any resolution can run against it.
func New(nodes []Node, edges []Edge) (*Graph, error) {
	g := &Graph{
		nodes:      make(map[string]*Node, len(nodes)),
		order:      make([]string, 0, len(nodes)),
		edges:      make([]Edge, 0, len(edges)),
		out:        make(map[string][]int),
		in:         make(map[string][]int),
		undirected: make(map[string][]string),
	}

	for i := range nodes {
		n := nodes[i]
		if _, exists := g.nodes[n.ID]; exists {
			return nil, &GraphError{Op: "New", Node: n.ID, Cause: ErrDuplicateNode}
		}
		g.nodes[n.ID] = &n
		g.order = append(g.order, n.ID)
	}

	for _, e := range edges {
		from, ok := g.nodes[e.From]
		if !ok {
			return nil, &GraphError{Op: "New", Node: e.From, Cause: ErrDanglingEdge}
		}
		to, ok := g.nodes[e.To]
		if !ok {
			return nil, &GraphError{Op: "New", Node: e.To, Cause: ErrDanglingEdge}
		}
		if !ValidPort(from.Kind, e.FromPort) {
			return nil, &GraphError{Op: "New", Node: e.From, Port: e.FromPort, Cause: ErrInvalidPort}
		}
		if !ValidPort(to.Kind, e.ToPort) {
			return nil, &GraphError{Op: "New", Node: e.To, Port: e.ToPort, Cause: ErrInvalidPort}
		}
		g.addEdge(e)
	}

	return g, nil
}

// addEdge appends an already-validated edge and updates adjacency.
func (g *Graph) addEdge(e Edge) {
	idx := len(g.edges)
	g.edges = append(g.edges, e)
	g.out[e.From] = append(g.out[e.From], idx)
	g.in[e.To] = append(g.in[e.To], idx)
	g.link(e.From, e.To)
	g.link(e.To, e.From)
}

// link records b as an undirected neighbor of a, deduplicated.
func (g *Graph) link(a, b string) {
	for _, n := range g.undirected[a] {
		if n == b {
			return
		}
	}
	g.undirected[a] = append(g.undirected[a], b)
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id string) *Node {
	return g.nodes[id]
}

// Has reports whether a node with the given id exists.
func (g *Graph) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Edges returns a copy of the edge list.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// OutEdges returns the edges leaving the given node.
func (g *Graph) OutEdges(id string) []Edge {
	out := make([]Edge, 0, len(g.out[id]))
	for _, i := range g.out[id] {
		out = append(out, g.edges[i])
	}
	return out
}

// InEdges returns the edges entering the given node.
func (g *Graph) InEdges(id string) []Edge {
	out := make([]Edge, 0, len(g.in[id]))
	for _, i := range g.in[id] {
		out = append(out, g.edges[i])
	}
	return out
}

// Neighbors returns the undirected neighbors of a node in deterministic
// (edge insertion) order. Liquid flow direction is irrelevant for physical
// adjacency, so proximity queries all use this view.
func (g *Graph) Neighbors(id string) []string {
	return g.undirected[id]
}

// Kind returns the kind of the named node, or KindUnknown if absent.
func (g *Graph) Kind(id string) NodeKind {
	if n := g.nodes[id]; n != nil {
		return n.Kind
	}
	return KindUnknown
}

// CountKind returns how many nodes of the given kind the graph holds.
func (g *Graph) CountKind(kind NodeKind) int {
	count := 0
	for _, id := range g.order {
		if g.nodes[id].Kind == kind {
			count++
		}
	}
	return count
}

// OfKind returns all nodes of the given kind in insertion order.
func (g *Graph) OfKind(kind NodeKind) []*Node {
	var out []*Node
	for _, id := range g.order {
		if n := g.nodes[id]; n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// MaxVolume returns the max volume of the named node, 0 if absent.
func (g *Graph) MaxVolume(id string) float64 {
	if n := g.nodes[id]; n != nil {
		return n.MaxVolume
	}
	return 0
}

// SetChemical updates the chemical-content bookkeeping of a flask. Used by
// the templating pre-pass and resolution accounting only.
func (g *Graph) SetChemical(id, chemical string) error {
	n := g.nodes[id]
	if n == nil {
		return &GraphError{Op: "SetChemical", Node: id, Cause: ErrNodeNotFound}
	}
	n.Chemical = chemical
	return nil
}

// String returns a short description, useful in log output.
func (g *Graph) String() string {
	return fmt.Sprintf("rig graph: %d nodes, %d edges", len(g.order), len(g.edges))
}
