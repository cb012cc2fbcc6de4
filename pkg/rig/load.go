package rig

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Document is the node-link JSON form of a hardware graph. It is the
// on-disk interchange format; Load turns one into a validated Graph.
type Document struct {
	Nodes []NodeDocument `json:"nodes" validate:"required,min=1,dive"`
	Links []LinkDocument `json:"links" validate:"dive"`
}

// NodeDocument is one node entry. Class carries the device class name and
// is mapped to a NodeKind; unknown classes are rejected rather than
// silently treated as flasks.
type NodeDocument struct {
	ID         string  `json:"id" validate:"required"`
	Class      string  `json:"class" validate:"required"`
	MaxVolume  float64 `json:"max_volume,omitempty" validate:"gte=0"`
	DeadVolume float64 `json:"dead_volume,omitempty" validate:"gte=0"`
	Chemical   string  `json:"chemical,omitempty"`
	Volume     float64 `json:"current_volume,omitempty" validate:"gte=0"`
	Position   int     `json:"position,omitempty"`
}

// LinkDocument is one directed edge entry. Port holds [fromPort, toPort];
// legacy documents instead carry the pair as a "(from,to)" string, which
// UnmarshalJSON accepts too.
type LinkDocument struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Port   PortPair `json:"port,omitempty"`
}

// PortPair is the two-ended port annotation on a link.
type PortPair struct {
	From string
	To   string
}

// UnmarshalJSON accepts both the array form ["from","to"] and the legacy
// string form "(from,to)".
func (p *PortPair) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err == nil {
		p.From, p.To = pair[0], pair[1]
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("port must be a two-element array or \"(from,to)\" string: %w", err)
	}
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	parts := strings.SplitN(s, ",", 2)
	p.From = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		p.To = strings.TrimSpace(parts[1])
	}
	return nil
}

// MarshalJSON writes the array form.
func (p PortPair) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{p.From, p.To})
}

// Load reads a node-link JSON document and builds a validated graph.
func Load(r io.Reader) (*Graph, error) {
	var doc Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, &GraphError{Op: "load", Cause: fmt.Errorf("%w: %v", ErrBadDocument, err)}
	}
	return FromDocument(&doc)
}

// LoadFile is Load over a file path.
func LoadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &GraphError{Op: "load", Cause: err}
	}
	defer f.Close()
	return Load(f)
}

// legacyNode is one attribute bag in the legacy attributed-graph form.
// Older exports carry the device class under "type".
type legacyNode struct {
	Class      string  `json:"class"`
	Type       string  `json:"type"`
	MaxVolume  float64 `json:"max_volume"`
	DeadVolume float64 `json:"dead_volume"`
	Chemical   string  `json:"chemical"`
	Volume     float64 `json:"current_volume"`
	Position   int     `json:"position"`
}

// legacyDocument is the older attributed-graph JSON form: nodes keyed by
// id instead of listed, edges under "edges", port pairs as "(from,to)"
// strings. It normalizes into the node-link Document shape.
type legacyDocument struct {
	Nodes map[string]legacyNode `json:"nodes"`
	Edges []LinkDocument        `json:"edges"`
}

// ParseLegacy converts a legacy attributed-graph document into its
// node-link equivalent. Node order is sorted by id so repeated loads of
// the same document build the same graph.
func ParseLegacy(data []byte) (*Document, error) {
	var legacy legacyDocument
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, &GraphError{Op: "load", Cause: fmt.Errorf("%w: %v", ErrBadDocument, err)}
	}
	if len(legacy.Nodes) == 0 {
		return nil, &GraphError{Op: "load", Cause: fmt.Errorf("%w: no nodes", ErrBadDocument)}
	}

	ids := make([]string, 0, len(legacy.Nodes))
	for id := range legacy.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	doc := &Document{Links: legacy.Edges}
	for _, id := range ids {
		ln := legacy.Nodes[id]
		class := ln.Class
		if class == "" {
			class = ln.Type
		}
		doc.Nodes = append(doc.Nodes, NodeDocument{
			ID:         id,
			Class:      class,
			MaxVolume:  ln.MaxVolume,
			DeadVolume: ln.DeadVolume,
			Chemical:   ln.Chemical,
			Volume:     ln.Volume,
			Position:   ln.Position,
		})
	}
	return doc, nil
}

// LoadLegacy reads a legacy attributed-graph document and builds a
// validated graph. Legacy class names normalize through the same class
// table as Load, so both document forms produce the same in-memory model.
func LoadLegacy(r io.Reader) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &GraphError{Op: "load", Cause: err}
	}
	doc, err := ParseLegacy(data)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc)
}

// FromDocument converts a parsed document into a Graph, mapping device
// classes to kinds and link port pairs to edge ports.
func FromDocument(doc *Document) (*Graph, error) {
	if len(doc.Nodes) == 0 {
		return nil, &GraphError{Op: "load", Cause: fmt.Errorf("%w: no nodes", ErrBadDocument)}
	}

	nodes := make([]Node, 0, len(doc.Nodes))
	for _, nd := range doc.Nodes {
		kind := KindForClass(nd.Class)
		if kind == KindUnknown {
			return nil, &GraphError{Op: "load", Node: nd.ID,
				Cause: fmt.Errorf("%w: unknown device class %q", ErrBadDocument, nd.Class)}
		}
		nodes = append(nodes, Node{
			ID:            nd.ID,
			Kind:          kind,
			Class:         nd.Class,
			MaxVolume:     nd.MaxVolume,
			DeadVolume:    nd.DeadVolume,
			Chemical:      nd.Chemical,
			CurrentVolume: nd.Volume,
			Position:      nd.Position,
		})
	}

	edges := make([]Edge, 0, len(doc.Links))
	for _, ld := range doc.Links {
		edges = append(edges, Edge{
			From:     ld.Source,
			To:       ld.Target,
			FromPort: ld.Port.From,
			ToPort:   ld.Port.To,
		})
	}

	return New(nodes, edges)
}

// ToDocument renders the graph back into its node-link document form, for
// writing templated graphs out.
func (g *Graph) ToDocument() *Document {
	doc := &Document{}
	for _, id := range g.order {
		n := g.nodes[id]
		doc.Nodes = append(doc.Nodes, NodeDocument{
			ID:         n.ID,
			Class:      n.Class,
			MaxVolume:  n.MaxVolume,
			DeadVolume: n.DeadVolume,
			Chemical:   n.Chemical,
			Volume:     n.CurrentVolume,
			Position:   n.Position,
		})
	}
	for _, e := range g.edges {
		doc.Links = append(doc.Links, LinkDocument{
			Source: e.From,
			Target: e.To,
			Port:   PortPair{From: e.FromPort, To: e.ToPort},
		})
	}
	return doc
}
