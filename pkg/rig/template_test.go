package rig

import (
	"errors"
	"testing"
)

// A synthesized buffer flask lands on the nearest valve with a free port
// and is wired both ways.
func TestAttachBufferFlask(t *testing.T) {
	g := testRig(t)

	id, err := g.AttachBufferFlask("separator")
	if err != nil {
		t.Fatalf("AttachBufferFlask: %v", err)
	}
	n := g.Node(id)
	if n == nil || n.Kind != KindFlask || !n.Empty() {
		t.Fatalf("new flask node = %+v", n)
	}

	// valve2 is the separator's valve and had port 4 free.
	out := g.OutEdges("valve2")
	found := false
	for _, e := range out {
		if e.To == id && e.FromPort == "4" {
			found = true
		}
	}
	if !found {
		t.Errorf("no valve2 -> %s edge on port 4; edges: %v", id, out)
	}
	if len(g.OutEdges(id)) != 1 {
		t.Errorf("flask should have one outgoing edge back to the valve")
	}
}

// Fresh ids never collide with existing nodes.
func TestAttachBufferFlaskFreshIDs(t *testing.T) {
	g := testRig(t)

	first, err := g.AttachBufferFlask("separator")
	if err != nil {
		t.Fatal(err)
	}
	second, err := g.AttachBufferFlask("separator")
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Errorf("both attachments got id %s", first)
	}
}

// When every reachable valve is full the attachment fails with
// ErrNoFreePort.
func TestAttachBufferFlaskNoFreePort(t *testing.T) {
	g, err := New(
		[]Node{
			{ID: "flask_a", Kind: KindFlask, Class: "flask"},
			{ID: "valve1", Kind: KindValve, Class: "valve"},
			{ID: "f0", Kind: KindFlask, Class: "flask", Chemical: "a"},
			{ID: "f1", Kind: KindFlask, Class: "flask", Chemical: "b"},
			{ID: "f2", Kind: KindFlask, Class: "flask", Chemical: "c"},
			{ID: "f3", Kind: KindFlask, Class: "flask", Chemical: "d"},
			{ID: "f4", Kind: KindFlask, Class: "flask", Chemical: "e"},
			{ID: "f5", Kind: KindFlask, Class: "flask", Chemical: "f"},
		},
		[]Edge{
			{From: "valve1", To: "flask_a", FromPort: "-1", ToPort: "0"},
			{From: "valve1", To: "f0", FromPort: "0", ToPort: "0"},
			{From: "valve1", To: "f1", FromPort: "1", ToPort: "0"},
			{From: "valve1", To: "f2", FromPort: "2", ToPort: "0"},
			{From: "valve1", To: "f3", FromPort: "3", ToPort: "0"},
			{From: "valve1", To: "f4", FromPort: "4", ToPort: "0"},
			{From: "valve1", To: "f5", FromPort: "5", ToPort: "0"},
		},
	)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := g.AttachBufferFlask("flask_a"); !errors.Is(err, ErrNoFreePort) {
		t.Fatalf("expected ErrNoFreePort, got %v", err)
	}
}

// A cartridge gets an inlet from one valve and an outlet to another, and
// carries its packing chemical and dead volume.
func TestAttachCartridge(t *testing.T) {
	g := testRig(t)

	id, err := g.AttachCartridge("celite", "reactor", "separator", 25)
	if err != nil {
		t.Fatalf("AttachCartridge: %v", err)
	}
	n := g.Node(id)
	if n.Kind != KindCartridge || n.Chemical != "celite" || n.DeadVolume != 25 {
		t.Fatalf("cartridge node = %+v", n)
	}
	if len(g.InEdges(id)) != 1 || len(g.OutEdges(id)) != 1 {
		t.Errorf("cartridge should have exactly one inlet and one outlet")
	}
	if g.InEdges(id)[0].ToPort != PortIn || g.OutEdges(id)[0].FromPort != PortOut {
		t.Errorf("cartridge edges must use the in/out ports")
	}

	// It is now discoverable by the packing-chemical lookup.
	if found, ok := g.Cartridge("Celite"); !ok || found != id {
		t.Errorf("Cartridge lookup = %q, %v", found, ok)
	}
}
