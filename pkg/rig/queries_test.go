package rig

import "testing"

// Nearest must walk hop by hop, not pick an arbitrary node of the kind.
func TestNearestPrefersCloserNode(t *testing.T) {
	g := testRig(t)

	// buffer2 is on valve1 (2 hops from the reactor), buffer1 is on
	// valve2 (3 hops).
	flask, ok := g.NearestSuchThat("reactor", func(n *Node) bool {
		return n.Kind == KindFlask && n.Empty()
	})
	if !ok {
		t.Fatal("expected an empty flask near the reactor")
	}
	if flask != "buffer2" {
		t.Errorf("nearest empty flask = %s, want buffer2", flask)
	}
}

// Absence of a matching node is a normal ok=false outcome, never a panic.
func TestNearestAbsent(t *testing.T) {
	g := testRig(t)
	if _, ok := g.Nearest("reactor", KindRotavap); ok {
		t.Error("there is no rotavap, ok should be false")
	}
	if _, ok := g.Nearest("no_such_node", KindFlask); ok {
		t.Error("unknown start node should give ok=false")
	}
}

// Repeated queries on an unchanged graph return the same node.
func TestNearestDeterministic(t *testing.T) {
	g := testRig(t)
	first, ok := g.Nearest("reactor", KindFlask)
	if !ok {
		t.Fatal("expected a flask")
	}
	for i := 0; i < 10; i++ {
		again, _ := g.Nearest("reactor", KindFlask)
		if again != first {
			t.Fatalf("run %d returned %s, first run returned %s", i, again, first)
		}
	}
}

// Free valve positions are reported in the canonical -1..5 order.
func TestUnusedValvePort(t *testing.T) {
	g := testRig(t)

	port, ok := g.UnusedValvePort("valve2")
	if !ok || port != "4" {
		t.Errorf("valve2 free port = %q, %v, want \"4\", true", port, ok)
	}

	// valve1 has every position occupied.
	if _, ok := g.UnusedValvePort("valve1"); ok {
		t.Error("valve1 is full, ok should be false")
	}

	// A non-valve node never has valve ports.
	if _, ok := g.UnusedValvePort("reactor"); ok {
		t.Error("reactor is not a valve, ok should be false")
	}
}

// The vacuum walk finds valve, source, control device, spare port and the
// inert-gas flask sharing the valve.
func TestVacuumConfiguration(t *testing.T) {
	g := testRig(t)

	cfg := g.VacuumConfiguration("reactor")
	if cfg.Valve != "valve1" {
		t.Errorf("Valve = %s, want valve1", cfg.Valve)
	}
	if cfg.Source != "vacuum_line" {
		t.Errorf("Source = %s, want vacuum_line", cfg.Source)
	}
	if cfg.Device != "vacuum_pump" {
		t.Errorf("Device = %s, want vacuum_pump", cfg.Device)
	}
	if cfg.InertGas != "nitrogen" {
		t.Errorf("InertGas = %s, want nitrogen", cfg.InertGas)
	}
	// valve1 is full, so no spare port is available.
	if cfg.UnusedPort != "" {
		t.Errorf("UnusedPort = %q, want empty", cfg.UnusedPort)
	}
}

// A vessel with no vacuum plumbing gets an all-empty configuration.
func TestVacuumConfigurationAbsent(t *testing.T) {
	g := testRig(t)
	cfg := g.VacuumConfiguration("separator")
	if cfg.Source != "" || cfg.Device != "" {
		t.Errorf("separator has no vacuum line on its valve, got %+v", cfg)
	}
}

// Buffer flasks come back ordered by distance to the reference vessel.
func TestBufferFlasksOrderedByDistance(t *testing.T) {
	g := testRig(t)

	got := g.BufferFlasks("separator", 2)
	if len(got) != 2 {
		t.Fatalf("got %d buffer flasks, want 2", len(got))
	}
	// buffer1 shares valve2 with the separator; buffer2 is a valve away.
	if got[0] != "buffer1" || got[1] != "buffer2" {
		t.Errorf("order = %v, want [buffer1 buffer2]", got)
	}

	// Asking for more than exist is not an error.
	if got := g.BufferFlasks("separator", 5); len(got) != 2 {
		t.Errorf("got %d, want all 2 available", len(got))
	}
}

// Reagent lookup is by chemical name, case-insensitive, flasks only.
func TestReagentVessel(t *testing.T) {
	g := testRig(t)

	id, ok := g.ReagentVessel("Diethyl Ether")
	if !ok || id != "ether_flask" {
		t.Errorf("ReagentVessel = %q, %v, want ether_flask, true", id, ok)
	}
	if _, ok := g.ReagentVessel("acetone"); ok {
		t.Error("no acetone flask exists, ok should be false")
	}
}

// Flush gas prefers inert gas over air.
func TestFlushGasVesselPrefersInert(t *testing.T) {
	g := testRig(t)

	id, ok := g.FlushGasVessel()
	if !ok || id != "nitrogen" {
		t.Errorf("FlushGasVessel = %q, %v, want nitrogen, true", id, ok)
	}
}

func TestFlushGasVesselFallsBackToAir(t *testing.T) {
	g, err := New(
		[]Node{
			{ID: "air_flask", Kind: KindFlask, Class: "flask", Chemical: "air"},
			{ID: "water_flask", Kind: KindFlask, Class: "flask", Chemical: "water"},
		},
		nil,
	)
	if err != nil {
		t.Fatal(err)
	}
	id, ok := g.FlushGasVessel()
	if !ok || id != "air_flask" {
		t.Errorf("FlushGasVessel = %q, %v, want air_flask, true", id, ok)
	}
}

func TestAttachedPumpAndSensor(t *testing.T) {
	g := testRig(t)

	pump, ok := g.AttachedPump("separator")
	if !ok || pump != "pump2" {
		t.Errorf("AttachedPump(separator) = %q, %v, want pump2, true", pump, ok)
	}
	sensor, ok := g.AttachedSensor("separator")
	if !ok || sensor != "sensor1" {
		t.Errorf("AttachedSensor(separator) = %q, %v, want sensor1, true", sensor, ok)
	}
	if _, ok := g.AttachedSensor("reactor"); ok {
		t.Error("reactor has no sensor, ok should be false")
	}
}

func TestVesselStirrer(t *testing.T) {
	g := testRig(t)
	if s, ok := g.VesselStirrer("reactor"); !ok || s != "stirrer1" {
		t.Errorf("VesselStirrer(reactor) = %q, %v", s, ok)
	}
	if _, ok := g.VesselStirrer("separator"); ok {
		t.Error("separator has no stirrer")
	}
}

func TestVesselType(t *testing.T) {
	g := testRig(t)
	cases := map[string]string{
		"reactor":   "reactor",
		"separator": "separator",
		"buffer1":   "flask",
		"valve1":    "",
	}
	for id, want := range cases {
		if got := g.VesselType(id); got != want {
			t.Errorf("VesselType(%s) = %q, want %q", id, got, want)
		}
	}
}
