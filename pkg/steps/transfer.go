package steps

import (
	"fmt"
	"time"

	"github.com/labforge/synthrig/pkg/rig"
)

// Transfer moves liquid between two vessels, filling in default ports for
// the endpoint kinds and routing through a cartridge when Through is set.
// All=true means "everything the source can hold"; the concrete volume is
// resolved from the source vessel's max volume.
type Transfer struct {
	FromVessel string
	ToVessel   string
	Volume     float64
	All        bool
	FromPort   string
	ToPort     string
	Through    string // chemical the cartridge is packed with
	Time       time.Duration

	AspirationSpeed float64
	MoveSpeed       float64
	DispenseSpeed   float64

	throughCartridge string
	fromHasStirrer   bool
	stirrerChecked   bool
	portsResolved    bool
}

func (t *Transfer) Kind() Kind { return KindTransfer }

func (t *Transfer) Resolve(g *rig.Graph) error {
	if t.Through != "" && t.throughCartridge == "" {
		t.throughCartridge, _ = g.Cartridge(t.Through)
	}

	if !t.portsResolved {
		if t.FromPort == "" {
			t.FromPort = rig.DefaultPort(g.Kind(t.FromVessel), true)
		}
		if t.ToPort == "" {
			t.ToPort = rig.DefaultPort(g.Kind(t.ToVessel), false)
		}
		t.portsResolved = true
	}

	if t.All && t.Volume == 0 {
		t.Volume = g.MaxVolume(t.FromVessel)
	}

	if !t.stirrerChecked {
		_, t.fromHasStirrer = g.VesselStirrer(t.FromVessel)
		t.stirrerChecked = true
	}
	return nil
}

func (t *Transfer) Expand() []Step {
	out := []Step{&CmdMove{
		From:            t.FromVessel,
		FromPort:        t.FromPort,
		To:              t.ToVessel,
		ToPort:          t.ToPort,
		Volume:          t.Volume,
		Through:         t.throughCartridge,
		AspirationSpeed: t.AspirationSpeed,
		MoveSpeed:       t.MoveSpeed,
		DispenseSpeed:   t.dispenseSpeed(),
	}}

	// Draining a vessel with the stirrer running pulls the vortex into
	// the outlet.
	if t.All && t.fromHasStirrer {
		out = append([]Step{&StopStir{Vessel: t.FromVessel}}, out...)
	}
	return out
}

func (t *Transfer) dispenseSpeed() float64 {
	if t.Time > 0 && t.Volume > 0 {
		return t.Volume / t.Time.Minutes()
	}
	return t.DispenseSpeed
}

func (t *Transfer) SanityChecks(g *rig.Graph) []Check {
	return []Check{
		{OK: t.FromVessel != "", Msg: "transfer needs a source vessel"},
		{OK: t.ToVessel != "", Msg: "transfer needs a destination vessel"},
		{
			OK: t.Through == "" || t.throughCartridge != "",
			Msg: fmt.Sprintf("trying to transfer through %q but no cartridge contains it",
				t.Through),
		},
	}
}

func (t *Transfer) MapVessels(f func(string) string) {
	t.FromVessel = f(t.FromVessel)
	t.ToVessel = f(t.ToVessel)
}

// PrimePump pushes a small volume from a reagent flask to waste so the
// tubing is full of reagent before a metered addition.
type PrimePump struct {
	Reagent string
	Volume  float64

	reagentVessel string
	wasteVessel   string
}

func (p *PrimePump) Kind() Kind { return KindPrimePump }

func (p *PrimePump) Resolve(g *rig.Graph) error {
	if p.Volume == 0 {
		p.Volume = DefaultPrimeVolume
	}
	if p.reagentVessel == "" {
		p.reagentVessel, _ = g.ReagentVessel(p.Reagent)
	}
	if p.wasteVessel == "" && p.reagentVessel != "" {
		p.wasteVessel, _ = g.Nearest(p.reagentVessel, rig.KindWaste)
	}
	return nil
}

func (p *PrimePump) Expand() []Step {
	return []Step{&CmdMove{
		From:   p.reagentVessel,
		To:     p.wasteVessel,
		Volume: p.Volume,
	}}
}

func (p *PrimePump) SanityChecks(g *rig.Graph) []Check {
	return []Check{
		{
			OK:  p.reagentVessel != "",
			Msg: fmt.Sprintf("no flask contains %q", p.Reagent),
		},
		{
			OK:  p.wasteVessel != "",
			Msg: fmt.Sprintf("no waste vessel reachable from the %q flask", p.Reagent),
		},
	}
}

func (p *PrimePump) MapVessels(f func(string) string) {}
