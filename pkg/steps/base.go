package steps

import (
	"time"

	"github.com/labforge/synthrig/pkg/rig"
)

// Primitive commands. Each maps to exactly one Device call. MapVessels
// rewrites every node-reference field; the identity map leaves unmapped
// names alone, so applying it everywhere is safe.

// CmdMove runs one pump transfer between two nodes, optionally through a
// cartridge.
type CmdMove struct {
	primitive
	From, To         string
	FromPort, ToPort string
	Volume           float64
	Through          string
	AspirationSpeed  float64
	MoveSpeed        float64
	DispenseSpeed    float64
}

func (c *CmdMove) Kind() Kind { return KindCmdMove }

func (c *CmdMove) Execute(dev Device) error {
	req := MoveRequest{
		From:            c.From,
		To:              c.To,
		FromPort:        c.FromPort,
		ToPort:          c.ToPort,
		Volume:          c.Volume,
		Through:         c.Through,
		AspirationSpeed: c.AspirationSpeed,
		MoveSpeed:       c.MoveSpeed,
		DispenseSpeed:   c.DispenseSpeed,
	}
	if req.AspirationSpeed == 0 {
		req.AspirationSpeed = DefaultAspirationSpeed
	}
	if req.MoveSpeed == 0 {
		req.MoveSpeed = DefaultMoveSpeed
	}
	if req.DispenseSpeed == 0 {
		req.DispenseSpeed = DefaultDispenseSpeed
	}
	return dev.Move(req)
}

func (c *CmdMove) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	exclusive = []string{c.From, c.To}
	if c.Through != "" {
		exclusive = append(exclusive, c.Through)
	}
	return exclusive, nil, nil
}

func (c *CmdMove) MapVessels(f func(string) string) {
	c.From = f(c.From)
	c.To = f(c.To)
	if c.Through != "" {
		c.Through = f(c.Through)
	}
}

// CmdConnect opens a path from a vessel port to another node, typically the
// vacuum source. The connection stays open until something reroutes it.
type CmdConnect struct {
	primitive
	From     string
	FromPort string
	To       string
}

func (c *CmdConnect) Kind() Kind { return KindCmdConnect }

func (c *CmdConnect) Execute(dev Device) error {
	return dev.Connect(c.From, c.FromPort, c.To)
}

func (c *CmdConnect) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return []string{c.From}, []string{c.To}, nil
}

func (c *CmdConnect) MapVessels(f func(string) string) {
	c.From = f(c.From)
	c.To = f(c.To)
}

// CmdWait blocks for a fixed duration.
type CmdWait struct {
	primitive
	Duration time.Duration
}

func (c *CmdWait) Kind() Kind { return KindCmdWait }

func (c *CmdWait) Execute(dev Device) error { return dev.Wait(c.Duration) }

func (c *CmdWait) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return noLocks()
}

func (c *CmdWait) MapVessels(func(string) string) {}

// CmdConfirm blocks until the operator acknowledges a message. Used for
// solid additions that cannot be pumped.
type CmdConfirm struct {
	primitive
	Msg string
}

func (c *CmdConfirm) Kind() Kind { return KindCmdConfirm }

func (c *CmdConfirm) Execute(dev Device) error { return dev.Confirm(c.Msg) }

func (c *CmdConfirm) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return noLocks()
}

func (c *CmdConfirm) MapVessels(func(string) string) {}

// CmdSetStirRate sets the stir plate speed without starting it.
type CmdSetStirRate struct {
	primitive
	Vessel    string
	StirSpeed float64
}

func (c *CmdSetStirRate) Kind() Kind { return KindCmdSetStirRate }

func (c *CmdSetStirRate) Execute(dev Device) error {
	return dev.SetStirRate(c.Vessel, c.StirSpeed)
}

func (c *CmdSetStirRate) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return []string{c.Vessel}, nil, nil
}

func (c *CmdSetStirRate) MapVessels(f func(string) string) { c.Vessel = f(c.Vessel) }

type CmdStartStir struct {
	primitive
	Vessel string
}

func (c *CmdStartStir) Kind() Kind { return KindCmdStartStir }

func (c *CmdStartStir) Execute(dev Device) error { return dev.StartStir(c.Vessel) }

func (c *CmdStartStir) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return nil, []string{c.Vessel}, nil
}

func (c *CmdStartStir) MapVessels(f func(string) string) { c.Vessel = f(c.Vessel) }

type CmdStopStir struct {
	primitive
	Vessel string
}

func (c *CmdStopStir) Kind() Kind { return KindCmdStopStir }

func (c *CmdStopStir) Execute(dev Device) error { return dev.StopStir(c.Vessel) }

func (c *CmdStopStir) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return nil, nil, []string{c.Vessel}
}

func (c *CmdStopStir) MapVessels(f func(string) string) { c.Vessel = f(c.Vessel) }

type CmdHeaterSetTemp struct {
	primitive
	Vessel string
	Temp   float64
}

func (c *CmdHeaterSetTemp) Kind() Kind { return KindCmdHeaterSetTemp }

func (c *CmdHeaterSetTemp) Execute(dev Device) error {
	return dev.HeaterSetTemp(c.Vessel, c.Temp)
}

func (c *CmdHeaterSetTemp) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return []string{c.Vessel}, nil, nil
}

func (c *CmdHeaterSetTemp) MapVessels(f func(string) string) { c.Vessel = f(c.Vessel) }

type CmdHeaterStart struct {
	primitive
	Vessel string
}

func (c *CmdHeaterStart) Kind() Kind { return KindCmdHeaterStart }

func (c *CmdHeaterStart) Execute(dev Device) error { return dev.HeaterStart(c.Vessel) }

func (c *CmdHeaterStart) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return nil, []string{c.Vessel}, nil
}

func (c *CmdHeaterStart) MapVessels(f func(string) string) { c.Vessel = f(c.Vessel) }

type CmdHeaterStop struct {
	primitive
	Vessel string
}

func (c *CmdHeaterStop) Kind() Kind { return KindCmdHeaterStop }

func (c *CmdHeaterStop) Execute(dev Device) error { return dev.HeaterStop(c.Vessel) }

func (c *CmdHeaterStop) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return nil, nil, []string{c.Vessel}
}

func (c *CmdHeaterStop) MapVessels(f func(string) string) { c.Vessel = f(c.Vessel) }

type CmdHeaterWaitForTemp struct {
	primitive
	Vessel string
}

func (c *CmdHeaterWaitForTemp) Kind() Kind { return KindCmdHeaterWaitForTemp }

func (c *CmdHeaterWaitForTemp) Execute(dev Device) error {
	return dev.HeaterWaitForTemp(c.Vessel)
}

func (c *CmdHeaterWaitForTemp) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return noLocks()
}

func (c *CmdHeaterWaitForTemp) MapVessels(f func(string) string) { c.Vessel = f(c.Vessel) }

type CmdChillerSetTemp struct {
	primitive
	Vessel string
	Temp   float64
}

func (c *CmdChillerSetTemp) Kind() Kind { return KindCmdChillerSetTemp }

func (c *CmdChillerSetTemp) Execute(dev Device) error {
	return dev.ChillerSetTemp(c.Vessel, c.Temp)
}

func (c *CmdChillerSetTemp) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return []string{c.Vessel}, nil, nil
}

func (c *CmdChillerSetTemp) MapVessels(f func(string) string) { c.Vessel = f(c.Vessel) }

type CmdChillerStart struct {
	primitive
	Vessel string
}

func (c *CmdChillerStart) Kind() Kind { return KindCmdChillerStart }

func (c *CmdChillerStart) Execute(dev Device) error { return dev.ChillerStart(c.Vessel) }

func (c *CmdChillerStart) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return nil, []string{c.Vessel}, nil
}

func (c *CmdChillerStart) MapVessels(f func(string) string) { c.Vessel = f(c.Vessel) }

type CmdChillerStop struct {
	primitive
	Vessel string
}

func (c *CmdChillerStop) Kind() Kind { return KindCmdChillerStop }

func (c *CmdChillerStop) Execute(dev Device) error { return dev.ChillerStop(c.Vessel) }

func (c *CmdChillerStop) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return nil, nil, []string{c.Vessel}
}

func (c *CmdChillerStop) MapVessels(f func(string) string) { c.Vessel = f(c.Vessel) }

type CmdChillerWaitForTemp struct {
	primitive
	Vessel string
}

func (c *CmdChillerWaitForTemp) Kind() Kind { return KindCmdChillerWaitForTemp }

func (c *CmdChillerWaitForTemp) Execute(dev Device) error {
	return dev.ChillerWaitForTemp(c.Vessel)
}

func (c *CmdChillerWaitForTemp) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return noLocks()
}

func (c *CmdChillerWaitForTemp) MapVessels(f func(string) string) { c.Vessel = f(c.Vessel) }

type CmdSetVacuum struct {
	primitive
	Source   string
	Pressure float64
}

func (c *CmdSetVacuum) Kind() Kind { return KindCmdSetVacuum }

func (c *CmdSetVacuum) Execute(dev Device) error {
	return dev.SetVacuum(c.Source, c.Pressure)
}

func (c *CmdSetVacuum) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return []string{c.Source}, nil, nil
}

func (c *CmdSetVacuum) MapVessels(f func(string) string) { c.Source = f(c.Source) }

type CmdStartVacuum struct {
	primitive
	Source string
}

func (c *CmdStartVacuum) Kind() Kind { return KindCmdStartVacuum }

func (c *CmdStartVacuum) Execute(dev Device) error { return dev.StartVacuum(c.Source) }

func (c *CmdStartVacuum) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return nil, []string{c.Source}, nil
}

func (c *CmdStartVacuum) MapVessels(f func(string) string) { c.Source = f(c.Source) }

type CmdStopVacuum struct {
	primitive
	Source string
}

func (c *CmdStopVacuum) Kind() Kind { return KindCmdStopVacuum }

func (c *CmdStopVacuum) Execute(dev Device) error { return dev.StopVacuum(c.Source) }

func (c *CmdStopVacuum) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return nil, nil, []string{c.Source}
}

func (c *CmdStopVacuum) MapVessels(f func(string) string) { c.Source = f(c.Source) }

type CmdVentVacuum struct {
	primitive
	Source string
}

func (c *CmdVentVacuum) Kind() Kind { return KindCmdVentVacuum }

func (c *CmdVentVacuum) Execute(dev Device) error { return dev.VentVacuum(c.Source) }

func (c *CmdVentVacuum) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return []string{c.Source}, nil, nil
}

func (c *CmdVentVacuum) MapVessels(f func(string) string) { c.Source = f(c.Source) }

// CmdValveMove parks a valve on a position, used to disconnect a vessel
// from the vacuum line after use.
type CmdValveMove struct {
	primitive
	Valve    string
	Position string
}

func (c *CmdValveMove) Kind() Kind { return KindCmdValveMove }

func (c *CmdValveMove) Execute(dev Device) error {
	return dev.ValveMoveTo(c.Valve, c.Position)
}

func (c *CmdValveMove) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return []string{c.Valve}, nil, nil
}

func (c *CmdValveMove) MapVessels(f func(string) string) { c.Valve = f(c.Valve) }

type CmdSwitchVacuum struct {
	primitive
	Vessel string
}

func (c *CmdSwitchVacuum) Kind() Kind { return KindCmdSwitchVacuum }

func (c *CmdSwitchVacuum) Execute(dev Device) error { return dev.SwitchVacuum(c.Vessel) }

func (c *CmdSwitchVacuum) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return nil, []string{c.Vessel}, nil
}

func (c *CmdSwitchVacuum) MapVessels(f func(string) string) { c.Vessel = f(c.Vessel) }

type CmdSwitchArgon struct {
	primitive
	Vessel   string
	Pressure string // "low" or "high"
}

func (c *CmdSwitchArgon) Kind() Kind { return KindCmdSwitchArgon }

func (c *CmdSwitchArgon) Execute(dev Device) error {
	return dev.SwitchArgon(c.Vessel, c.Pressure)
}

func (c *CmdSwitchArgon) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return nil, nil, []string{c.Vessel}
}

func (c *CmdSwitchArgon) MapVessels(f func(string) string) { c.Vessel = f(c.Vessel) }

type CmdRotavapSetRotation struct {
	primitive
	Rotavap   string
	StirSpeed float64
}

func (c *CmdRotavapSetRotation) Kind() Kind { return KindCmdRotavapSetRotation }

func (c *CmdRotavapSetRotation) Execute(dev Device) error {
	return dev.RotavapSetRotation(c.Rotavap, c.StirSpeed)
}

func (c *CmdRotavapSetRotation) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return []string{c.Rotavap}, nil, nil
}

func (c *CmdRotavapSetRotation) MapVessels(f func(string) string) { c.Rotavap = f(c.Rotavap) }

type CmdRotavapStartRotation struct {
	primitive
	Rotavap string
}

func (c *CmdRotavapStartRotation) Kind() Kind { return KindCmdRotavapStartRotation }

func (c *CmdRotavapStartRotation) Execute(dev Device) error {
	return dev.RotavapStartRotation(c.Rotavap)
}

func (c *CmdRotavapStartRotation) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return nil, []string{c.Rotavap}, nil
}

func (c *CmdRotavapStartRotation) MapVessels(f func(string) string) { c.Rotavap = f(c.Rotavap) }

type CmdRotavapStopRotation struct {
	primitive
	Rotavap string
}

func (c *CmdRotavapStopRotation) Kind() Kind { return KindCmdRotavapStopRotation }

func (c *CmdRotavapStopRotation) Execute(dev Device) error {
	return dev.RotavapStopRotation(c.Rotavap)
}

func (c *CmdRotavapStopRotation) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return nil, nil, []string{c.Rotavap}
}

func (c *CmdRotavapStopRotation) MapVessels(f func(string) string) { c.Rotavap = f(c.Rotavap) }

type CmdRotavapSetTemp struct {
	primitive
	Rotavap string
	Temp    float64
}

func (c *CmdRotavapSetTemp) Kind() Kind { return KindCmdRotavapSetTemp }

func (c *CmdRotavapSetTemp) Execute(dev Device) error {
	return dev.RotavapSetTemp(c.Rotavap, c.Temp)
}

func (c *CmdRotavapSetTemp) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return []string{c.Rotavap}, nil, nil
}

func (c *CmdRotavapSetTemp) MapVessels(f func(string) string) { c.Rotavap = f(c.Rotavap) }

type CmdRotavapStartHeater struct {
	primitive
	Rotavap string
}

func (c *CmdRotavapStartHeater) Kind() Kind { return KindCmdRotavapStartHeater }

func (c *CmdRotavapStartHeater) Execute(dev Device) error {
	return dev.RotavapStartHeater(c.Rotavap)
}

func (c *CmdRotavapStartHeater) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return nil, []string{c.Rotavap}, nil
}

func (c *CmdRotavapStartHeater) MapVessels(f func(string) string) { c.Rotavap = f(c.Rotavap) }

type CmdRotavapStopHeater struct {
	primitive
	Rotavap string
}

func (c *CmdRotavapStopHeater) Kind() Kind { return KindCmdRotavapStopHeater }

func (c *CmdRotavapStopHeater) Execute(dev Device) error {
	return dev.RotavapStopHeater(c.Rotavap)
}

func (c *CmdRotavapStopHeater) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return nil, nil, []string{c.Rotavap}
}

func (c *CmdRotavapStopHeater) MapVessels(f func(string) string) { c.Rotavap = f(c.Rotavap) }

type CmdRotavapLift struct {
	primitive
	Rotavap string
}

func (c *CmdRotavapLift) Kind() Kind { return KindCmdRotavapLift }

func (c *CmdRotavapLift) Execute(dev Device) error { return dev.RotavapLift(c.Rotavap) }

func (c *CmdRotavapLift) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return []string{c.Rotavap}, nil, nil
}

func (c *CmdRotavapLift) MapVessels(f func(string) string) { c.Rotavap = f(c.Rotavap) }
