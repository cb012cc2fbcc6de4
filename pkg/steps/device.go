package steps

import (
	"fmt"
	"time"
)

// MoveRequest carries everything one pump transfer needs.
type MoveRequest struct {
	From, To         string
	FromPort, ToPort string
	Volume           float64 // mL
	Through          string  // cartridge node to route through, optional
	AspirationSpeed  float64 // mL/min
	MoveSpeed        float64 // mL/min
	DispenseSpeed    float64 // mL/min
}

// Device is the live rig the primitive commands execute against. It is an
// external collaborator; this package only defines the surface and a
// simulator. Every call blocks until the physical action completes.
type Device interface {
	Move(req MoveRequest) error
	Connect(from, fromPort, to string) error
	Wait(d time.Duration) error
	Confirm(msg string) error

	SetStirRate(vessel string, rpm float64) error
	StartStir(vessel string) error
	StopStir(vessel string) error

	HeaterSetTemp(vessel string, temp float64) error
	HeaterStart(vessel string) error
	HeaterStop(vessel string) error
	HeaterWaitForTemp(vessel string) error
	ChillerSetTemp(vessel string, temp float64) error
	ChillerStart(vessel string) error
	ChillerStop(vessel string) error
	ChillerWaitForTemp(vessel string) error

	SetVacuum(source string, pressure float64) error
	StartVacuum(source string) error
	StopVacuum(source string) error
	VentVacuum(source string) error

	ValveMoveTo(valve, position string) error
	SwitchVacuum(vessel string) error
	SwitchArgon(vessel, pressure string) error

	ReadConductivity(sensor string) (float64, error)

	RotavapSetRotation(rotavap string, rpm float64) error
	RotavapStartRotation(rotavap string) error
	RotavapStopRotation(rotavap string) error
	RotavapSetTemp(rotavap string, temp float64) error
	RotavapStartHeater(rotavap string) error
	RotavapStopHeater(rotavap string) error
	RotavapLift(rotavap string) error
}

// SimDevice records every command issued instead of driving hardware.
// Conductivity reads are served from a scripted queue; when the queue is
// exhausted the sentinel -1 is returned, which the phase-separation loop
// treats as an immediate detection. Used by tests and dry runs.
type SimDevice struct {
	Commands []string

	// Readings are consumed front to back by ReadConductivity.
	Readings []float64

	// Fail, when non-empty, makes the command whose record starts with
	// this prefix return an error. For exercising error paths.
	Fail string
}

// NewSimDevice returns a simulator with no scripted readings.
func NewSimDevice() *SimDevice {
	return &SimDevice{}
}

func (s *SimDevice) record(format string, args ...interface{}) error {
	cmd := fmt.Sprintf(format, args...)
	s.Commands = append(s.Commands, cmd)
	if s.Fail != "" && len(cmd) >= len(s.Fail) && cmd[:len(s.Fail)] == s.Fail {
		return fmt.Errorf("simulated device failure on %q", cmd)
	}
	return nil
}

func (s *SimDevice) Move(req MoveRequest) error {
	return s.record("move %s[%s] -> %s[%s] %.2f mL through=%q",
		req.From, req.FromPort, req.To, req.ToPort, req.Volume, req.Through)
}

func (s *SimDevice) Connect(from, fromPort, to string) error {
	return s.record("connect %s[%s] -> %s", from, fromPort, to)
}

func (s *SimDevice) Wait(d time.Duration) error {
	return s.record("wait %s", d)
}

func (s *SimDevice) Confirm(msg string) error {
	return s.record("confirm %s", msg)
}

func (s *SimDevice) SetStirRate(vessel string, rpm float64) error {
	return s.record("set-stir-rate %s %.0f", vessel, rpm)
}

func (s *SimDevice) StartStir(vessel string) error {
	return s.record("start-stir %s", vessel)
}

func (s *SimDevice) StopStir(vessel string) error {
	return s.record("stop-stir %s", vessel)
}

func (s *SimDevice) HeaterSetTemp(vessel string, temp float64) error {
	return s.record("heater-set-temp %s %.1f", vessel, temp)
}

func (s *SimDevice) HeaterStart(vessel string) error {
	return s.record("heater-start %s", vessel)
}

func (s *SimDevice) HeaterStop(vessel string) error {
	return s.record("heater-stop %s", vessel)
}

func (s *SimDevice) HeaterWaitForTemp(vessel string) error {
	return s.record("heater-wait-for-temp %s", vessel)
}

func (s *SimDevice) ChillerSetTemp(vessel string, temp float64) error {
	return s.record("chiller-set-temp %s %.1f", vessel, temp)
}

func (s *SimDevice) ChillerStart(vessel string) error {
	return s.record("chiller-start %s", vessel)
}

func (s *SimDevice) ChillerStop(vessel string) error {
	return s.record("chiller-stop %s", vessel)
}

func (s *SimDevice) ChillerWaitForTemp(vessel string) error {
	return s.record("chiller-wait-for-temp %s", vessel)
}

func (s *SimDevice) SetVacuum(source string, pressure float64) error {
	return s.record("set-vacuum %s %.0f mbar", source, pressure)
}

func (s *SimDevice) StartVacuum(source string) error {
	return s.record("start-vacuum %s", source)
}

func (s *SimDevice) StopVacuum(source string) error {
	return s.record("stop-vacuum %s", source)
}

func (s *SimDevice) VentVacuum(source string) error {
	return s.record("vent-vacuum %s", source)
}

func (s *SimDevice) ValveMoveTo(valve, position string) error {
	return s.record("valve-move %s %s", valve, position)
}

func (s *SimDevice) SwitchVacuum(vessel string) error {
	return s.record("switch-vacuum %s", vessel)
}

func (s *SimDevice) SwitchArgon(vessel, pressure string) error {
	return s.record("switch-argon %s %s", vessel, pressure)
}

func (s *SimDevice) ReadConductivity(sensor string) (float64, error) {
	if err := s.record("read-conductivity %s", sensor); err != nil {
		return 0, err
	}
	if len(s.Readings) == 0 {
		return SimulatedPhaseChange, nil
	}
	r := s.Readings[0]
	s.Readings = s.Readings[1:]
	return r, nil
}

func (s *SimDevice) RotavapSetRotation(rotavap string, rpm float64) error {
	return s.record("rotavap-set-rotation %s %.0f", rotavap, rpm)
}

func (s *SimDevice) RotavapStartRotation(rotavap string) error {
	return s.record("rotavap-start-rotation %s", rotavap)
}

func (s *SimDevice) RotavapStopRotation(rotavap string) error {
	return s.record("rotavap-stop-rotation %s", rotavap)
}

func (s *SimDevice) RotavapSetTemp(rotavap string, temp float64) error {
	return s.record("rotavap-set-temp %s %.1f", rotavap, temp)
}

func (s *SimDevice) RotavapStartHeater(rotavap string) error {
	return s.record("rotavap-start-heater %s", rotavap)
}

func (s *SimDevice) RotavapStopHeater(rotavap string) error {
	return s.record("rotavap-stop-heater %s", rotavap)
}

func (s *SimDevice) RotavapLift(rotavap string) error {
	return s.record("rotavap-lift %s", rotavap)
}
