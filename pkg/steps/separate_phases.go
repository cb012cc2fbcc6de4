package steps

import (
	"fmt"
	"math"

	"github.com/labforge/synthrig/pkg/rig"
)

// DefaultSeparationMaxRetries is how many times a separation is restarted
// after draining the whole separator without seeing a phase boundary.
const DefaultSeparationMaxRetries = 2

// EdgeDirection is the direction of conductivity change that counts as a
// phase boundary.
type EdgeDirection int

const (
	EdgeEither EdgeDirection = iota
	EdgeRising
	EdgeFalling
)

// SeparatePhases drains the lower phase out of a separator one small
// portion at a time, watching a conductivity sensor for the jump that
// marks the phase boundary. Portions accumulate in the pump attached to
// the separator's valve and are dispensed to the lower-phase vessel
// whenever the pump fills.
//
// The loop is synchronous: each sensor read blocks, and the only ways out
// are a detected boundary, a retry, or routing everything to the failure
// vessel and reporting a terminal error.
type SeparatePhases struct {
	SeparationVessel  string
	LowerPhaseVessel  string
	LowerPhasePort    string
	UpperPhaseVessel  string
	UpperPhasePort    string
	DeadVolumeVessel  string
	DeadVolumePort    string
	LowerPhaseThrough string
	UpperPhaseThrough string
	DeadVolumeThrough string
	Edge              EdgeDirection
	MaxRetries        int
	FailureVessel     string

	pump            string
	pumpMaxVolume   float64
	sensor          string
	separatorVolume float64
	lowerIsWaste    bool
	resolved        bool

	readings    []float64
	pumpVolume  float64
	lowerVolume float64
	withdrawn   float64
}

func (s *SeparatePhases) Kind() Kind { return KindSeparatePhases }

func (s *SeparatePhases) Resolve(g *rig.Graph) error {
	if s.MaxRetries == 0 {
		s.MaxRetries = DefaultSeparationMaxRetries
	}
	if s.resolved {
		return nil
	}
	pump, ok := g.AttachedPump(s.SeparationVessel)
	if !ok {
		return fmt.Errorf("separator %q has no pump on its valve to drive phase separation",
			s.SeparationVessel)
	}
	sensor, ok := g.AttachedSensor(s.SeparationVessel)
	if !ok {
		return fmt.Errorf("separator %q has no conductivity sensor attached",
			s.SeparationVessel)
	}
	s.pump = pump
	s.pumpMaxVolume = g.MaxVolume(pump)
	s.sensor = sensor
	s.separatorVolume = g.MaxVolume(s.SeparationVessel)
	s.lowerIsWaste = g.Kind(s.LowerPhaseVessel) == rig.KindWaste
	if s.FailureVessel == "" {
		s.FailureVessel, _ = g.Nearest(s.SeparationVessel, rig.KindWaste)
	}
	s.resolved = true
	return nil
}

// Expand returns nothing: the step cannot be flattened to a fixed command
// sequence since the number of withdrawals depends on live sensor data.
func (s *SeparatePhases) Expand() []Step { return nil }

func (s *SeparatePhases) SanityChecks(g *rig.Graph) []Check {
	return []Check{
		{
			OK:  s.LowerPhaseVessel != "",
			Msg: "phase separation has no lower-phase vessel",
		},
		{
			OK:  s.UpperPhaseVessel != "",
			Msg: "phase separation has no upper-phase vessel",
		},
		{
			OK:  s.FailureVessel != "",
			Msg: fmt.Sprintf("no failure vessel reachable from %q", s.SeparationVessel),
		},
	}
}

func (s *SeparatePhases) MapVessels(f func(string) string) {
	s.SeparationVessel = f(s.SeparationVessel)
	s.LowerPhaseVessel = f(s.LowerPhaseVessel)
	s.UpperPhaseVessel = f(s.UpperPhaseVessel)
	if s.DeadVolumeVessel != "" {
		s.DeadVolumeVessel = f(s.DeadVolumeVessel)
	}
}

func (s *SeparatePhases) Locks(g *rig.Graph) (exclusive, ongoing, release []string) {
	return []string{
		s.SeparationVessel, s.LowerPhaseVessel, s.UpperPhaseVessel, s.pump,
	}, nil, nil
}

// Execute runs the withdrawal loop until a phase boundary is found or the
// retry budget runs out.
func (s *SeparatePhases) Execute(dev Device) error {
	for attempt := 1; ; attempt++ {
		found, err := s.runAttempt(dev)
		if err != nil {
			return err
		}
		if found {
			return s.finish(dev)
		}

		// The separator has been drained without a boundary. Liquid sent
		// to a waste cannot be pulled back, so a retry only makes sense
		// when the lower-phase vessel is recoverable.
		if s.lowerIsWaste || attempt > s.MaxRetries {
			if err := s.routeToFailure(dev); err != nil {
				return err
			}
			return fmt.Errorf("no phase boundary found in %q after %d attempt(s); contents routed to %q",
				s.SeparationVessel, attempt, s.FailureVessel)
		}
		if err := s.returnToSeparator(dev); err != nil {
			return err
		}
	}
}

// runAttempt primes the line, then alternates sensor reads with 1 mL
// withdrawals until the discriminant fires or the separator is empty.
func (s *SeparatePhases) runAttempt(dev Device) (bool, error) {
	if err := dev.Move(MoveRequest{
		From:            s.SeparationVessel,
		To:              s.LowerPhaseVessel,
		ToPort:          s.LowerPhasePort,
		Volume:          SeparationPrimingVolume,
		Through:         s.LowerPhaseThrough,
		AspirationSpeed: SeparationInitialPumpSpeed,
		MoveSpeed:       SeparationMidPumpSpeed,
		DispenseSpeed:   SeparationEndPumpSpeed,
	}); err != nil {
		return false, err
	}
	s.lowerVolume += SeparationPrimingVolume

	// First reading seeds the history without being judged.
	reading, err := dev.ReadConductivity(s.sensor)
	if err != nil {
		return false, err
	}
	if reading == SimulatedPhaseChange {
		return true, nil
	}
	s.readings = append(s.readings, reading)

	for s.withdrawn < s.separatorVolume {
		if s.pumpVolume+SeparationStepVolume > s.pumpMaxVolume {
			if err := s.drainPump(dev, s.LowerPhaseVessel, s.LowerPhasePort, s.LowerPhaseThrough); err != nil {
				return false, err
			}
		}
		if err := dev.Move(MoveRequest{
			From:            s.SeparationVessel,
			FromPort:        rig.PortBottom,
			To:              s.pump,
			Volume:          SeparationStepVolume,
			AspirationSpeed: SeparationInitialPumpSpeed,
			MoveSpeed:       SeparationMidPumpSpeed,
			DispenseSpeed:   SeparationEndPumpSpeed,
		}); err != nil {
			return false, err
		}
		s.pumpVolume += SeparationStepVolume
		s.withdrawn += SeparationStepVolume

		reading, err := dev.ReadConductivity(s.sensor)
		if err != nil {
			return false, err
		}
		if reading == SimulatedPhaseChange {
			return true, nil
		}
		s.readings = append(s.readings, reading)
		if phaseBoundary(s.readings, s.Edge) {
			return true, nil
		}
	}
	return false, nil
}

// finish flushes held liquid to its destinations once the boundary has
// been found.
func (s *SeparatePhases) finish(dev Device) error {
	if s.pumpVolume > 0 {
		if err := s.drainPump(dev, s.LowerPhaseVessel, s.LowerPhasePort, s.LowerPhaseThrough); err != nil {
			return err
		}
	}
	if s.DeadVolumeVessel != "" {
		if err := dev.Move(MoveRequest{
			From:    s.SeparationVessel,
			To:      s.DeadVolumeVessel,
			ToPort:  s.DeadVolumePort,
			Volume:  SeparationDeadVolume,
			Through: s.DeadVolumeThrough,
		}); err != nil {
			return err
		}
	}
	if s.UpperPhaseVessel == s.SeparationVessel {
		return nil
	}
	return dev.Move(MoveRequest{
		From:    s.SeparationVessel,
		To:      s.UpperPhaseVessel,
		ToPort:  s.UpperPhasePort,
		Volume:  s.separatorVolume,
		Through: s.UpperPhaseThrough,
	})
}

// returnToSeparator undoes an exhausted attempt so the phases can settle
// again and the loop can restart from scratch.
func (s *SeparatePhases) returnToSeparator(dev Device) error {
	if s.pumpVolume > 0 {
		if err := s.drainPump(dev, s.SeparationVessel, rig.PortBottom, ""); err != nil {
			return err
		}
	}
	if s.lowerVolume > 0 {
		if err := dev.Move(MoveRequest{
			From:   s.LowerPhaseVessel,
			To:     s.SeparationVessel,
			ToPort: rig.PortBottom,
			Volume: s.lowerVolume,
		}); err != nil {
			return err
		}
		s.lowerVolume = 0
	}
	s.readings = s.readings[:0]
	s.withdrawn = 0
	return nil
}

// routeToFailure leaves the rig in a known state before the terminal
// error: everything held or recoverable ends up in the failure vessel.
func (s *SeparatePhases) routeToFailure(dev Device) error {
	if s.pumpVolume > 0 {
		if err := s.drainPump(dev, s.FailureVessel, "", ""); err != nil {
			return err
		}
	}
	if s.lowerVolume > 0 && !s.lowerIsWaste && s.LowerPhaseVessel != s.FailureVessel {
		if err := dev.Move(MoveRequest{
			From:   s.LowerPhaseVessel,
			To:     s.FailureVessel,
			Volume: s.lowerVolume,
		}); err != nil {
			return err
		}
		s.lowerVolume = 0
	}
	return dev.Move(MoveRequest{
		From:   s.SeparationVessel,
		To:     s.FailureVessel,
		Volume: s.separatorVolume,
	})
}

func (s *SeparatePhases) drainPump(dev Device, to, port, through string) error {
	err := dev.Move(MoveRequest{
		From:          s.pump,
		To:            to,
		ToPort:        port,
		Volume:        s.pumpVolume,
		Through:       through,
		DispenseSpeed: SeparationEndPumpSpeed,
	})
	if err != nil {
		return err
	}
	if to == s.LowerPhaseVessel {
		s.lowerVolume += s.pumpVolume
	}
	s.pumpVolume = 0
	return nil
}

// phaseBoundary reports whether the newest reading jumps out of the noise
// band of the five readings before it. Noisy sensors are handled by the
// std floor; a quiet trace would otherwise flag on any wobble.
func phaseBoundary(readings []float64, edge EdgeDirection) bool {
	if len(readings) < DiscriminantMinPoints {
		return false
	}
	window := readings[len(readings)-DiscriminantMinPoints : len(readings)-1]
	std := popStdDev(window)
	if std < DiscriminantMinStd {
		std = DiscriminantMinStd
	}
	delta := readings[len(readings)-1] - mean(window)
	threshold := DiscriminantSensitivity * std
	switch edge {
	case EdgeRising:
		return delta > threshold
	case EdgeFalling:
		return -delta > threshold
	default:
		return math.Abs(delta) > threshold
	}
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func popStdDev(xs []float64) float64 {
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}
