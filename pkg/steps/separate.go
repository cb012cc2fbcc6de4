package steps

import (
	"fmt"

	"github.com/labforge/synthrig/pkg/rig"
)

// DefaultSeparationSolventVolume is how much wash/extraction solvent is
// used per separation when the procedure does not say.
const DefaultSeparationSolventVolume = 30.0

// Separation purposes. They pick different multi-separation routines:
// washing keeps the product phase in the separator between rounds,
// extraction keeps the waste phase.
const (
	PurposeExtract = "extract"
	PurposeWash    = "wash"
)

// Separate performs one or more liquid-liquid separations. The mixture is
// moved to the separator, solvent added, the two stirred and settled, and
// the phases split with the product phase routed to ToVessel.
//
// With NSeparations > 1 the to vessel and port must be able to both give
// and receive material, since intermediate rounds shuttle a phase back
// into the separator.
type Separate struct {
	Purpose            string
	FromVessel         string
	FromPort           string
	SeparationVessel   string
	ToVessel           string
	ToPort             string
	ProductBottom      bool
	Solvent            string
	SolventVolume      float64
	Through            string
	NSeparations       int
	WastePhaseToVessel string
	WastePhaseToPort   string

	// KeepDeadVolume leaves the interface layer in the separator instead
	// of sending it to waste. Set when a following separation will pick
	// it up anyway.
	KeepDeadVolume bool

	wasteVessel      string
	throughCartridge string
	bufferFlasks     []string
	resolved         bool
}

func (s *Separate) Kind() Kind { return KindSeparate }

func (s *Separate) Resolve(g *rig.Graph) error {
	if s.NSeparations == 0 {
		s.NSeparations = 1
	}
	if s.Solvent != "" && s.SolventVolume == 0 {
		s.SolventVolume = DefaultSeparationSolventVolume
	}
	if s.resolved {
		return nil
	}
	s.wasteVessel, _ = g.Nearest(s.SeparationVessel, rig.KindWaste)
	if s.WastePhaseToVessel == "" {
		s.WastePhaseToVessel = s.wasteVessel
	}
	if s.Through != "" {
		s.throughCartridge, _ = g.Cartridge(s.Through)
	}
	s.bufferFlasks = g.BufferFlasks(s.SeparationVessel, s.BufferFlasksRequired())
	s.resolved = true
	return nil
}

// BufferFlasksRequired reports how many empty flasks the routine needs to
// park a phase that has nowhere else to go.
func (s *Separate) BufferFlasksRequired() int {
	extract := s.Purpose == PurposeExtract
	multi := s.NSeparations > 1
	toSep := s.ToVessel == s.SeparationVessel
	switch {
	case extract && multi && !s.ProductBottom && toSep:
		return 2
	case s.ProductBottom && !multi && toSep,
		s.ProductBottom && multi && toSep,
		extract && !s.ProductBottom && multi,
		!s.ProductBottom && s.WastePhaseToVessel == s.SeparationVessel:
		return 1
	}
	return 0
}

func (s *Separate) deadVolumeTarget() string {
	if s.KeepDeadVolume {
		return ""
	}
	return s.wasteVessel
}

func (s *Separate) buffer(i int) string {
	if i < len(s.bufferFlasks) {
		return s.bufferFlasks[i]
	}
	return ""
}

func (s *Separate) Expand() []Step {
	out := s.mixtureTransferSteps()
	out = append(out, s.addSolventSteps()...)
	out = append(out, s.stirAndSettleSteps()...)
	for i := 1; i < s.NSeparations; i++ {
		if s.Purpose == PurposeWash {
			out = append(out, s.washLoopSeparatePhases()...)
		} else {
			out = append(out, s.extractLoopSeparatePhases()...)
		}
		out = append(out, s.addSolventSteps()...)
		out = append(out, s.stirAndSettleSteps()...)
	}
	return append(out, s.finalSeparatePhases()...)
}

// mixtureTransferSteps moves the mixture into the separator, unless the
// separation starts there already.
func (s *Separate) mixtureTransferSteps() []Step {
	if s.FromVessel == s.SeparationVessel {
		return nil
	}
	return []Step{&Transfer{
		FromVessel: s.FromVessel,
		FromPort:   s.FromPort,
		ToVessel:   s.SeparationVessel,
		ToPort:     rig.PortBottom,
		All:        true,
	}}
}

func (s *Separate) addSolventSteps() []Step {
	if s.Solvent == "" {
		return nil
	}
	return []Step{&Add{
		Reagent: s.Solvent,
		Vessel:  s.SeparationVessel,
		Port:    rig.PortBottom,
		Volume:  s.SolventVolume,
	}}
}

// stirAndSettleSteps mixes the phases hard, then slowly to coalesce
// droplets, then lets them settle.
func (s *Separate) stirAndSettleSteps() []Step {
	return []Step{
		&Stir{
			Vessel:    s.SeparationVessel,
			Time:      SeparationFastStirTime,
			StirSpeed: SeparationFastStirSpeed,
		},
		&Stir{
			Vessel:    s.SeparationVessel,
			Time:      SeparationSlowStirTime,
			StirSpeed: SeparationSlowStirSpeed,
		},
		&CmdWait{Duration: SeparationSettleTime},
	}
}

// finalSeparatePhases is the last phase split of the routine, routing the
// product phase to ToVessel for good.
func (s *Separate) finalSeparatePhases() []Step {
	if s.ProductBottom {
		if s.ToVessel != s.SeparationVessel {
			return []Step{&SeparatePhases{
				SeparationVessel:  s.SeparationVessel,
				LowerPhaseVessel:  s.ToVessel,
				LowerPhasePort:    s.ToPort,
				UpperPhaseVessel:  s.WastePhaseToVessel,
				UpperPhasePort:    s.WastePhaseToPort,
				DeadVolumeVessel:  s.deadVolumeTarget(),
				DeadVolumeThrough: s.throughCartridge,
				LowerPhaseThrough: s.throughCartridge,
			}}
		}
		// Product wants to stay in the separator; park it in a buffer
		// flask while the upper phase leaves, then bring it back.
		return []Step{
			&SeparatePhases{
				SeparationVessel: s.SeparationVessel,
				LowerPhaseVessel: s.buffer(0),
				UpperPhaseVessel: s.WastePhaseToVessel,
				UpperPhasePort:   s.WastePhaseToPort,
				DeadVolumeVessel: s.deadVolumeTarget(),
			},
			&Transfer{
				FromVessel: s.buffer(0),
				ToVessel:   s.SeparationVessel,
				All:        true,
			},
		}
	}

	if s.NSeparations > 1 && s.ToVessel == s.SeparationVessel &&
		s.Purpose == PurposeExtract {
		return []Step{
			&SeparatePhases{
				SeparationVessel: s.SeparationVessel,
				LowerPhaseVessel: s.WastePhaseToVessel,
				LowerPhasePort:   s.WastePhaseToPort,
				UpperPhaseVessel: s.ToVessel,
				DeadVolumeVessel: s.deadVolumeTarget(),
			},
			&Transfer{
				FromVessel: s.buffer(1),
				ToVessel:   s.SeparationVessel,
				All:        true,
			},
		}
	}

	if s.WastePhaseToVessel == s.SeparationVessel {
		return []Step{
			&SeparatePhases{
				SeparationVessel:  s.SeparationVessel,
				LowerPhaseVessel:  s.buffer(0),
				UpperPhaseVessel:  s.ToVessel,
				UpperPhasePort:    s.ToPort,
				DeadVolumeVessel:  s.deadVolumeTarget(),
				UpperPhaseThrough: s.throughCartridge,
			},
			&Transfer{
				FromVessel: s.buffer(0),
				ToVessel:   s.WastePhaseToVessel,
				All:        true,
			},
		}
	}

	return []Step{&SeparatePhases{
		SeparationVessel:  s.SeparationVessel,
		LowerPhaseVessel:  s.WastePhaseToVessel,
		LowerPhasePort:    s.WastePhaseToPort,
		UpperPhaseVessel:  s.ToVessel,
		UpperPhasePort:    s.ToPort,
		DeadVolumeVessel:  s.deadVolumeTarget(),
		UpperPhaseThrough: s.throughCartridge,
	}}
}

// washLoopSeparatePhases splits phases mid-routine during a wash, leaving
// the product phase back in the separator for the next round.
func (s *Separate) washLoopSeparatePhases() []Step {
	if s.ProductBottom {
		if s.ToVessel != s.SeparationVessel {
			return []Step{
				&SeparatePhases{
					SeparationVessel:  s.SeparationVessel,
					LowerPhaseVessel:  s.ToVessel,
					LowerPhasePort:    s.ToPort,
					UpperPhaseVessel:  s.WastePhaseToVessel,
					UpperPhasePort:    s.WastePhaseToPort,
					LowerPhaseThrough: s.throughCartridge,
					DeadVolumeThrough: s.throughCartridge,
					DeadVolumeVessel:  s.ToVessel,
				},
				&Transfer{
					FromVessel: s.ToVessel,
					ToVessel:   s.SeparationVessel,
					All:        true,
				},
			}
		}
		return []Step{
			&SeparatePhases{
				SeparationVessel: s.SeparationVessel,
				LowerPhaseVessel: s.buffer(0),
				UpperPhaseVessel: s.WastePhaseToVessel,
				UpperPhasePort:   s.WastePhaseToPort,
				DeadVolumeVessel: s.buffer(0),
			},
			&Transfer{
				FromVessel: s.buffer(0),
				ToVessel:   s.SeparationVessel,
				All:        true,
			},
		}
	}
	return []Step{&SeparatePhases{
		SeparationVessel: s.SeparationVessel,
		LowerPhaseVessel: s.WastePhaseToVessel,
		LowerPhasePort:   s.WastePhaseToPort,
		UpperPhaseVessel: s.SeparationVessel,
		DeadVolumeVessel: s.WastePhaseToVessel,
	}}
}

// extractLoopSeparatePhases splits phases mid-routine during an extract,
// leaving the waste phase back in the separator so fresh solvent can have
// another go at it.
func (s *Separate) extractLoopSeparatePhases() []Step {
	if s.ProductBottom {
		if s.ToVessel != s.SeparationVessel {
			return []Step{&SeparatePhases{
				SeparationVessel:  s.SeparationVessel,
				LowerPhaseVessel:  s.ToVessel,
				LowerPhasePort:    s.ToPort,
				LowerPhaseThrough: s.throughCartridge,
				UpperPhaseVessel:  s.SeparationVessel,
				DeadVolumeVessel:  s.ToVessel,
				DeadVolumeThrough: s.throughCartridge,
			}}
		}
		return []Step{&SeparatePhases{
			SeparationVessel: s.SeparationVessel,
			LowerPhaseVessel: s.buffer(0),
			UpperPhaseVessel: s.SeparationVessel,
			DeadVolumeVessel: s.buffer(0),
		}}
	}
	if s.ToVessel != s.SeparationVessel {
		return []Step{
			&SeparatePhases{
				SeparationVessel:  s.SeparationVessel,
				LowerPhaseVessel:  s.buffer(0),
				UpperPhaseVessel:  s.ToVessel,
				UpperPhasePort:    s.ToPort,
				UpperPhaseThrough: s.throughCartridge,
				DeadVolumeVessel:  s.buffer(0),
			},
			&Transfer{
				FromVessel: s.buffer(0),
				ToVessel:   s.SeparationVessel,
				All:        true,
			},
		}
	}
	return []Step{
		&SeparatePhases{
			SeparationVessel: s.SeparationVessel,
			LowerPhaseVessel: s.buffer(0),
			UpperPhaseVessel: s.buffer(1),
			DeadVolumeVessel: s.buffer(0),
		},
		&Transfer{
			FromVessel: s.buffer(0),
			ToVessel:   s.SeparationVessel,
			All:        true,
		},
	}
}

func (s *Separate) SanityChecks(g *rig.Graph) []Check {
	return []Check{
		{
			OK: len(s.bufferFlasks) >= s.BufferFlasksRequired(),
			Msg: fmt.Sprintf(
				"separation needs %d empty buffer flask(s) near %q; add empty flasks to the rig",
				s.BufferFlasksRequired(), s.SeparationVessel),
		},
		{
			OK:  s.ToVessel != s.WastePhaseToVessel,
			Msg: "product phase and waste phase cannot go to the same vessel",
		},
		{
			OK:  s.Solvent == "" || s.SolventVolume > 0,
			Msg: "separation solvent volume must be positive",
		},
		{
			OK:  s.Purpose == PurposeExtract || s.Purpose == PurposeWash,
			Msg: fmt.Sprintf("separation purpose must be %q or %q, got %q", PurposeExtract, PurposeWash, s.Purpose),
		},
		{
			OK:  s.NSeparations > 0,
			Msg: "number of separations must be positive",
		},
	}
}

func (s *Separate) MapVessels(f func(string) string) {
	s.FromVessel = f(s.FromVessel)
	s.SeparationVessel = f(s.SeparationVessel)
	s.ToVessel = f(s.ToVessel)
	if s.WastePhaseToVessel != "" {
		s.WastePhaseToVessel = f(s.WastePhaseToVessel)
	}
}
