package pipeline

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/labforge/synthrig/pkg/steps"
)

// Document is the YAML form of a procedure. Hardware declares the abstract
// vessels steps refer to; reagents carry per-reagent metadata; steps are
// typed property bags.
type Document struct {
	Hardware []ComponentDocument `yaml:"hardware" validate:"dive"`
	Reagents []ReagentDocument   `yaml:"reagents" validate:"dive"`
	Steps    []StepDocument      `yaml:"steps" validate:"required,min=1,dive"`
}

// ComponentDocument declares one abstract vessel and its hardware class.
type ComponentDocument struct {
	ID    string `yaml:"id" validate:"required"`
	Class string `yaml:"class" validate:"required,oneof=reactor filter separator rotavap"`
}

// ReagentDocument is one reagent entry.
type ReagentDocument struct {
	ID                 string   `yaml:"id" validate:"required"`
	CleaningSolvent    string   `yaml:"cleaning_solvent"`
	Stir               bool     `yaml:"stir"`
	Temp               *float64 `yaml:"temp"`
	LastMinuteAddition bool     `yaml:"last_minute_addition"`
	LastMinuteVolume   float64  `yaml:"last_minute_addition_volume" validate:"gte=0"`
}

// StepDocument is one step entry: a type name and its properties, decoded
// per type.
type StepDocument struct {
	Type  string    `yaml:"type" validate:"required"`
	Props yaml.Node `yaml:"properties"`
}

// Load reads a YAML procedure document and builds a Procedure.
func Load(r io.Reader) (*Procedure, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, &PrepError{Stage: "load",
			Cause: fmt.Errorf("%w: %v", ErrBadProcedure, err)}
	}
	return FromDocument(&doc)
}

// LoadFile is Load over a file path.
func LoadFile(path string) (*Procedure, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &PrepError{Stage: "load", Cause: err}
	}
	defer f.Close()
	return Load(f)
}

// FromDocument converts a parsed document into a Procedure.
func FromDocument(doc *Document) (*Procedure, error) {
	proc := &Procedure{}
	for _, c := range doc.Hardware {
		switch c.Class {
		case "reactor":
			proc.Requirements.Reactors = append(proc.Requirements.Reactors, c.ID)
		case "filter":
			proc.Requirements.Filters = append(proc.Requirements.Filters, c.ID)
		case "separator":
			proc.Requirements.Separators = append(proc.Requirements.Separators, c.ID)
		case "rotavap":
			proc.Requirements.Rotavaps = append(proc.Requirements.Rotavaps, c.ID)
		default:
			return nil, &PrepError{Stage: "load",
				Msg:   fmt.Sprintf("component %q has unknown class %q", c.ID, c.Class),
				Cause: ErrBadProcedure}
		}
	}
	for _, r := range doc.Reagents {
		reagent := Reagent{
			ID:                       r.ID,
			CleaningSolvent:          strings.ToLower(r.CleaningSolvent),
			Stir:                     r.Stir,
			LastMinuteAddition:       r.LastMinuteAddition,
			LastMinuteAdditionVolume: r.LastMinuteVolume,
		}
		if r.Temp != nil {
			reagent.Temp = *r.Temp
			reagent.HasTemp = true
		}
		proc.Reagents = append(proc.Reagents, reagent)
	}
	for i, sd := range doc.Steps {
		step, err := decodeStep(sd)
		if err != nil {
			return nil, &PrepError{Stage: "load",
				Msg:   fmt.Sprintf("step %d (%s)", i, sd.Type),
				Cause: err}
		}
		proc.Steps = append(proc.Steps, step)
	}
	if len(proc.Steps) == 0 {
		return nil, &PrepError{Stage: "load",
			Msg: "no steps", Cause: ErrBadProcedure}
	}
	return proc, nil
}

// durationValue accepts both Go duration strings ("30m") and bare numbers
// of seconds.
type durationValue time.Duration

func (d *durationValue) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err == nil {
		if s == "" {
			*d = 0
			return nil
		}
		dur, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("bad duration %q: %v", s, err)
		}
		*d = durationValue(dur)
		return nil
	}
	var secs float64
	if err := node.Decode(&secs); err != nil {
		return fmt.Errorf("duration must be a string like \"30m\" or a number of seconds")
	}
	*d = durationValue(time.Duration(secs * float64(time.Second)))
	return nil
}

func (d durationValue) std() time.Duration { return time.Duration(d) }

// Per-type property documents. Quantities are canonical units throughout:
// mL, g, RPM, degrees C, mbar.

type addProps struct {
	Reagent   string        `yaml:"reagent"`
	Vessel    string        `yaml:"vessel"`
	Volume    float64       `yaml:"volume"`
	Mass      float64       `yaml:"mass"`
	Port      string        `yaml:"port"`
	Through   string        `yaml:"through"`
	Time      durationValue `yaml:"time"`
	Stir      bool          `yaml:"stir"`
	StirSpeed float64       `yaml:"stir_speed"`
}

type transferProps struct {
	FromVessel string        `yaml:"from_vessel"`
	ToVessel   string        `yaml:"to_vessel"`
	Volume     float64       `yaml:"volume"`
	All        bool          `yaml:"all"`
	FromPort   string        `yaml:"from_port"`
	ToPort     string        `yaml:"to_port"`
	Through    string        `yaml:"through"`
	Time       durationValue `yaml:"time"`
}

type stirProps struct {
	Vessel           string        `yaml:"vessel"`
	Time             durationValue `yaml:"time"`
	StirSpeed        float64       `yaml:"stir_speed"`
	ContinueStirring bool          `yaml:"continue_stirring"`
}

type heatChillProps struct {
	Vessel            string  `yaml:"vessel"`
	Temp              float64 `yaml:"temp"`
	Stir              bool    `yaml:"stir"`
	StirSpeed         float64 `yaml:"stir_speed"`
	ContinueHeatChill bool    `yaml:"continue_heatchill"`
}

type separateProps struct {
	Purpose            string  `yaml:"purpose"`
	FromVessel         string  `yaml:"from_vessel"`
	FromPort           string  `yaml:"from_port"`
	SeparationVessel   string  `yaml:"separation_vessel"`
	ToVessel           string  `yaml:"to_vessel"`
	ToPort             string  `yaml:"to_port"`
	ProductBottom      bool    `yaml:"product_bottom"`
	Solvent            string  `yaml:"solvent"`
	SolventVolume      float64 `yaml:"solvent_volume"`
	Through            string  `yaml:"through"`
	Repeats            int     `yaml:"repeats"`
	WastePhaseToVessel string  `yaml:"waste_phase_to_vessel"`
	WastePhaseToPort   string  `yaml:"waste_phase_to_port"`
}

type filterProps struct {
	Vessel          string        `yaml:"vessel"`
	FiltrateVessel  string        `yaml:"filtrate_vessel"`
	WaitTime        durationValue `yaml:"wait_time"`
	AspirationSpeed float64       `yaml:"aspiration_speed"`
	Stir            string        `yaml:"stir"`
	StirSpeed       float64       `yaml:"stir_speed"`
	Anticlogging    bool          `yaml:"anticlogging"`
}

type washSolidProps struct {
	Vessel          string        `yaml:"vessel"`
	Solvent         string        `yaml:"solvent"`
	Volume          float64       `yaml:"volume"`
	Temp            *float64      `yaml:"temp"`
	VacuumTime      durationValue `yaml:"vacuum_time"`
	Stir            string        `yaml:"stir"`
	StirTime        durationValue `yaml:"stir_time"`
	StirSpeed       float64       `yaml:"stir_speed"`
	FiltrateVessel  string        `yaml:"filtrate_vessel"`
	AspirationSpeed float64       `yaml:"aspiration_speed"`
	Anticlogging    bool          `yaml:"anticlogging"`
	Repeats         int           `yaml:"repeats"`
}

type dryProps struct {
	Vessel            string        `yaml:"vessel"`
	Time              durationValue `yaml:"time"`
	Pressure          float64       `yaml:"pressure"`
	Temp              *float64      `yaml:"temp"`
	ContinueHeatChill bool          `yaml:"continue_heatchill"`
}

type filterThroughProps struct {
	FromVessel     string  `yaml:"from_vessel"`
	ToVessel       string  `yaml:"to_vessel"`
	Through        string  `yaml:"through"`
	ElutingSolvent string  `yaml:"eluting_solvent"`
	ElutingVolume  float64 `yaml:"eluting_volume"`
	ElutingRepeats int     `yaml:"eluting_repeats"`
}

type cleanVesselProps struct {
	Vessel    string        `yaml:"vessel"`
	Solvent   string        `yaml:"solvent"`
	Volume    float64       `yaml:"volume"`
	StirTime  durationValue `yaml:"stir_time"`
	StirSpeed float64       `yaml:"stir_speed"`
	Temp      *float64      `yaml:"temp"`
	Cleans    int           `yaml:"repeats"`
}

type applyVacuumProps struct {
	Vessel   string        `yaml:"vessel"`
	Time     durationValue `yaml:"time"`
	Pressure float64       `yaml:"pressure"`
	Port     string        `yaml:"port"`
}

type waitProps struct {
	Time durationValue `yaml:"time"`
}

type repeatProps struct {
	Count int            `yaml:"count"`
	Steps []StepDocument `yaml:"steps"`
}

// stirModeFor maps the document's three-valued stir flag onto StirMode.
func stirModeFor(s string) (steps.StirMode, error) {
	switch strings.ToLower(s) {
	case "", "true", "on":
		return steps.StirOn, nil
	case "false", "off":
		return steps.StirOff, nil
	case "solvent":
		return steps.StirSolvent, nil
	}
	return "", fmt.Errorf("stir must be true, false or \"solvent\", got %q", s)
}

func decodeProps(sd StepDocument, into interface{}) error {
	if sd.Props.Kind == 0 {
		return nil
	}
	return sd.Props.Decode(into)
}

// decodeStep builds the concrete step for one document entry. Type names
// are matched case-insensitively with underscores ignored, so "wash_solid"
// and "WashSolid" both work.
func decodeStep(sd StepDocument) (steps.Step, error) {
	name := strings.ReplaceAll(strings.ToLower(sd.Type), "_", "")
	build, ok := stepBuilders[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown step type %q", ErrBadProcedure, sd.Type)
	}
	return build(sd)
}

// KnownStepType reports whether a document step type is recognised.
func KnownStepType(name string) bool {
	_, ok := stepBuilders[strings.ReplaceAll(strings.ToLower(name), "_", "")]
	return ok
}

var stepBuilders = map[string]func(StepDocument) (steps.Step, error){
	"add": func(sd StepDocument) (steps.Step, error) {
		var pr addProps
		if err := decodeProps(sd, &pr); err != nil {
			return nil, err
		}
		return &steps.Add{
			Reagent:   pr.Reagent,
			Vessel:    pr.Vessel,
			Volume:    pr.Volume,
			Mass:      pr.Mass,
			Port:      pr.Port,
			Through:   pr.Through,
			Time:      pr.Time.std(),
			Stir:      pr.Stir,
			StirSpeed: pr.StirSpeed,
		}, nil
	},
	"transfer": func(sd StepDocument) (steps.Step, error) {
		var pr transferProps
		if err := decodeProps(sd, &pr); err != nil {
			return nil, err
		}
		return &steps.Transfer{
			FromVessel: pr.FromVessel,
			ToVessel:   pr.ToVessel,
			Volume:     pr.Volume,
			All:        pr.All,
			FromPort:   pr.FromPort,
			ToPort:     pr.ToPort,
			Through:    pr.Through,
			Time:       pr.Time.std(),
		}, nil
	},
	"stir": func(sd StepDocument) (steps.Step, error) {
		var pr stirProps
		if err := decodeProps(sd, &pr); err != nil {
			return nil, err
		}
		return &steps.Stir{
			Vessel:           pr.Vessel,
			Time:             pr.Time.std(),
			StirSpeed:        pr.StirSpeed,
			ContinueStirring: pr.ContinueStirring,
		}, nil
	},
	"startstir": func(sd StepDocument) (steps.Step, error) {
		var pr stirProps
		if err := decodeProps(sd, &pr); err != nil {
			return nil, err
		}
		return &steps.StartStir{Vessel: pr.Vessel, StirSpeed: pr.StirSpeed}, nil
	},
	"stopstir": func(sd StepDocument) (steps.Step, error) {
		var pr stirProps
		if err := decodeProps(sd, &pr); err != nil {
			return nil, err
		}
		return &steps.StopStir{Vessel: pr.Vessel}, nil
	},
	"heatchilltotemp": func(sd StepDocument) (steps.Step, error) {
		var pr heatChillProps
		if err := decodeProps(sd, &pr); err != nil {
			return nil, err
		}
		return &steps.HeatChillToTemp{
			Vessel:            pr.Vessel,
			Temp:              pr.Temp,
			Stir:              pr.Stir,
			StirSpeed:         pr.StirSpeed,
			ContinueHeatChill: pr.ContinueHeatChill,
		}, nil
	},
	"startheatchill": func(sd StepDocument) (steps.Step, error) {
		var pr heatChillProps
		if err := decodeProps(sd, &pr); err != nil {
			return nil, err
		}
		return &steps.StartHeatChill{Vessel: pr.Vessel, Temp: pr.Temp}, nil
	},
	"stopheatchill": func(sd StepDocument) (steps.Step, error) {
		var pr heatChillProps
		if err := decodeProps(sd, &pr); err != nil {
			return nil, err
		}
		return &steps.StopHeatChill{Vessel: pr.Vessel}, nil
	},
	"separate": func(sd StepDocument) (steps.Step, error) {
		var pr separateProps
		if err := decodeProps(sd, &pr); err != nil {
			return nil, err
		}
		return &steps.Separate{
			Purpose:            pr.Purpose,
			FromVessel:         pr.FromVessel,
			FromPort:           pr.FromPort,
			SeparationVessel:   pr.SeparationVessel,
			ToVessel:           pr.ToVessel,
			ToPort:             pr.ToPort,
			ProductBottom:      pr.ProductBottom,
			Solvent:            pr.Solvent,
			SolventVolume:      pr.SolventVolume,
			Through:            pr.Through,
			NSeparations:       pr.Repeats,
			WastePhaseToVessel: pr.WastePhaseToVessel,
			WastePhaseToPort:   pr.WastePhaseToPort,
		}, nil
	},
	"filter": func(sd StepDocument) (steps.Step, error) {
		var pr filterProps
		if err := decodeProps(sd, &pr); err != nil {
			return nil, err
		}
		mode, err := stirModeFor(pr.Stir)
		if err != nil {
			return nil, err
		}
		return &steps.Filter{
			Vessel:          pr.Vessel,
			FiltrateVessel:  pr.FiltrateVessel,
			WaitTime:        pr.WaitTime.std(),
			AspirationSpeed: pr.AspirationSpeed,
			Stir:            mode,
			StirSpeed:       pr.StirSpeed,
			Anticlogging:    pr.Anticlogging,
		}, nil
	},
	"washsolid": func(sd StepDocument) (steps.Step, error) {
		var pr washSolidProps
		if err := decodeProps(sd, &pr); err != nil {
			return nil, err
		}
		mode, err := stirModeFor(pr.Stir)
		if err != nil {
			return nil, err
		}
		wash := &steps.WashSolid{
			Vessel:          pr.Vessel,
			Solvent:         pr.Solvent,
			Volume:          pr.Volume,
			VacuumTime:      pr.VacuumTime.std(),
			Stir:            mode,
			StirTime:        pr.StirTime.std(),
			StirSpeed:       pr.StirSpeed,
			FiltrateVessel:  pr.FiltrateVessel,
			AspirationSpeed: pr.AspirationSpeed,
			Anticlogging:    pr.Anticlogging,
		}
		if pr.Temp != nil {
			wash.Temp = *pr.Temp
			wash.HasTemp = true
		}
		if pr.Repeats > 1 {
			return &steps.Repeat{Count: pr.Repeats, Children: []steps.Step{wash}}, nil
		}
		return wash, nil
	},
	"dry": func(sd StepDocument) (steps.Step, error) {
		var pr dryProps
		if err := decodeProps(sd, &pr); err != nil {
			return nil, err
		}
		dry := &steps.Dry{
			Vessel:            pr.Vessel,
			Time:              pr.Time.std(),
			Pressure:          pr.Pressure,
			ContinueHeatChill: pr.ContinueHeatChill,
		}
		if pr.Temp != nil {
			dry.Temp = *pr.Temp
			dry.HasTemp = true
		}
		return dry, nil
	},
	"filterthrough": func(sd StepDocument) (steps.Step, error) {
		var pr filterThroughProps
		if err := decodeProps(sd, &pr); err != nil {
			return nil, err
		}
		return &steps.FilterThrough{
			FromVessel:     pr.FromVessel,
			ToVessel:       pr.ToVessel,
			Through:        pr.Through,
			ElutingSolvent: pr.ElutingSolvent,
			ElutingVolume:  pr.ElutingVolume,
			ElutingRepeats: pr.ElutingRepeats,
		}, nil
	},
	"cleanvessel": func(sd StepDocument) (steps.Step, error) {
		var pr cleanVesselProps
		if err := decodeProps(sd, &pr); err != nil {
			return nil, err
		}
		clean := &steps.CleanVessel{
			Vessel:    pr.Vessel,
			Solvent:   pr.Solvent,
			Volume:    pr.Volume,
			StirTime:  pr.StirTime.std(),
			StirSpeed: pr.StirSpeed,
			Cleans:    pr.Cleans,
		}
		if pr.Temp != nil {
			clean.Temp = *pr.Temp
			clean.HasTemp = true
		}
		return clean, nil
	},
	"applyvacuum": func(sd StepDocument) (steps.Step, error) {
		var pr applyVacuumProps
		if err := decodeProps(sd, &pr); err != nil {
			return nil, err
		}
		return &steps.ApplyVacuum{
			Vessel:   pr.Vessel,
			Time:     pr.Time.std(),
			Pressure: pr.Pressure,
			Port:     pr.Port,
		}, nil
	},
	"wait": func(sd StepDocument) (steps.Step, error) {
		var pr waitProps
		if err := decodeProps(sd, &pr); err != nil {
			return nil, err
		}
		return &steps.CmdWait{Duration: pr.Time.std()}, nil
	},
}

// The repeat builder recurses through decodeStep, which reads the
// registry, so it registers after the literal to keep package
// initialization acyclic.
func init() {
	stepBuilders["repeat"] = func(sd StepDocument) (steps.Step, error) {
		var pr repeatProps
		if err := decodeProps(sd, &pr); err != nil {
			return nil, err
		}
		children := make([]steps.Step, 0, len(pr.Steps))
		for _, child := range pr.Steps {
			s, err := decodeStep(child)
			if err != nil {
				return nil, err
			}
			children = append(children, s)
		}
		return &steps.Repeat{Count: pr.Count, Children: children}, nil
	}
}
