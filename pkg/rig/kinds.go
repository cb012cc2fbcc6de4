package rig

// NodeKind is the physical device category of a graph node.
type NodeKind int

const (
	KindUnknown NodeKind = iota
	KindReactor
	KindSeparator
	KindFilter
	KindFlask
	KindWaste
	KindVacuum // vacuum source flask
	KindVacuumDevice
	KindValve
	KindPump
	KindPneumaticController
	KindCartridge
	KindSensor // conductivity sensor
	KindHeater
	KindChiller
	KindStirrer
	KindRotavap
)

var kindNames = map[NodeKind]string{
	KindUnknown:             "unknown",
	KindReactor:             "reactor",
	KindSeparator:           "separator",
	KindFilter:              "filter",
	KindFlask:               "flask",
	KindWaste:               "waste",
	KindVacuum:              "vacuum",
	KindVacuumDevice:        "vacuum_device",
	KindValve:               "valve",
	KindPump:                "pump",
	KindPneumaticController: "pneumatic_controller",
	KindCartridge:           "cartridge",
	KindSensor:              "sensor",
	KindHeater:              "heater",
	KindChiller:             "chiller",
	KindStirrer:             "stirrer",
	KindRotavap:             "rotavap",
}

// String returns the canonical lowercase name of the kind.
func (k NodeKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// classKinds maps device class names found in graph documents to kinds.
// Both canonical kind names and the legacy rig class names are accepted so
// graphs exported from older tooling normalize to the same model.
var classKinds = map[string]NodeKind{
	"reactor":              KindReactor,
	"separator":            KindSeparator,
	"filter":               KindFilter,
	"flask":                KindFlask,
	"waste":                KindWaste,
	"vacuum":               KindVacuum,
	"vacuum_device":        KindVacuumDevice,
	"valve":                KindValve,
	"pump":                 KindPump,
	"pneumatic_controller": KindPneumaticController,
	"cartridge":            KindCartridge,
	"sensor":               KindSensor,
	"heater":               KindHeater,
	"chiller":              KindChiller,
	"stirrer":              KindStirrer,
	"rotavap":              KindRotavap,

	// Legacy class names.
	"ChemputerReactor":     KindReactor,
	"ChemputerSeparator":   KindSeparator,
	"ChemputerFilter":      KindFilter,
	"ChemputerFlask":       KindFlask,
	"ChemputerWaste":       KindWaste,
	"ChemputerVacuum":      KindVacuum,
	"ChemputerValve":       KindValve,
	"ChemputerPump":        KindPump,
	"ChemputerCartridge":   KindCartridge,
	"PneumaticController":  KindPneumaticController,
	"ConductivitySensor":   KindSensor,
	"CVC3000":              KindVacuumDevice,
	"IKARCTDigital":        KindHeater,
	"IKARETControlVisc":    KindHeater,
	"JULABOCF41":           KindChiller,
	"Huber":                KindChiller,
	"IKAmicrostar75":       KindStirrer,
	"RZR_2052":             KindStirrer,
	"HeiTORQUE_100":        KindStirrer,
	"IKARV10":              KindRotavap,
}

// KindForClass resolves a document class name to a NodeKind.
func KindForClass(class string) NodeKind {
	if k, ok := classKinds[class]; ok {
		return k
	}
	return KindUnknown
}

// Well-known port names.
const (
	PortTop       = "top"
	PortBottom    = "bottom"
	PortIn        = "in"
	PortOut       = "out"
	PortEvaporate = "evaporate"
	PortCollect   = "collect"
)

// ValvePortOrder is the canonical scan order used when looking for a free
// valve position.
var ValvePortOrder = []string{"-1", "0", "1", "2", "3", "4", "5"}

// validPorts fixes the set of legal ports per node kind. The empty port is
// always legal; it means "unspecified" and resolves to the kind's default.
var validPorts = map[NodeKind][]string{
	KindReactor:             {"0", "1", "2"},
	KindSeparator:           {PortTop, PortBottom},
	KindFilter:              {PortTop, PortBottom},
	KindFlask:               {"0"},
	KindWaste:               {"0"},
	KindVacuum:              {"0"},
	KindValve:               {"-1", "0", "1", "2", "3", "4", "5"},
	KindPump:                {"0"},
	KindCartridge:           {PortIn, PortOut},
	KindRotavap:             {PortEvaporate, PortCollect},
	KindPneumaticController: {"0", "1", "2", "3", "4", "5"},
	KindSensor:              {"0"},
	KindVacuumDevice:        {"0"},
	KindHeater:              {"0"},
	KindChiller:             {"0"},
	KindStirrer:             {"0"},
}

// ValidPort reports whether port is legal on a node of the given kind.
func ValidPort(kind NodeKind, port string) bool {
	if port == "" {
		return true
	}
	for _, p := range validPorts[kind] {
		if p == port {
			return true
		}
	}
	return false
}

// ValidPorts returns the legal port set for a kind.
func ValidPorts(kind NodeKind) []string {
	return validPorts[kind]
}

// defaultPorts gives the port used when a transfer does not name one.
var defaultPorts = map[NodeKind]struct{ From, To string }{
	KindSeparator: {PortBottom, PortBottom},
	KindFilter:    {PortBottom, PortTop},
	KindReactor:   {"0", "0"},
	KindFlask:     {"0", "0"},
	KindWaste:     {"0", "0"},
	KindPump:      {"0", "0"},
	KindRotavap:   {PortEvaporate, PortEvaporate},
}

// DefaultPort returns the default port for drawing from (from=true) or
// dispensing into (from=false) a node of the given kind. Kinds without a
// default return "".
func DefaultPort(kind NodeKind, from bool) string {
	d, ok := defaultPorts[kind]
	if !ok {
		return ""
	}
	if from {
		return d.From
	}
	return d.To
}

// IsVessel reports whether the kind can hold liquid as a transfer endpoint.
func (k NodeKind) IsVessel() bool {
	switch k {
	case KindReactor, KindSeparator, KindFilter, KindFlask, KindWaste,
		KindRotavap, KindPump, KindVacuum:
		return true
	}
	return false
}
