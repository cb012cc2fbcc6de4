// Package steps defines the step tree a procedure compiles through: composite
// steps that expand into children, and primitive commands that execute one
// device action each. Composite expansion is only valid after Resolve has
// filled a step's internal properties from the rig graph.
package steps

import (
	"github.com/labforge/synthrig/pkg/rig"
)

// Kind identifies a step variant. Decision points in the pipeline switch over
// kinds instead of type-asserting, so adding a kind surfaces every place that
// must handle it.
type Kind int

const (
	KindInvalid Kind = iota

	// Primitive commands. One device action each, no children.
	KindCmdMove
	KindCmdConnect
	KindCmdWait
	KindCmdConfirm
	KindCmdSetStirRate
	KindCmdStartStir
	KindCmdStopStir
	KindCmdHeaterSetTemp
	KindCmdHeaterStart
	KindCmdHeaterStop
	KindCmdHeaterWaitForTemp
	KindCmdChillerSetTemp
	KindCmdChillerStart
	KindCmdChillerStop
	KindCmdChillerWaitForTemp
	KindCmdSetVacuum
	KindCmdStartVacuum
	KindCmdStopVacuum
	KindCmdVentVacuum
	KindCmdValveMove
	KindCmdSwitchVacuum
	KindCmdSwitchArgon
	KindCmdRotavapSetRotation
	KindCmdRotavapStartRotation
	KindCmdRotavapStopRotation
	KindCmdRotavapSetTemp
	KindCmdRotavapStartHeater
	KindCmdRotavapStopHeater
	KindCmdRotavapLift

	// Composite steps.
	KindAdd
	KindTransfer
	KindPrimePump
	KindStir
	KindStartStir
	KindStopStir
	KindSetStirRate
	KindHeatChillToTemp
	KindStartHeatChill
	KindStopHeatChill
	KindStartVacuum
	KindStopVacuum
	KindApplyVacuum
	KindFilter
	KindWashSolid
	KindDry
	KindSeparate
	KindSeparatePhases
	KindFilterThrough
	KindCleanBackbone
	KindCleanVessel
	KindAddFilterDeadVolume
	KindRemoveFilterDeadVolume
	KindRepeat
	KindShutdown
)

var kindNames = map[Kind]string{
	KindCmdMove:                 "CmdMove",
	KindCmdConnect:              "CmdConnect",
	KindCmdWait:                 "CmdWait",
	KindCmdConfirm:              "CmdConfirm",
	KindCmdSetStirRate:          "CmdSetStirRate",
	KindCmdStartStir:            "CmdStartStir",
	KindCmdStopStir:             "CmdStopStir",
	KindCmdHeaterSetTemp:        "CmdHeaterSetTemp",
	KindCmdHeaterStart:          "CmdHeaterStart",
	KindCmdHeaterStop:           "CmdHeaterStop",
	KindCmdHeaterWaitForTemp:    "CmdHeaterWaitForTemp",
	KindCmdChillerSetTemp:       "CmdChillerSetTemp",
	KindCmdChillerStart:         "CmdChillerStart",
	KindCmdChillerStop:          "CmdChillerStop",
	KindCmdChillerWaitForTemp:   "CmdChillerWaitForTemp",
	KindCmdSetVacuum:            "CmdSetVacuum",
	KindCmdStartVacuum:          "CmdStartVacuum",
	KindCmdStopVacuum:           "CmdStopVacuum",
	KindCmdVentVacuum:           "CmdVentVacuum",
	KindCmdValveMove:            "CmdValveMove",
	KindCmdSwitchVacuum:         "CmdSwitchVacuum",
	KindCmdSwitchArgon:          "CmdSwitchArgon",
	KindCmdRotavapSetRotation:   "CmdRotavapSetRotation",
	KindCmdRotavapStartRotation: "CmdRotavapStartRotation",
	KindCmdRotavapStopRotation:  "CmdRotavapStopRotation",
	KindCmdRotavapSetTemp:       "CmdRotavapSetTemp",
	KindCmdRotavapStartHeater:   "CmdRotavapStartHeater",
	KindCmdRotavapStopHeater:    "CmdRotavapStopHeater",
	KindCmdRotavapLift:          "CmdRotavapLift",
	KindAdd:                     "Add",
	KindTransfer:                "Transfer",
	KindPrimePump:               "PrimePump",
	KindStir:                    "Stir",
	KindStartStir:               "StartStir",
	KindStopStir:                "StopStir",
	KindSetStirRate:             "SetStirRate",
	KindHeatChillToTemp:         "HeatChillToTemp",
	KindStartHeatChill:          "StartHeatChill",
	KindStopHeatChill:           "StopHeatChill",
	KindStartVacuum:             "StartVacuum",
	KindStopVacuum:              "StopVacuum",
	KindApplyVacuum:             "ApplyVacuum",
	KindFilter:                  "Filter",
	KindWashSolid:               "WashSolid",
	KindDry:                     "Dry",
	KindSeparate:                "Separate",
	KindSeparatePhases:          "SeparatePhases",
	KindFilterThrough:           "FilterThrough",
	KindCleanBackbone:           "CleanBackbone",
	KindCleanVessel:             "CleanVessel",
	KindAddFilterDeadVolume:     "AddFilterDeadVolume",
	KindRemoveFilterDeadVolume:  "RemoveFilterDeadVolume",
	KindRepeat:                  "Repeat",
	KindShutdown:                "Shutdown",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Invalid"
}

// IsPrimitive reports whether the kind maps directly to one device command.
func (k Kind) IsPrimitive() bool {
	return k >= KindCmdMove && k <= KindCmdRotavapLift
}

// Check is one declarative post-resolution sanity condition.
type Check struct {
	OK  bool
	Msg string
}

// Step is the tree node every composite and primitive step implements.
//
// Resolve fills the step's own internal properties from graph queries and
// must be idempotent: a property already set is never overwritten, so
// repeated passes over the same tree converge. Expand is a pure function of
// resolved properties (no graph access) returning the ordered children, or
// nil for primitives. SanityChecks is evaluated after resolution; a failed
// check aborts preparation. MapVessels rewrites every vessel-valued property
// through the given map, used by hardware identity mapping before resolution.
type Step interface {
	Kind() Kind
	Resolve(g *rig.Graph) error
	Expand() []Step
	SanityChecks(g *rig.Graph) []Check
	MapVessels(f func(string) string)
}

// Primitive is the extra surface of steps that execute directly. Locks
// reports the device ids the command holds exclusively, the ids it keeps
// occupied beyond its own completion, and the ids it releases; execution is
// sequential today but the declarations are kept for a future scheduler.
type Primitive interface {
	Step
	Execute(dev Device) error
	Locks(g *rig.Graph) (exclusive, ongoing, release []string)
}

// primitive is embedded by every primitive command to satisfy the composite
// half of Step with no-ops.
type primitive struct{}

func (primitive) Resolve(*rig.Graph) error { return nil }
func (primitive) Expand() []Step { return nil }
func (primitive) SanityChecks(*rig.Graph) []Check { return nil }

// noLocks is for commands touching no shared plumbing.
func noLocks() (exclusive, ongoing, release []string) { return nil, nil, nil }
