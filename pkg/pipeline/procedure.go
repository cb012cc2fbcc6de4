// Package pipeline turns a procedure and a rig graph into a flat list of
// executable device commands: hardware checks, identity mapping, recursive
// step resolution, implied-step insertion, optimization passes, a final
// depth-first sanity pass and flattening. It also runs prepared command
// lists against a device.
package pipeline

import (
	"strings"

	"github.com/labforge/synthrig/pkg/rig"
	"github.com/labforge/synthrig/pkg/steps"
)

// Procedure is one synthesis run: the ordered step list, the reagents it
// consumes and the hardware it requires. Steps reference abstract vessel
// names from Requirements; Prepare rewrites them to concrete node ids.
type Procedure struct {
	Steps        []steps.Step
	Reagents     []Reagent
	Requirements Requirements
}

// Reagent carries the per-reagent metadata that is not derivable from the
// steps using it.
type Reagent struct {
	ID string

	// CleaningSolvent overrides the solvent the backbone is cleaned with
	// after this reagent passes through it.
	CleaningSolvent string

	// Stir keeps the reagent's flask stirred for the whole run, for
	// suspensions that settle.
	Stir bool

	// Temp keeps the flask held at a temperature for the whole run.
	Temp    float64
	HasTemp bool

	// LastMinuteAddition asks the operator to charge the flask right
	// before the first step that draws from it.
	LastMinuteAddition       bool
	LastMinuteAdditionVolume float64
}

// Requirements lists the abstract vessel names a procedure uses, per
// hardware class. Mapping to concrete nodes is positional within a class:
// the i-th name binds to the i-th node of that kind in id order.
type Requirements struct {
	Reactors   []string
	Filters    []string
	Separators []string
	Rotavaps   []string
}

// reagent looks a reagent up by id, matching case-insensitively the way
// flask chemicals are matched.
func (p *Procedure) reagent(id string) (Reagent, bool) {
	for _, r := range p.Reagents {
		if strings.EqualFold(r.ID, id) {
			return r, true
		}
	}
	return Reagent{}, false
}

// aqueousKeywords classify a reagent name as water-based. A name carrying
// a molarity marker ("2 m hcl") is a solution in water.
var aqueousKeywords = []string{"water", "aqueous", "acid", " m "}

// isAqueous reports whether a reagent name denotes a water-based liquid.
func isAqueous(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range aqueousKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// commonSolvents are reagent names that clean the backbone of themselves.
var commonSolvents = map[string]bool{
	"acetone":         true,
	"acetonitrile":    true,
	"chloroform":      true,
	"dcm":             true,
	"dichloromethane": true,
	"diethyl ether":   true,
	"dmf":             true,
	"ethanol":         true,
	"ether":           true,
	"ethyl acetate":   true,
	"heptane":         true,
	"hexane":          true,
	"isopropanol":     true,
	"methanol":        true,
	"pentane":         true,
	"tetrahydrofuran": true,
	"thf":             true,
	"toluene":         true,
	"water":           true,
}

// isCommonSolvent reports whether a reagent name is a stock solvent.
func isCommonSolvent(name string) bool {
	return commonSolvents[strings.ToLower(name)]
}

// cleaningSolventFor picks the solvent the backbone needs after this
// reagent: an explicit override wins, a solvent cleans up after itself,
// anything aqueous is rinsed with water, and everything else leaves the
// choice to whatever organic solvent the schedule carries forward.
func cleaningSolventFor(r string, reagents []Reagent) string {
	for _, known := range reagents {
		if strings.EqualFold(known.ID, r) && known.CleaningSolvent != "" {
			return known.CleaningSolvent
		}
	}
	if isCommonSolvent(r) && !isAqueous(r) {
		return strings.ToLower(r)
	}
	if isAqueous(r) {
		return "water"
	}
	return ""
}

// availableSolvents lists the common solvents the rig actually has a flask
// of, excluding blacklisted ones.
func availableSolvents(g *rig.Graph) []string {
	var out []string
	for _, n := range g.OfKind(rig.KindFlask) {
		chem := strings.ToLower(n.Chemical)
		if isCommonSolvent(chem) && !cleaningBlacklist[chem] {
			out = append(out, chem)
		}
	}
	return out
}

// cleaningBlacklist are solvents never used for cleaning; toluene leaves
// residue the next step would dissolve.
var cleaningBlacklist = map[string]bool{"toluene": true}

// cleaningPreferNot are solvents only used for the final clean when
// nothing else is available; ether evaporates out of the tubing.
var cleaningPreferNot = map[string]bool{"ether": true}
