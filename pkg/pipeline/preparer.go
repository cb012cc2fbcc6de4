package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/labforge/synthrig/pkg/logging"
	"github.com/labforge/synthrig/pkg/metrics"
	"github.com/labforge/synthrig/pkg/rig"
	"github.com/labforge/synthrig/pkg/steps"
)

// Options controls preparation behavior.
type Options struct {
	// DryRun clamps every wait to one second so a run can be rehearsed
	// quickly against a simulated device.
	DryRun bool

	// AutoClean inserts backbone cleaning after every contaminating step.
	AutoClean bool

	// FilterDeadVolumeMethod is DeadVolumeSolvent (default) or
	// DeadVolumeInertGas.
	FilterDeadVolumeMethod string
}

// Preparer compiles procedures against one rig graph.
type Preparer struct {
	Graph   *rig.Graph
	Logger  logging.Logger
	Metrics *metrics.Registry
	Options Options
}

// NewPreparer returns a Preparer with a no-op logger and the default
// metrics registry; callers swap in their own before use.
func NewPreparer(g *rig.Graph, opts Options) *Preparer {
	if opts.FilterDeadVolumeMethod == "" {
		opts.FilterDeadVolumeMethod = DeadVolumeSolvent
	}
	return &Preparer{
		Graph:   g,
		Logger:  logging.NewNopLogger(),
		Metrics: metrics.DefaultRegistry(),
		Options: opts,
	}
}

// Prepared is a compiled procedure, ready to execute.
type Prepared struct {
	RunID    string
	Commands []steps.Primitive
	Warnings []string
}

// Prepare compiles the procedure into a flat command list. The procedure's
// steps are mutated in place: abstract vessels are rewritten to concrete
// node ids and internal properties are resolved. A prepared procedure must
// not be prepared again.
func (p *Preparer) Prepare(proc *Procedure) (*Prepared, error) {
	start := time.Now()
	prep, err := p.prepare(proc)
	if p.Metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		p.Metrics.RecordPreparation(status, time.Since(start))
	}
	return prep, err
}

func (p *Preparer) prepare(proc *Procedure) (*Prepared, error) {
	var warnings []string

	shortfalls, extras := p.checkHardware(proc.Requirements)
	warnings = append(warnings, extras...)
	if len(shortfalls) > 0 {
		return nil, &PrepError{
			Stage: "hardware",
			Msg:   strings.Join(shortfalls, "; "),
			Cause: ErrHardwareShortfall,
		}
	}

	mapping := p.hardwareMap(proc.Requirements)
	identity := func(id string) string {
		if concrete, ok := mapping[id]; ok {
			return concrete
		}
		return id
	}
	for _, s := range proc.Steps {
		s.MapVessels(identity)
	}
	p.Logger.Debug("hardware mapped", logging.Component("pipeline"),
		logging.Count(len(mapping)))

	list := flattenRepeats(proc.Steps)

	if err := p.resolveTopLevel(list); err != nil {
		return nil, err
	}
	warnings = append(warnings, p.checkReagentFlasks(list)...)
	if err := p.checkCartridges(list); err != nil {
		return nil, err
	}
	if err := p.checkBufferFlasks(list); err != nil {
		return nil, err
	}
	if err := p.validatePorts(list); err != nil {
		return nil, err
	}

	list = p.addFilterDeadVolume(list, proc.Reagents)
	if p.Options.AutoClean {
		list = p.insertBackboneCleaning(list, proc.Reagents)
	}
	list = p.addReagentConditioning(list, proc.Reagents)
	list = p.addLastMinuteAdditions(list, proc.Reagents)
	if err := p.resolveTopLevel(list); err != nil {
		return nil, err
	}

	applyCleanVesselTemps(list)
	p.elideSeparationDeadVolume(list)
	p.collapseDryReturnToRT(list)
	list = p.removePointlessBackboneCleaning(list)
	list = p.consolidateStirRates(list)

	list = append(list, &steps.Shutdown{})

	tr := newTracker(p.Graph)
	var cmds []steps.Primitive
	for _, s := range list {
		if f, ok := s.(*steps.Filter); ok {
			f.FilterTopVolume = tr.volume(f.Vessel)
			if f.FilterTopVolume <= 0 {
				f.FilterTopVolume = p.Graph.MaxVolume(f.Vessel)
			}
		}
		prims, err := p.compile(s)
		if err != nil {
			return nil, err
		}
		tr.fold(s, prims)
		cmds = append(cmds, prims...)
	}

	if p.Options.DryRun {
		clampWaits(cmds)
	}

	prep := &Prepared{
		RunID:    uuid.NewString(),
		Commands: cmds,
		Warnings: warnings,
	}
	p.Logger.Info("procedure prepared",
		logging.Component("pipeline"),
		logging.RunID(prep.RunID),
		logging.Count(len(cmds)))
	for _, w := range warnings {
		p.Logger.Warn(w, logging.Component("pipeline"), logging.RunID(prep.RunID))
	}
	return prep, nil
}

// compile resolves, sanity-checks and flattens one step tree depth-first.
// The first failed check aborts; nothing is ever partially executed from a
// procedure that cannot be fully compiled.
func (p *Preparer) compile(s steps.Step) ([]steps.Primitive, error) {
	kind := s.Kind().String()
	if err := s.Resolve(p.Graph); err != nil {
		return nil, &PrepError{Stage: "resolve", Step: kind, Cause: err}
	}
	for _, check := range s.SanityChecks(p.Graph) {
		if check.OK {
			continue
		}
		if p.Metrics != nil {
			p.Metrics.RecordSanityFailure(kind)
		}
		return nil, &PrepError{
			Stage: "sanity",
			Step:  kind,
			Msg:   check.Msg,
			Cause: ErrSanityCheck,
		}
	}
	if prim, ok := s.(steps.Primitive); ok {
		return []steps.Primitive{prim}, nil
	}
	if p.Metrics != nil {
		p.Metrics.RecordStepExpanded(kind)
	}
	var out []steps.Primitive
	for _, child := range s.Expand() {
		prims, err := p.compile(child)
		if err != nil {
			return nil, err
		}
		out = append(out, prims...)
	}
	return out, nil
}

func (p *Preparer) resolveTopLevel(list []steps.Step) error {
	for _, s := range list {
		if err := s.Resolve(p.Graph); err != nil {
			return &PrepError{Stage: "resolve", Step: s.Kind().String(), Cause: err}
		}
	}
	return nil
}

// flattenRepeats unrolls counted loops so every later pass works on the
// flat step sequence.
func flattenRepeats(list []steps.Step) []steps.Step {
	out := make([]steps.Step, 0, len(list))
	for _, s := range list {
		r, ok := s.(*steps.Repeat)
		if !ok {
			out = append(out, s)
			continue
		}
		if r.Count == 0 {
			r.Count = 1
		}
		for i := 0; i < r.Count; i++ {
			out = append(out, flattenRepeats(r.Children)...)
		}
	}
	return out
}

// requirementClasses pairs each requirement list with its node kind.
func requirementClasses(req Requirements) []struct {
	name string
	kind rig.NodeKind
	ids  []string
} {
	return []struct {
		name string
		kind rig.NodeKind
		ids  []string
	}{
		{"reactor", rig.KindReactor, req.Reactors},
		{"filter", rig.KindFilter, req.Filters},
		{"separator", rig.KindSeparator, req.Separators},
		{"rotavap", rig.KindRotavap, req.Rotavaps},
	}
}

// checkHardware compares required against present hardware per class.
// Shortfalls are fatal; spare hardware is only worth a warning.
func (p *Preparer) checkHardware(req Requirements) (shortfalls, extras []string) {
	for _, class := range requirementClasses(req) {
		have := p.Graph.CountKind(class.kind)
		need := len(class.ids)
		switch {
		case have < need:
			shortfalls = append(shortfalls,
				fmt.Sprintf("procedure needs %d %s(s), rig has %d", need, class.name, have))
		case have > need && need > 0:
			extras = append(extras,
				fmt.Sprintf("rig has %d %s(s), procedure uses %d", have, class.name, need))
		}
	}
	return shortfalls, extras
}

// hardwareMap binds abstract vessel names to concrete node ids,
// positionally within each class with concrete ids in sorted order, so the
// same procedure on the same rig always maps the same way.
func (p *Preparer) hardwareMap(req Requirements) map[string]string {
	mapping := make(map[string]string)
	for _, class := range requirementClasses(req) {
		nodes := p.Graph.OfKind(class.kind)
		concrete := make([]string, 0, len(nodes))
		for _, n := range nodes {
			concrete = append(concrete, n.ID)
		}
		sort.Strings(concrete)
		for i, abstract := range class.ids {
			if i < len(concrete) && abstract != concrete[i] {
				mapping[abstract] = concrete[i]
			}
		}
	}
	return mapping
}

// checkReagentFlasks warns about reagents no flask contains. Not fatal:
// the per-step sanity checks catch the ones that matter, and a Mass-only
// addition needs no flask at all.
func (p *Preparer) checkReagentFlasks(list []steps.Step) []string {
	seen := map[string]bool{}
	var warnings []string
	for _, s := range list {
		for _, r := range reagentsDrawn(s) {
			if r == "" || seen[r] {
				continue
			}
			seen[r] = true
			if a, ok := s.(*steps.Add); ok && a.Volume == 0 && a.Mass > 0 {
				continue
			}
			if _, ok := p.Graph.ReagentVessel(r); !ok {
				warnings = append(warnings, fmt.Sprintf("no flask on the rig contains %q", r))
			}
		}
	}
	return warnings
}

// stepThrough names the cartridge chemical a step routes through, or "".
func stepThrough(s steps.Step) string {
	switch st := s.(type) {
	case *steps.Add:
		return st.Through
	case *steps.Transfer:
		return st.Through
	case *steps.Separate:
		return st.Through
	case *steps.FilterThrough:
		return st.Through
	}
	return ""
}

// checkCartridges is fatal where flasks are not: a missing cartridge means
// a FilterThrough or through-addition cannot run at all.
func (p *Preparer) checkCartridges(list []steps.Step) error {
	for _, s := range list {
		chem := stepThrough(s)
		if chem == "" {
			continue
		}
		if _, ok := p.Graph.Cartridge(chem); !ok {
			return &PrepError{
				Stage: "hardware",
				Step:  s.Kind().String(),
				Msg:   fmt.Sprintf("no cartridge contains %q", chem),
				Cause: ErrMissingCartridge,
			}
		}
	}
	return nil
}

// checkBufferFlasks verifies every step that parks material in an empty
// flask finds enough of them. Checked up front because the shortfall is a
// rig problem, not a procedure problem.
func (p *Preparer) checkBufferFlasks(list []steps.Step) error {
	for _, s := range list {
		var need int
		var vessel string
		switch st := s.(type) {
		case *steps.Separate:
			need, vessel = st.BufferFlasksRequired(), st.SeparationVessel
		case *steps.FilterThrough:
			need, vessel = st.BufferFlasksRequired(), st.FromVessel
		default:
			continue
		}
		if need == 0 {
			continue
		}
		have := len(p.Graph.BufferFlasks(vessel, need))
		if have < need {
			return &PrepError{
				Stage: "hardware",
				Step:  s.Kind().String(),
				Msg: fmt.Sprintf("%s at %q needs %d empty buffer flask(s), found %d",
					s.Kind(), vessel, need, have),
				Cause: ErrBufferFlasks,
			}
		}
	}
	return nil
}

// validatePorts rejects explicit ports that do not exist on the vessel
// kind they are used with, before any of them reaches a device.
func (p *Preparer) validatePorts(list []steps.Step) error {
	check := func(s steps.Step, vessel, port string) error {
		if vessel == "" || port == "" {
			return nil
		}
		if !rig.ValidPort(p.Graph.Kind(vessel), port) {
			return &PrepError{
				Stage: "ports",
				Step:  s.Kind().String(),
				Msg:   fmt.Sprintf("port %q does not exist on %q", port, vessel),
				Cause: rig.ErrInvalidPort,
			}
		}
		return nil
	}
	for _, s := range list {
		var err error
		switch st := s.(type) {
		case *steps.Add:
			err = check(s, st.Vessel, st.Port)
		case *steps.Transfer:
			if err = check(s, st.FromVessel, st.FromPort); err == nil {
				err = check(s, st.ToVessel, st.ToPort)
			}
		case *steps.Separate:
			if err = check(s, st.FromVessel, st.FromPort); err == nil {
				err = check(s, st.ToVessel, st.ToPort)
			}
			if err == nil {
				err = check(s, st.WastePhaseToVessel, st.WastePhaseToPort)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Preparer) recordImplied(pass string) {
	if p.Metrics != nil {
		p.Metrics.RecordImpliedStep(pass)
	}
}

func (p *Preparer) recordElision(pass string) {
	if p.Metrics != nil {
		p.Metrics.RecordElision(pass)
	}
}
