package steps

import "github.com/labforge/synthrig/pkg/rig"

// Repeat runs its children in order, Count times. It expands to the flat
// child sequence so downstream passes never see the nesting.
type Repeat struct {
	Count    int
	Children []Step
}

func (r *Repeat) Kind() Kind { return KindRepeat }

func (r *Repeat) Resolve(g *rig.Graph) error {
	for _, child := range r.Children {
		if err := child.Resolve(g); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repeat) Expand() []Step {
	out := make([]Step, 0, r.Count*len(r.Children))
	for i := 0; i < r.Count; i++ {
		out = append(out, r.Children...)
	}
	return out
}

func (r *Repeat) SanityChecks(*rig.Graph) []Check {
	return []Check{
		{OK: r.Count > 0, Msg: "repeat count must be positive"},
	}
}

func (r *Repeat) MapVessels(f func(string) string) {
	for _, child := range r.Children {
		child.MapVessels(f)
	}
}
