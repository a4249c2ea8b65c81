// Package pattern holds the registry of evaluable LED patterns: pure
// functions from a pixel's mapped coordinates and animation time to a
// color, plus the 256-entry palette lookup tables patterns sample
// from.
package pattern

import "github.com/tiko09/ledctrl/internal/color"

// State is opaque, pattern-owned data that round-trips between
// successive frames for the same pixel index. The engine never
// inspects it.
type State any

// Input is everything a pattern needs to evaluate one pixel for one
// frame.
type Input struct {
	X, Y, Z   float64 // mapped pixel coordinates, default x=i/N, y=z=0
	TScaled   float64 // animation time * group speed
	DT        float64 // wall-clock seconds since the previous frame
	Scale     float64 // group scale factor, pattern-defined meaning
	Palette   *Palette
	Prev      State // nil on the first frame for this pixel
}

// Output is one pixel's evaluated color plus the state to carry into
// next frame.
type Output struct {
	HSV   color.HSV
	RGB   color.RGB
	Mode  color.Mode
	State State
}

// Func is a pattern's evaluation function. It must be pure: same Input
// and Prev always produce the same Output, with no shared mutable
// state between pixel indices or goroutines.
type Func func(in Input) Output

// Pattern pairs a Func with the color mode it always produces — fixed
// per pattern id, never decided per call.
type Pattern struct {
	ID   int
	Name string
	Mode color.Mode
	Eval Func
}

// Registry holds patterns keyed by integer id.
type Registry struct {
	patterns map[int]Pattern
}

// NewRegistry builds an empty registry. Use RegisterBuiltins to
// populate it with the standard pattern set.
func NewRegistry() *Registry {
	return &Registry{patterns: make(map[int]Pattern)}
}

// Register adds or replaces a pattern under p.ID.
func (r *Registry) Register(p Pattern) {
	r.patterns[p.ID] = p
}

// Get looks up a pattern by id.
func (r *Registry) Get(id int) (Pattern, bool) {
	p, ok := r.patterns[id]
	return p, ok
}

// IDs returns every registered pattern id, in no particular order.
func (r *Registry) IDs() []int {
	ids := make([]int, 0, len(r.patterns))
	for id := range r.patterns {
		ids = append(ids, id)
	}
	return ids
}
