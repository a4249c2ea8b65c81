package animation

import "github.com/tiko09/ledctrl/internal/pattern"

// Group is a contiguous LED range with its own rendering parameters.
// Groups partition or subset the strip; when ranges overlap, later
// groups in Groups order overwrite earlier ones index by index.
type Group struct {
	Start, End int // range is [Start, End)

	PatternID int
	Speed     float64 // multiplies animation time before it reaches the pattern
	Scale     float64 // pattern-defined spatial scale

	Brightness float64
	Saturation float64
	ColorTemp  float64 // Kelvin, composed with global correction via color.Blackbody; 0 adds no tint
	PaletteID  int
}

// Palettes maps palette id to a *pattern.Palette. The controller looks
// groups' PaletteID up here once per frame.
type Palettes map[int]*pattern.Palette
