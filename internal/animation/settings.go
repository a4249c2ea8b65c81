package animation

import "github.com/tiko09/ledctrl/internal/color"

// Settings is the complete, atomically-swapped configuration for one
// Controller: global parameters plus the ordered group list. A
// Controller never mutates a Settings value in place — UpdateSettings
// builds a new one and swaps the pointer.
type Settings struct {
	On bool

	RefreshRate float64 // Hz
	VisualizerHz float64

	GlobalBrightness float64
	GlobalSaturation float64
	GlobalColorTemp  float64 // Kelvin
	Correction       color.Correction
	Algorithm        color.Algorithm
	WhiteTemp        float64 // Kelvin, white LED's own temperature (AlgorithmAdvanced)
	HasWhite         bool

	Groups   []Group
	Palettes Palettes
}

// DefaultSettings returns a conservative, fully-specified Settings
// value suitable as a Controller's initial state.
func DefaultSettings() Settings {
	return Settings{
		On:               true,
		RefreshRate:       60,
		VisualizerHz:      30,
		GlobalBrightness:  1,
		GlobalSaturation:  1,
		GlobalColorTemp:   6500,
		Correction:        color.NeutralCorrection,
		Algorithm:         color.AlgorithmLegacy,
		WhiteTemp:         6500,
		HasWhite:          false,
		Palettes:          Palettes{},
	}
}

// effectiveParams composes global and group-level color parameters
// into the color.Params the color package expects, per the pipeline
// order documented there: global color-temperature and per-channel
// correction are folded together once per frame, not once per pixel.
func effectiveParams(s *Settings, g *Group) color.Params {
	tempTint := color.Blackbody(s.GlobalColorTemp)
	corr := color.Correction{
		R: s.Correction.R * tempTint.R,
		G: s.Correction.G * tempTint.G,
		B: s.Correction.B * tempTint.B,
	}
	if g.ColorTemp > 0 {
		groupTint := color.Blackbody(g.ColorTemp)
		corr.R *= groupTint.R
		corr.G *= groupTint.G
		corr.B *= groupTint.B
	}
	whiteTint := color.Blackbody(s.WhiteTemp)
	return color.Params{
		Saturation: g.Saturation * s.GlobalSaturation,
		Brightness: g.Brightness * s.GlobalBrightness,
		Correction: corr,
		HasWhite:   s.HasWhite,
		Algorithm:  s.Algorithm,
		WhiteTint:  whiteTint,
	}
}
