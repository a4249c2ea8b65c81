package pattern

import (
	"math"

	"github.com/tiko09/ledctrl/internal/color"
)

// Built-in pattern ids. User-supplied patterns (via internal/patternlib)
// are registered at ids >= UserPatternBase.
const (
	PatternSolid = iota
	PatternPaletteCycle
	PatternWaveSine
	PatternChase
	PatternBreathing
	PatternNoise

	UserPatternBase = 1000
)

// RegisterBuiltins populates r with the standard pattern set.
func RegisterBuiltins(r *Registry) {
	r.Register(Pattern{ID: PatternSolid, Name: "solid", Mode: color.ModeHSV, Eval: solid})
	r.Register(Pattern{ID: PatternPaletteCycle, Name: "palette_cycle", Mode: color.ModeHSV, Eval: paletteCycle})
	r.Register(Pattern{ID: PatternWaveSine, Name: "wave_sine", Mode: color.ModeHSV, Eval: waveSine})
	r.Register(Pattern{ID: PatternChase, Name: "chase", Mode: color.ModeHSV, Eval: chase})
	r.Register(Pattern{ID: PatternBreathing, Name: "breathing", Mode: color.ModeHSV, Eval: breathing})
	r.Register(Pattern{ID: PatternNoise, Name: "noise", Mode: color.ModeHSV, Eval: noise})
}

// solid holds the first palette stop (or a neutral white if no
// palette is configured) across the whole group.
func solid(in Input) Output {
	hsv := color.HSV{H: 0, S: 0, V: 1}
	if in.Palette != nil {
		hsv = in.Palette.At(0)
	}
	return Output{HSV: hsv, Mode: color.ModeHSV}
}

// paletteCycle sweeps the palette over time, offset by x so the cycle
// travels visibly along the strip.
func paletteCycle(in Input) Output {
	pos := in.TScaled + in.X*in.Scale
	hsv := color.HSV{H: pos, S: 1, V: 1}
	if in.Palette != nil {
		hsv = in.Palette.At(pos)
	}
	return Output{HSV: hsv, Mode: color.ModeHSV}
}

// waveSine modulates value with a traveling sine wave along x, hue
// fixed by the palette's base stop.
func waveSine(in Input) Output {
	v := 0.5 + 0.5*math.Sin(2*math.Pi*(in.X*in.Scale-in.TScaled))
	hue := 0.0
	if in.Palette != nil {
		hue = in.Palette.At(0).H
	}
	return Output{HSV: color.HSV{H: hue, S: 1, V: v}, Mode: color.ModeHSV}
}

// chase moves a single bright pixel along the strip at in.TScaled
// revolutions per second. State records the pixel's brightness, but
// in.Prev is not read, so there is no trailing fade.
func chase(in Input) Output {
	width := 0.08
	if in.Scale > 0 {
		width = in.Scale
	}
	pos := in.TScaled - math.Floor(in.TScaled)
	d := math.Abs(in.X - pos)
	if d > 0.5 {
		d = 1 - d
	}
	v := 0.0
	if d < width {
		v = 1 - d/width
	}
	hue := 0.0
	if in.Palette != nil {
		hue = in.Palette.At(0).H
	}
	return Output{HSV: color.HSV{H: hue, S: 1, V: v}, Mode: color.ModeHSV, State: v}
}

// breathing pulses uniform brightness with a squared raised-cosine
// envelope: dark at phase 0, full at phase 0.5. Squaring keeps the
// light low for longer around the trough and narrows the bright peak.
func breathing(in Input) Output {
	phase := in.TScaled - math.Floor(in.TScaled)
	v := 0.5 - 0.5*math.Cos(2*math.Pi*phase)
	v = v * v // longer dark phase, narrower peak
	hue := 0.0
	if in.Palette != nil {
		hue = in.Palette.At(0).H
	}
	return Output{HSV: color.HSV{H: hue, S: 1, V: v}, Mode: color.ModeHSV}
}

// noise is a cheap deterministic value-noise stand-in (sum of a few
// incommensurate sines) used where organic flicker is wanted without
// pulling in a full Perlin implementation for one pattern.
func noise(in Input) Output {
	scale := in.Scale
	if scale == 0 {
		scale = 1
	}
	n := math.Sin(in.X*scale*12.9898+in.TScaled*3.1)*0.5 +
		math.Sin(in.X*scale*7.233+in.TScaled*1.7)*0.3 +
		math.Sin(in.X*scale*21.17-in.TScaled*0.9)*0.2
	v := 0.5 + 0.5*n
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	hue := 0.0
	if in.Palette != nil {
		hue = in.Palette.At(0).H
	}
	return Output{HSV: color.HSV{H: hue, S: 1, V: v}, Mode: color.ModeHSV}
}
