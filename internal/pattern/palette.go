package pattern

import "github.com/tiko09/ledctrl/internal/color"

// Stop is one HSV color stop in a palette, positioned at Pos ∈ [0,1].
type Stop struct {
	Pos float64
	HSV color.HSV
}

const paletteSize = 256

// Palette is an ordered sequence of HSV stops precomputed into a
// 256-entry lookup table with linear interpolation in hue/value space.
// The table is rebuilt whenever the stops change; lookups at animation
// rate never walk the stop list.
type Palette struct {
	stops []Stop
	table [paletteSize]color.HSV
}

// NewPalette builds a Palette from stops, sorted by Pos ascending. At
// least one stop is required; a single stop produces a flat palette.
func NewPalette(stops []Stop) *Palette {
	p := &Palette{stops: append([]Stop(nil), stops...)}
	p.rebuild()
	return p
}

// SetStops replaces the stop list and rebuilds the lookup table.
func (p *Palette) SetStops(stops []Stop) {
	p.stops = append([]Stop(nil), stops...)
	p.rebuild()
}

func (p *Palette) rebuild() {
	if len(p.stops) == 0 {
		for i := range p.table {
			p.table[i] = color.HSV{}
		}
		return
	}
	sorted := append([]Stop(nil), p.stops...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Pos < sorted[j-1].Pos; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	for i := 0; i < paletteSize; i++ {
		pos := float64(i) / float64(paletteSize-1)
		p.table[i] = sampleStops(sorted, pos)
	}
}

// sampleStops linearly interpolates hue (shortest-path wrap), sat, and
// val between the two stops bracketing pos. pos outside [stops[0].Pos,
// stops[last].Pos] clamps to the nearest endpoint.
func sampleStops(stops []Stop, pos float64) color.HSV {
	if len(stops) == 1 {
		return stops[0].HSV
	}
	if pos <= stops[0].Pos {
		return stops[0].HSV
	}
	last := stops[len(stops)-1]
	if pos >= last.Pos {
		return last.HSV
	}
	for i := 0; i < len(stops)-1; i++ {
		a, b := stops[i], stops[i+1]
		if pos >= a.Pos && pos <= b.Pos {
			span := b.Pos - a.Pos
			frac := 0.0
			if span > 0 {
				frac = (pos - a.Pos) / span
			}
			return lerpHSV(a.HSV, b.HSV, frac)
		}
	}
	return last.HSV
}

func lerpHSV(a, b color.HSV, frac float64) color.HSV {
	dh := b.H - a.H
	switch {
	case dh > 0.5:
		dh -= 1
	case dh < -0.5:
		dh += 1
	}
	h := a.H + dh*frac
	h -= float64(int(h))
	if h < 0 {
		h++
	}
	return color.HSV{
		H: h,
		S: a.S + (b.S-a.S)*frac,
		V: a.V + (b.V-a.V)*frac,
	}
}

// At samples the precomputed table at t ∈ [0,1), wrapping.
func (p *Palette) At(t float64) color.HSV {
	t -= float64(int(t))
	if t < 0 {
		t++
	}
	idx := int(t * float64(paletteSize))
	if idx >= paletteSize {
		idx = paletteSize - 1
	}
	return p.table[idx]
}
