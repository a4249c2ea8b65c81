package color

// RenderHSV converts an HSV float pixel to a packed RGBW word using the
// FastLED "rainbow" spectrum: piecewise-linear ramps over eight 32-step
// hue sectors biased toward perceived-luminance equality (yellow and
// cyan pulled down), rather than the canonical HSV cone. This matches
// stage-lighting convention and the upstream driver this was ported
// from.
func RenderHSV(px HSV, p Params) Packed {
	hue := int(wrap01(px.H) * 255)
	sat := quantize(clamp01(px.S) * p.Saturation)
	val := uint8(clamp01(px.V) * clamp01(px.V) * 255)
	if val > 0 && val < 255 {
		val++
	}
	val = scale8(val, quantize(p.Brightness))

	r, g, b := rainbowSector(hue)

	var w uint8
	if p.HasWhite {
		if sat != 255 {
			if sat == 0 {
				r, g, b, w = 0, 0, 0, 255
			} else {
				desat := scale8(255-sat, 255-sat)
				r = scale8(r, sat)
				g = scale8(g, sat)
				b = scale8(b, sat)
				w = desat
			}
		}
	} else if sat != 255 {
		if sat == 0 {
			r, g, b = 255, 255, 255
		} else {
			desat := scale8(255-sat, 255-sat)
			r = scale8(r, sat) + desat
			g = scale8(g, sat) + desat
			b = scale8(b, sat) + desat
		}
	}

	if val != 255 {
		if val == 0 {
			r, g, b, w = 0, 0, 0, 0
		} else {
			r = scale8(r, val)
			g = scale8(g, val)
			b = scale8(b, val)
			w = scale8(w, val)
		}
	}

	r = scale8(r, quantize(p.Correction.R))
	g = scale8(g, quantize(p.Correction.G))
	b = scale8(b, quantize(p.Correction.B))

	return Pack(r, g, b, w)
}

func wrap01(h float64) float64 {
	h -= float64(int(h))
	if h < 0 {
		h++
	}
	return h
}

// rainbowSector returns the unquantized (pre-saturation, pre-value) RGB
// ramp for one of eight 32-step hue sectors spanning the 0-255 hue range.
func rainbowSector(hue int) (r, g, b uint8) {
	offset := hue & 0x1F
	offset8 := offset << 3
	third := offset8 / 3

	switch {
	case hue&0x80 == 0 && hue&0x40 == 0 && hue&0x20 == 0:
		return uint8(255 - third), uint8(third), 0
	case hue&0x80 == 0 && hue&0x40 == 0:
		return 171, uint8(85 + third), 0
	case hue&0x80 == 0 && hue&0x20 == 0:
		return uint8(171 - third*2), uint8(170 + third), 0
	case hue&0x80 == 0:
		return 0, uint8(255 - third), uint8(third)
	case hue&0x40 == 0 && hue&0x20 == 0:
		twothirds := third * 2
		return 0, uint8(171 - twothirds), uint8(85 + twothirds)
	case hue&0x40 == 0:
		return uint8(third), 0, uint8(255 - third)
	case hue&0x20 == 0:
		return uint8(85 + third), 0, uint8(171 - third)
	default:
		return uint8(170 + third), 0, uint8(85 - third)
	}
}
