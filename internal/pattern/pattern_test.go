package pattern

import (
	"math"
	"testing"

	"github.com/tiko09/ledctrl/internal/color"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)
	p, ok := r.Get(PatternSolid)
	if !ok {
		t.Fatal("expected PatternSolid to be registered")
	}
	if p.Mode != color.ModeHSV {
		t.Errorf("solid pattern mode = %v, want ModeHSV", p.Mode)
	}
}

func TestRegistryGetMissing(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Get(9999); ok {
		t.Error("expected missing pattern id to report !ok")
	}
}

func TestChaseProducesBrightestAtCenter(t *testing.T) {
	out := chase(Input{X: 0, TScaled: 0, Scale: 0.1})
	if out.HSV.V < 0.9 {
		t.Errorf("chase at the lead position V=%v, want near 1", out.HSV.V)
	}
	far := chase(Input{X: 0.5, TScaled: 0, Scale: 0.1})
	if far.HSV.V > 0.1 {
		t.Errorf("chase far from lead V=%v, want near 0", far.HSV.V)
	}
}

func TestBreathingPeaksAndTroughs(t *testing.T) {
	peak := breathing(Input{TScaled: 0.5})
	trough := breathing(Input{TScaled: 0})
	if peak.HSV.V < trough.HSV.V {
		t.Errorf("breathing peak V=%v should exceed trough V=%v", peak.HSV.V, trough.HSV.V)
	}
}

func TestPaletteLinearInterpolation(t *testing.T) {
	p := NewPalette([]Stop{
		{Pos: 0, HSV: color.HSV{H: 0, S: 1, V: 0}},
		{Pos: 1, HSV: color.HSV{H: 0, S: 1, V: 1}},
	})
	mid := p.At(0.5)
	if math.Abs(mid.V-0.5) > 0.02 {
		t.Errorf("palette midpoint V=%v, want ~0.5", mid.V)
	}
}

func TestPaletteSingleStopIsFlat(t *testing.T) {
	p := NewPalette([]Stop{{Pos: 0, HSV: color.HSV{H: 0.3, S: 1, V: 0.7}}})
	a := p.At(0.1)
	b := p.At(0.9)
	if a != b {
		t.Errorf("single-stop palette should be flat: %v != %v", a, b)
	}
}

func TestPaletteWraps(t *testing.T) {
	p := NewPalette([]Stop{{Pos: 0, HSV: color.HSV{V: 0}}, {Pos: 1, HSV: color.HSV{V: 1}}})
	a := p.At(0.25)
	b := p.At(1.25)
	if a != b {
		t.Errorf("palette lookup should wrap modulo 1: %v != %v", a, b)
	}
}
