package artnet

import (
	"testing"
	"time"

	"github.com/tiko09/ledctrl/internal/strip"
)

type fakeTransport struct{ frames [][]byte }

func (f *fakeTransport) Render(buf []byte) error {
	cp := make([]byte, len(buf))
	copy(cp, buf)
	f.frames = append(f.frames, cp)
	return nil
}
func (f *fakeTransport) Close() error { return nil }

func buildPacket(universe uint16, sequence byte, payload []byte) []byte {
	buf := make([]byte, packetHeaderLen+len(payload))
	copy(buf[0:8], header[:])
	buf[8] = 0x00
	buf[9] = 0x50 // opcode 0x5000 little-endian
	buf[12] = sequence
	buf[14] = byte(universe)
	buf[15] = byte(universe >> 8)
	buf[16] = byte(len(payload) >> 8)
	buf[17] = byte(len(payload))
	copy(buf[packetHeaderLen:], payload)
	return buf
}

func TestParseFrameAcceptsWellFormedPacket(t *testing.T) {
	payload := []byte{255, 0, 0, 128, 0, 255, 0, 64, 0, 0, 255, 32}
	pkt := buildPacket(0, 0, payload)
	fr, ok := parseFrame(pkt, 0)
	if !ok {
		t.Fatal("expected a valid frame")
	}
	if len(fr.data) != len(payload) {
		t.Fatalf("data len = %d, want %d", len(fr.data), len(payload))
	}
}

func TestParseFrameRejectsBadMagic(t *testing.T) {
	pkt := buildPacket(0, 0, []byte{1, 2, 3})
	pkt[0] = 'X'
	if _, ok := parseFrame(pkt, 0); ok {
		t.Fatal("expected rejection of bad magic")
	}
}

func TestParseFrameRejectsWrongUniverse(t *testing.T) {
	pkt := buildPacket(3, 0, []byte{1, 2, 3})
	if _, ok := parseFrame(pkt, 0); ok {
		t.Fatal("expected rejection of mismatched universe")
	}
}

func TestParseFrameTruncatesOversizedLength(t *testing.T) {
	pkt := buildPacket(0, 0, []byte{1, 2, 3})
	pkt[16] = 0xFF // claim 65535 bytes of payload we don't actually have
	pkt[17] = 0xFF
	fr, ok := parseFrame(pkt, 0)
	if !ok {
		t.Fatal("expected acceptance with clipped length")
	}
	if len(fr.data) != 3 {
		t.Fatalf("data len = %d, want 3 (clipped to what's actually present)", len(fr.data))
	}
}

func TestApplyFrameMinimalScenario(t *testing.T) {
	tr := &fakeTransport{}
	s := strip.New(3, strip.OrderRGBW, tr)
	cfg := DefaultConfig()
	cfg.ChannelsPerLED = 4
	r := New(cfg, s, nil)

	payload := []byte{255, 0, 0, 128, 0, 255, 0, 64, 0, 0, 255, 32}
	fr, ok := parseFrame(buildPacket(0, 0, payload), 0)
	if !ok {
		t.Fatal("expected valid frame")
	}
	r.applyFrame(fr)

	if len(tr.frames) != 1 {
		t.Fatalf("expected exactly one committed frame, got %d", len(tr.frames))
	}
	got := tr.frames[0]
	want := []byte{255, 0, 0, 128, 0, 255, 0, 64, 0, 0, 255, 32}
	for i, b := range want {
		if got[i] != b {
			t.Fatalf("byte %d = %d, want %d (full frame %v)", i, got[i], b, got)
		}
	}
}

func TestApplyFrameGroupSizeExpansion(t *testing.T) {
	tr := &fakeTransport{}
	s := strip.New(4, strip.OrderRGB, tr)
	cfg := DefaultConfig()
	cfg.GroupSize = 2
	r := New(cfg, s, nil)

	payload := []byte{10, 20, 30, 40, 50, 60} // 2 DMX pixels, expands to 4 physical LEDs
	fr, _ := parseFrame(buildPacket(0, 0, payload), 0)
	r.applyFrame(fr)

	got := tr.frames[0]
	want := []byte{10, 20, 30, 10, 20, 30, 40, 50, 60, 40, 50, 60}
	for i, b := range want {
		if got[i] != b {
			t.Fatalf("byte %d = %d, want %d", i, got[i], b)
		}
	}
}

func TestTemporalAverageIsLinear(t *testing.T) {
	a := newTemporalFilter(TemporalAverage, 3, 1)
	b := newTemporalFilter(TemporalAverage, 3, 1)
	sum := newTemporalFilter(TemporalAverage, 3, 1)

	inputsA := []float64{10, 20, 30}
	inputsB := []float64{1, 2, 3}
	for i := range inputsA {
		outA := a.apply(0, inputsA[i])
		outB := b.apply(0, inputsB[i])
		outSum := sum.apply(0, inputsA[i]+inputsB[i])
		if d := outSum - (outA + outB); d > 1e-9 || d < -1e-9 {
			t.Fatalf("step %d: filter(A+B)=%v, filter(A)+filter(B)=%v", i, outSum, outA+outB)
		}
	}
}

func TestTemporalLerpConvergesTowardSteadyInput(t *testing.T) {
	f := newTemporalFilter(TemporalLerp, 4, 1)
	var out float64
	for i := 0; i < 50; i++ {
		out = f.apply(0, 100)
	}
	if out < 99.9 {
		t.Fatalf("lerp filter did not converge to steady input, got %v", out)
	}
}

func TestSpatialBoxInteriorIdempotentOnFlatInput(t *testing.T) {
	values := make([]float64, 11)
	for i := range values {
		values[i] = 50
	}
	out := spatialSmooth(values, 1, SpatialAverage, 3)
	for i := 1; i < len(out)-1; i++ {
		if out[i] != 50 {
			t.Fatalf("interior index %d = %v, want unchanged 50", i, out[i])
		}
	}
}

func TestSpatialBoxDarkensEdges(t *testing.T) {
	values := make([]float64, 5)
	for i := range values {
		values[i] = 90
	}
	out := spatialSmooth(values, 1, SpatialAverage, 3)
	if out[0] >= 90 {
		t.Fatalf("expected edge to darken under zero-padded convolution, got %v", out[0])
	}
}

func TestSpatialNoneIsNoop(t *testing.T) {
	values := []float64{1, 2, 3}
	out := spatialSmooth(values, 1, SpatialNone, 3)
	for i, v := range values {
		if out[i] != v {
			t.Fatalf("index %d changed under SpatialNone: %v != %v", i, out[i], v)
		}
	}
}

func TestStartStopLifecycle(t *testing.T) {
	tr := &fakeTransport{}
	s := strip.New(4, strip.OrderRGB, tr)
	cfg := DefaultConfig()
	cfg.MetricsInterval = 0
	r := New(cfg, s, nil)

	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	r.Stop()
	r.Stop() // idempotent
}

func TestStartIsIdempotent(t *testing.T) {
	tr := &fakeTransport{}
	s := strip.New(4, strip.OrderRGB, tr)
	r := New(DefaultConfig(), s, nil)
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	r.Stop()
}
