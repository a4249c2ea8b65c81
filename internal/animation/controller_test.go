package animation

import (
	"testing"
	"time"

	"github.com/tiko09/ledctrl/internal/color"
	"github.com/tiko09/ledctrl/internal/pattern"
	"github.com/tiko09/ledctrl/internal/strip"
)

type recordingTransport struct {
	frames [][]byte
}

func (r *recordingTransport) Render(buf []byte) error {
	cp := make([]byte, len(buf))
	copy(cp, buf)
	r.frames = append(r.frames, cp)
	return nil
}

func (r *recordingTransport) Close() error { return nil }

func newTestController(count int, tr *recordingTransport, patternID int) *Controller {
	s := strip.New(count, strip.OrderGRB, tr)
	registry := pattern.NewRegistry()
	pattern.RegisterBuiltins(registry)
	settings := DefaultSettings()
	settings.RefreshRate = 200
	settings.Groups = []Group{
		{Start: 0, End: count, PatternID: patternID, Speed: 1, Scale: 1, Brightness: 1, Saturation: 1, ColorTemp: 6500},
	}
	return New(s, registry, nil, settings, nil, nil)
}

func TestBeginEndLifecycle(t *testing.T) {
	tr := &recordingTransport{}
	c := newTestController(8, tr, pattern.PatternSolid)
	c.Begin()
	time.Sleep(50 * time.Millisecond)
	c.End()
	if len(tr.frames) == 0 {
		t.Fatal("expected at least one committed frame")
	}
}

func TestBeginIsIdempotent(t *testing.T) {
	tr := &recordingTransport{}
	c := newTestController(4, tr, pattern.PatternSolid)
	c.Begin()
	c.Begin() // should not start a second goroutine
	time.Sleep(20 * time.Millisecond)
	c.End()
}

func TestClearLEDsZeroesWireImmediately(t *testing.T) {
	tr := &recordingTransport{}
	c := newTestController(4, tr, pattern.PatternSolid)
	if err := c.ClearLEDs(); err != nil {
		t.Fatalf("ClearLEDs: %v", err)
	}
	if len(tr.frames) != 1 {
		t.Fatalf("expected exactly 1 frame from ClearLEDs, got %d", len(tr.frames))
	}
	for _, b := range tr.frames[0] {
		if b != 0 {
			t.Fatalf("expected all-zero frame, got %v", tr.frames[0])
		}
	}
}

func TestSetAndGetAnimationTime(t *testing.T) {
	tr := &recordingTransport{}
	c := newTestController(4, tr, pattern.PatternSolid)
	c.SetAnimationTime(12.5)
	if got := c.GetAnimationTime(); got != 12.5 {
		t.Errorf("GetAnimationTime() = %v, want 12.5", got)
	}
}

func TestResetTimerZeroesOnNextFrame(t *testing.T) {
	tr := &recordingTransport{}
	c := newTestController(4, tr, pattern.PatternSolid)
	c.SetAnimationTime(99)
	c.ResetTimer()
	c.Begin()
	time.Sleep(30 * time.Millisecond)
	c.End()
	if got := c.GetAnimationTime(); got > 1 {
		t.Errorf("animation time after reset+run = %v, want small (reset to 0 before advancing)", got)
	}
}

func TestOffSettingClearsInsteadOfRendering(t *testing.T) {
	tr := &recordingTransport{}
	c := newTestController(4, tr, pattern.PatternSolid)
	s := c.Settings()
	s.On = false
	c.UpdateSettings(s)
	c.Begin()
	time.Sleep(30 * time.Millisecond)
	c.End()
	if len(tr.frames) == 0 {
		t.Fatal("expected clear frames even when off")
	}
	for _, b := range tr.frames[len(tr.frames)-1] {
		if b != 0 {
			t.Fatalf("expected last frame all-zero while off, got %v", tr.frames[len(tr.frames)-1])
		}
	}
}

func TestPatternPanicFallsBackToBlackAndReportsError(t *testing.T) {
	tr := &recordingTransport{}
	registry := pattern.NewRegistry()
	registry.Register(pattern.Pattern{
		ID:   500,
		Name: "panicky",
		Mode: color.ModeHSV,
		Eval: func(in pattern.Input) pattern.Output {
			panic("boom")
		},
	})
	settings := DefaultSettings()
	settings.RefreshRate = 200
	settings.Groups = []Group{{Start: 0, End: 2, PatternID: 500, Speed: 1, Scale: 1, Brightness: 1, Saturation: 1}}
	s := strip.New(2, strip.OrderGRB, tr)
	c := New(s, registry, nil, settings, nil, nil)

	c.Begin()
	time.Sleep(30 * time.Millisecond)
	c.End()

	select {
	case err := <-c.Errors():
		if err == nil {
			t.Fatal("expected a non-nil error")
		}
	default:
		t.Fatal("expected a reported error from the panicking pattern")
	}
}
