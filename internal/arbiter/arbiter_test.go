package arbiter

import (
	"testing"
	"time"

	"github.com/tiko09/ledctrl/internal/artnet"
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

type fakeAnim struct {
	begins int
	ends   int
}

func (a *fakeAnim) Begin() { a.begins++ }
func (a *fakeAnim) End()   { a.ends++ }

func newTestArbiter(t *testing.T) (*Arbiter, *fakeAnim, *fakeTransport, *strip.Strip) {
	t.Helper()
	tr := &fakeTransport{}
	s := strip.New(4, strip.OrderRGB, tr)
	anim := &fakeAnim{}
	factory := func() *artnet.Receiver {
		return artnet.New(artnet.DefaultConfig(), s, nil)
	}
	return New(s, anim, factory, nil), anim, tr, s
}

func TestStartAnimatingFromIdle(t *testing.T) {
	a, anim, tr, _ := newTestArbiter(t)
	a.StartAnimating()
	if a.State() != Animating {
		t.Fatalf("state = %v, want Animating", a.State())
	}
	if anim.begins != 1 {
		t.Fatalf("begins = %d, want 1", anim.begins)
	}
	if len(tr.frames) != 1 {
		t.Fatalf("expected one clear-commit frame on transition, got %d", len(tr.frames))
	}
}

func TestStartAnimatingIsIdempotent(t *testing.T) {
	a, anim, _, _ := newTestArbiter(t)
	a.StartAnimating()
	a.StartAnimating()
	if anim.begins != 1 {
		t.Fatalf("begins = %d, want 1 (second call should be a no-op)", anim.begins)
	}
}

func TestEnableArtNetStopsAnimation(t *testing.T) {
	a, anim, _, _ := newTestArbiter(t)
	a.StartAnimating()
	a.EnableArtNet()
	if a.State() != ReceivingArtNet {
		t.Fatalf("state = %v, want ReceivingArtNet", a.State())
	}
	if anim.ends != 1 {
		t.Fatalf("ends = %d, want 1", anim.ends)
	}
	a.Stop()
}

func TestEnableArtNetIsIdempotent(t *testing.T) {
	a, _, _, _ := newTestArbiter(t)
	a.EnableArtNet()
	first := a.State()
	a.EnableArtNet()
	if a.State() != first {
		t.Fatalf("state changed on redundant EnableArtNet call")
	}
	a.Stop()
}

func TestReturnToAnimatingClearsAndRestarts(t *testing.T) {
	a, anim, tr, _ := newTestArbiter(t)
	a.EnableArtNet()
	framesBefore := len(tr.frames)
	a.StartAnimating()
	if a.State() != Animating {
		t.Fatalf("state = %v, want Animating", a.State())
	}
	if len(tr.frames) <= framesBefore {
		t.Fatal("expected an additional clear-commit frame on the return transition")
	}
	if anim.begins != 1 {
		t.Fatalf("begins = %d, want 1", anim.begins)
	}
}

func TestStopClearsFromAnimating(t *testing.T) {
	a, anim, _, _ := newTestArbiter(t)
	a.StartAnimating()
	a.Stop()
	if a.State() != Idle {
		t.Fatalf("state = %v, want Idle", a.State())
	}
	if anim.ends != 1 {
		t.Fatalf("ends = %d, want 1", anim.ends)
	}
}

func TestRestartArtNetAppliesNewConfig(t *testing.T) {
	a, _, _, _ := newTestArbiter(t)
	a.EnableArtNet()
	first := a.receiverSnapshot()
	a.RestartArtNet()
	second := a.receiverSnapshot()
	if first == second {
		t.Fatal("expected RestartArtNet to replace the receiver instance")
	}
	a.Stop()
}

func TestWatchForCrashFallsBackToAnimating(t *testing.T) {
	tr := &fakeTransport{}
	s := strip.New(4, strip.OrderRGB, tr)
	anim := &fakeAnim{}
	factory := func() *artnet.Receiver {
		return artnet.New(artnet.DefaultConfig(), s, nil)
	}
	a := New(s, anim, factory, nil)
	a.EnableArtNet()

	r := a.receiverSnapshot()
	r.Stop() // simulate the receive loop exiting on its own

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if a.State() == Animating {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if a.State() != Animating {
		t.Fatalf("state = %v, want Animating after receiver exit", a.State())
	}
}
