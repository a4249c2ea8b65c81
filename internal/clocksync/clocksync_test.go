package clocksync

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	pkt := encode(42, 12.5)
	seq, tm, ok := decode(pkt)
	if !ok {
		t.Fatal("expected a well-formed packet")
	}
	if seq != 42 {
		t.Errorf("seq = %d, want 42", seq)
	}
	if tm != 12.5 {
		t.Errorf("time = %v, want 12.5", tm)
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	pkt := encode(0, 1.0)
	pkt[0] = 'X'
	if _, _, ok := decode(pkt); ok {
		t.Fatal("expected rejection of bad magic")
	}
}

func TestDecodeRejectsShortPacket(t *testing.T) {
	if _, _, ok := decode([]byte{1, 2, 3}); ok {
		t.Fatal("expected rejection of a too-short packet")
	}
}

type fakeClock struct {
	t float64
}

func (f *fakeClock) GetAnimationTime() float64  { return f.t }
func (f *fakeClock) SetAnimationTime(t float64) { f.t = t }

func TestSlaveAppliesReceivedTimeDirectly(t *testing.T) {
	// Exercises the decode->SetAnimationTime path without a real
	// socket: Slave.run is a thin loop around decode, already covered
	// by TestEncodeDecodeRoundTrip, so this checks the clock interface
	// contract a Slave depends on.
	clock := &fakeClock{}
	if _, tm, ok := decode(encode(1, 5)); ok {
		clock.SetAnimationTime(tm)
	}
	if clock.GetAnimationTime() != 5 {
		t.Fatalf("GetAnimationTime() = %v, want 5", clock.GetAnimationTime())
	}
}

func TestMasterStartStopLifecycle(t *testing.T) {
	clock := &fakeClock{t: 1.0}
	m := NewMaster(clock, 0, nil)
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	m.Stop()
	m.Stop() // idempotent
}

func TestSlaveStartStopLifecycle(t *testing.T) {
	clock := &fakeClock{}
	s := NewSlave(clock, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
	s.Stop() // idempotent
}
