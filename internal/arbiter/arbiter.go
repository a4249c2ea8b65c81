// Package arbiter enforces mutual exclusion between local animation
// and an Art-Net stream: at most one of the two drives the strip at a
// time, and the strip is always cleared at the transition boundary so
// a partially-updated frame can never persist.
package arbiter

import (
	"sync"

	"go.uber.org/zap"

	"github.com/tiko09/ledctrl/internal/artnet"
	"github.com/tiko09/ledctrl/internal/strip"
)

// State is the arbiter's current mode.
type State int

const (
	Idle State = iota
	Animating
	ReceivingArtNet
)

func (s State) String() string {
	switch s {
	case Animating:
		return "animating"
	case ReceivingArtNet:
		return "receiving_artnet"
	default:
		return "idle"
	}
}

// AnimationController is the subset of animation.Controller the
// arbiter needs; kept narrow so this package doesn't import animation
// just to call two lifecycle methods.
type AnimationController interface {
	Begin()
	End()
}

// Arbiter owns the decision of which of an animation controller or an
// Art-Net receiver is currently allowed to write to strip. A single
// mutex serializes every enable/disable call, so transitions never
// interleave.
type Arbiter struct {
	mu     sync.Mutex
	state  State
	strip  *strip.Strip
	anim   AnimationController
	logger *zap.Logger

	receiverFactory func() *artnet.Receiver
	receiver        *artnet.Receiver
}

// New constructs an Arbiter in the Idle state. receiverFactory builds
// a fresh *artnet.Receiver on demand, so a settings change that alters
// receiver configuration can be applied by restarting rather than
// mutating a running receiver.
func New(s *strip.Strip, anim AnimationController, receiverFactory func() *artnet.Receiver, logger *zap.Logger) *Arbiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Arbiter{strip: s, anim: anim, receiverFactory: receiverFactory, logger: logger}
}

// State returns the current mode.
func (a *Arbiter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// receiverSnapshot returns the currently-owned receiver, if any. It
// exists for tests that need to reach into the live receiver instance.
func (a *Arbiter) receiverSnapshot() *artnet.Receiver {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.receiver
}

// StartAnimating transitions to Animating from any state. A call while
// already Animating is a no-op.
func (a *Arbiter) StartAnimating() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == Animating {
		return
	}
	if a.state == ReceivingArtNet {
		a.stopReceiverLocked()
	}
	a.clearLocked()
	a.anim.Begin()
	a.state = Animating
	a.logger.Info("arbiter transition", zap.String("state", a.state.String()))
}

// EnableArtNet transitions to ReceivingArtNet from any state. A call
// while already receiving is a no-op — it does not restart the
// receiver. Use RestartArtNet to apply a configuration change.
func (a *Arbiter) EnableArtNet() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == ReceivingArtNet {
		return
	}
	a.enableArtNetLocked()
}

// RestartArtNet stops and restarts the Art-Net receiver, used when
// settings change its configuration while already receiving. Outside
// of ReceivingArtNet it behaves like EnableArtNet.
func (a *Arbiter) RestartArtNet() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == ReceivingArtNet {
		a.stopReceiverLocked()
	}
	a.enableArtNetLocked()
}

func (a *Arbiter) enableArtNetLocked() {
	if a.state == Animating {
		a.anim.End()
	}
	a.clearLocked()
	a.receiver = a.receiverFactory()
	if err := a.receiver.Start(); err != nil {
		a.logger.Error("artnet receiver failed to start, falling back to animation", zap.Error(err))
		a.receiver = nil
		a.clearLocked()
		a.anim.Begin()
		a.state = Animating
		return
	}
	a.state = ReceivingArtNet
	a.logger.Info("arbiter transition", zap.String("state", a.state.String()))
	go a.watchForCrash(a.receiver)
}

// watchForCrash falls back to Animating if receiver exits on its own
// (a socket error), matching the state diagram's "receiver error" edge
// back to Animating. It is a no-op if the receiver has since been
// deliberately stopped or replaced.
func (a *Arbiter) watchForCrash(r *artnet.Receiver) {
	<-r.Crashed()
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.receiver != r || a.state != ReceivingArtNet {
		return
	}
	a.receiver = nil
	a.logger.Warn("artnet receiver crashed, falling back to animation")
	a.clearLocked()
	a.anim.Begin()
	a.state = Animating
}

func (a *Arbiter) stopReceiverLocked() {
	if a.receiver != nil {
		a.receiver.Stop()
		a.receiver = nil
	}
	a.clearLocked()
}

func (a *Arbiter) clearLocked() {
	a.strip.Clear()
	if err := a.strip.Commit(); err != nil {
		a.logger.Error("arbiter: clear commit failed", zap.Error(err))
	}
}

// Stop halts whichever activity is currently running and clears the
// strip, leaving the arbiter Idle. Safe to call from any state.
func (a *Arbiter) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case Animating:
		a.anim.End()
	case ReceivingArtNet:
		a.stopReceiverLocked()
	}
	a.clearLocked()
	a.state = Idle
}
