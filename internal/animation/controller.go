// Package animation runs the per-frame rendering loop: evaluate every
// group's pattern across its pixel range, compose brightness,
// saturation, and color-temperature correction, and commit the result
// to the strip at a steady refresh rate.
package animation

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/tiko09/ledctrl/internal/color"
	"github.com/tiko09/ledctrl/internal/pattern"
	"github.com/tiko09/ledctrl/internal/strip"
)

// Visualizer receives a throttled copy of the rendered float frame for
// remote preview. Publish must not block the animation loop; slow
// consumers should drop frames rather than apply backpressure.
type Visualizer interface {
	Publish(frame []color.RGB)
}

// Controller owns one strip's animation loop. Zero value is not usable;
// construct with New.
type Controller struct {
	strip    *strip.Strip
	registry *pattern.Registry
	mapping  Mapping
	logger   *zap.Logger

	settings atomic.Pointer[Settings]

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	animTimeBits   atomic.Uint64
	resetRequested atomic.Bool

	fps *fpsWindow

	visualizer     Visualizer
	lastVisPublish time.Time

	errCh     chan error
	prevState []pattern.State
	floatBuf  []color.RGB // scratch for visualizer hand-off
}

// New constructs a Controller for a strip of s.Len() pixels. registry
// supplies pattern evaluation; mapping computes each pixel's (x,y,z).
// Pass a nil visualizer to skip the hand-off step entirely.
func New(s *strip.Strip, registry *pattern.Registry, mapping Mapping, initial Settings, logger *zap.Logger, vis Visualizer) *Controller {
	if mapping == nil {
		mapping = LineMapping
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		strip:      s,
		registry:   registry,
		mapping:    mapping,
		logger:     logger,
		fps:        newFPSWindow(64),
		visualizer: vis,
		errCh:      make(chan error, 16),
		prevState:  make([]pattern.State, s.Len()),
		floatBuf:   make([]color.RGB, s.Len()),
	}
	c.settings.Store(&initial)
	return c
}

// Errors returns the channel per-frame and per-thread errors are
// reported on. Readers must drain it; while the channel is full, new
// reports are dropped silently rather than blocking the animation loop.
func (c *Controller) Errors() <-chan error { return c.errCh }

func (c *Controller) reportErr(err error) {
	select {
	case c.errCh <- err:
	default:
	}
}

// UpdateSettings atomically swaps in new, taking effect at the start
// of the next frame.
func (c *Controller) UpdateSettings(s Settings) {
	c.settings.Store(&s)
}

// Settings returns the currently active settings snapshot.
func (c *Controller) Settings() Settings {
	return *c.settings.Load()
}

// SetAnimationTime overrides the internal clock, used by the
// animation-clock sync protocol to phase-lock slave nodes.
func (c *Controller) SetAnimationTime(t float64) {
	c.animTimeBits.Store(math.Float64bits(t))
}

// GetAnimationTime reads the internal clock.
func (c *Controller) GetAnimationTime() float64 {
	return math.Float64frombits(c.animTimeBits.Load())
}

// ResetTimer zeroes the animation clock at the start of the next frame.
func (c *Controller) ResetTimer() {
	c.resetRequested.Store(true)
}

// ClearLEDs zeros the strip and commits immediately. Safe to call
// whether or not the loop is running.
func (c *Controller) ClearLEDs() error {
	c.strip.Clear()
	return c.strip.Commit()
}

// Begin starts the animation goroutine at the configured refresh rate.
// Calling Begin while already running is a no-op.
func (c *Controller) Begin() {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	if c.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.wg.Add(1)
	go c.run(ctx)
}

// End stops the animation goroutine and blocks until it exits, with a
// bounded grace period so a wedged render can't hang shutdown forever.
func (c *Controller) End() {
	c.lifecycleMu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.lifecycleMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		c.logger.Warn("animation loop did not exit within grace period")
	}
}

func (c *Controller) run(ctx context.Context) {
	defer c.wg.Done()

	start := time.Now()
	lastWall := start
	frameIndex := uint64(0)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		s := c.settings.Load()
		period := time.Second
		if s.RefreshRate > 0 {
			period = time.Duration(float64(time.Second) / s.RefreshRate)
		}

		now := time.Now()
		dt := now.Sub(lastWall).Seconds()
		lastWall = now

		if c.resetRequested.CompareAndSwap(true, false) {
			c.animTimeBits.Store(math.Float64bits(0))
			dt = 0
		}

		if s.On {
			t := c.GetAnimationTime() + dt
			c.animTimeBits.Store(math.Float64bits(t))
			if err := c.renderFrame(s, t, dt); err != nil {
				c.reportErr(err)
				c.logger.Error("strip commit failed, stopping animation", zap.Error(err))
				return
			}
			c.fps.record(dt)
			c.maybePublishVisualizer(s, now)
		} else if err := c.ClearLEDs(); err != nil {
			c.reportErr(err)
			return
		}

		frameIndex++
		deadline := start.Add(time.Duration(frameIndex) * period)
		sleep := time.Until(deadline)
		if sleep < 0 {
			continue // frame ran long: don't accumulate drift, just catch up
		}
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (c *Controller) renderFrame(s *Settings, t, dt float64) error {
	n := c.strip.Len()
	for _, g := range s.Groups {
		start := g.Start
		end := g.End
		if start < 0 {
			start = 0
		}
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}

		pat, ok := c.registry.Get(g.PatternID)
		if !ok {
			continue
		}
		var pal *pattern.Palette
		if s.Palettes != nil {
			pal = s.Palettes[g.PaletteID]
		}
		params := effectiveParams(s, &g)
		tScaled := t * g.Speed

		switch pat.Mode {
		case color.ModeRGB:
			pixels := make([]color.RGB, end-start)
			for i := start; i < end; i++ {
				px := c.evalRGB(pat, g, i, tScaled, dt, pal)
				pixels[i-start] = px
				c.floatBuf[i] = px
			}
			c.strip.SetRange(start, pixels, params)
		default:
			pixels := make([]color.HSV, end-start)
			for i := start; i < end; i++ {
				px := c.evalHSV(pat, g, i, tScaled, dt, pal)
				pixels[i-start] = px
				c.floatBuf[i] = hsvToRGBFloat(px)
			}
			c.strip.SetRangeHSV(start, pixels, params)
		}
	}
	return c.strip.Commit()
}

func (c *Controller) evalHSV(pat pattern.Pattern, g Group, i int, tScaled, dt float64, pal *pattern.Palette) color.HSV {
	out := c.evalPixel(pat, g, i, tScaled, dt, pal)
	return out.HSV
}

func (c *Controller) evalRGB(pat pattern.Pattern, g Group, i int, tScaled, dt float64, pal *pattern.Palette) color.RGB {
	out := c.evalPixel(pat, g, i, tScaled, dt, pal)
	return out.RGB
}

func (c *Controller) evalPixel(pat pattern.Pattern, g Group, i int, tScaled, dt float64, pal *pattern.Palette) (out pattern.Output) {
	defer func() {
		if r := recover(); r != nil {
			c.reportErr(fmt.Errorf("animation: pattern %q panicked at pixel %d: %v", pat.Name, i, r))
			out = pattern.Output{Mode: pat.Mode}
		}
	}()
	x, y, z := c.mapping(i, c.strip.Len())
	in := pattern.Input{
		X: x, Y: y, Z: z,
		TScaled: tScaled,
		DT:      dt,
		Scale:   g.Scale,
		Palette: pal,
		Prev:    c.prevState[i],
	}
	out = pat.Eval(in)
	c.prevState[i] = out.State
	return out
}

func (c *Controller) maybePublishVisualizer(s *Settings, now time.Time) {
	if c.visualizer == nil || s.VisualizerHz <= 0 {
		return
	}
	minInterval := time.Duration(float64(time.Second) / s.VisualizerHz)
	if now.Sub(c.lastVisPublish) < minInterval {
		return
	}
	c.lastVisPublish = now
	c.visualizer.Publish(c.floatBuf)
}

// FrameRate returns the achieved frame rate averaged over a moving
// window of recent frames.
func (c *Controller) FrameRate() float64 {
	return c.fps.rate()
}

// hsvToRGBFloat is the canonical HSV cone, used only for the
// visualizer preview buffer — the wire path always uses the rainbow
// spectrum in internal/color, but a preview doesn't need to match it
// pixel-for-pixel.
func hsvToRGBFloat(hsv color.HSV) color.RGB {
	h := hsv.H*6 - math.Floor(hsv.H*6)
	i := int(hsv.H*6) % 6
	if i < 0 {
		i += 6
	}
	v, s := hsv.V, hsv.S
	p := v * (1 - s)
	q := v * (1 - s*h)
	t := v * (1 - s*(1-h))
	switch i {
	case 0:
		return color.RGB{R: v, G: t, B: p}
	case 1:
		return color.RGB{R: q, G: v, B: p}
	case 2:
		return color.RGB{R: p, G: v, B: t}
	case 3:
		return color.RGB{R: p, G: q, B: v}
	case 4:
		return color.RGB{R: t, G: p, B: v}
	default:
		return color.RGB{R: v, G: p, B: q}
	}
}
