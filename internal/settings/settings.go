// Package settings is the reconfiguration surface the rest of the
// core reads from: a merged snapshot of animation, Art-Net, and
// clock-sync configuration, updated by partial patches from whatever
// external channel delivers them (HTTP handler, file watch, mDNS
// payload — the core doesn't care which).
package settings

import (
	"sync"
	"time"

	"github.com/tiko09/ledctrl/internal/animation"
	"github.com/tiko09/ledctrl/internal/artnet"
	"github.com/tiko09/ledctrl/internal/color"
)

// State is the complete, merged configuration at a point in time.
type State struct {
	Animation animation.Settings

	ArtNet       artnet.Config
	EnableArtNet bool

	EnableSync     bool
	SyncMasterMode bool
	SyncInterval   time.Duration
}

// DefaultState is a conservative starting point: animation on,
// Art-Net and sync both off.
func DefaultState() State {
	return State{
		Animation:    animation.DefaultSettings(),
		ArtNet:       artnet.DefaultConfig(),
		EnableArtNet: false,
		EnableSync:   false,
		SyncInterval: 500 * time.Millisecond,
	}
}

// GroupPatch partially updates one group by index. Index must refer to
// an existing group in the current State.Animation.Groups; patches
// targeting an out-of-range index are dropped.
type GroupPatch struct {
	Index      int
	Function   *int
	Speed      *float64
	Scale      *float64
	Palette    *int
	Brightness *float64
	Saturation *float64
	ColorTemp  *float64
	RangeStart *int
	RangeEnd   *int
}

// Patch is a partial update to State: nil fields are left unchanged.
// This mirrors the reconfiguration channel's field list directly —
// every field here corresponds to one entry in that list.
type Patch struct {
	Brightness *float64
	Saturation *float64
	On         *bool
	ColorTemp  *float64
	Correction *color.Correction

	Groups []GroupPatch

	EnableArtNet             *bool
	ArtNetUniverse           *uint16
	ArtNetChannelOffset      *int
	ArtNetGroupSize          *int
	ArtNetFrameInterpolation *string // "none", "average", "lerp"
	ArtNetFrameInterpSize    *int
	ArtNetSpatialSmoothing   *string // "none", "average", "lerp", "gaussian"
	ArtNetSpatialSize        *int

	EnableSync     *bool
	SyncMasterMode *bool
	SyncInterval   *float64 // seconds

	UseWhiteChannel     *bool
	WhiteLEDTemperature *float64
	RGBWAlgorithm       *string // "legacy", "advanced"
}

func parseTemporalMode(s string) artnet.TemporalMode {
	switch s {
	case "average":
		return artnet.TemporalAverage
	case "lerp":
		return artnet.TemporalLerp
	default:
		return artnet.TemporalNone
	}
}

func parseSpatialMode(s string) artnet.SpatialMode {
	switch s {
	case "average":
		return artnet.SpatialAverage
	case "lerp":
		return artnet.SpatialLerp
	case "gaussian":
		return artnet.SpatialGaussian
	default:
		return artnet.SpatialNone
	}
}

func parseAlgorithm(s string) color.Algorithm {
	if s == "advanced" {
		return color.AlgorithmAdvanced
	}
	return color.AlgorithmLegacy
}

// Store holds the current State behind a mutex and notifies
// registered listeners after every successful Apply. Listeners are
// how Apply's effects actually reach the arbiter, animation
// controller, and Art-Net receiver — Store itself only merges data.
type Store struct {
	mu        sync.Mutex
	state     State
	listeners []func(State)
}

// NewStore constructs a Store seeded with initial.
func NewStore(initial State) *Store {
	return &Store{state: initial}
}

// OnChange registers fn to be called with the new state after every
// Apply. fn runs synchronously on the caller's goroutine, so it must
// not block or re-enter Apply.
func (s *Store) OnChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Get returns the current state.
func (s *Store) Get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Apply merges p into the current state and returns the result. Every
// non-nil field in p overwrites the corresponding field; everything
// else is left as-is.
func (s *Store) Apply(p Patch) State {
	s.mu.Lock()
	next := s.state

	if p.Brightness != nil {
		next.Animation.GlobalBrightness = *p.Brightness
	}
	if p.Saturation != nil {
		next.Animation.GlobalSaturation = *p.Saturation
	}
	if p.On != nil {
		next.Animation.On = *p.On
	}
	if p.ColorTemp != nil {
		next.Animation.GlobalColorTemp = *p.ColorTemp
	}
	if p.Correction != nil {
		next.Animation.Correction = *p.Correction
	}
	if p.UseWhiteChannel != nil {
		next.Animation.HasWhite = *p.UseWhiteChannel
	}
	if p.WhiteLEDTemperature != nil {
		next.Animation.WhiteTemp = *p.WhiteLEDTemperature
	}
	if p.RGBWAlgorithm != nil {
		next.Animation.Algorithm = parseAlgorithm(*p.RGBWAlgorithm)
	}

	if len(p.Groups) > 0 {
		groups := make([]animation.Group, len(next.Animation.Groups))
		copy(groups, next.Animation.Groups)
		for _, gp := range p.Groups {
			if gp.Index < 0 || gp.Index >= len(groups) {
				continue
			}
			g := groups[gp.Index]
			if gp.Function != nil {
				g.PatternID = *gp.Function
			}
			if gp.Speed != nil {
				g.Speed = *gp.Speed
			}
			if gp.Scale != nil {
				g.Scale = *gp.Scale
			}
			if gp.Palette != nil {
				g.PaletteID = *gp.Palette
			}
			if gp.Brightness != nil {
				g.Brightness = *gp.Brightness
			}
			if gp.Saturation != nil {
				g.Saturation = *gp.Saturation
			}
			if gp.ColorTemp != nil {
				g.ColorTemp = *gp.ColorTemp
			}
			if gp.RangeStart != nil {
				g.Start = *gp.RangeStart
			}
			if gp.RangeEnd != nil {
				g.End = *gp.RangeEnd
			}
			groups[gp.Index] = g
		}
		next.Animation.Groups = groups
	}

	if p.EnableArtNet != nil {
		next.EnableArtNet = *p.EnableArtNet
	}
	if p.ArtNetUniverse != nil {
		next.ArtNet.Universe = *p.ArtNetUniverse
	}
	if p.ArtNetChannelOffset != nil {
		next.ArtNet.ChannelOffset = *p.ArtNetChannelOffset
	}
	if p.ArtNetGroupSize != nil {
		next.ArtNet.GroupSize = *p.ArtNetGroupSize
	}
	if p.ArtNetFrameInterpolation != nil {
		next.ArtNet.Temporal = parseTemporalMode(*p.ArtNetFrameInterpolation)
	}
	if p.ArtNetFrameInterpSize != nil {
		next.ArtNet.FrameInterpSize = *p.ArtNetFrameInterpSize
	}
	if p.ArtNetSpatialSmoothing != nil {
		next.ArtNet.Spatial = parseSpatialMode(*p.ArtNetSpatialSmoothing)
	}
	if p.ArtNetSpatialSize != nil {
		next.ArtNet.SpatialSize = *p.ArtNetSpatialSize
	}

	if p.EnableSync != nil {
		next.EnableSync = *p.EnableSync
	}
	if p.SyncMasterMode != nil {
		next.SyncMasterMode = *p.SyncMasterMode
	}
	if p.SyncInterval != nil {
		next.SyncInterval = time.Duration(*p.SyncInterval * float64(time.Second))
	}

	s.state = next
	listeners := append([]func(State){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return next
}
