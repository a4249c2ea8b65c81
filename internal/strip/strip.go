// Package strip holds the wire-ready pixel buffer for one physical (or
// remote) LED strip and the Transport that pushes it to hardware.
// Channel reordering happens on write, so the buffer is always in wire
// order and Commit never has to reason about color order.
package strip

import (
	"fmt"
	"sync"

	"github.com/tiko09/ledctrl/internal/color"
)

// ChannelOrder enumerates every channel permutation a WS2812/SK6812
// strip can be wired in. RGB orders have no white byte; RGBW orders
// reserve a fourth byte per pixel for it.
type ChannelOrder int

const (
	OrderRGB ChannelOrder = iota
	OrderRBG
	OrderGRB
	OrderGBR
	OrderBRG
	OrderBGR
	OrderRGBW
	OrderRBGW
	OrderGRBW
	OrderGBRW
	OrderBRGW
	OrderBGRW
)

// HasWhite reports whether the order carries a fourth, white byte.
func (o ChannelOrder) HasWhite() bool {
	return o >= OrderRGBW
}

// ChannelsPerLED is 3 for RGB orders, 4 for RGBW orders.
func (o ChannelOrder) ChannelsPerLED() int {
	if o.HasWhite() {
		return 4
	}
	return 3
}

// reorder maps a canonical (r,g,b,w) tuple to wire-order bytes.
func (o ChannelOrder) reorder(r, g, b, w uint8) []byte {
	switch o {
	case OrderRGB:
		return []byte{r, g, b}
	case OrderRBG:
		return []byte{r, b, g}
	case OrderGRB:
		return []byte{g, r, b}
	case OrderGBR:
		return []byte{g, b, r}
	case OrderBRG:
		return []byte{b, r, g}
	case OrderBGR:
		return []byte{b, g, r}
	case OrderRGBW:
		return []byte{r, g, b, w}
	case OrderRBGW:
		return []byte{r, b, g, w}
	case OrderGRBW:
		return []byte{g, r, b, w}
	case OrderGBRW:
		return []byte{g, b, r, w}
	case OrderBRGW:
		return []byte{b, r, g, w}
	case OrderBGRW:
		return []byte{b, g, r, w}
	default:
		return []byte{r, g, b}
	}
}

// Transport pushes a wire-ready buffer to its destination, local
// hardware or a remote satellite node. Implementations must not retain
// the slice passed to Render across calls.
type Transport interface {
	// Render pushes buf (already in the strip's wire channel order) to
	// the destination. It must be safe to call at the strip's target
	// refresh rate.
	Render(buf []byte) error
	// Close releases any transport-owned resources (file descriptors,
	// sockets, serial ports).
	Close() error
}

// Strip is a fixed-length, channel-order-aware pixel buffer and its
// output transport. The buffer length is fixed at construction; every
// Set* operation writes directly in wire order so Commit never
// reinterprets the buffer.
type Strip struct {
	mu        sync.Mutex
	count     int
	order     ChannelOrder
	buf       []byte
	transport Transport
}

// New constructs a Strip of count pixels using order and transport.
// transport may be nil for a buffer-only strip (useful in tests or as a
// staging strip fed to a RenderTarget).
func New(count int, order ChannelOrder, transport Transport) *Strip {
	return &Strip{
		count:     count,
		order:     order,
		buf:       make([]byte, count*order.ChannelsPerLED()),
		transport: transport,
	}
}

// Len returns the pixel count.
func (s *Strip) Len() int { return s.count }

// ChannelOrder returns the configured wire order.
func (s *Strip) ChannelOrder() ChannelOrder { return s.order }

// SetPixel writes one already-packed RGBW word at index. Out-of-range
// indices are silently ignored, matching the fail-silent contract of
// the original driver's per-pixel write path.
func (s *Strip) SetPixel(index int, px color.Packed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setPixelLocked(index, px)
}

func (s *Strip) setPixelLocked(index int, px color.Packed) {
	if index < 0 || index >= s.count {
		return
	}
	r, g, b, w := px.RGBW()
	wire := s.order.reorder(r, g, b, w)
	off := index * s.order.ChannelsPerLED()
	copy(s.buf[off:off+len(wire)], wire)
}

// SetRange runs each float pixel through the color package with params
// and writes the result starting at start. Indices outside [0, Len())
// are clipped.
func (s *Strip) SetRange(start int, pixels []color.RGB, params color.Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, px := range pixels {
		idx := start + i
		if idx < 0 || idx >= s.count {
			continue
		}
		s.setPixelLocked(idx, color.RenderRGB(px, params))
	}
}

// SetRangeHSV is SetRange's HSV counterpart.
func (s *Strip) SetRangeHSV(start int, pixels []color.HSV, params color.Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, px := range pixels {
		idx := start + i
		if idx < 0 || idx >= s.count {
			continue
		}
		s.setPixelLocked(idx, color.RenderHSV(px, params))
	}
}

// SetBulkBytes writes already-quantized bytes starting at pixel start,
// used by the Art-Net path to avoid a redundant float round trip. data
// must already be in this strip's channel order (RGB or RGBW matching
// HasWhite); any trailing partial pixel is discarded.
func (s *Strip) SetBulkBytes(data []byte, start int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cpl := s.order.ChannelsPerLED()
	fullPixels := len(data) / cpl
	for i := 0; i < fullPixels; i++ {
		idx := start + i
		if idx < 0 || idx >= s.count {
			continue
		}
		off := idx * cpl
		copy(s.buf[off:off+cpl], data[i*cpl:i*cpl+cpl])
	}
}

// Clear zeros the buffer without pushing it to the transport.
func (s *Strip) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.buf {
		s.buf[i] = 0
	}
}

// Commit pushes the current buffer to the transport. It is atomic from
// the LEDs' viewpoint: the transport receives one contiguous snapshot
// per call, never a partially-updated buffer.
func (s *Strip) Commit() error {
	s.mu.Lock()
	snapshot := make([]byte, len(s.buf))
	copy(snapshot, s.buf)
	s.mu.Unlock()

	if s.transport == nil {
		return nil
	}
	if err := s.transport.Render(snapshot); err != nil {
		return fmt.Errorf("strip: commit: %w", err)
	}
	return nil
}

// Close releases the underlying transport.
func (s *Strip) Close() error {
	if s.transport == nil {
		return nil
	}
	return s.transport.Close()
}
