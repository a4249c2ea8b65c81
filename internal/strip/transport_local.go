package strip

import (
	"fmt"

	"github.com/tiko09/ledctrl/internal/hal"
)

// spiClockHz is the WS2812/SK6812-compatible NRZ bit rate: 4 SPI bits
// per data bit, so a 625kHz data rate.
const spiClockHz = 2500000

// LocalTransport drives a strip directly attached to this node's SPI
// bus through the HAL, the in-scope default RenderTarget.
type LocalTransport struct {
	spi    hal.SPIProvider
	scratch []byte
}

// NewLocalTransport opens bus/device on h's SPI provider at the
// WS2812-compatible clock and 8 bits per word.
func NewLocalTransport(h hal.HAL, bus, device int) (*LocalTransport, error) {
	dev := h.SPI()
	if err := dev.Open(bus, device); err != nil {
		return nil, fmt.Errorf("strip: open SPI bus %d device %d: %w", bus, device, err)
	}
	if err := dev.SetSpeed(spiClockHz); err != nil {
		return nil, fmt.Errorf("strip: set SPI speed: %w", err)
	}
	if err := dev.SetMode(0); err != nil {
		return nil, fmt.Errorf("strip: set SPI mode: %w", err)
	}
	if err := dev.SetBitsPerWord(8); err != nil {
		return nil, fmt.Errorf("strip: set SPI bits per word: %w", err)
	}
	return &LocalTransport{spi: dev}, nil
}

// Render NRZ-encodes buf (already in the strip's wire channel order)
// and shifts it out over SPI, with a trailing latch gap.
func (t *LocalTransport) Render(buf []byte) error {
	const latchBytes = 16 // >50us of low time: 3.2us per byte at 2.5MHz
	need := len(buf)*4 + latchBytes
	if cap(t.scratch) < need {
		t.scratch = make([]byte, need)
	}
	out := t.scratch[:need]
	for i, v := range buf {
		sym := nrzMSB4[v]
		copy(out[i*4:i*4+4], sym[:])
	}
	for i := len(buf) * 4; i < need; i++ {
		out[i] = 0
	}
	if _, err := t.spi.Transfer(out); err != nil {
		return fmt.Errorf("strip: SPI transfer: %w", err)
	}
	return nil
}

// Close releases the SPI device.
func (t *LocalTransport) Close() error {
	return t.spi.Close()
}
