// Package artnet receives Art-Net DMX frames over UDP and applies them
// to a strip, with optional temporal and spatial smoothing between the
// coarse-grained DMX universe and the fine-grained LED buffer.
package artnet

import (
	"context"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tiko09/ledctrl/internal/color"
	"github.com/tiko09/ledctrl/internal/strip"
)

// Config is a Receiver's full, immutable-per-instance configuration.
// Live reconfiguration is done by building a new Receiver and swapping
// it in at the arbiter level, not by mutating a running one.
type Config struct {
	Universe       uint16
	ChannelOffset   int // bytes to skip at the start of the DMX payload
	ChannelsPerLED int // 3 (RGB) or 4 (RGBW)
	GroupSize      int // physical LEDs lit per DMX pixel, minimum 1

	Temporal         TemporalMode
	FrameInterpSize  int // temporal ring-buffer depth, minimum 1

	Spatial     SpatialMode
	SpatialSize int // convolution window width, forced odd

	// MetricsInterval controls how often FPS / packet-interval stats
	// are logged. Zero disables periodic logging.
	MetricsInterval time.Duration
}

// DefaultConfig matches the reference receiver's defaults: RGB,
// group size 1, no temporal or spatial smoothing.
func DefaultConfig() Config {
	return Config{
		Universe:        0,
		ChannelsPerLED:  3,
		GroupSize:       1,
		Temporal:        TemporalNone,
		FrameInterpSize: 1,
		Spatial:         SpatialNone,
		SpatialSize:     3,
		MetricsInterval: 10 * time.Second,
	}
}

// Receiver listens for ArtDMX packets on Port and writes the decoded
// pixels to a strip.
type Receiver struct {
	cfg    Config
	strip  *strip.Strip
	logger *zap.Logger

	temporal *temporalFilter

	lifecycleMu sync.Mutex
	conn        *net.UDPConn
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	statsMu       sync.Mutex
	packetCount   uint64
	droppedCount  uint64
	lastPacket    time.Time
	intervalSum   time.Duration
	intervalCount uint64

	crashed chan struct{} // closed whenever run() exits, whether from a socket error or a deliberate Stop
}

// Crashed returns a channel that closes when the receive loop exits,
// whether from a socket error or a deliberate Stop. Callers that only
// care about the unsolicited case (the arbiter's automatic fallback to
// animation) should check they still own this *Receiver before acting
// on it, since a deliberate Stop closes it too.
func (r *Receiver) Crashed() <-chan struct{} {
	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()
	return r.crashed
}

// New constructs a Receiver. s's pixel count bounds how many physical
// LEDs a DMX universe can address; excess groups are silently dropped.
func New(cfg Config, s *strip.Strip, logger *zap.Logger) *Receiver {
	if cfg.GroupSize < 1 {
		cfg.GroupSize = 1
	}
	if cfg.FrameInterpSize < 1 {
		cfg.FrameInterpSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	channels := s.Len() * cfg.ChannelsPerLED
	return &Receiver{
		cfg:      cfg,
		strip:    s,
		logger:   logger,
		temporal: newTemporalFilter(cfg.Temporal, cfg.FrameInterpSize, channels),
	}
}

// Start binds the UDP socket and begins the receive loop in a
// goroutine. Calling Start while already running is a no-op.
func (r *Receiver) Start() error {
	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()
	if r.conn != nil {
		return nil
	}
	addr := &net.UDPAddr{IP: net.IPv4zero, Port: Port}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return err
	}
	r.conn = conn
	r.crashed = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.wg.Add(1)
	go r.run(ctx, conn)
	if r.cfg.MetricsInterval > 0 {
		r.wg.Add(1)
		go r.logMetricsPeriodically(ctx)
	}
	return nil
}

// Stop closes the socket and waits up to two seconds for the receive
// goroutine to exit, matching every other long-lived thread's bounded
// shutdown contract.
func (r *Receiver) Stop() {
	r.lifecycleMu.Lock()
	conn := r.conn
	cancel := r.cancel
	r.conn = nil
	r.cancel = nil
	r.lifecycleMu.Unlock()

	if conn == nil {
		return
	}
	if cancel != nil {
		cancel()
	}
	conn.Close() // unblocks the pending ReadFromUDP in run()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		r.logger.Warn("artnet receiver did not exit within grace period")
	}
}

func (r *Receiver) logMetricsPeriodically(ctx context.Context) {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.MetricsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.logMetrics()
		}
	}
}

func (r *Receiver) run(ctx context.Context, conn *net.UDPConn) {
	defer r.wg.Done()
	defer close(r.crashed)

	buf := make([]byte, 2048)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			r.logger.Warn("artnet: socket read error, stopping receiver", zap.Error(err))
			return
		}

		r.recordPacketArrival()
		fr, ok := parseFrame(buf[:n], r.cfg.Universe)
		if !ok {
			r.statsMu.Lock()
			r.droppedCount++
			r.statsMu.Unlock()
			continue
		}
		r.applyFrame(fr)
	}
}

func (r *Receiver) recordPacketArrival() {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	now := time.Now()
	if !r.lastPacket.IsZero() {
		r.intervalSum += now.Sub(r.lastPacket)
		r.intervalCount++
	}
	r.lastPacket = now
	r.packetCount++
}

// applyFrame decodes one ArtDMX payload into physical LED pixels:
// skip the configured channel offset, read one DMX pixel's worth of
// channels at a time, expand every DMX pixel across groupSize physical
// LEDs, run each physical channel through the temporal filter,
// optionally spatial-smooth the whole resulting frame, then write the
// LEDs that received data and commit.
func (r *Receiver) applyFrame(fr frame) {
	cpl := r.cfg.ChannelsPerLED
	offset := r.cfg.ChannelOffset
	if offset < 0 || offset >= len(fr.data) {
		return
	}
	payload := fr.data[offset:]
	dmxPixels := len(payload) / cpl
	if dmxPixels == 0 {
		return
	}

	ledCount := r.strip.Len()
	values := make([]float64, ledCount*cpl)
	written := make([]bool, ledCount)

	for dp := 0; dp < dmxPixels; dp++ {
		base := dp * r.cfg.GroupSize
		if base >= ledCount {
			break
		}
		limit := base + r.cfg.GroupSize
		if limit > ledCount {
			limit = ledCount
		}
		for led := base; led < limit; led++ {
			for c := 0; c < cpl; c++ {
				channel := led*cpl + c
				raw := float64(payload[dp*cpl+c])
				values[channel] = r.temporal.apply(channel, raw)
			}
			written[led] = true
		}
	}

	if r.cfg.Spatial != SpatialNone {
		values = spatialSmooth(values, cpl, r.cfg.Spatial, r.cfg.SpatialSize)
	}

	for led := 0; led < ledCount; led++ {
		if !written[led] {
			continue
		}
		off := led * cpl
		r8 := clampByte(values[off])
		g8 := clampByte(values[off+1])
		b8 := clampByte(values[off+2])
		var w8 byte
		if cpl == 4 {
			w8 = clampByte(values[off+3])
		}
		r.strip.SetPixel(led, color.Pack(r8, g8, b8, w8))
	}
	if err := r.strip.Commit(); err != nil {
		r.logger.Error("artnet: strip commit failed", zap.Error(err))
	}
}

func clampByte(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v + 0.5)
}

func (r *Receiver) logMetrics() {
	r.statsMu.Lock()
	packets := r.packetCount
	dropped := r.droppedCount
	var avgInterval time.Duration
	if r.intervalCount > 0 {
		avgInterval = r.intervalSum / time.Duration(r.intervalCount)
	}
	r.statsMu.Unlock()

	fps := 0.0
	if avgInterval > 0 {
		fps = float64(time.Second) / float64(avgInterval)
	}
	r.logger.Info("artnet receiver stats",
		zap.Uint64("packets", packets),
		zap.Uint64("dropped", dropped),
		zap.Duration("avg_packet_interval", avgInterval),
		zap.Float64("fps", fps),
	)
}

// Stats is a snapshot of the receiver's operational counters.
type Stats struct {
	Packets     uint64
	Dropped     uint64
	AvgInterval time.Duration
}

// GetStats returns the current operational counters.
func (r *Receiver) GetStats() Stats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	var avg time.Duration
	if r.intervalCount > 0 {
		avg = r.intervalSum / time.Duration(r.intervalCount)
	}
	return Stats{Packets: r.packetCount, Dropped: r.droppedCount, AvgInterval: avg}
}
