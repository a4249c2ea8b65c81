// Package clocksync keeps the animation clock phase-locked across a
// set of nodes over UDP: one master broadcasts its animation time
// periodically, and any number of slaves jump their own clock to match
// every packet they receive. There is no drift estimation or
// interpolation — a small time jump is judged less visible than
// accumulated drift between nodes running the same continuous
// pattern.
package clocksync

import (
	"context"
	"encoding/binary"
	"math"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Port is the UDP port the sync protocol uses.
const Port = 6455

var magic = [8]byte{'L', 'E', 'D', 'S', 'Y', 'N', 'C', 0}

const packetLen = 20 // 8 magic + 4 sequence + 8 time

// AnimationClock is the subset of animation.Controller the sync
// component needs.
type AnimationClock interface {
	GetAnimationTime() float64
	SetAnimationTime(t float64)
}

func encode(seq uint32, t float64) []byte {
	buf := make([]byte, packetLen)
	copy(buf[0:8], magic[:])
	binary.LittleEndian.PutUint32(buf[8:12], seq)
	binary.LittleEndian.PutUint64(buf[12:20], math.Float64bits(t))
	return buf
}

func decode(buf []byte) (seq uint32, t float64, ok bool) {
	if len(buf) < packetLen {
		return 0, 0, false
	}
	for i := 0; i < 8; i++ {
		if buf[i] != magic[i] {
			return 0, 0, false
		}
	}
	seq = binary.LittleEndian.Uint32(buf[8:12])
	t = math.Float64frombits(binary.LittleEndian.Uint64(buf[12:20]))
	return seq, t, true
}

// Master broadcasts the animation clock's current time to the local
// broadcast address every interval.
type Master struct {
	clock    AnimationClock
	interval time.Duration
	logger   *zap.Logger

	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewMaster constructs a Master. interval <= 0 falls back to the
// protocol default of 500ms.
func NewMaster(clock AnimationClock, interval time.Duration, logger *zap.Logger) *Master {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Master{clock: clock, interval: interval, logger: logger}
}

// Start begins broadcasting in a goroutine. A call while already
// running is a no-op.
func (m *Master) Start() error {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()
	if m.cancel != nil {
		return nil
	}
	// Bind an ephemeral local port; the destination address below is
	// the broadcast address, not this socket's own address.
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return err
	}
	dest, err := net.ResolveUDPAddr("udp4", "255.255.255.255:6455")
	if err != nil {
		conn.Close()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)
	go m.run(ctx, conn, dest)
	return nil
}

func (m *Master) run(ctx context.Context, conn *net.UDPConn, dest *net.UDPAddr) {
	defer m.wg.Done()
	defer conn.Close()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	var seq uint32
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pkt := encode(seq, m.clock.GetAnimationTime())
			if _, err := conn.WriteToUDP(pkt, dest); err != nil {
				m.logger.Warn("clocksync: broadcast failed", zap.Error(err))
			}
			seq++
		}
	}
}

// Stop halts broadcasting, tolerating a broadcast already in flight.
func (m *Master) Stop() {
	stopWithTimeout(&m.lifecycleMu, &m.cancel, &m.wg, m.logger, "master")
}

// Slave listens on Port and jumps clock's animation time to match
// every well-formed packet received.
type Slave struct {
	clock  AnimationClock
	logger *zap.Logger

	lifecycleMu sync.Mutex
	conn        *net.UDPConn
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewSlave constructs a Slave.
func NewSlave(clock AnimationClock, logger *zap.Logger) *Slave {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Slave{clock: clock, logger: logger}
}

// Start binds the socket and begins listening in a goroutine. A call
// while already running is a no-op.
func (s *Slave) Start() error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()
	if s.conn != nil {
		return nil
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: Port})
	if err != nil {
		return err
	}
	s.conn = conn

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.run(ctx, conn)
	return nil
}

func (s *Slave) run(ctx context.Context, conn *net.UDPConn) {
	defer s.wg.Done()
	buf := make([]byte, 64)
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
			s.logger.Warn("clocksync: socket read error, stopping slave", zap.Error(err))
			return
		}
		if _, t, ok := decode(buf[:n]); ok {
			s.clock.SetAnimationTime(t)
		}
	}
}

// Stop closes the socket and waits up to one second for the listen
// goroutine to exit.
func (s *Slave) Stop() {
	s.lifecycleMu.Lock()
	conn := s.conn
	cancel := s.cancel
	s.conn = nil
	s.cancel = nil
	s.lifecycleMu.Unlock()

	if conn == nil {
		return
	}
	if cancel != nil {
		cancel()
	}
	conn.Close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		s.logger.Warn("clocksync: slave did not exit within grace period")
	}
}

func stopWithTimeout(mu *sync.Mutex, cancelField *context.CancelFunc, wg *sync.WaitGroup, logger *zap.Logger, who string) {
	mu.Lock()
	cancel := *cancelField
	*cancelField = nil
	mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		logger.Warn("clocksync: did not exit within grace period", zap.String("role", who))
	}
}
