package strip

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"go.bug.st/serial"
)

// Remote render packet layout, adapted from the upstream controller's
// remote-rendering wire format (a leading reserved byte, an opcode, a
// big-endian length, then payload) but carrying already-quantized wire
// bytes instead of float pixels plus correction/saturation/brightness,
// since conversion already happened locally before the satellite hop.
const (
	remoteOpcodeRender byte = 0x01
	remoteHeaderLen         = 8 // reserved, opcode, length(2), start(2), channelsPerLED(2)
)

func encodeRemotePacket(start, channelsPerLED int, wire []byte) []byte {
	pkt := make([]byte, remoteHeaderLen+len(wire))
	pkt[0] = 0x00
	pkt[1] = remoteOpcodeRender
	binary.BigEndian.PutUint16(pkt[2:4], uint16(remoteHeaderLen+len(wire)))
	binary.BigEndian.PutUint16(pkt[4:6], uint16(start))
	binary.BigEndian.PutUint16(pkt[6:8], uint16(channelsPerLED))
	copy(pkt[remoteHeaderLen:], wire)
	return pkt
}

// SerialTransport renders a remote strip attached to another node by
// writing the remote packet format over a serial link, mirroring
// ledcontroller.py's TargetMode.serial path.
type SerialTransport struct {
	port           serial.Port
	channelsPerLED int
}

// NewSerialTransport opens device at baud (115200 in the upstream
// driver) with a 10ms read timeout. Writes have no timeout and block
// until the port accepts the data.
func NewSerialTransport(device string, baud int, channelsPerLED int) (*SerialTransport, error) {
	mode := &serial.Mode{BaudRate: baud}
	port, err := serial.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("strip: open serial %s: %w", device, err)
	}
	if err := port.SetReadTimeout(10 * time.Millisecond); err != nil {
		port.Close()
		return nil, fmt.Errorf("strip: set serial read timeout: %w", err)
	}
	return &SerialTransport{port: port, channelsPerLED: channelsPerLED}, nil
}

func (t *SerialTransport) Render(buf []byte) error {
	pkt := encodeRemotePacket(0, t.channelsPerLED, buf)
	if _, err := t.port.Write(pkt); err != nil {
		return fmt.Errorf("strip: serial write: %w", err)
	}
	return nil
}

func (t *SerialTransport) Close() error {
	return t.port.Close()
}

// UDPTransport renders a remote strip over plain UDP, mirroring
// ledcontroller.py's TargetMode.udp path — for a satellite board with
// no animation pipeline of its own, just a receiver and a strip.
type UDPTransport struct {
	conn           *net.UDPConn
	channelsPerLED int
}

// NewUDPTransport resolves addr ("host:port") once and keeps the
// socket open across Render calls.
func NewUDPTransport(addr string, channelsPerLED int) (*UDPTransport, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("strip: resolve %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("strip: dial %s: %w", addr, err)
	}
	return &UDPTransport{conn: conn, channelsPerLED: channelsPerLED}, nil
}

func (t *UDPTransport) Render(buf []byte) error {
	pkt := encodeRemotePacket(0, t.channelsPerLED, buf)
	if _, err := t.conn.Write(pkt); err != nil {
		return fmt.Errorf("strip: udp write: %w", err)
	}
	return nil
}

func (t *UDPTransport) Close() error {
	return t.conn.Close()
}
