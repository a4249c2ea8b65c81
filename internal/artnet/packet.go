package artnet

import "encoding/binary"

// Port is the UDP port the Art-Net protocol is defined to use.
const Port = 6454

var header = [8]byte{'A', 'r', 't', '-', 'N', 'e', 't', 0}

const opCodeDMX = 0x5000

// packetHeaderLen is the number of bytes preceding the DMX payload:
// 8-byte magic, 2-byte opcode, 1-byte protocol-version-high (unused
// here), 1-byte protocol-version-low (unused), 1-byte sequence, 1-byte
// physical port (unused), 2-byte universe, 2-byte length.
const packetHeaderLen = 18

// frame is a parsed, validated ArtDMX packet.
type frame struct {
	sequence byte
	universe uint16
	data     []byte
}

// parseFrame validates buf as an ArtDMX packet addressed to universe
// wantUniverse and extracts its DMX payload. It returns ok=false for
// anything that isn't a well-formed, matching ArtDMX packet — short
// reads, bad magic, a different opcode, or a different universe are
// all silently dropped by the caller, never fatal.
func parseFrame(buf []byte, wantUniverse uint16) (frame, bool) {
	if len(buf) < packetHeaderLen {
		return frame{}, false
	}
	for i := 0; i < 8; i++ {
		if buf[i] != header[i] {
			return frame{}, false
		}
	}
	opcode := binary.LittleEndian.Uint16(buf[8:10])
	if opcode != opCodeDMX {
		return frame{}, false
	}
	sequence := buf[12]
	universe := binary.LittleEndian.Uint16(buf[14:16])
	if universe != wantUniverse {
		return frame{}, false
	}
	length := binary.BigEndian.Uint16(buf[16:18])
	available := len(buf) - packetHeaderLen
	n := int(length)
	if n > available {
		n = available
	}
	if n > 512 {
		n = 512
	}
	return frame{sequence: sequence, universe: universe, data: buf[packetHeaderLen : packetHeaderLen+n]}, true
}
