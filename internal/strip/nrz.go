package strip

// nrzMSB4 encodes each input byte as a 4-byte, 32-bit NRZ symbol
// stream: every data bit becomes a 4-bit SPI symbol (1110 for a '1',
// 1000 for a '0'), MSB first. Driven at a 2.5MHz SPI clock this
// approximates WS2812/SK6812 timing closely enough to push a strip
// over an ordinary SPI MOSI line instead of precise PWM+DMA.
var nrzMSB4 = buildNRZTable()

func buildNRZTable() [256][4]byte {
	var table [256][4]byte
	for v := 0; v < 256; v++ {
		var bits [32]byte
		for bit := 0; bit < 8; bit++ {
			dataBit := (v >> uint(7-bit)) & 1
			base := bit * 4
			if dataBit == 1 {
				bits[base], bits[base+1], bits[base+2], bits[base+3] = 1, 1, 1, 0
			} else {
				bits[base], bits[base+1], bits[base+2], bits[base+3] = 1, 0, 0, 0
			}
		}
		var out [4]byte
		for i := 0; i < 4; i++ {
			var b byte
			for j := 0; j < 8; j++ {
				b = b<<1 | bits[i*8+j]
			}
			out[i] = b
		}
		table[v] = out
	}
	return table
}
