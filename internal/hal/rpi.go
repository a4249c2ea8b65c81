package hal

import (
	"fmt"
	"sync"

	"go.bug.st/serial"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	spidrv "periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// RaspberryPiHAL is the production HAL for a Pi driving one or more
// physical LED strips: the strip's NRZ-encoded pixel data rides the
// SPI bus (see internal/strip.LocalTransport), GPIO carries auxiliary
// signals (buttons, status LEDs, relay-switched strip power), and I2C
// or Serial reach accessory sensors or satellite boards.
type RaspberryPiHAL struct {
	mu   sync.Mutex
	info BoardInfo
	gpio *GpiocdevGPIO
}

// NewRaspberryPiHAL detects the board model, opens its GPIO character
// device, and returns a HAL ready to drive a strip attached locally.
func NewRaspberryPiHAL() (*RaspberryPiHAL, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("hal: initialize periph.io: %w", err)
	}

	info, err := DetectBoard()
	if err != nil {
		return nil, fmt.Errorf("hal: detect board: %w", err)
	}

	gpio, err := NewGpiocdevGPIO(info.GPIOChip)
	if err != nil {
		return nil, fmt.Errorf("hal: open GPIO chip %s: %w", info.GPIOChip, err)
	}

	return &RaspberryPiHAL{info: *info, gpio: gpio}, nil
}

func (h *RaspberryPiHAL) GPIO() GPIOProvider     { return h.gpio }
func (h *RaspberryPiHAL) I2C() I2CProvider       { return &piI2C{} }
func (h *RaspberryPiHAL) SPI() SPIProvider       { return &piSPI{} }
func (h *RaspberryPiHAL) Serial() SerialProvider { return &piSerial{} }
func (h *RaspberryPiHAL) Info() BoardInfo        { return h.info }

func (h *RaspberryPiHAL) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.gpio.Close()
}

// piSPI adapts periph.io's spi.Conn to SPIProvider. LocalTransport
// drives it at the WS2812/SK6812 NRZ clock (see
// internal/strip.spiClockHz) but the defaults here are plain SPI
// mode-0 byte transfers; the NRZ encoding itself happens in the
// caller before bytes reach Transfer.
type piSPI struct {
	mu    sync.Mutex
	port  spidrv.PortCloser
	conn  spidrv.Conn
	speed physic.Frequency
	mode  spidrv.Mode
	bits  int
}

func (s *piSPI) Open(bus, device int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	port, err := spireg.Open(fmt.Sprintf("SPI%d.%d", bus, device))
	if err != nil {
		return fmt.Errorf("hal: open SPI%d.%d: %w", bus, device, err)
	}
	s.port = port
	s.speed = 2500 * physic.KiloHertz
	s.mode = spidrv.Mode0
	s.bits = 8
	return s.connectLocked()
}

func (s *piSPI) connectLocked() error {
	if s.port == nil {
		return fmt.Errorf("hal: SPI port not open")
	}
	conn, err := s.port.Connect(s.speed, s.mode, s.bits)
	if err != nil {
		return fmt.Errorf("hal: connect SPI: %w", err)
	}
	s.conn = conn
	return nil
}

func (s *piSPI) Transfer(data []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, fmt.Errorf("hal: SPI not open")
	}
	read := make([]byte, len(data))
	if err := s.conn.Tx(data, read); err != nil {
		return nil, fmt.Errorf("hal: SPI transfer: %w", err)
	}
	return read, nil
}

func (s *piSPI) SetSpeed(speed int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed = physic.Frequency(speed) * physic.Hertz
	return s.connectLocked()
}

func (s *piSPI) SetMode(mode byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch mode {
	case 0:
		s.mode = spidrv.Mode0
	case 1:
		s.mode = spidrv.Mode1
	case 2:
		s.mode = spidrv.Mode2
	case 3:
		s.mode = spidrv.Mode3
	default:
		return fmt.Errorf("hal: unsupported SPI mode %d", mode)
	}
	return s.connectLocked()
}

func (s *piSPI) SetBitsPerWord(bits byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bits = int(bits)
	return s.connectLocked()
}

func (s *piSPI) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}

// piI2C adapts periph.io's i2c.Dev to the address-oriented I2CProvider
// interface, for accessory sensors sharing the controller board's bus
// (the strip's own pixel data never goes over I2C).
type piI2C struct {
	mu  sync.Mutex
	bus i2c.BusCloser
	dev *i2c.Dev
}

func (i *piI2C) Open(address byte) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("hal: open I2C bus: %w", err)
	}
	i.bus = bus
	i.dev = &i2c.Dev{Bus: bus, Addr: uint16(address)}
	return nil
}

func (i *piI2C) Read(length int) ([]byte, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.dev == nil {
		return nil, fmt.Errorf("hal: I2C not open")
	}
	buf := make([]byte, length)
	if err := i.dev.Tx(nil, buf); err != nil {
		return nil, fmt.Errorf("hal: I2C read: %w", err)
	}
	return buf, nil
}

func (i *piI2C) Write(data []byte) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.dev == nil {
		return fmt.Errorf("hal: I2C not open")
	}
	return i.dev.Tx(data, nil)
}

func (i *piI2C) ReadRegister(register byte, length int) ([]byte, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.dev == nil {
		return nil, fmt.Errorf("hal: I2C not open")
	}
	buf := make([]byte, length)
	if err := i.dev.Tx([]byte{register}, buf); err != nil {
		return nil, fmt.Errorf("hal: I2C read register 0x%02x: %w", register, err)
	}
	return buf, nil
}

func (i *piI2C) WriteRegister(register byte, data []byte) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.dev == nil {
		return fmt.Errorf("hal: I2C not open")
	}
	payload := append([]byte{register}, data...)
	return i.dev.Tx(payload, nil)
}

func (i *piI2C) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.bus == nil {
		return nil
	}
	return i.bus.Close()
}

// piSerial adapts go.bug.st/serial to SerialProvider, for a satellite
// strip node reached over a wired link (see internal/strip.SerialTransport,
// which talks the same baud rate directly for the hot render path; this
// path exists for configuration/control traffic instead).
type piSerial struct {
	mu   sync.Mutex
	port serial.Port
	mode serial.Mode
}

func (s *piSerial) Open(port string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = serial.Mode{BaudRate: 115200}
	p, err := serial.Open(port, &s.mode)
	if err != nil {
		return fmt.Errorf("hal: open serial %s: %w", port, err)
	}
	s.port = p
	return nil
}

func (s *piSerial) SetBaudRate(baud int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode.BaudRate = baud
	return s.reconfigureLocked()
}

func (s *piSerial) SetDataBits(bits int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode.DataBits = bits
	return s.reconfigureLocked()
}

func (s *piSerial) SetStopBits(bits int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch bits {
	case 1:
		s.mode.StopBits = serial.OneStopBit
	case 2:
		s.mode.StopBits = serial.TwoStopBits
	default:
		return fmt.Errorf("hal: unsupported stop bits %d", bits)
	}
	return s.reconfigureLocked()
}

func (s *piSerial) SetParity(parity byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch parity {
	case 0:
		s.mode.Parity = serial.NoParity
	case 1:
		s.mode.Parity = serial.OddParity
	case 2:
		s.mode.Parity = serial.EvenParity
	default:
		return fmt.Errorf("hal: unsupported parity %d", parity)
	}
	return s.reconfigureLocked()
}

func (s *piSerial) reconfigureLocked() error {
	if s.port == nil {
		return nil
	}
	return s.port.SetMode(&s.mode)
}

func (s *piSerial) Read(buffer []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return 0, fmt.Errorf("hal: serial not open")
	}
	return s.port.Read(buffer)
}

func (s *piSerial) Write(data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return 0, fmt.Errorf("hal: serial not open")
	}
	return s.port.Write(data)
}

func (s *piSerial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	return s.port.Close()
}
