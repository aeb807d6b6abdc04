//go:build linux

package spibus

import (
	"fmt"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"

	"github.com/tinkerforge/red-stackd/internal/frame"
)

// Config selects SPI mode/speed parameters matching the RED Brick stack
// protocol: CPOL=1, CPHA=0, MSB-first, 8 bits/word, max 8MHz.
var Config = struct {
	Mode    spi.Mode
	Bits    int
	MaxFreq physic.Frequency
}{
	Mode:    spi.Mode2, // CPOL=1, CPHA=0 in periph's Mode0..Mode3 numbering
	Bits:    8,
	MaxFreq: 8 * physic.MegaHertz,
}

// PeriphBus wraps a periph.io SPI connection for the fixed 84-byte
// full-duplex exchange the stack protocol uses.
type PeriphBus struct {
	port spi.PortCloser
	conn spi.Conn
}

// OpenPeriphBus opens busName (e.g. "/dev/spidev0.0", or "" for periph's
// default) via periph's host drivers and configures it per Config.
func OpenPeriphBus(busName string) (*PeriphBus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("spibus: periph host init: %w", err)
	}

	port, err := spireg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("spibus: open %q: %w", busName, err)
	}

	conn, err := port.Connect(Config.MaxFreq, Config.Mode, Config.Bits)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("spibus: connect: %w", err)
	}

	return &PeriphBus{port: port, conn: conn}, nil
}

// Exchange performs one full-duplex transfer of exactly frame.Size bytes.
func (b *PeriphBus) Exchange(tx []byte) ([]byte, error) {
	if len(tx) != frame.Size {
		return nil, fmt.Errorf("spibus: tx must be %d bytes, got %d", frame.Size, len(tx))
	}
	rx := make([]byte, frame.Size)
	if err := b.conn.Tx(tx, rx); err != nil {
		return nil, err
	}
	return rx, nil
}

// Close releases the underlying SPI port.
func (b *PeriphBus) Close() error {
	return b.port.Close()
}

// GPIOSelector drives one chip-select GPIO pin per stack slot via periph's
// gpio registry. The slot->pin-name mapping is fixed by hardware wiring
// and supplied by the caller (DefaultSlotPinNames for the RED Brick).
type GPIOSelector struct {
	pins [8]gpio.PinIO
}

// DefaultSlotPinNames is the RED Brick's fixed slot->GPIO mapping (port C,
// pins 8-15), per the original brickd implementation.
var DefaultSlotPinNames = [8]string{
	"GPIO3_C8", "GPIO3_C9", "GPIO3_C10", "GPIO3_C11",
	"GPIO3_C12", "GPIO3_C13", "GPIO3_C14", "GPIO3_C15",
}

// OpenGPIOSelector resolves pinNames via gpioreg and configures each as a
// muxed output, deselected (driven high) initially.
func OpenGPIOSelector(pinNames [8]string) (*GPIOSelector, error) {
	var sel GPIOSelector
	for i, name := range pinNames {
		pin := gpioreg.ByName(name)
		if pin == nil {
			return nil, fmt.Errorf("spibus: unknown GPIO pin %q for slot %d", name, i)
		}
		if err := pin.Out(gpio.High); err != nil {
			return nil, fmt.Errorf("spibus: configure pin %q: %w", name, err)
		}
		sel.pins[i] = pin
	}
	return &sel, nil
}

// Assert drives slot's select line low (active).
func (s *GPIOSelector) Assert(slot int) error {
	return s.pins[slot].Out(gpio.Low)
}

// Deassert drives slot's select line high (inactive).
func (s *GPIOSelector) Deassert(slot int) error {
	return s.pins[slot].Out(gpio.High)
}
