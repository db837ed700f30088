// Package conn defines the hardware-independent interfaces shared by
// on-chip and expander-backed GPIO pins, loosely following the shape of
// periph.io's conn/gpio and conn/i2c interfaces so that a driver written
// against conn.Pin works identically whether it is wired to an LPC176x
// GPIO pin or to a pin sitting behind an I2C/SPI expander.
package conn

import "github.com/lpc176x/periph/soc/lpc176x/pin"

// Level is a logical pin level.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// Pin is the minimal surface every GPIO-capable pin, on-chip or behind an
// expander, must implement.
type Pin interface {
	SetDirection(direction pin.Direction)
	SetPullMode(mode pin.PullMode)
	SetOpenDrain(openDrain bool)
	Set()
	Clear()
	Write(level Level)
	Read() Level
}

// SPI is the minimal synchronous byte-transfer surface an expander needs
// from its bus, independent of which concrete controller backs it.
type SPI interface {
	Transfer(tx, rx []byte) error
}

// Expander is a chip that multiplexes several logical pins behind a
// single bus transaction, such as an MCP23017 I2C port expander or an
// SPI-attached shift register. Concrete expanders implement Pin-level
// operations in terms of their own register protocol; ExpanderPin adapts
// one of an Expander's pins to the plain Pin interface.
type Expander interface {
	SetDirection(pin uint32, direction pin.Direction)
	SetPullMode(pin uint32, mode pin.PullMode)
	SetOpenDrain(pin uint32, openDrain bool)
	Set(pin uint32)
	Clear(pin uint32)
	Write(pin uint32, level Level)
	Read(pin uint32) Level
}

// GPIOPin adapts an on-chip soc/lpc176x/pin.Pin to the Pin interface, so
// application code can depend on conn.Pin regardless of whether a given
// signal is wired directly to the SoC or through an Expander.
type GPIOPin pin.Pin

func (p GPIOPin) SetDirection(direction pin.Direction) { pin.SetDirection(pin.Pin(p), direction) }
func (p GPIOPin) SetPullMode(mode pin.PullMode)        { pin.SetPullMode(pin.Pin(p), mode) }
func (p GPIOPin) SetOpenDrain(openDrain bool)          { pin.SetOpenDrain(pin.Pin(p), openDrain) }
func (p GPIOPin) Set()                                 { pin.Set(pin.Pin(p)) }
func (p GPIOPin) Clear()                               { pin.Clear(pin.Pin(p)) }

func (p GPIOPin) Write(level Level) {
	if level == High {
		pin.Write(pin.Pin(p), pin.High)
	} else {
		pin.Write(pin.Pin(p), pin.Low)
	}
}

func (p GPIOPin) Read() Level {
	return Level(pin.Read(pin.Pin(p)) == pin.High)
}

// ExpanderPin adapts one numbered pin of an Expander to the Pin interface,
// the same forwarding-wrapper shape as the original library's
// IOExtenderPin: every call is simply forwarded to the owning expander
// with this pin's number attached.
type ExpanderPin struct {
	expander Expander
	pin      uint32
}

// NewExpanderPin returns a Pin view of pin number n on the given expander.
func NewExpanderPin(expander Expander, n uint32) *ExpanderPin {
	return &ExpanderPin{expander: expander, pin: n}
}

func (p *ExpanderPin) SetDirection(direction pin.Direction) { p.expander.SetDirection(p.pin, direction) }
func (p *ExpanderPin) SetPullMode(mode pin.PullMode)        { p.expander.SetPullMode(p.pin, mode) }
func (p *ExpanderPin) SetOpenDrain(openDrain bool)          { p.expander.SetOpenDrain(p.pin, openDrain) }
func (p *ExpanderPin) Set()                                 { p.expander.Set(p.pin) }
func (p *ExpanderPin) Clear()                               { p.expander.Clear(p.pin) }
func (p *ExpanderPin) Write(level Level)                     { p.expander.Write(p.pin, level) }
func (p *ExpanderPin) Read() Level                           { return p.expander.Read(p.pin) }
