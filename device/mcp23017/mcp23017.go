// Package mcp23017 implements a thin, non-blocking conn.Expander wrapper
// around a Microchip MCP23017 16-bit I2C I/O expander: one of the light
// off-chip abstractions this library builds on top of its core on-chip
// serial-bus subsystem, not a general-purpose expander driver. Only the
// register subset needed to back conn.Pin is implemented; interrupt-on-
// change, sequential/byte-mode addressing, and the second device address
// bit are not.
package mcp23017

import (
	"github.com/lpc176x/periph/conn"
	"github.com/lpc176x/periph/soc/lpc176x/i2c"
	"github.com/lpc176x/periph/soc/lpc176x/pin"
)

// Register addresses in the MCP23017's default (IOCON.BANK=0) address
// layout, the only layout this driver supports.
const (
	iodirA = 0x00
	iodirB = 0x01
	gppuA  = 0x0c
	gppuB  = 0x0d
	gpioA  = 0x12
	gpioB  = 0x13
)

// MCP23017 mirrors the chip's six shadow registers so every per-pin
// mutator needs only a single 2-byte I2C write (register address, new
// value), never a read-modify-write round trip.
type MCP23017 struct {
	bus          *i2c.I2C
	slaveAddress uint8

	txBuffer [2]byte
	rxBuffer [1]byte

	iodirA, iodirB byte
	gppuA, gppuB   byte
	gpioA, gpioB   byte
}

// New returns an expander handle for the device at slaveAddress on bus.
// bus must already be initialized. All 16 pins reset to inputs with
// pull-ups disabled, matching the chip's power-on defaults.
func New(bus *i2c.I2C, slaveAddress uint8) *MCP23017 {
	return &MCP23017{
		bus:          bus,
		slaveAddress: slaveAddress,
		iodirA:       0xff,
		iodirB:       0xff,
	}
}

// split returns the bit mask within its port (0-7) and whether pin
// belongs to port B: pins 0-7 are port A, pins 32-39 (bit 5 set) are port
// B, matching the original shadow-register wrapper's pin numbering.
func split(p uint32) (mask byte, portB bool) {
	return 1 << (p & 0x7), p>>5 != 0
}

func (m *MCP23017) writeRegister(addr, value byte) {
	for m.bus.IsBusy() {
	}
	m.txBuffer[0] = addr
	m.txBuffer[1] = value
	m.bus.StartTransfer(m.slaveAddress, m.txBuffer[:], nil)
}

// SetDirection programs one pin's IODIR bit. direction.Input sets the bit
// (input, the chip's reset default); Output clears it.
func (m *MCP23017) SetDirection(p uint32, direction pin.Direction) {
	mask, portB := split(p)

	if portB {
		if direction == pin.Input {
			m.iodirB |= mask
		} else {
			m.iodirB &^= mask
		}
		m.writeRegister(iodirB, m.iodirB)
		return
	}

	if direction == pin.Input {
		m.iodirA |= mask
	} else {
		m.iodirA &^= mask
	}
	m.writeRegister(iodirA, m.iodirA)
}

// SetPullMode programs one pin's GPPU bit. Only PullUp is representable;
// any other mode disables the pull-up, matching the chip's single internal
// resistor option.
func (m *MCP23017) SetPullMode(p uint32, mode pin.PullMode) {
	mask, portB := split(p)

	if portB {
		if mode == pin.PullUp {
			m.gppuB |= mask
		} else {
			m.gppuB &^= mask
		}
		m.writeRegister(gppuB, m.gppuB)
		return
	}

	if mode == pin.PullUp {
		m.gppuA |= mask
	} else {
		m.gppuA &^= mask
	}
	m.writeRegister(gppuA, m.gppuA)
}

// SetOpenDrain is a no-op: the MCP23017 has no open-drain configuration
// for its GPIO pins.
func (m *MCP23017) SetOpenDrain(p uint32, openDrain bool) {}

// Set drives a pin high via Write.
func (m *MCP23017) Set(p uint32) { m.Write(p, conn.High) }

// Clear drives a pin low via Write.
func (m *MCP23017) Clear(p uint32) { m.Write(p, conn.Low) }

// Write programs one pin's GPIO output latch bit.
func (m *MCP23017) Write(p uint32, level conn.Level) {
	mask, portB := split(p)

	if portB {
		if level == conn.High {
			m.gpioB |= mask
		} else {
			m.gpioB &^= mask
		}
		m.writeRegister(gpioB, m.gpioB)
		return
	}

	if level == conn.High {
		m.gpioA |= mask
	} else {
		m.gpioA &^= mask
	}
	m.writeRegister(gpioA, m.gpioA)
}

// Read issues a blocking GPIO register read and returns the pin's current
// level.
func (m *MCP23017) Read(p uint32) conn.Level {
	mask, portB := split(p)

	for m.bus.IsBusy() {
	}
	if portB {
		m.txBuffer[0] = gpioB
	} else {
		m.txBuffer[0] = gpioA
	}

	m.bus.StartTransfer(m.slaveAddress, m.txBuffer[:1], m.rxBuffer[:])
	for m.bus.IsBusy() {
	}

	return conn.Level(m.rxBuffer[0]&mask != 0)
}

// Pin returns a conn.Pin view of one numbered pin on this expander.
func (m *MCP23017) Pin(p uint32) *conn.ExpanderPin {
	return conn.NewExpanderPin(m, p)
}
