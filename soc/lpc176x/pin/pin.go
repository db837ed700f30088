// Package pin implements LPC176x pin multiplexing and GPIO I/O: PINSEL/
// PINMODE function and pull selection, the FIO fast GPIO register block,
// the external interrupt inputs on port 2 (EINT0-3) and the GPIO
// port-change interrupt block on ports 0 and 2 (UM10360 chapters 8 and 9).
package pin

import (
	"github.com/lpc176x/periph/internal/reg"
	"github.com/lpc176x/periph/soc/lpc176x/irq"
)

// PINCON and GPIO block base addresses.
const (
	pinconBase = 0x4002c000
	gpioBase   = 0x2009c000
	gpioIntBase = 0x40028080

	pinsel0     = pinconBase + 0x000
	pinmode0    = pinconBase + 0x040
	pinmodeOD0  = pinconBase + 0x068

	fiodirOffset  = 0x00
	fiosetOffset  = 0x18
	fiocloOffset  = 0x1c
	fiopinOffset  = 0x14
	fiomaskOffset = 0x10
)

const portStride = 0x20

// Pin identifies a pin as (port<<5)|index, exactly as the PIN(port, pin)
// macro of the original library packs it.
type Pin uint32

// PIN builds a Pin identifier from a port number and pin index.
func PIN(port, index uint32) Pin {
	return Pin((port << 5) | (index & 0x1f))
}

const maxPin = Pin(4<<5 | 31)

// Direction selects a GPIO pin's data direction.
type Direction uint32

const (
	Input  Direction = 0
	Output Direction = 1
)

// Function selects a pin's PINSEL alternate function.
type Function uint32

const (
	GPIO       Function = 0
	Primary    Function = 0
	Alternate1 Function = 1
	Alternate2 Function = 2
	Alternate3 Function = 3
)

// PullMode selects a pin's internal resistor configuration.
type PullMode uint32

const (
	PullUp   PullMode = 0
	Repeat   PullMode = 1
	NoPull   PullMode = 2
	PullDown PullMode = 3
)

// Level is a GPIO pin's logic level.
type Level uint32

const (
	Low  Level = 0
	High Level = 1
)

func (p Pin) port() uint32  { return uint32(p) >> 5 }
func (p Pin) index() uint32 { return uint32(p) & 0x1f }
func (p Pin) gpioBase() uint32 {
	return gpioBase + p.port()*portStride
}

// SetFunction programs a pin's PINSEL alternate function.
func SetFunction(p Pin, function Function) {
	if p > maxPin {
		return
	}

	index := uint32(p) >> 4
	shift := (uint32(p) & 0xf) << 1

	reg.SetN(pinsel0+4*index, int(shift), 0x3, uint32(function))
}

// SetPullMode programs a pin's PINMODE resistor configuration.
func SetPullMode(p Pin, mode PullMode) {
	if p > maxPin {
		return
	}

	index := uint32(p) >> 4
	shift := (uint32(p) & 0xf) << 1

	reg.SetN(pinmode0+4*index, int(shift), 0x3, uint32(mode))
}

// SetOpenDrain enables or disables open-drain mode for a single pin (its
// bit in the port's PINMODE_OD register).
func SetOpenDrain(p Pin, openDrain bool) {
	if p > maxPin {
		return
	}

	addr := pinmodeOD0 + 4*p.port()
	if openDrain {
		reg.Set(addr, int(p.index()))
	} else {
		reg.Clear(addr, int(p.index()))
	}
}

// SetDirection configures a GPIO pin as input or output via FIODIR.
func SetDirection(p Pin, direction Direction) {
	if p > maxPin {
		return
	}

	addr := p.gpioBase() + fiodirOffset
	if direction == Input {
		reg.Clear(addr, int(p.index()))
	} else {
		reg.Set(addr, int(p.index()))
	}
}

// Set drives a GPIO pin high via FIOSET.
func Set(p Pin) {
	if p > maxPin {
		return
	}
	reg.Write(p.gpioBase()+fiosetOffset, 1<<p.index())
}

// Clear drives a GPIO pin low via FIOCLR.
func Clear(p Pin) {
	if p > maxPin {
		return
	}
	reg.Write(p.gpioBase()+fiocloOffset, 1<<p.index())
}

// Write drives a GPIO pin to the given level.
func Write(p Pin, level Level) {
	if p > maxPin {
		return
	}
	if level == Low {
		Clear(p)
	} else {
		Set(p)
	}
}

// WriteMasked writes value to the pins selected by mask, within the port
// containing pinLSB, leaving all other pins on that port untouched.
func WriteMasked(pinLSB Pin, mask, value uint32) {
	if pinLSB > maxPin {
		return
	}

	base := pinLSB.gpioBase()
	reg.Write(base+fiomaskOffset, ^mask)
	reg.Write(base+fiopinOffset, value)
	reg.Write(base+fiomaskOffset, 0)
}

// WriteByte writes value to one byte lane (0-3) of the port containing
// portPin, corresponding to the FIOPIN0-3 byte-addressable views of FIOPIN,
// leaving the other three bytes of the register untouched.
func WriteByte(portPin Pin, index, value byte) {
	if portPin > maxPin || index > 3 {
		return
	}
	reg.SetN(portPin.gpioBase()+fiopinOffset, int(index)*8, 0xff, uint32(value))
}

// WriteHalfword writes value to one halfword lane (0 or 1, low or high) of
// the port containing portPin, corresponding to the FIOPINL/FIOPINH
// halfword-addressable views of FIOPIN, leaving the other halfword
// untouched.
func WriteHalfword(portPin Pin, half byte, value uint16) {
	if portPin > maxPin || half > 1 {
		return
	}
	reg.SetN(portPin.gpioBase()+fiopinOffset, int(half)*16, 0xffff, uint32(value))
}

// Read returns a GPIO pin's current logic level via FIOPIN.
func Read(p Pin) Level {
	if p > maxPin {
		return Low
	}
	if reg.Get(p.gpioBase()+fiopinOffset, int(p.index()), 1) != 0 {
		return High
	}
	return Low
}

// External interrupt inputs (EINT0-3), multiplexed on PORT2 pins 10-13
// only (UM10360 Table 9).

// ExternalMode selects level- or edge-sensitivity for an external interrupt.
type ExternalMode uint32

const (
	LevelSensitive ExternalMode = 0
	Edge           ExternalMode = 1
)

// ExternalPolarity selects active-low/falling or active-high/rising.
type ExternalPolarity uint32

const (
	LowFalling ExternalPolarity = 0
	HighRising ExternalPolarity = 1
)

const (
	scBase   = 0x400fc000
	extmode  = scBase + 0x140
	extpolar = scBase + 0x144
	extint   = scBase + 0x148

	eint0Pin = 10 // PORT2 pin of EINT0
)

func externalIndex(p Pin) (uint32, bool) {
	if p < PIN(2, 10) || p > PIN(2, 13) {
		return 0, false
	}
	return p.index() - eint0Pin, true
}

// EnableExternalInterrupt configures pin (PORT2.10-13 only) as an EINTn
// input and unmasks its NVIC vector.
func EnableExternalInterrupt(p Pin, mode ExternalMode, polarity ExternalPolarity) {
	n, ok := externalIndex(p)
	if !ok {
		return
	}

	SetFunction(p, Alternate1)
	SetDirection(p, Input)

	if mode == LevelSensitive {
		reg.Clear(extmode, int(n))
	} else {
		reg.Set(extmode, int(n))
	}

	if polarity == LowFalling {
		reg.Clear(extpolar, int(n))
	} else {
		reg.Set(extpolar, int(n))
	}

	irq.Enable(irq.EINT0 + irq.IRQn(n))
}

// DisableExternalInterrupt masks pin's NVIC vector and returns the pin to
// plain GPIO function.
func DisableExternalInterrupt(p Pin) {
	n, ok := externalIndex(p)
	if !ok {
		return
	}

	irq.Disable(irq.EINT0 + irq.IRQn(n))
	SetFunction(p, GPIO)
}

// ExternalInterruptFlagged reports whether pin's external interrupt flag is
// set.
func ExternalInterruptFlagged(p Pin) bool {
	n, ok := externalIndex(p)
	if !ok {
		return false
	}
	return reg.Get(extint, int(n), 1) != 0
}

// ClearExternalInterruptFlag clears pin's external interrupt flag.
func ClearExternalInterruptFlag(p Pin) {
	n, ok := externalIndex(p)
	if !ok {
		return
	}
	reg.Set(extint, int(n))
}

// GPIO port-change interrupts, available on ports 0 and 2 only.

// GPIOPolarity selects which edge a port-change interrupt watches.
type GPIOPolarity uint32

const (
	Rising  GPIOPolarity = 0
	Falling GPIOPolarity = 1
)

const (
	io0IntEnR   = gpioIntBase + 0x00
	io0IntEnF   = gpioIntBase + 0x04
	io0IntStatR = gpioIntBase + 0x08
	io0IntStatF = gpioIntBase + 0x0c
	io0IntClr   = gpioIntBase + 0x10

	io2IntEnR   = gpioIntBase + 0x20
	io2IntEnF   = gpioIntBase + 0x24
	io2IntStatR = gpioIntBase + 0x28
	io2IntStatF = gpioIntBase + 0x2c
	io2IntClr   = gpioIntBase + 0x30
)

// EnableGPIOInterrupt unmasks the shared EINT3/GPIO port-change vector in
// the NVIC.
func EnableGPIOInterrupt() {
	irq.Enable(irq.EINT3)
}

// DisableGPIOInterrupt masks the shared EINT3/GPIO port-change vector.
func DisableGPIOInterrupt() {
	irq.Disable(irq.EINT3)
}

func gpioIntRegs(p Pin, polarity GPIOPolarity) (enable, status, clear uint32, ok bool) {
	switch {
	case p >= PIN(0, 0) && p <= PIN(0, 31):
		if polarity == Rising {
			return io0IntEnR, io0IntStatR, io0IntClr, true
		}
		return io0IntEnF, io0IntStatF, io0IntClr, true
	case p >= PIN(2, 0) && p <= PIN(2, 31):
		if polarity == Rising {
			return io2IntEnR, io2IntStatR, io2IntClr, true
		}
		return io2IntEnF, io2IntStatF, io2IntClr, true
	default:
		return 0, 0, 0, false
	}
}

// EnableGPIOPinInterrupt arms a single pin's port-change interrupt for the
// given edge polarity. Only ports 0 and 2 are wired to the GPIOINT block;
// any other port is a silent no-op, matching the hardware's own limitation.
func EnableGPIOPinInterrupt(p Pin, polarity GPIOPolarity) {
	enable, _, _, ok := gpioIntRegs(p, polarity)
	if !ok {
		return
	}
	reg.Set(enable, int(p.index()))
}

// DisableGPIOPinInterrupt disarms a single pin's port-change interrupt.
func DisableGPIOPinInterrupt(p Pin, polarity GPIOPolarity) {
	enable, _, _, ok := gpioIntRegs(p, polarity)
	if !ok {
		return
	}
	reg.Clear(enable, int(p.index()))
}

// GPIOPinInterruptFlagged reports whether pin's port-change flag is set for
// the given edge polarity.
func GPIOPinInterruptFlagged(p Pin, polarity GPIOPolarity) bool {
	_, status, _, ok := gpioIntRegs(p, polarity)
	if !ok {
		return false
	}
	return reg.Get(status, int(p.index()), 1) != 0
}

// ClearGPIOPinInterruptFlag clears pin's port-change flag (both polarities
// share one clear register per port).
func ClearGPIOPinInterruptFlag(p Pin) {
	switch {
	case p >= PIN(0, 0) && p <= PIN(0, 31):
		reg.Set(io0IntClr, int(p.index()))
	case p >= PIN(2, 0) && p <= PIN(2, 31):
		reg.Set(io2IntClr, int(p.index()))
	}
}
