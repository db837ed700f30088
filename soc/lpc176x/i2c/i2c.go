// Package i2c implements the LPC176x I2C master interface: clock divider
// programming for standard/fast/fast-mode-plus, and an interrupt-driven
// master state machine keyed on I2STAT status codes (UM10360 chapter 19).
// Multi-master arbitration beyond a single resend-on-loss retry, slave
// mode, and in-core cancellation of a stalled transfer are all out of
// scope.
package i2c

import (
	"sync/atomic"

	"github.com/lpc176x/periph/internal/reg"
	"github.com/lpc176x/periph/soc/lpc176x/irq"
	"github.com/lpc176x/periph/soc/lpc176x/pin"
)

const (
	i2conset = 0x00
	i2conclr = 0x18
	i2stat   = 0x04
	i2dat    = 0x08
	i2sclh   = 0x10
	i2scll   = 0x14
)

// I2CPADCFG lives on the PINCON block, not on an I2C instance's own
// register bank, and controls the drive strength of the I2C0 pins only
// (I2C1 and I2C2 have no such register). It must be set to its
// 1-MHz-capable value for fast-mode-plus and left at its default otherwise
// (UM10360 §19.8.7).
const (
	i2c0Base          = 0x4001c000
	i2cPADCFG         = 0x4002c000 + 0x07c
	i2cPADCFGFastPlus = 0x05
	i2cPADCFGDefault  = 0x00
)

// I2CONSET/I2CONCLR bit positions.
const (
	conAA   = 2 // assert acknowledge
	conSI   = 3 // interrupt flag
	conSTO  = 4 // stop
	conSTA  = 5 // start
	conI2EN = 6 // interface enable
)

// Mode selects the I2C bus speed class (UM10360 §19.8.5/19.8.6).
type Mode uint8

const (
	Standard     Mode = iota // 100 kHz
	FastMode                 // 400 kHz
	FastModePlus             // 1 MHz
)

func (m Mode) busFrequency() uint32 {
	switch m {
	case FastMode:
		return 400000
	case FastModePlus:
		return 1000000
	default:
		return 100000
	}
}

// I2C is one LPC176x I2C master instance.
type I2C struct {
	base uint32

	busy uint32 // atomic bool

	slaveAddress uint8
	txBuf        []byte
	rxBuf        []byte
	rxIndex      int
}

// New returns a handle for one of the three physical I2C instances at the
// given register base address.
func New(base uint32) *I2C {
	return &I2C{base: base}
}

func (i *I2C) reg(offset uint32) uint32 { return i.base + offset }

// Init programs sdaPin (and sdaPin+1 as SCL) for open-drain I2C operation,
// sets the clock divider for the requested mode at peripheralFrequency,
// and enables the interface in master mode. It does not enable the NVIC
// vector; call irq.Enable separately once the handler is attached, which
// board wiring does via Attach.
func (i *I2C) Init(sdaPin pin.Pin, function pin.Function, peripheralFrequency uint32, mode Mode) {
	pin.SetFunction(sdaPin, function)
	pin.SetPullMode(sdaPin, pin.NoPull)
	pin.SetOpenDrain(sdaPin, true)

	sclPin := sdaPin + 1
	pin.SetFunction(sclPin, function)
	pin.SetPullMode(sclPin, pin.NoPull)
	pin.SetOpenDrain(sclPin, true)

	sum := peripheralFrequency / mode.busFrequency()

	var high uint32
	if mode == Standard {
		high = sum / 2
	} else {
		high = sum / 3
	}
	reg.Write(i.reg(i2sclh), high)
	reg.Write(i.reg(i2scll), sum-high)

	reg.Write(i.reg(i2conclr), (1<<conAA)|(1<<conSI)|(1<<conSTO)|(1<<conSTA)|(1<<conI2EN))
	reg.Write(i.reg(i2conset), 1<<conI2EN)

	if i.base == i2c0Base {
		if mode == FastModePlus {
			reg.Write(i2cPADCFG, i2cPADCFGFastPlus)
		} else {
			reg.Write(i2cPADCFG, i2cPADCFGDefault)
		}
	}
}

// Attach registers this instance's interrupt handler for vector and
// unmasks it in the NVIC.
func (i *I2C) Attach(vector irq.IRQn) {
	irq.Attach(vector, i.handle)
	irq.Enable(vector)
}

// IsBusy reports whether a transfer is in progress, either because this
// driver believes one is (busy) or because the bus status register does
// not read the idle code 0xF8 — covering the window between hardware
// activity starting and this driver's own state catching up.
func (i *I2C) IsBusy() bool {
	return atomic.LoadUint32(&i.busy) != 0 || reg.Read(i.reg(i2stat)) != 0xf8
}

// StartTransfer begins a combined write-then-read transaction with
// slaveAddress, given in bus format (the 7-bit address shifted left by one;
// bit 0 is cleared and replaced by the R/W bit): tx is written first (if
// non-empty), then rx is read (if non-empty), all driven by the ISR from
// here on. It returns false without starting anything if a transfer is
// already in progress.
func (i *I2C) StartTransfer(slaveAddress uint8, tx []byte, rx []byte) bool {
	if i.IsBusy() {
		return false
	}
	if len(tx) == 0 && len(rx) == 0 {
		return true
	}

	i.slaveAddress = slaveAddress &^ 1
	i.txBuf = tx
	i.rxBuf = rx
	i.rxIndex = 0

	reg.Write(i.reg(i2conset), 1<<conSTA)

	atomic.StoreUint32(&i.busy, 1)
	return true
}

// handle services one I2STAT status code, mirroring the documented
// fall-through behavior of the hardware's own state diagram (UM10360
// Table 260): status 0x50 ("data received, ACK returned") stores the byte
// and falls into the same ACK/NACK-arming logic as 0x40 ("SLA+R sent,
// ACK received"); 0x58 ("data received, NACK returned") stores the final
// byte and falls into the same STOP-and-release logic as 0x20/0x30/0x48
// (address or data sent, NACK received).
func (i *I2C) handle() {
	status := reg.Read(i.reg(i2stat))

	switch status {
	case 0x08, 0x10:
		// (RE)START transmitted.
		if len(i.txBuf) != 0 {
			reg.Write(i.reg(i2dat), uint32(i.slaveAddress))
		} else {
			reg.Write(i.reg(i2dat), uint32(i.slaveAddress|1))
		}
		reg.Write(i.reg(i2conclr), 1<<conSTA)
		reg.Write(i.reg(i2conset), 1<<conAA)

	case 0x18, 0x28:
		// SLA+W/data transmitted, ACK received.
		switch {
		case len(i.txBuf) != 0:
			reg.Write(i.reg(i2dat), uint32(i.txBuf[0]))
			i.txBuf = i.txBuf[1:]
			reg.Write(i.reg(i2conset), 1<<conAA)
		case len(i.rxBuf) != 0:
			reg.Write(i.reg(i2conset), (1<<conAA)|(1<<conSTA))
		default:
			reg.Write(i.reg(i2conset), (1<<conAA)|(1<<conSTO))
			atomic.StoreUint32(&i.busy, 0)
		}

	case 0x50:
		i.storeReceivedByte()
		i.armNextRead()

	case 0x40:
		i.armNextRead()

	case 0x58:
		i.storeReceivedByte()
		i.stopOnNACK()

	case 0x20, 0x30, 0x48:
		i.stopOnNACK()

	case 0x38:
		// Arbitration lost; set STA so START is resent once the bus is free.
		reg.Write(i.reg(i2conset), 1<<conSTA)
		atomic.StoreUint32(&i.busy, 0)

	default:
		// Unhandled status code. This is a known, documented limitation:
		// the bus is left exactly as hardware presents it and busy is not
		// cleared, so a caller must use IsBusy/a higher-level watchdog to
		// detect the stall rather than this driver silently recovering.
	}

	reg.Write(i.reg(i2conclr), 1<<conSI)
}

// storeReceivedByte copies the just-received byte from I2DAT into rxBuf
// and advances past it.
func (i *I2C) storeReceivedByte() {
	if i.rxIndex < len(i.rxBuf) {
		i.rxBuf[i.rxIndex] = byte(reg.Read(i.reg(i2dat)))
	}
	i.rxIndex++
}

// armNextRead arms ACK (more bytes expected) or NACK (this is the last
// byte) for the upcoming I2DAT read.
func (i *I2C) armNextRead() {
	if len(i.rxBuf)-i.rxIndex == 1 {
		reg.Write(i.reg(i2conclr), 1<<conAA)
	} else {
		reg.Write(i.reg(i2conset), 1<<conAA)
	}
}

// stopOnNACK issues STOP and releases the bus after a NACK terminates the
// transaction.
func (i *I2C) stopOnNACK() {
	reg.Write(i.reg(i2conset), (1<<conAA)|(1<<conSTO))
	atomic.StoreUint32(&i.busy, 0)
}
