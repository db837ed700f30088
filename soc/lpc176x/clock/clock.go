// Package clock implements the LPC176x clock generation unit: the internal
// RC oscillator / external crystal switch, system PLL (PLL0) configuration,
// peripheral clock dividers, flash access timing and power gating
// (LPC176x/5x User Manual UM10360, chapter 4).
package clock

import (
	"errors"

	"github.com/lpc176x/periph/internal/reg"
)

// System Control block registers (UM10360 §4).
const (
	SC_BASE = 0x400fc000

	SCS      = SC_BASE + 0x1a0
	CLKSRCSEL = SC_BASE + 0x10c
	PLL0CON  = SC_BASE + 0x080
	PLL0CFG  = SC_BASE + 0x084
	PLL0STAT = SC_BASE + 0x088
	PLL0FEED = SC_BASE + 0x08c
	CCLKCFG  = SC_BASE + 0x104
	PCLKSEL0 = SC_BASE + 0x1a8
	PCLKSEL1 = SC_BASE + 0x1ac
	PCONP    = SC_BASE + 0x0c4
	FLASHCFG = SC_BASE + 0x000
)

// Source selects the system clock source feeding PLL0/CCLK.
type Source uint32

const (
	InternalRC    Source = 0
	MainOscillator Source = 1
)

// PeripheralClock identifies a peripheral's entry in PCLKSEL0/PCLKSEL1, in
// the order UM10360 Table 42 defines them.
type PeripheralClock uint32

const (
	WatchdogTimer PeripheralClock = 0
	Timer0        PeripheralClock = 1
	Timer1        PeripheralClock = 2
	UART0         PeripheralClock = 3
	UART1         PeripheralClock = 4
	PWM1          PeripheralClock = 6
	I2C0          PeripheralClock = 7
	SPI           PeripheralClock = 8
	SSP1          PeripheralClock = 10
	DAC           PeripheralClock = 11
	ADC           PeripheralClock = 12
	CAN1          PeripheralClock = 13
	CAN2          PeripheralClock = 14
	CANFilter     PeripheralClock = 15
	QEI           PeripheralClock = 16
	GPIOInterrupt PeripheralClock = 17
	PinConnect    PeripheralClock = 18
	I2C1          PeripheralClock = 19
	SSP0          PeripheralClock = 21
	Timer2        PeripheralClock = 22
	Timer3        PeripheralClock = 23
	UART2         PeripheralClock = 24
	UART3         PeripheralClock = 25
	I2C2          PeripheralClock = 26
	I2S           PeripheralClock = 27
	RIT           PeripheralClock = 29
	SystemControl PeripheralClock = 30
	MotorPWM      PeripheralClock = 31
)

// PeripheralPower identifies a peripheral's power-gating bit in PCONP
// (UM10360 Table 46).
type PeripheralPower uint32

const (
	PowerTimer0 PeripheralPower = 1
	PowerTimer1 PeripheralPower = 2
	PowerUART0  PeripheralPower = 3
	PowerUART1  PeripheralPower = 4
	PowerPWM1   PeripheralPower = 6
	PowerI2C0   PeripheralPower = 7
	PowerSPI    PeripheralPower = 8
	PowerRTC    PeripheralPower = 9
	PowerSSP1   PeripheralPower = 10
	PowerADC    PeripheralPower = 12
	PowerCAN1   PeripheralPower = 13
	PowerCAN2   PeripheralPower = 14
	PowerGPIO   PeripheralPower = 15
	PowerRIT    PeripheralPower = 16
	PowerMCPWM  PeripheralPower = 17
	PowerQEI    PeripheralPower = 18
	PowerI2C1   PeripheralPower = 19
	PowerSSP0   PeripheralPower = 21
	PowerTimer2 PeripheralPower = 22
	PowerTimer3 PeripheralPower = 23
	PowerUART2  PeripheralPower = 24
	PowerUART3  PeripheralPower = 25
	PowerI2C2   PeripheralPower = 26
	PowerI2S    PeripheralPower = 27
	PowerGPDMA  PeripheralPower = 29
	PowerEthernet PeripheralPower = 30
	PowerUSB    PeripheralPower = 31
)

// PeripheralClockSpeed selects the CCLK divider a peripheral's clock runs
// at, programmed into its two-bit PCLKSEL field.
type PeripheralClockSpeed uint32

const (
	DivideBy4      PeripheralClockSpeed = 0
	DivideBy1      PeripheralClockSpeed = 1
	DivideBy2      PeripheralClockSpeed = 2
	DivideBy8Or6   PeripheralClockSpeed = 3
)

const rcOscillatorFreq = 4000000

const maxHandlers = 4

var (
	mainOscillatorFreq uint32
	cpuFrequency        uint32 = rcOscillatorFreq

	handlers    [maxHandlers]func(cpuFrequency uint32)
	numHandlers int
)

func feedPLL0() {
	reg.Write(PLL0FEED, 0xaa)
	reg.Write(PLL0FEED, 0x55)
}

func disconnectPLL0() {
	reg.Write(PLL0CON, 0)
	feedPLL0()
}

func configurePLL0(multiplier, divider uint32) {
	reg.Write(PLL0CFG, ((multiplier-1)<<0)|((divider-1)<<16))
	feedPLL0()
}

func enablePLL0() {
	reg.Write(PLL0CON, 1<<0)
	feedPLL0()
}

func connectPLL0() {
	reg.Write(PLL0CON, (1<<0)|(1<<1))
	feedPLL0()
}

func systemFrequency() uint32 {
	if Source(reg.Read(CLKSRCSEL)) == InternalRC {
		return rcOscillatorFreq
	}
	return mainOscillatorFreq
}

func setFlashAccessTime(freq uint32) {
	setting := (freq - 1) / 20000000

	// 5 CPU cycles are sufficient under any condition for the LPC1769.
	if setting > 5 {
		setting = 5
	}

	reg.SetN(FLASHCFG, 12, 0xf, setting)
}

func notifyHandlers(freq uint32) {
	setFlashAccessTime(freq)

	for i := 0; i < numHandlers; i++ {
		handlers[i](freq)
	}
}

// CPUFrequency returns the last computed CPU (CCLK) frequency in Hz.
func CPUFrequency() uint32 {
	return cpuFrequency
}

// EnableMainOscillator enables the external crystal oscillator at the given
// frequency in Hz and blocks until it reports ready.
func EnableMainOscillator(frequency uint32) {
	mainOscillatorFreq = frequency

	if frequency < 15000000 {
		reg.Write(SCS, (0<<4)|(1<<5))
	} else {
		reg.Write(SCS, (1<<4)|(1<<5))
	}

	reg.Wait(SCS, 6, 1, 1)
}

// DisableMainOscillator disables the external crystal, switching the system
// clock source back to the internal RC oscillator first if it was in use.
func DisableMainOscillator() {
	mainOscillatorFreq = 0

	if Source(reg.Read(CLKSRCSEL)) == MainOscillator {
		UseSystemClock(InternalRC, 1)
	}

	reg.Write(SCS, 0)
}

// UseSystemClock selects source as CCLK's feed, bypassing PLL0, with cpuDivider
// (1-256) applied to derive CCLK.
func UseSystemClock(source Source, cpuDivider uint32) error {
	if cpuDivider < 1 || cpuDivider > 256 {
		return errors.New("clock: cpu divider out of range")
	}
	if source == MainOscillator && mainOscillatorFreq == 0 {
		return errors.New("clock: main oscillator not enabled")
	}

	if IsPLL0Connected() {
		disconnectPLL0()
	}

	reg.Write(CLKSRCSEL, uint32(source))
	reg.Write(CCLKCFG, cpuDivider-1)

	cpuFrequency = systemFrequency() / cpuDivider
	notifyHandlers(cpuFrequency)

	return nil
}

// IsPLL0Connected reports whether PLL0 is currently feeding CCLK.
func IsPLL0Connected() bool {
	return reg.Get(PLL0CON, 1, 1) == 1
}

// DisconnectPLL0 disconnects PLL0 and reapplies cpuDivider directly to the
// selected clock source.
func DisconnectPLL0(cpuDivider uint32) {
	disconnectPLL0()

	reg.Write(CCLKCFG, cpuDivider-1)

	cpuFrequency = systemFrequency() / cpuDivider
	notifyHandlers(cpuFrequency)
}

// ConnectPLL0 configures, enables and connects PLL0 with the given
// multiplier (6-512), divider (1-32) and cpuDivider (1-256), blocking until
// the PLL reports lock. It implements the exact sequence UM10360 requires:
// configure and enable the PLL, program the CCLK divider, compute and
// broadcast the new frequency to registered handlers, THEN wait for lock
// before connecting — the frequency is valid, and flash wait states already
// adjusted, before the core actually switches onto it.
func ConnectPLL0(multiplier, divider, cpuDivider uint32) error {
	if multiplier < 6 || multiplier > 512 {
		return errors.New("clock: pll multiplier out of range")
	}
	if divider < 1 || divider > 32 {
		return errors.New("clock: pll divider out of range")
	}
	if cpuDivider < 1 || cpuDivider > 256 {
		return errors.New("clock: cpu divider out of range")
	}

	if IsPLL0Connected() {
		disconnectPLL0()
	}

	configurePLL0(multiplier, divider)
	enablePLL0()

	reg.Write(CCLKCFG, cpuDivider-1)

	pllFrequency := (2 * systemFrequency()) / (divider * cpuDivider)
	cpuFrequency = pllFrequency * multiplier
	notifyHandlers(cpuFrequency)

	reg.Wait(PLL0STAT, 26, 1, 1)
	connectPLL0()

	return nil
}

// AttachHandler registers a callback invoked, after the flash access time
// has already been updated, whenever the CPU frequency changes. Up to
// maxHandlers callbacks may be registered; AttachHandler reports false
// (rather than silently dropping the registration) once the table is full.
func AttachHandler(handler func(cpuFrequency uint32)) bool {
	if numHandlers >= maxHandlers {
		return false
	}

	handlers[numHandlers] = handler
	numHandlers++

	return true
}

// SetPeripheralClock programs a peripheral's PCLKSEL divider.
func SetPeripheralClock(peripheral PeripheralClock, speed PeripheralClockSpeed) {
	index := int(peripheral) << 1

	if index >= 32 {
		reg.SetN(PCLKSEL1, index-32, 0x3, uint32(speed))
	} else {
		reg.SetN(PCLKSEL0, index, 0x3, uint32(speed))
	}
}

// PeripheralClockFrequency returns a peripheral's current clock frequency in
// Hz, derived from CCLK and its programmed PCLKSEL divider. CAN peripherals
// (and the CAN filter) use a /6 divider where every other peripheral uses
// /8 for the "divide by 8 or 6" setting.
func PeripheralClockFrequency(peripheral PeripheralClock) uint32 {
	index := int(peripheral) << 1

	var speed PeripheralClockSpeed
	if index >= 32 {
		speed = PeripheralClockSpeed(reg.Get(PCLKSEL1, index-32, 0x3))
	} else {
		speed = PeripheralClockSpeed(reg.Get(PCLKSEL0, index, 0x3))
	}

	cpuFreq := CPUFrequency()

	switch speed {
	case DivideBy1:
		return cpuFreq / 1
	case DivideBy2:
		return cpuFreq / 2
	case DivideBy4:
		return cpuFreq / 4
	default: // DivideBy8Or6
		if peripheral == CAN1 || peripheral == CAN2 || peripheral == CANFilter {
			return cpuFreq / 6
		}
		return cpuFreq / 8
	}
}

// EnablePeripheral powers up a peripheral via PCONP.
func EnablePeripheral(peripheral PeripheralPower) {
	reg.Set(PCONP, int(peripheral))
}

// DisablePeripheral powers down a peripheral via PCONP.
func DisablePeripheral(peripheral PeripheralPower) {
	reg.Clear(PCONP, int(peripheral))
}
