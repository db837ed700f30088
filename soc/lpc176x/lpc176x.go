// Package lpc176x provides support for the NXP/Philips LPC176x family of
// ARM Cortex-M3 microcontrollers (UM10360), wiring together the clock tree,
// interrupt controller, pin multiplexer, SysTick timer, GPDMA controller,
// and UART/I2C peripheral drivers as package-level singletons, mirroring
// how TamaGo boards wire up their SoC peripheral instances on import.
//
// This package assumes a 12 MHz external crystal, the common configuration
// on LPC176x development boards; callers targeting a different crystal
// frequency should skip Init and drive soc/lpc176x/clock directly.
package lpc176x

import (
	"github.com/lpc176x/periph/soc/lpc176x/clock"
	"github.com/lpc176x/periph/soc/lpc176x/dma"
	"github.com/lpc176x/periph/soc/lpc176x/i2c"
	"github.com/lpc176x/periph/soc/lpc176x/irq"
	"github.com/lpc176x/periph/soc/lpc176x/pin"
	"github.com/lpc176x/periph/soc/lpc176x/uart"
)

// Peripheral register base addresses (UM10360 Table 1, APB peripheral map).
const (
	uart0Base = 0x4000c000
	uart1Base = 0x40010000
	uart2Base = 0x40098000
	uart3Base = 0x4009c000

	i2c0Base = 0x4001c000
	i2c1Base = 0x4005c000
	i2c2Base = 0x400a0000
)

// ExternalOscillatorFrequency is the board's crystal frequency assumed by
// Init.
const ExternalOscillatorFrequency = 12000000

// Peripheral instances, wired once at package initialization. Each
// peripheral still requires its own Init call (with board-specific pin
// and clock arguments) before use; only the register base and DMA request
// line wiring is fixed here.
var (
	UART0 = uart.New(0, uart0Base, dma.UART0Rx, dma.UART0Tx)
	UART1 = uart.New(1, uart1Base, dma.UART1Rx, dma.UART1Tx)
	UART2 = uart.New(2, uart2Base, dma.UART2Rx, dma.UART2Tx)
	UART3 = uart.New(3, uart3Base, dma.UART3Rx, dma.UART3Tx)

	I2C0 = i2c.New(i2c0Base)
	I2C1 = i2c.New(i2c1Base)
	I2C2 = i2c.New(i2c2Base)

	DMACh0 = dma.NewChannel(dma.Ch0)
	DMACh1 = dma.NewChannel(dma.Ch1)
	DMACh2 = dma.NewChannel(dma.Ch2)
	DMACh3 = dma.NewChannel(dma.Ch3)
	DMACh4 = dma.NewChannel(dma.Ch4)
	DMACh5 = dma.NewChannel(dma.Ch5)
	DMACh6 = dma.NewChannel(dma.Ch6)
	DMACh7 = dma.NewChannel(dma.Ch7)
)

// Init brings up the SoC's clock tree to 100 MHz from a 12 MHz crystal
// (PLL0 multiplier 25, predivider 1, CCLK divider 6) and enables the global
// interrupt controller. It does not initialize any peripheral beyond the
// clock and interrupt controller; boards call the individual peripheral
// Init methods (UART0.Init, I2C0.Init, ...) afterward with their own pin
// assignments.
func Init() error {
	clock.EnableMainOscillator(ExternalOscillatorFrequency)

	if err := clock.UseSystemClock(clock.MainOscillator, 1); err != nil {
		return err
	}
	if err := clock.ConnectPLL0(25, 1, 6); err != nil {
		return err
	}

	irq.SetPriorityGrouping(irq.Priorities32Group1Sub)
	irq.EnableGlobal()

	return nil
}

// PeripheralClockFrequency returns the clock rate fed to a given UART or
// I2C instance, derived from the CPU clock and that peripheral's PCLKSEL
// divider setting.
func PeripheralClockFrequency(p clock.PeripheralClock) uint32 {
	return clock.PeripheralClockFrequency(p)
}

// Pin is re-exported for convenience so board files need only import
// soc/lpc176x for the common case of clock/pin/peripheral wiring.
type Pin = pin.Pin
