// Package systick implements the Cortex-M3 SysTick-driven 100 Hz system
// tick used as the library's coarse time base: tic/toc elapsed-time
// measurement and a busy-wait delay, both expressed in milliseconds
// (ARM Cortex-M3 Technical Reference Manual, SysTick chapter).
package systick

import (
	"sync/atomic"

	"github.com/lpc176x/periph/internal/reg"
	"github.com/lpc176x/periph/soc/lpc176x/clock"
)

const (
	base = 0xe000e010

	ctrl = base + 0x00
	load = base + 0x04
	val  = base + 0x08
)

// CTRL bit positions.
const (
	ctrlEnable    = 0
	ctrlTickInt   = 1
	ctrlClkSource = 2
)

// ticksPerSecond is the fixed SysTick interrupt rate this package programs
// the reload value for.
const ticksPerSecond = 100

var tick uint32

func setReloadValue(cpuFrequency uint32) {
	reg.Write(load, cpuFrequency/ticksPerSecond-1)
}

// Start programs SysTick for a 100 Hz tick at the current CPU frequency,
// registers itself to keep the reload value correct across future clock
// changes, and enables the counter with its interrupt. Start registers the
// clock handler only after performing the initial reload-value
// computation, matching the original library's ordering: the first
// programming uses the CPU frequency already in effect, rather than
// waiting for a change notification that may never come.
func Start() {
	setReloadValue(clock.CPUFrequency())
	clock.AttachHandler(setReloadValue)

	reg.Write(val, 0)
	reg.Write(ctrl, (1<<ctrlClkSource)|(1<<ctrlTickInt)|(1<<ctrlEnable))
}

// handleTick is the SysTick ISR body. SysTick is a system exception, not a
// peripheral vector in irq's dispatch table (irq.Attach rejects it), so the
// application's startup vector table calls the function returned by
// Handler directly.
func handleTick() {
	atomic.AddUint32(&tick, 1)
}

// Handler returns the function to register as the SysTick exception
// handler.
func Handler() func() {
	return handleTick
}

// Tic returns the current tick counter, to be paired with a later Toc call.
func Tic() uint32 {
	return atomic.LoadUint32(&tick)
}

// Toc returns the elapsed time in milliseconds since the tick value
// returned by a prior Tic call.
func Toc(tic uint32) uint32 {
	return ((atomic.LoadUint32(&tick) - tic) * 1000) / ticksPerSecond
}

// Delay busy-waits for approximately ms milliseconds.
func Delay(ms uint32) {
	start := atomic.LoadUint32(&tick)
	ticks := (ms * ticksPerSecond) / 1000

	for atomic.LoadUint32(&tick)-start < ticks {
	}
}
