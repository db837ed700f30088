// Package irq provides a typed facade over the Cortex-M3 Nested Vectored
// Interrupt Controller (NVIC) and the parts of the System Control Block
// (SCB) that manage system exceptions, plus a fixed per-vector dispatch
// table that every other soc/lpc176x package registers its handler into
// exactly once, at Init time (ARM Cortex-M3 Technical Reference Manual,
// NVIC and SCB chapters).
package irq

import (
	"github.com/lpc176x/periph/bits"
	"github.com/lpc176x/periph/internal/reg"
)

// NVIC and SCB registers.
const (
	nvicBase = 0xe000e100

	ISER0 = nvicBase + 0x000
	ICER0 = nvicBase + 0x080
	ISPR0 = nvicBase + 0x100
	ICPR0 = nvicBase + 0x180
	IABR0 = nvicBase + 0x200
	IPR0  = nvicBase + 0x300

	STIR = 0xe000ef00

	scbBase = 0xe000ed00

	ICSR   = scbBase + 0x04
	AIRCR  = scbBase + 0x0c
	SHPR2  = scbBase + 0x1c
	SHPR3  = scbBase + 0x20
	SHCSR  = scbBase + 0x24
)

// ICSR bit positions.
const (
	icsrNMIPendSet  = 31
	icsrPendSVSet   = 28
	icsrPendSVClr   = 27
	icsrPendSTSet   = 26
	icsrPendSTClr   = 25
	icsrRetToBase   = 11
	icsrVectActive  = 0 // width 9
	icsrVectPending = 12 // width 9
)

// SHCSR bit positions.
const (
	shcsrUsgFaultEna     = 18
	shcsrBusFaultEna     = 17
	shcsrMemFaultEna     = 16
	shcsrSVCallPended    = 15
	shcsrBusFaultPended  = 14
	shcsrMemFaultPended  = 13
	shcsrUsgFaultPended  = 12
	shcsrSysTickAct      = 11
	shcsrPendSVAct       = 10
	shcsrMonitorAct      = 8
	shcsrSVCallAct       = 7
	shcsrUsgFaultAct     = 3
	shcsrBusFaultAct     = 1
	shcsrMemFaultAct     = 0
)

// prioBits is the number of implemented priority bits in LPC176x's NVIC and
// SCB priority registers (UM10360: 5 bits, 32 levels, left-justified in the
// 8-bit priority field).
const prioBits = 5

// IRQn identifies an NVIC interrupt (0 and above) or a system exception
// (negative, matching CMSIS's IRQn_Type convention).
type IRQn int32

// System exceptions.
const (
	NonMaskableInt    IRQn = -14
	HardFault         IRQn = -13
	MemoryManagement  IRQn = -12
	BusFault          IRQn = -11
	UsageFault        IRQn = -10
	SVCall            IRQn = -5
	DebugMonitor      IRQn = -4
	PendSV            IRQn = -2
	SysTick           IRQn = -1
)

// LPC176x peripheral interrupts (UM10360 Table 50).
const (
	WDT IRQn = iota
	Timer0
	Timer1
	Timer2
	Timer3
	UART0
	UART1
	UART2
	UART3
	PWM1
	I2C0
	I2C1
	I2C2
	SPI
	SSP0
	SSP1
	PLL1
	RTC
	EINT0
	EINT1
	EINT2
	EINT3
	ADC
	BOD
	USB
	CAN
	GPDMA
	I2S
	ENET
	RIT
	MCPWM
	QEI
	PLL0
	USBActivity
	CANActivity
)

// PriorityGrouping selects how the 5 implemented priority bits split
// between preempt priority and sub-priority.
type PriorityGrouping uint32

const (
	Priorities32Group1Sub PriorityGrouping = 2
	Priorities16Group2Sub PriorityGrouping = 3
	Priorities8Group4Sub  PriorityGrouping = 4
	Priorities4Group8Sub  PriorityGrouping = 5
	Priorities2Group16Sub PriorityGrouping = 6
	Priorities1Group32Sub PriorityGrouping = 7
)

var priorityGrouping = Priorities32Group1Sub

// peripheralHandlers is the fixed per-vector dispatch table populated once
// by each peripheral's Init. It is indexed by peripheral IRQn (index 0 is
// WDT); system exceptions have no slot. See index().
var peripheralHandlers [35]func()

func index(id IRQn) int {
	return int(id)
}

// Attach registers the handler invoked by Handle for a peripheral
// interrupt. It does not touch NVIC enable state; call Enable separately.
func Attach(id IRQn, handler func()) {
	if id < 0 {
		panic("irq: Attach only supports peripheral interrupts")
	}
	peripheralHandlers[index(id)] = handler
}

// Handle invokes the handler registered for id, if any. A real vector
// table (outside this library's scope) calls this from the raw exception
// entry; test harnesses call it directly to simulate an ISR firing.
func Handle(id IRQn) {
	if id < 0 {
		return
	}
	if h := peripheralHandlers[index(id)]; h != nil {
		h()
	}
}

// EnableGlobal unmasks interrupts at the processor level by clearing
// PRIMASK (CPSIE i).
func EnableGlobal() {
	enableInterrupts()
}

// DisableGlobal masks interrupts at the processor level by setting PRIMASK
// (CPSID i).
func DisableGlobal() {
	disableInterrupts()
}

// Enable unmasks interrupt in the NVIC, or the matching SCB enable bit for
// the handful of system exceptions that have one.
func Enable(interrupt IRQn) {
	switch {
	case interrupt >= 0:
		reg.Set(ISER0+4*uint32(interrupt/32), int(interrupt%32))
	case interrupt == UsageFault:
		reg.Set(SHCSR, shcsrUsgFaultEna)
	case interrupt == BusFault:
		reg.Set(SHCSR, shcsrBusFaultEna)
	case interrupt == MemoryManagement:
		reg.Set(SHCSR, shcsrMemFaultEna)
	case interrupt == SysTick:
		reg.Set(0xe000e010, 1) // SysTick CTRL.TICKINT
	}
}

// Disable masks interrupt, mirroring Enable.
func Disable(interrupt IRQn) {
	switch {
	case interrupt >= 0:
		reg.Set(ICER0+4*uint32(interrupt/32), int(interrupt%32))
	case interrupt == UsageFault:
		reg.Clear(SHCSR, shcsrUsgFaultEna)
	case interrupt == BusFault:
		reg.Clear(SHCSR, shcsrBusFaultEna)
	case interrupt == MemoryManagement:
		reg.Clear(SHCSR, shcsrMemFaultEna)
	case interrupt == SysTick:
		reg.Clear(0xe000e010, 1)
	}
}

// IsPending reports whether any exception is pending (SCB ICSR.ISRPENDING).
func IsPending() bool {
	return reg.Get(ICSR, 22, 1) == 1
}

// IsPendingIRQ reports whether interrupt specifically is pending.
func IsPendingIRQ(interrupt IRQn) bool {
	switch {
	case interrupt >= 0:
		return reg.Get(ISPR0+4*uint32(interrupt/32), int(interrupt%32), 1) == 1
	case interrupt == NonMaskableInt:
		return reg.Get(ICSR, icsrNMIPendSet, 1) == 1
	case interrupt == PendSV:
		return reg.Get(ICSR, icsrPendSVSet, 1) == 1
	case interrupt == SysTick:
		return reg.Get(ICSR, icsrPendSTSet, 1) == 1
	case interrupt == SVCall:
		return reg.Get(SHCSR, shcsrSVCallPended, 1) == 1
	case interrupt == BusFault:
		return reg.Get(SHCSR, shcsrBusFaultPended, 1) == 1
	case interrupt == MemoryManagement:
		return reg.Get(SHCSR, shcsrMemFaultPended, 1) == 1
	case interrupt == UsageFault:
		return reg.Get(SHCSR, shcsrUsgFaultPended, 1) == 1
	}
	return false
}

// GetPending returns the highest priority pending exception/interrupt,
// converting SCB's raw exception number (interrupt + 16) to an IRQn.
func GetPending() IRQn {
	exception := int32(reg.Get(ICSR, icsrVectPending, 0x1ff))
	return IRQn(exception - 16)
}

// SetPending forces interrupt into the pending state.
func SetPending(interrupt IRQn) {
	switch {
	case interrupt >= 0:
		reg.Set(ISPR0+4*uint32(interrupt/32), int(interrupt%32))
	case interrupt == NonMaskableInt:
		reg.Set(ICSR, icsrNMIPendSet)
	case interrupt == PendSV:
		reg.Set(ICSR, icsrPendSVSet)
	case interrupt == SysTick:
		reg.Set(ICSR, icsrPendSTSet)
	case interrupt == SVCall:
		reg.Set(SHCSR, shcsrSVCallPended)
	case interrupt == BusFault:
		reg.Set(SHCSR, shcsrBusFaultPended)
	case interrupt == MemoryManagement:
		reg.Set(SHCSR, shcsrMemFaultPended)
	case interrupt == UsageFault:
		reg.Set(SHCSR, shcsrUsgFaultPended)
	}
}

// ClearPending clears interrupt's pending state.
func ClearPending(interrupt IRQn) {
	switch {
	case interrupt >= 0:
		reg.Set(ICPR0+4*uint32(interrupt/32), int(interrupt%32))
	case interrupt == PendSV:
		reg.Set(ICSR, icsrPendSVClr)
	case interrupt == SysTick:
		reg.Set(ICSR, icsrPendSTClr)
	case interrupt == SVCall:
		reg.Clear(SHCSR, shcsrSVCallPended)
	case interrupt == BusFault:
		reg.Clear(SHCSR, shcsrBusFaultPended)
	case interrupt == MemoryManagement:
		reg.Clear(SHCSR, shcsrMemFaultPended)
	case interrupt == UsageFault:
		reg.Clear(SHCSR, shcsrUsgFaultPended)
	}
}

// IsActive reports whether the processor is currently executing any
// exception handler other than the thread's base level (ICSR.RETTOBASE).
func IsActive() bool {
	return reg.Get(ICSR, icsrRetToBase, 1) == 0
}

// IsActiveIRQ reports whether interrupt specifically is currently active.
func IsActiveIRQ(interrupt IRQn) bool {
	switch {
	case interrupt >= 0:
		return reg.Get(IABR0+4*uint32(interrupt/32), int(interrupt%32), 1) == 1
	case interrupt == SysTick:
		return reg.Get(SHCSR, shcsrSysTickAct, 1) == 1
	case interrupt == PendSV:
		return reg.Get(SHCSR, shcsrPendSVAct, 1) == 1
	case interrupt == DebugMonitor:
		return reg.Get(SHCSR, shcsrMonitorAct, 1) == 1
	case interrupt == SVCall:
		return reg.Get(SHCSR, shcsrSVCallAct, 1) == 1
	case interrupt == UsageFault:
		return reg.Get(SHCSR, shcsrUsgFaultAct, 1) == 1
	case interrupt == BusFault:
		return reg.Get(SHCSR, shcsrBusFaultAct, 1) == 1
	case interrupt == MemoryManagement:
		return reg.Get(SHCSR, shcsrMemFaultAct, 1) == 1
	}
	return false
}

// GetActive returns the currently executing exception/interrupt.
func GetActive() IRQn {
	exception := int32(reg.Get(ICSR, icsrVectActive, 0x1ff))
	return IRQn(exception - 16)
}

// SetPriority encodes preempt and sub priority according to the current
// priority grouping and programs interrupt's NVIC/SHPR priority field.
func SetPriority(interrupt IRQn, preemptPriority, subPriority uint32) {
	priority := encodePriority(priorityGrouping, preemptPriority, subPriority)
	const mask = 1<<prioBits - 1

	switch {
	case interrupt >= 0:
		addr := IPR0 + 4*(uint32(interrupt)/4)
		pos := int(uint32(interrupt)%4) * 8
		reg.SetN(addr, pos+(8-prioBits), mask, priority)
	case interrupt == MemoryManagement:
		reg.SetN(SHPR2-4, 0+(8-prioBits), mask, priority)
	case interrupt == BusFault:
		reg.SetN(SHPR2-4, 8+(8-prioBits), mask, priority)
	case interrupt == UsageFault:
		reg.SetN(SHPR2-4, 16+(8-prioBits), mask, priority)
	case interrupt == SVCall:
		reg.SetN(SHPR2, 24+(8-prioBits), mask, priority)
	case interrupt == DebugMonitor:
		reg.SetN(SHPR3, 0+(8-prioBits), mask, priority)
	case interrupt == PendSV:
		reg.SetN(SHPR3, 16+(8-prioBits), mask, priority)
	case interrupt == SysTick:
		reg.SetN(SHPR3, 24+(8-prioBits), mask, priority)
	}
}

// encodePriority packs preempt/sub priority the way CMSIS's
// NVIC_EncodePriority does, honoring the active grouping and the number of
// priority bits LPC176x implements.
func encodePriority(grouping PriorityGrouping, preemptPriority, subPriority uint32) uint32 {
	groupBits := uint32(grouping) & 0x7

	preemptBits := uint32(7) - groupBits
	if preemptBits > prioBits {
		preemptBits = prioBits
	}

	subBits := groupBits + prioBits - 7
	if int32(subBits) < 0 {
		subBits = 0
	}

	preemptMask := uint32(1)<<preemptBits - 1
	subMask := uint32(1)<<subBits - 1

	var word uint32
	bits.SetN(&word, int(subBits), int(preemptMask), preemptPriority&preemptMask)
	bits.SetN(&word, 0, int(subMask), subPriority&subMask)

	return word
}

// SetPriorityGrouping changes how future SetPriority calls split preempt
// and sub priority, and programs AIRCR.PRIGROUP accordingly.
func SetPriorityGrouping(grouping PriorityGrouping) {
	priorityGrouping = grouping
	reg.SetN(AIRCR, 8, 0x7, uint32(grouping))
	reg.SetN(AIRCR, 16, 0xffff, 0x5fa) // VECTKEY
}

// Trigger sets interrupt pending via the Software Triggered Interrupt
// Register, valid only for the 112 NVIC-numbered interrupts LPC176x's NVIC
// exposes the register for.
func Trigger(interrupt IRQn) {
	if interrupt >= 0 && interrupt < 112 {
		reg.Write(STIR, uint32(interrupt))
	}
}
