package irq

import (
	"testing"

	"github.com/lpc176x/periph/internal/reg"
)

func resetState(t *testing.T) {
	t.Helper()
	restore := reg.UseMock()
	t.Cleanup(restore)

	priorityGrouping = Priorities32Group1Sub
	for i := range peripheralHandlers {
		peripheralHandlers[i] = nil
	}
}

func TestAttachAndHandle(t *testing.T) {
	resetState(t)

	var fired bool
	Attach(UART0, func() { fired = true })

	Handle(UART0)

	if !fired {
		t.Fatal("Handle did not invoke the attached handler")
	}
}

func TestHandle_NoHandlerIsNoop(t *testing.T) {
	resetState(t)
	Handle(I2C1) // must not panic
}

func TestHandle_SystemExceptionIsIgnored(t *testing.T) {
	resetState(t)
	Handle(SysTick) // negative IDs are not peripheral vectors
}

func TestEnableDisable_SetsNVICRegister(t *testing.T) {
	resetState(t)

	Enable(UART1)
	if reg.Peek(ISER0)&(1<<uint(UART1)) == 0 {
		t.Fatal("Enable(UART1) did not set ISER0 bit")
	}

	Disable(UART1)
	if reg.Peek(ICER0)&(1<<uint(UART1)) == 0 {
		t.Fatal("Disable(UART1) did not set ICER0 bit")
	}
}

func TestSetPriorityGrouping_ProgramsAIRCR(t *testing.T) {
	resetState(t)

	SetPriorityGrouping(Priorities8Group4Sub)

	field := (reg.Peek(AIRCR) >> 8) & 0x7
	if field != uint32(Priorities8Group4Sub) {
		t.Fatalf("AIRCR.PRIGROUP = %d, want %d", field, Priorities8Group4Sub)
	}
}

func TestEncodePriority_FullGroupAllPreempt(t *testing.T) {
	// Priorities32Group1Sub: 5 preempt bits, 0 sub bits (5-bit field total).
	got := encodePriority(Priorities32Group1Sub, 17, 0)
	if got != 17 {
		t.Fatalf("encodePriority = %d, want 17", got)
	}
}

func TestSetPriority_DebugMonitorUsesSHPR3(t *testing.T) {
	resetState(t)

	SetPriority(DebugMonitor, 17, 0)

	want := uint32(17) << (8 - prioBits)
	if got := reg.Peek(SHPR3) & 0xff; got != want {
		t.Fatalf("SHPR3[7:0] = %d, want %d", got, want)
	}
	if reg.Peek(SHPR2)&0xff != 0 {
		t.Fatal("SetPriority(DebugMonitor, ...) must not touch SHPR2")
	}
}

func TestGetPending_ConvertsExceptionNumber(t *testing.T) {
	resetState(t)

	// UART0 is IRQn 5; SCB reports exception number IRQn+16 = 21.
	reg.Poke(ICSR, 21<<icsrVectPending)

	if got := GetPending(); got != UART0 {
		t.Fatalf("GetPending() = %d, want %d", got, UART0)
	}
}
