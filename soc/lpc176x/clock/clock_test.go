package clock

import (
	"runtime"
	"testing"

	"github.com/lpc176x/periph/internal/reg"
)

// resetState restores clock package globals between tests, since they are
// package-level singletons mirroring the C original's static state.
func resetState(t *testing.T) {
	t.Helper()
	restore := reg.UseMock()
	t.Cleanup(restore)

	mainOscillatorFreq = 0
	cpuFrequency = rcOscillatorFreq
	numHandlers = 0
}

func TestConnectPLL0_12MHzTo120MHz(t *testing.T) {
	resetState(t)

	// Simulate the oscillator reporting ready (SCS bit 6) once it has been
	// enabled (SCS bit 5), since EnableMainOscillator blocks on it.
	go func() {
		for reg.Peek(SCS)&(1<<5) == 0 {
			runtime.Gosched()
		}
		reg.Poke(SCS, reg.Peek(SCS)|1<<6)
	}()

	EnableMainOscillator(12000000)
	UseSystemClock(MainOscillator, 1)

	// Simulate hardware lock indication, since ConnectPLL0 blocks on it.
	reg.Poke(PLL0STAT, 1<<26)

	if err := ConnectPLL0(20, 1, 4); err != nil {
		t.Fatalf("ConnectPLL0: %v", err)
	}

	if got := CPUFrequency(); got != 120000000 {
		t.Fatalf("CPUFrequency() = %d, want 120000000", got)
	}

	flashcfg := reg.Peek(FLASHCFG)
	if setting := (flashcfg >> 12) & 0xf; setting != 5 {
		t.Fatalf("FLASHCFG setting = %d, want 5", setting)
	}
}

func TestConnectPLL0_RejectsOutOfRangeMultiplier(t *testing.T) {
	resetState(t)

	if err := ConnectPLL0(5, 1, 1); err == nil {
		t.Fatal("expected error for multiplier below 6")
	}
	if err := ConnectPLL0(513, 1, 1); err == nil {
		t.Fatal("expected error for multiplier above 512")
	}
}

func TestAttachHandler_CapacityFour(t *testing.T) {
	resetState(t)

	var calls int
	cb := func(uint32) { calls++ }

	for i := 0; i < maxHandlers; i++ {
		if !AttachHandler(cb) {
			t.Fatalf("AttachHandler unexpectedly rejected handler %d", i)
		}
	}

	if AttachHandler(cb) {
		t.Fatal("AttachHandler should report false once the table is full")
	}

	UseSystemClock(InternalRC, 1)

	if calls != maxHandlers {
		t.Fatalf("calls = %d, want %d", calls, maxHandlers)
	}
}

func TestPeripheralClockFrequency_CANUsesDivideBy6(t *testing.T) {
	resetState(t)

	cpuFrequency = 96000000
	SetPeripheralClock(CAN1, DivideBy8Or6)
	SetPeripheralClock(UART0, DivideBy8Or6)

	if got := PeripheralClockFrequency(CAN1); got != 16000000 {
		t.Fatalf("CAN1 clock = %d, want 16000000", got)
	}
	if got := PeripheralClockFrequency(UART0); got != 12000000 {
		t.Fatalf("UART0 clock = %d, want 12000000", got)
	}
}

func TestSetPeripheralClock_PCLKSEL1Split(t *testing.T) {
	resetState(t)

	cpuFrequency = 96000000
	// UART2 = 24, index = 48 -> PCLKSEL1 bits 16:17
	SetPeripheralClock(UART2, DivideBy1)

	if got := PeripheralClockFrequency(UART2); got != 96000000 {
		t.Fatalf("UART2 clock = %d, want 96000000", got)
	}

	pclksel1 := reg.Peek(PCLKSEL1)
	if field := (pclksel1 >> 16) & 0x3; field != uint32(DivideBy1) {
		t.Fatalf("PCLKSEL1 field = %d, want %d", field, DivideBy1)
	}
}
