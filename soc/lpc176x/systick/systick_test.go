package systick

import (
	"testing"

	"github.com/lpc176x/periph/internal/reg"
)

func TestStart_ProgramsReloadAndEnablesCounter(t *testing.T) {
	restore := reg.UseMock()
	defer restore()

	tick = 0

	Start()

	got := reg.Peek(load)
	want := clockCPUFrequencyForTest() / ticksPerSecond - 1
	if got != want {
		t.Fatalf("LOAD = %d, want %d", got, want)
	}

	if reg.Peek(ctrl)&(1<<ctrlEnable) == 0 {
		t.Fatal("CTRL.ENABLE not set")
	}
}

func TestTicToc(t *testing.T) {
	restore := reg.UseMock()
	defer restore()

	tick = 0
	start := Tic()

	for i := 0; i < 25; i++ {
		handleTick()
	}

	if elapsed := Toc(start); elapsed != 250 {
		t.Fatalf("Toc() = %d ms, want 250", elapsed)
	}
}

func clockCPUFrequencyForTest() uint32 {
	// Mirrors clock.CPUFrequency()'s default (RC oscillator, 4 MHz) absent
	// any prior clock configuration in this test binary.
	return 4000000
}
