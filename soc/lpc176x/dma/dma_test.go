package dma

import (
	"testing"

	"github.com/lpc176x/periph/internal/reg"
	"github.com/lpc176x/periph/soc/lpc176x/irq"
)

func withMock(t *testing.T) *DMA {
	t.Helper()
	restore := reg.UseMock()
	t.Cleanup(restore)

	channels = [8]*DMA{}
	dispatcherAttached = false

	d := NewChannel(Ch1)
	d.Configure(PeripheralToMemory, UART0Rx, Unused, Burst1, Burst1, Byte, Byte, false, true)
	d.Init()

	return d
}

func TestTransfer_ProgramsAddressesAndCount(t *testing.T) {
	d := withMock(t)

	d.Transfer(0x40008000, 0x10000100, 16, true)

	if got := reg.Peek(d.base() + chSrcAddr); got != 0x40008000 {
		t.Fatalf("DMACCSrcAddr = %#x, want 0x40008000", got)
	}
	if got := reg.Peek(d.base() + chDstAddr); got != 0x10000100 {
		t.Fatalf("DMACCDestAddr = %#x, want 0x10000100", got)
	}
	if got := d.TotalTransfers(); got != 16 {
		t.Fatalf("TotalTransfers() = %d, want 16", got)
	}
	if d.control&(1<<31) == 0 {
		t.Fatal("auto-reload bit not set in cached control word")
	}
}

func TestHandle_AutoReloadRewindsDestination(t *testing.T) {
	d := withMock(t)

	d.Transfer(0x40008000, 0x10000100, 4, true)

	// Simulate the destination address left on the last of the 4
	// auto-incremented byte transfers (TransferWidth Byte) and the terminal
	// count firing on channel 1.
	reg.Poke(d.base()+chDstAddr, 0x10000103)
	reg.Poke(dmacIntStat, 1<<Ch1)
	reg.Poke(dmacIntTCStat, 1<<Ch1)

	dispatch()

	want := uint32(0x10000103 - 3) // (total-1)<<widthShift, width=Byte -> shift 0: back to the start
	if got := reg.Peek(d.base() + chDstAddr); got != want {
		t.Fatalf("DMACCDestAddr after rewind = %#x, want %#x", got, want)
	}

	// The channel must have been recommitted (config written back) so it
	// keeps running.
	if reg.Peek(d.base()+chConfig) == 0 {
		t.Fatal("channel was not recommitted after terminal count")
	}

	if reg.Peek(dmacIntTCClear)&(1<<Ch1) == 0 {
		t.Fatal("terminal count interrupt not cleared")
	}
}

func TestDispatch_SkipsChannelsWithoutPendingBit(t *testing.T) {
	d := withMock(t)
	d.Transfer(0, 0, 1, false)

	reg.Poke(dmacIntTCStat, 0) // nothing pending

	dispatch() // must not touch any channel register
	if reg.Peek(d.base() + chConfig) == 0 {
		t.Fatal("config should still hold the value Transfer wrote")
	}
}

func TestEnable_SetsUpControllerAndVector(t *testing.T) {
	restore := reg.UseMock()
	defer restore()

	Enable()

	if reg.Peek(dmacConfig) != 1 {
		t.Fatal("DMACConfig not enabled")
	}
	if !irqEnabled(irq.GPDMA) {
		t.Fatal("GPDMA NVIC vector not enabled")
	}
}

func irqEnabled(id irq.IRQn) bool {
	return reg.Peek(0xe000e100)&(1<<uint(id)) != 0
}
