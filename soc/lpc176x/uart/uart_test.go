package uart

import (
	"testing"

	"github.com/lpc176x/periph/internal/reg"
	"github.com/lpc176x/periph/soc/lpc176x/dma"
	"github.com/lpc176x/periph/soc/lpc176x/irq"
)

const testBase = 0x4000c000 // UART0

func withMock(t *testing.T) *UART {
	t.Helper()
	restore := reg.UseMock()
	t.Cleanup(restore)

	return New(0, testBase, dma.UART0Rx, dma.UART0Tx)
}

// TestSetBaudrate_30MHzTo115200 reproduces the 115246 Hz actual-rate
// scenario: a 30 MHz peripheral clock targeting 115200 baud settles on an
// actual rate within 1 Hz of 115246.
func TestSetBaudrate_30MHzTo115200(t *testing.T) {
	u := withMock(t)

	u.setBaudrate(30000000, 115200)

	dll := reg.Peek(u.reg(rbrThrDll))
	dlm := reg.Peek(u.reg(dlmIer))
	fdr := reg.Peek(u.reg(fdr))

	dl := (dlm << 8) | dll
	mulval := (fdr >> 4) & 0xf
	divaddval := fdr & 0xf
	if mulval == 0 {
		mulval = 1
	}

	actual := (30000000 * mulval) / (16 * dl * (mulval + divaddval))
	if actual < 115245 || actual > 115247 {
		t.Fatalf("actual baud = %d, want ~115246", actual)
	}
}

func TestTransmit_RejectsWhileBusy(t *testing.T) {
	u := withMock(t)
	reg.Poke(u.reg(lsr), 1<<5) // transmitter idle: THR empty

	if ok := u.Transmit([]byte{0x41, 0x42}); !ok {
		t.Fatal("first Transmit() should succeed")
	}

	if ok := u.Transmit([]byte{0x43}); ok {
		t.Fatal("Transmit() while busy should return false")
	}
}

func TestTransmit_DrainsViaISR(t *testing.T) {
	u := withMock(t)
	reg.Poke(u.reg(lsr), 1<<5) // transmitter idle: THR empty

	u.Transmit([]byte("hi"))

	// Simulate a "THRE" interrupt (IIR bits 3:1 == 001) for the remaining
	// queued byte.
	u.processInterrupt(1 << 1)

	if u.txLen != 0 {
		t.Fatalf("txLen = %d, want 0 after draining remaining byte", u.txLen)
	}
}

func TestReceive_RingWrapsOnWrite(t *testing.T) {
	u := withMock(t)

	buf := make([]byte, 4)
	u.Receive(buf)

	for i := 0; i < 5; i++ {
		reg.Poke(u.reg(rbrThrDll), uint32(0x30+i))
		u.processInterrupt(2 << 1) // receive data available
	}

	if got := u.BytesAvailable(); got != 4 {
		t.Fatalf("BytesAvailable() = %d, want 4 (ring capacity)", got)
	}
}

func TestGetChar_AdvancesReadIndex(t *testing.T) {
	u := withMock(t)

	buf := make([]byte, 4)
	u.Receive(buf)

	reg.Poke(u.reg(rbrThrDll), 0x41)
	u.processInterrupt(2 << 1)

	if got := u.GetChar(); got != 0x41 {
		t.Fatalf("GetChar() = %#x, want 0x41", got)
	}
	if u.BytesAvailable() != 0 {
		t.Fatal("BytesAvailable() should be 0 after consuming the only byte")
	}
}

func TestReceiveDMA_RejectsOversizedBuffer(t *testing.T) {
	u := withMock(t)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for an oversized DMA receive buffer")
		}
	}()

	channel := dma.NewChannel(dma.Ch0)
	u.ReceiveDMA(make([]byte, 4096), channel)
}

func TestInit_AttachesVectorAndEnablesIRQ(t *testing.T) {
	u := withMock(t)

	u.Init(0, 1, 12000000, 9600, Mode(Char8Bit, Stop1, ParityNone, false), irq.UART0)

	fired := false
	irq.Attach(irq.UART0, func() { fired = true })
	// Re-attaching overwrites Init's own handler; call Handle to confirm
	// the vector is wired and enabled.
	irq.Handle(irq.UART0)
	if !fired {
		t.Fatal("UART0 vector was not attached")
	}
	if reg.Peek(0xe000e100)&(1<<uint(irq.UART0)) == 0 {
		t.Fatal("UART0 NVIC enable bit not set")
	}
}
