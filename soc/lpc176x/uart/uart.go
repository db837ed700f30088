// Package uart implements the LPC176x UART peripherals (UART0-3): baud
// rate generation via the fractional divider, an interrupt-driven transmit
// path, and a receive path that is either interrupt-driven into a
// lock-free ring buffer or handed off to a GPDMA channel in auto-reload
// mode (UM10360 chapter 14).
package uart

import (
	"sync/atomic"
	"unsafe"

	"github.com/lpc176x/periph/internal/reg"
	"github.com/lpc176x/periph/soc/lpc176x/dma"
	"github.com/lpc176x/periph/soc/lpc176x/irq"
	"github.com/lpc176x/periph/soc/lpc176x/pin"
)

// dataAddr returns the address of buf's backing array, for handing caller
// buffers to the DMA controller without a copy.
func dataAddr(buf []byte) uintptr {
	if len(buf) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&buf[0]))
}

// Register offsets common to UART0, UART2 and UART3 (UART1 additionally
// has modem control/status registers at different offsets, but every
// register this package touches sits at the same offset across all four
// instances).
const (
	rbrThrDll = 0x000
	dlmIer    = 0x004
	iirFcr    = 0x008
	lcr       = 0x00c
	lsr       = 0x014
	fdr       = 0x028
)

// CharacterLength selects the LCR word length field.
type CharacterLength uint8

const (
	Char5Bit CharacterLength = 0
	Char6Bit CharacterLength = 1
	Char7Bit CharacterLength = 2
	Char8Bit CharacterLength = 3
)

// StopBits selects the LCR stop bit field.
type StopBits uint8

const (
	Stop1   StopBits = 0
	Stop1_5 StopBits = 1
	Stop2   StopBits = 1
)

// Parity selects the LCR parity field.
type Parity uint8

const (
	ParityNone Parity = 0
	ParityOdd  Parity = 1
	ParityEven Parity = 3
	ParityHigh Parity = 5
	ParityLow  Parity = 7
)

// Mode packs character length, stop bits, parity and break control into
// the single byte Init's LCR write expects.
func Mode(characterLength CharacterLength, stopBits StopBits, parity Parity, breakControl bool) uint8 {
	m := (uint8(characterLength) << 0) | (uint8(stopBits) << 2) | (uint8(parity) << 3)
	if breakControl {
		m |= 1 << 6
	}
	return m
}

// maxDMATransfer is the largest single-block transfer count GPDMA's
// 12-bit DMACCControl transfer-count field can hold; scatter/gather
// linked lists (which would lift this limit) are out of scope.
const maxDMATransfer = 4095

// UART is one LPC176x UART instance. Instances are wired once as
// package-level singletons by the board support file (soc/lpc176x),
// which supplies the fixed DMA request-line pair this instance's GPDMA
// channels must be configured with — replacing the original library's
// per-subclass configureReceiveDMA/configureTransmitDMA virtual hook with
// plain struct fields set at construction.
type UART struct {
	index int
	base  uint32

	dmaRxPeripheral dma.Peripheral
	dmaTxPeripheral dma.Peripheral

	rxDMA   *dma.DMA
	rxBuf   []byte
	rxRead  uint32
	rxWrite uint32

	txDMA  *dma.DMA
	txBuf  []byte
	txLen  uint16
	txBusy uint32 // atomic bool
}

// New returns a handle for one of the four physical UART instances
// (index 0-3) at the given register base address, configured for the
// GPDMA request-line pair that instance is wired to.
func New(index int, base uint32, dmaRx, dmaTx dma.Peripheral) *UART {
	return &UART{index: index, base: base, dmaRxPeripheral: dmaRx, dmaTxPeripheral: dmaTx}
}

func (u *UART) reg(offset uint32) uint32 { return u.base + offset }

// setBaudrate programs DLL/DLM/FDR for baudrate from peripheralFrequency
// with a two-stage search: first the MULVAL (1-15) whose rounded quotient
// q = peripheralFrequency*MULVAL/(16*baudrate) has the smallest error, then
// the DIVADDVAL (0..MULVAL-1) for which (MULVAL+DIVADDVAL)*DL best matches
// q. A DIVADDVAL of 0 falls back to a plain integer divisor. The stages are
// searched one after the other, not jointly, so the result is not always
// the closest rate any divisor combination can reach.
func (u *UART) setBaudrate(peripheralFrequency, baudrate uint32) {
	target := 16 * baudrate

	minError := ^uint32(0)
	bestMultiplier := uint32(1)

	for multiplier := uint32(1); multiplier < 16; multiplier++ {
		multiplied := peripheralFrequency * multiplier
		q := (multiplied + target/2) / target

		sum := q * target
		var errv uint32
		if sum > multiplied {
			errv = sum - multiplied
		} else {
			errv = multiplied - sum
		}

		if errv < minError {
			minError = errv
			bestMultiplier = multiplier
			if errv == 0 {
				break
			}
		}
	}

	multiplied := peripheralFrequency * bestMultiplier
	q := (multiplied + target/2) / target

	minError = ^uint32(0)
	bestDivider := uint32(0)

	for divider := uint32(0); divider < bestMultiplier; divider++ {
		sum := bestMultiplier + divider
		dl := (q + sum/2) / sum

		product := sum * dl
		var errv uint32
		if product > q {
			errv = product - q
		} else {
			errv = q - product
		}

		if errv < minError {
			minError = errv
			bestDivider = divider
			if errv == 0 {
				break
			}
		}
	}

	reg.Set(u.reg(lcr), 7) // DLAB

	if bestDivider == 0 {
		dl := (peripheralFrequency + target/2) / target
		reg.Write(u.reg(fdr), 1<<4)
		reg.Write(u.reg(rbrThrDll), dl&0xff)
		reg.Write(u.reg(dlmIer), (dl>>8)&0xff)
	} else {
		reg.Write(u.reg(fdr), (bestMultiplier<<4)|bestDivider)
		sum := bestMultiplier + bestDivider
		dl := (q + sum/2) / sum
		reg.Write(u.reg(rbrThrDll), dl&0xff)
		reg.Write(u.reg(dlmIer), (dl>>8)&0xff)
	}

	reg.Clear(u.reg(lcr), 7)
}

// Init brings up the UART: pin mux on txdIndex/txdIndex+1, baud rate,
// 8N1-or-custom framing via mode, FIFO reset, and the NVIC vector. It does
// not power the UART in PCONP or program its PCLKSEL divider;
// peripheralFrequency is only used to compute the baud-rate divisors. It
// does not itself start a receive or transmit operation.
func (u *UART) Init(txdIndex pin.Pin, function pin.Function, peripheralFrequency, baudrate uint32, mode uint8, vector irq.IRQn) {
	pin.SetFunction(txdIndex, function)
	pin.SetPullMode(txdIndex, pin.NoPull)
	pin.SetOpenDrain(txdIndex, false)

	rxd := txdIndex + 1
	pin.SetFunction(rxd, function)
	pin.SetPullMode(rxd, pin.NoPull)
	pin.SetOpenDrain(rxd, false)

	u.setBaudrate(peripheralFrequency, baudrate)

	reg.Write(u.reg(lcr), uint32(mode))
	reg.Write(u.reg(iirFcr), (1<<3)|(1<<2)|(1<<1)|(1<<0))
	reg.Write(u.reg(dlmIer), 0)

	irq.Attach(vector, u.handle)
	irq.Enable(vector)
}

// handle services one or more pending UART interrupts, draining IIR until
// its "no interrupt pending" bit is set, exactly as the hardware requires
// (IIR latches only the highest priority source per read).
func (u *UART) handle() {
	status := reg.Read(u.reg(iirFcr))

	for status&1 == 0 {
		u.processInterrupt(status)
		status = reg.Read(u.reg(iirFcr))
	}
}

// processInterrupt services a single IIR status reading. It is split out
// from handle's drain loop so that each interrupt source can be exercised
// directly with a specific status value.
func (u *UART) processInterrupt(status uint32) {
	switch (status >> 1) & 0x7 {
	case 3: // receive line status error
		_ = reg.Read(u.reg(lsr))
	case 2, 6: // receive data available / character time-out
		b := byte(reg.Read(u.reg(rbrThrDll)))
		w := atomic.LoadUint32(&u.rxWrite)
		if int(w) < len(u.rxBuf) {
			u.rxBuf[w] = b
		}
		atomic.StoreUint32(&u.rxWrite, (w+1)%uint32(len(u.rxBuf)))
	case 1: // transmit holding register empty
		if u.txLen > 0 {
			reg.Write(u.reg(rbrThrDll), uint32(u.txBuf[0]))
			u.txBuf = u.txBuf[1:]
			u.txLen--
		} else {
			atomic.StoreUint32(&u.txBusy, 0)
		}
	}
}

// Receive arms interrupt-driven reception into buf, a caller-owned ring
// buffer whose capacity becomes the ring's modulus.
func (u *UART) Receive(buf []byte) {
	u.rxBuf = buf
	atomic.StoreUint32(&u.rxRead, 0)
	atomic.StoreUint32(&u.rxWrite, 0)
	u.rxDMA = nil

	reg.Set(u.reg(dlmIer), 0)
}

// ReceiveDMA arms DMA-driven reception into buf using channel in
// auto-reload mode. buf's length becomes both the ring modulus and the
// DMA transfer count, which is the precondition the write-index
// accounting in BytesAvailable depends on: the ring size and the DMA
// block size must be the same value, and that value must not exceed
// GPDMA's 12-bit transfer-count field. ReceiveDMA panics if buf is too
// large for a single auto-reload block, since this library implements no
// scatter/gather fallback.
func (u *UART) ReceiveDMA(buf []byte, channel *dma.DMA) {
	if len(buf) > maxDMATransfer {
		panic("uart: DMA receive buffer exceeds a single GPDMA block (4095 bytes)")
	}

	u.rxDMA = channel
	u.rxBuf = buf
	atomic.StoreUint32(&u.rxRead, 0)

	reg.Clear(u.reg(dlmIer), 0)

	channel.Configure(dma.PeripheralToMemory, u.dmaRxPeripheral, dma.Unused,
		dma.Burst1, dma.Burst1, dma.Byte, dma.Byte, false, true)
	channel.Transfer(uintptr(u.reg(rbrThrDll)), uintptr(dataAddr(buf)), uint32(len(buf)), true)
}

// BytesAvailable returns the number of unread bytes currently in the ring.
func (u *UART) BytesAvailable() uint16 {
	size := uint32(len(u.rxBuf))
	if size == 0 {
		return 0
	}

	write := atomic.LoadUint32(&u.rxWrite)
	if u.rxDMA != nil {
		// The DMA write position trails the buffer's end by the transfer
		// count still outstanding; size-left wraps modulo the ring exactly
		// because size equals the DMA block length (ReceiveDMA's
		// precondition).
		write = (size - u.rxDMA.TransfersLeft()) % size
		atomic.StoreUint32(&u.rxWrite, write)
	}

	read := atomic.LoadUint32(&u.rxRead)
	return uint16((size + write - read) % size)
}

// GetChar returns the next unread byte, or 0 if none is available.
func (u *UART) GetChar() byte {
	if u.BytesAvailable() == 0 {
		return 0
	}

	read := atomic.LoadUint32(&u.rxRead)
	b := u.rxBuf[read]
	atomic.StoreUint32(&u.rxRead, (read+1)%uint32(len(u.rxBuf)))
	return b
}

// Transmit starts an interrupt-driven transmission of buf. It returns
// false without starting anything if a transmission is already in
// progress.
func (u *UART) Transmit(buf []byte) bool {
	if u.IsTransmitting() {
		return false
	}
	if len(buf) == 0 {
		return true
	}

	reg.Set(u.reg(dlmIer), 1)
	u.txDMA = nil

	reg.Write(u.reg(rbrThrDll), uint32(buf[0]))
	u.txBuf = buf[1:]
	u.txLen = uint16(len(buf) - 1)

	atomic.StoreUint32(&u.txBusy, 1)
	return true
}

// TransmitDMA starts a DMA-driven transmission of buf over channel. It
// returns false without starting anything if a transmission is already in
// progress.
func (u *UART) TransmitDMA(buf []byte, channel *dma.DMA) bool {
	if u.IsTransmitting() {
		return false
	}
	if len(buf) == 0 {
		return true
	}

	reg.Clear(u.reg(dlmIer), 1)
	u.txDMA = channel

	channel.Configure(dma.MemoryToPeripheral, dma.Unused, u.dmaTxPeripheral,
		dma.Burst1, dma.Burst1, dma.Byte, dma.Byte, true, false)
	channel.Transfer(uintptr(dataAddr(buf)), uintptr(u.reg(rbrThrDll)), uint32(len(buf)), false)

	return true
}

// IsTransmitting reports whether a transmission (interrupt- or DMA-driven)
// is still in progress, folding in the DMA channel's live transfer count
// and the transmit-holding-register-empty status bit the same way the
// original combines them: even once the byte count reaches zero, the UART
// may still be shifting the final byte out.
func (u *UART) IsTransmitting() bool {
	if u.txDMA != nil {
		if u.txDMA.TransfersLeft() != 0 {
			atomic.StoreUint32(&u.txBusy, 1)
		} else {
			atomic.StoreUint32(&u.txBusy, 0)
		}
	}

	return atomic.LoadUint32(&u.txBusy) != 0 || reg.Get(u.reg(lsr), 5, 1) == 0
}

// Index returns this UART's instance number (0-3).
func (u *UART) Index() int { return u.index }
