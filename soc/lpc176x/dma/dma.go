// Package dma implements the LPC176x General Purpose DMA controller
// (GPDMA): the 8-channel register block, request-line selection via
// DMAREQSEL, and a cached control/config-word "template" per channel that
// supports auto-reload (UM10360 chapter 31). Scatter/gather linked lists
// are out of scope; DMACCLLI is always programmed to 0.
package dma

import (
	"github.com/lpc176x/periph/bits"
	"github.com/lpc176x/periph/internal/reg"
	"github.com/lpc176x/periph/soc/lpc176x/clock"
	"github.com/lpc176x/periph/soc/lpc176x/irq"
)

const (
	gpdmaBase = 0x50004000

	dmacIntStat    = gpdmaBase + 0x000
	dmacIntTCStat  = gpdmaBase + 0x004
	dmacIntTCClear = gpdmaBase + 0x008
	dmacIntErrStat = gpdmaBase + 0x00c
	dmacIntErrClr  = gpdmaBase + 0x010
	dmacConfig     = gpdmaBase + 0x030

	scDMAREQSEL = 0x400fc000 + 0x0304

	channelBase   = gpdmaBase + 0x100
	channelStride = 0x20

	chSrcAddr = 0x00
	chDstAddr = 0x04
	chLLI     = 0x08
	chControl = 0x0c
	chConfig  = 0x10
)

// Channel identifies one of the 8 GPDMA channels.
type Channel uint8

const (
	Ch0 Channel = iota
	Ch1
	Ch2
	Ch3
	Ch4
	Ch5
	Ch6
	Ch7
)

// TransferType selects the flow controller field of DMACCConfig.
type TransferType uint32

const (
	MemoryToMemory        TransferType = 0
	MemoryToPeripheral    TransferType = 1
	PeripheralToMemory    TransferType = 2
	PeripheralToPeripheral TransferType = 3
)

// Peripheral selects a channel's source/destination DMA request line
// (UM10360 Table 555). Bit 4 set selects the "alternate" peripheral
// function latched into DMAREQSEL for that request line.
type Peripheral uint32

const (
	Unused  Peripheral = 0
	SSP0Tx  Peripheral = 0
	SSP0Rx  Peripheral = 1
	SSP1Tx  Peripheral = 2
	SSP1Rx  Peripheral = 3
	ADC     Peripheral = 4
	I2SCh0  Peripheral = 5
	I2SCh1  Peripheral = 6
	DAC     Peripheral = 7
	UART0Tx Peripheral = 8
	UART0Rx Peripheral = 9
	UART1Tx Peripheral = 10
	UART1Rx Peripheral = 11
	UART2Tx Peripheral = 12
	UART2Rx Peripheral = 13
	UART3Tx Peripheral = 14
	UART3Rx Peripheral = 15
	MAT0_0  Peripheral = 24
	MAT0_1  Peripheral = 25
	MAT1_0  Peripheral = 26
	MAT1_1  Peripheral = 27
	MAT2_0  Peripheral = 28
	MAT2_1  Peripheral = 29
	MAT3_0  Peripheral = 30
	MAT3_1  Peripheral = 31
)

// BurstSize selects the number of transfers per burst request.
type BurstSize uint32

const (
	Burst1 BurstSize = iota
	Burst4
	Burst8
	Burst16
	Burst32
	Burst64
	Burst128
	Burst256
)

// TransferWidth selects the per-transfer data width.
type TransferWidth uint32

const (
	Byte     TransferWidth = 0
	Halfword TransferWidth = 1
	Word     TransferWidth = 2
)

// DMA is one GPDMA channel, addressed by its fixed hardware channel number.
// Instances are wired once as package-level singletons by the board support
// file, mirroring the per-channel singleton of the original library.
type DMA struct {
	channel Channel

	control uint32
	config  uint32
}

// NewChannel returns the DMA handle for a fixed hardware channel. It holds
// no register state until Configure is called.
func NewChannel(channel Channel) *DMA {
	return &DMA{channel: channel}
}

func (d *DMA) base() uint32 {
	return channelBase + uint32(d.channel)*channelStride
}

// Enable powers up the GPDMA controller, clears any stale interrupt
// status, and unmasks its shared NVIC vector. It must be called once
// before any channel is configured.
func Enable() {
	clock.EnablePeripheral(clock.PowerGPDMA)

	reg.Write(dmacConfig, 1)

	reg.Write(dmacIntTCClear, 0xff)
	reg.Write(dmacIntErrClr, 0xff)

	irq.Enable(irq.GPDMA)
}

// Disable masks the GPDMA NVIC vector, disables the controller and its
// peripheral power.
func Disable() {
	irq.Disable(irq.GPDMA)

	reg.Write(dmacConfig, 0)

	clock.DisablePeripheral(clock.PowerGPDMA)
}

func setRequestSelect(p Peripheral) {
	bitPos := int(p) & 0x07
	if p&(1<<4) != 0 {
		reg.Set(scDMAREQSEL, bitPos)
	} else {
		reg.Clear(scDMAREQSEL, bitPos)
	}
}

// Configure builds and caches this channel's control and config words.
// Subsequent calls to Transfer reuse the cached template, only patching in
// the transfer count, source/destination addresses and the auto-reload
// bit — exactly as the original fixed-template design requires, since a
// terminal-count ISR re-arms the channel by recommitting these same cached
// words rather than recomputing them.
func (d *DMA) Configure(transferType TransferType, source, destination Peripheral,
	sourceBurst, destinationBurst BurstSize,
	sourceWidth, destinationWidth TransferWidth,
	sourceIncrement, destinationIncrement bool) {

	var control uint32
	bits.SetN(&control, 12, 0x7, uint32(sourceBurst))
	bits.SetN(&control, 15, 0x7, uint32(destinationBurst))
	bits.SetN(&control, 18, 0x3, uint32(sourceWidth))
	bits.SetN(&control, 21, 0x3, uint32(destinationWidth))
	if sourceIncrement {
		bits.Set(&control, 26)
	}
	if destinationIncrement {
		bits.Set(&control, 27)
	}
	d.control = control

	setRequestSelect(source)
	setRequestSelect(destination)

	var config uint32
	bits.SetN(&config, 1, 0xf, uint32(source)&0xf)
	bits.SetN(&config, 6, 0xf, uint32(destination)&0xf)
	bits.SetN(&config, 11, 0x7, uint32(transferType))
	bits.Set(&config, 0)  // channel enable
	bits.Set(&config, 15) // terminal count interrupt mask clear (enable TC IRQ)
	d.config = config
}

// Transfer programs source/destination addresses and starts a transfer of
// count (1-4095) units using the channel's configured template. When
// autoReload is true the channel is automatically recommitted (with
// addresses rewound) by the interrupt handler once the transfer completes,
// repeating indefinitely.
func (d *DMA) Transfer(source, destination uintptr, count uint32, autoReload bool) {
	base := d.base()

	reg.Write(base+chConfig, 0)

	reg.Set(dmacIntTCClear, int(d.channel))
	reg.Set(dmacIntErrClr, int(d.channel))

	reg.Write(base+chSrcAddr, uint32(source))
	reg.Write(base+chDstAddr, uint32(destination))
	reg.Write(base+chLLI, 0)

	control := (d.control &^ 0xfff) | (count & 0xfff)
	if autoReload {
		control |= 1 << 31
	} else {
		control &^= 1 << 31
	}
	d.control = control

	reg.Write(base+chControl, d.control)
	reg.Write(base+chConfig, d.config)
}

// TotalTransfers returns the transfer count this channel was last started
// with.
func (d *DMA) TotalTransfers() uint32 {
	return d.control & 0xfff
}

// TransfersLeft returns the live transfer-count field straight from
// DMACCControl.
func (d *DMA) TransfersLeft() uint32 {
	return reg.Get(d.base()+chControl, 0, 0xfff)
}

// Transferred returns how many units have completed so far in the current
// transfer.
func (d *DMA) Transferred() uint32 {
	return d.TotalTransfers() - d.TransfersLeft()
}

// handle services this channel's terminal-count/error status, rewinding
// and recommitting the template on terminal count when the cached control
// word's auto-reload bit is set, and otherwise leaving the channel
// stopped. It is reached through the shared GPDMA dispatcher that Init
// registers, which is also what a test harness calls to simulate the
// shared IRQ firing.
func (d *DMA) handle() {
	base := d.base()
	chMask := uint32(1) << uint(d.channel)

	if reg.Read(dmacIntTCStat)&chMask != 0 {
		if d.control&(1<<31) != 0 {
			total := d.TotalTransfers()
			countToRewind := total - 1

			if d.control&(1<<26) != 0 {
				srcWidth := (d.control >> 18) & 0x3
				cur := reg.Read(base + chSrcAddr)
				reg.Write(base+chSrcAddr, cur-(countToRewind<<srcWidth))
			}
			if d.control&(1<<27) != 0 {
				dstWidth := (d.control >> 21) & 0x3
				cur := reg.Read(base + chDstAddr)
				reg.Write(base+chDstAddr, cur-(countToRewind<<dstWidth))
			}

			reg.Write(base+chControl, d.control)
			reg.Write(base+chConfig, d.config)
		}

		reg.Set(dmacIntTCClear, int(d.channel))
	}

	if reg.Read(dmacIntErrStat)&chMask != 0 {
		// Masked at configuration time; reaching here indicates a genuine
		// hardware bus error rather than routine operation.
		reg.Set(dmacIntErrClr, int(d.channel))
	}
}

// Init wires this channel's handle into the shared GPDMA vector via a
// channel-scanning dispatcher that every DMA channel shares, replacing the
// original per-channel NVIC hookup (LPC176x has one GPDMA vector covering
// all 8 channels).
func (d *DMA) Init() {
	registerChannel(d)
}

var channels [8]*DMA

func registerChannel(d *DMA) {
	channels[d.channel] = d
	if !dispatcherAttached {
		irq.Attach(irq.GPDMA, dispatch)
		dispatcherAttached = true
	}
}

var dispatcherAttached bool

// dispatch scans DMACIntStat for pending channels and invokes each one's
// handle, mirroring the original's DMA_IRQHandler loop.
func dispatch() {
	pending := reg.Read(dmacIntStat)
	for ch := Channel(0); ch < 8; ch++ {
		if pending&(1<<ch) == 0 {
			continue
		}
		if d := channels[ch]; d != nil {
			d.handle()
		}
	}
}
