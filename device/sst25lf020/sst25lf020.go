// Package sst25lf020 implements a thin wrapper around an SST25LF020 serial
// flash chip: another of this library's light off-chip abstractions,
// limited to chip-select sequencing and the read-ID command. Programming,
// erase, and status-register polling are not implemented; the caller owns
// SPI/SSP controller initialization (the bus may be shared with other
// devices and must not be reconfigured per transfer).
package sst25lf020

import "github.com/lpc176x/periph/conn"

// MaximumClockFrequency is the highest SCK rate the device supports.
const MaximumClockFrequency = 33000000

// Bus mode required by the device: SPI mode 0, MSB first.
const (
	CPOL     = false
	CPHA     = false
	LSBFirst = false
)

// SST25LF020 drives one chip over a shared SPI bus via its own
// chip-select pin.
type SST25LF020 struct {
	spi conn.SPI
	ss  conn.Pin
}

// New returns a handle for a chip on spi, selected by ss. ss is driven
// high (deselected) immediately; spi must already be initialized for
// CPOL=0, CPHA=0, MSB-first, at or below MaximumClockFrequency.
func New(spi conn.SPI, ss conn.Pin) *SST25LF020 {
	f := &SST25LF020{spi: spi, ss: ss}
	f.ss.Set()
	return f
}

func (f *SST25LF020) selectChip() { f.ss.Clear() }
func (f *SST25LF020) deselect()   { f.ss.Set() }

// ReadID issues the 0x90 read-ID command (opcode plus three don't-care
// address bytes) and returns the 16-bit manufacturer/device ID clocked
// out over the two bytes that follow.
func (f *SST25LF020) ReadID() (uint16, error) {
	tx := []byte{0x90, 0x00, 0x00, 0x00, 0x00, 0x00}
	rx := make([]byte, len(tx))

	f.selectChip()
	defer f.deselect()

	if err := f.spi.Transfer(tx, rx); err != nil {
		return 0, err
	}

	return uint16(rx[4])<<8 | uint16(rx[5]), nil
}
