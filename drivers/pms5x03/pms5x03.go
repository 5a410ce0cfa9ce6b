// Package pms5x03 provides a driver for Plantower PMS5003-family laser
// particulate-matter sensors, including the I2C variant (PMSA003I).
//
// The sensor emits fixed 32-byte frames: a 2-byte start marker, a declared
// length, big-endian 16-bit concentration and particle-count fields, and a
// 16-bit additive checksum. ParseFrame validates and decodes one frame and
// is a pure function; Device binds the codec to an I2C bus.
//
// The sensor needs roughly 30 seconds of fan spin-up after leaving standby
// before frames are representative. Warmup sequencing is the caller's job;
// the driver only moves bytes.
package pms5x03

import (
	"errors"

	"tinygo.org/x/drivers"
)

// I2C address of the PMSA003I variant.
const Address = 0x12

// FrameLen is the full on-wire frame size in bytes.
const FrameLen = 32

// Start-of-frame marker ("BM").
const (
	header0 = 0x42
	header1 = 0x4D
)

// payloadLen is the declared length field: bytes following it (26 data + 2 checksum).
const payloadLen = 28

// Errors returned by the frame codec.
var (
	ErrBadHeader = errors.New("pms5x03: bad header")
	ErrTruncated = errors.New("pms5x03: truncated frame")
	ErrChecksum  = errors.New("pms5x03: checksum mismatch")
)

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Address defaults to 0x12 if zero.
	Address uint16
}

// Device wraps an I2C connection to a PMSA003I device.
type Device struct {
	bus     drivers.I2C
	Address uint16

	buf [FrameLen]byte // reuse buffer to avoid allocations
}

// New creates a new PMSA003I connection. The I2C bus must already be
// configured. This function only creates the Device object; it does not
// touch the device.
func New(bus drivers.I2C) Device {
	return Device{
		bus:     bus,
		Address: Address,
	}
}

// Configure applies optional config. It may be called with no cfg.
func (d *Device) Configure(cfgs ...Config) {
	if len(cfgs) > 0 && cfgs[0].Address != 0 {
		d.Address = cfgs[0].Address
	}
}

// ReadFrame performs one fixed-length bus read and decodes the result.
// Frame errors mean the transaction completed but carried a bad frame;
// bus errors are returned as-is.
func (d *Device) ReadFrame() (Frame, error) {
	if err := d.bus.Tx(d.Address, nil, d.buf[:]); err != nil {
		return Frame{}, err
	}
	return ParseFrame(d.buf[:])
}
