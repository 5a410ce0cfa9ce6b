// Package sht3x provides a driver for the Sensirion SHT31-D
// temperature/humidity sensor in single-shot mode. It mirrors the
// two-phase measurement API used by our other I2C drivers:
//
//	d.Trigger()              // start a conversion (fast)
//	err := d.Collect(&s)     // fetch ~15 ms later
//
// Each 16-bit value in the response carries its own CRC-8; a corrupted
// half invalidates only that half, and Sample records per-half validity.
//
// Fixed-point helpers return tenths of units (deci-°C and deci-%RH);
// no floating point on the hot path.
package sht3x

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"
)

// Default I2C address (ADDR pin low). 0x45 with ADDR high.
const Address = 0x44

// Single-shot, high repeatability, no clock stretching.
const (
	cmdMeasureHigh0 = 0x24
	cmdMeasureHigh1 = 0x00
	cmdSoftReset0   = 0x30
	cmdSoftReset1   = 0xA2
)

// Errors returned by the driver.
var (
	ErrTimeout  = errors.New("sht3x: timeout")
	ErrNotReady = errors.New("sht3x: not ready")
	ErrChecksum = errors.New("sht3x: crc mismatch on both values")
)

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Address defaults to 0x44 if zero.
	Address uint16
	// PollInterval is used by Read() between Collect() attempts. Default 5 ms.
	PollInterval time.Duration
	// CollectTimeout bounds the total wait in Read(). Default 100 ms.
	CollectTimeout time.Duration
	// TriggerHint is the nominal high-repeatability conversion time. Default 15 ms.
	TriggerHint time.Duration
}

// Device wraps an I2C connection to an SHT31-D device.
type Device struct {
	bus     drivers.I2C
	Address uint16

	cfg Config
	buf [6]byte // reuse buffer to avoid allocations
}

// New creates a new SHT31-D connection. The I2C bus must already be
// configured; this only creates the Device object.
func New(bus drivers.I2C) Device {
	return Device{
		bus:     bus,
		Address: Address,
	}
}

// Configure applies optional config. It may be called with no cfg.
func (d *Device) Configure(cfgs ...Config) {
	c := Config{}
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	if c.Address != 0 {
		d.Address = c.Address
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 5 * time.Millisecond
	}
	if c.CollectTimeout <= 0 {
		c.CollectTimeout = 100 * time.Millisecond
	}
	if c.TriggerHint <= 0 {
		c.TriggerHint = 15 * time.Millisecond
	}
	d.cfg = c
}

// Reset issues a soft reset. Give the device ~2 ms afterwards before using.
func (d *Device) Reset() {
	_ = d.bus.Tx(d.Address, []byte{cmdSoftReset0, cmdSoftReset1}, nil)
}

// Trigger starts a single-shot conversion. Quick write, no blocking.
func (d *Device) Trigger() error {
	if d.cfg.PollInterval == 0 {
		d.Configure()
	}
	return d.bus.Tx(d.Address, []byte{cmdMeasureHigh0, cmdMeasureHigh1}, nil)
}

// TriggerHint returns the nominal conversion time to wait before Collect.
func (d *Device) TriggerHint() time.Duration {
	if d.cfg.TriggerHint > 0 {
		return d.cfg.TriggerHint
	}
	return 15 * time.Millisecond
}

// Collect reads the 6-byte measurement into the provided sample. The device
// NACKs reads while converting; that surfaces as ErrNotReady. Each half is
// CRC-checked independently; ErrChecksum is returned only when both halves
// are corrupt and the sample carries nothing usable.
func (d *Device) Collect(out *Sample) error {
	data := d.buf[:]
	if err := d.bus.Tx(d.Address, nil, data); err != nil {
		// A NACK mid-conversion is the normal not-ready signal.
		return ErrNotReady
	}
	s := Sample{
		RawTemp:     uint16(data[0])<<8 | uint16(data[1]),
		RawHumidity: uint16(data[3])<<8 | uint16(data[4]),
		TempOK:      crc8(data[0:2]) == data[2],
		HumidityOK:  crc8(data[3:5]) == data[5],
	}
	if out != nil {
		*out = s
	}
	if !s.TempOK && !s.HumidityOK {
		return ErrChecksum
	}
	return nil
}

// Read performs a full measurement cycle: Trigger, conversion wait, then
// bounded polling until Collect succeeds or the timeout elapses.
func (d *Device) Read(out *Sample) error {
	if err := d.Trigger(); err != nil {
		return err
	}
	time.Sleep(d.TriggerHint())
	deadline := time.Now().Add(d.cfg.CollectTimeout)
	for {
		err := d.Collect(out)
		switch err {
		case ErrNotReady:
			if time.Now().After(deadline) {
				return ErrTimeout
			}
			time.Sleep(d.cfg.PollInterval)
			continue
		default:
			return err
		}
	}
}

// Sample holds raw readings plus per-half CRC validity.
type Sample struct {
	RawTemp     uint16
	RawHumidity uint16
	TempOK      bool
	HumidityOK  bool
}

// DeciCelsius returns tenths of °C: -450 + 1750*raw/65535, rounded.
func (s Sample) DeciCelsius() int32 {
	return int32((uint32(s.RawTemp)*1750+32767)/65535) - 450
}

// DeciRelHumidity returns tenths of %RH: 1000*raw/65535, rounded.
func (s Sample) DeciRelHumidity() int32 {
	return int32((uint32(s.RawHumidity)*1000 + 32767) / 65535)
}

// crc8 implements the sensor's checksum: poly 0x31, init 0xFF, MSB first.
func crc8(b []byte) byte {
	crc := byte(0xFF)
	for _, v := range b {
		crc ^= v
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
