package sht3x

import (
	"errors"
	"sync"
	"testing"
	"time"

	"tinygo.org/x/drivers"
)

// Compile-time check.
var _ drivers.I2C = (*fakeI2C)(nil)

// Scripted SHT31-like fake. A measurement command arms the device; reads
// before the conversion deadline NACK, after it they serve the response.
type fakeI2C struct {
	mu      sync.Mutex
	readyAt time.Time
	armed   bool
	convDur time.Duration

	rawTemp uint16
	rawHum  uint16
	mangle  func(resp []byte) // optional corruption hook
}

func newFake(rawTemp, rawHum uint16) *fakeI2C {
	return &fakeI2C{rawTemp: rawTemp, rawHum: rawHum}
}

func (f *fakeI2C) Tx(addr uint16, w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Measurement command.
	if len(w) == 2 && w[0] == 0x24 {
		f.armed = true
		f.readyAt = time.Now().Add(f.convDur)
		return nil
	}

	// Data read (6 bytes).
	if len(w) == 0 && len(r) == 6 {
		if !f.armed || time.Now().Before(f.readyAt) {
			return errors.New("i2c: nack")
		}
		r[0] = byte(f.rawTemp >> 8)
		r[1] = byte(f.rawTemp)
		r[2] = crc8(r[0:2])
		r[3] = byte(f.rawHum >> 8)
		r[4] = byte(f.rawHum)
		r[5] = crc8(r[3:5])
		if f.mangle != nil {
			f.mangle(r)
		}
		return nil
	}

	// Soft reset etc.: accept.
	return nil
}

func TestCRC8KnownVector(t *testing.T) {
	// From the Sensirion datasheet: CRC(0xBEEF) = 0x92.
	if got := crc8([]byte{0xBE, 0xEF}); got != 0x92 {
		t.Errorf("crc8(BEEF) = %#x, want 0x92", got)
	}
}

func TestReadConvertsFixedPoint(t *testing.T) {
	// 0x6666 -> 25.0°C, 0x7333 -> 45.0 %RH.
	bus := newFake(0x6666, 0x7333)
	d := New(bus)
	d.Configure()

	var s Sample
	if err := d.Read(&s); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !s.TempOK || !s.HumidityOK {
		t.Fatalf("validity flags: %+v", s)
	}
	if got := s.DeciCelsius(); got != 250 {
		t.Errorf("DeciCelsius = %d, want 250", got)
	}
	if got := s.DeciRelHumidity(); got != 450 {
		t.Errorf("DeciRelHumidity = %d, want 450", got)
	}
}

func TestReadPollsUntilReady(t *testing.T) {
	bus := newFake(0x6666, 0x7333)
	bus.convDur = 20 * time.Millisecond

	d := New(bus)
	d.Configure(Config{PollInterval: 2 * time.Millisecond, TriggerHint: time.Millisecond})

	var s Sample
	if err := d.Read(&s); err != nil {
		t.Fatalf("Read: %v", err)
	}
}

func TestReadTimesOut(t *testing.T) {
	bus := newFake(0x6666, 0x7333)
	bus.convDur = time.Hour

	d := New(bus)
	d.Configure(Config{
		PollInterval:   time.Millisecond,
		CollectTimeout: 10 * time.Millisecond,
		TriggerHint:    time.Millisecond,
	})

	var s Sample
	if err := d.Read(&s); !errors.Is(err, ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}

func TestCorruptHalvesFailIndependently(t *testing.T) {
	cases := []struct {
		name    string
		mangle  func([]byte)
		tempOK  bool
		humOK   bool
		wantErr error
	}{
		{"temp crc corrupt", func(r []byte) { r[2] ^= 0xFF }, false, true, nil},
		{"hum crc corrupt", func(r []byte) { r[5] ^= 0xFF }, true, false, nil},
		{"both corrupt", func(r []byte) { r[2] ^= 0xFF; r[5] ^= 0xFF }, false, false, ErrChecksum},
	}
	for _, c := range cases {
		bus := newFake(0x6666, 0x7333)
		bus.mangle = c.mangle
		d := New(bus)
		d.Configure()

		var s Sample
		err := d.Read(&s)
		if c.wantErr == nil && err != nil {
			t.Errorf("%s: unexpected error %v", c.name, err)
			continue
		}
		if c.wantErr != nil && !errors.Is(err, c.wantErr) {
			t.Errorf("%s: err = %v, want %v", c.name, err, c.wantErr)
		}
		if s.TempOK != c.tempOK || s.HumidityOK != c.humOK {
			t.Errorf("%s: validity = %v/%v, want %v/%v",
				c.name, s.TempOK, s.HumidityOK, c.tempOK, c.humOK)
		}
	}
}
