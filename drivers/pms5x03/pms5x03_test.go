package pms5x03

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"tinygo.org/x/drivers"
)

// Compile-time check.
var _ drivers.I2C = (*fakeI2C)(nil)

// Scripted PMSA003I-like fake: serves the queued frame bytes on reads.
type fakeI2C struct {
	frame []byte
	err   error
	addrs []uint16
}

func (f *fakeI2C) Tx(addr uint16, w, r []byte) error {
	f.addrs = append(f.addrs, addr)
	if f.err != nil {
		return f.err
	}
	copy(r, f.frame)
	return nil
}

func TestDeviceReadFrame(t *testing.T) {
	want := testFrame()
	bus := &fakeI2C{frame: AppendFrame(nil, want)}

	d := New(bus)
	d.Configure()

	got, err := d.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if got != want {
		t.Errorf("frame mismatch:\n got=%+v\nwant=%+v", got, want)
	}
	if bus.addrs[0] != Address {
		t.Errorf("addressed %#x, want %#x", bus.addrs[0], Address)
	}
}

func TestDeviceAddressOverride(t *testing.T) {
	bus := &fakeI2C{frame: AppendFrame(nil, testFrame())}
	d := New(bus)
	d.Configure(Config{Address: 0x69})

	if _, err := d.ReadFrame(); err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if bus.addrs[0] != 0x69 {
		t.Errorf("addressed %#x, want 0x69", bus.addrs[0])
	}
}

func TestDeviceBusErrorPassesThrough(t *testing.T) {
	busErr := errors.New("i2c: no ack")
	d := New(&fakeI2C{err: busErr})
	d.Configure()

	if _, err := d.ReadFrame(); !errors.Is(err, busErr) {
		t.Errorf("err = %v, want bus error as-is", err)
	}
}

func TestDeviceCorruptFrame(t *testing.T) {
	raw := AppendFrame(nil, testFrame())
	raw[10] ^= 0x01
	d := New(&fakeI2C{frame: raw})
	d.Configure()

	if _, err := d.ReadFrame(); !errors.Is(err, ErrChecksum) {
		t.Errorf("err = %v, want ErrChecksum", err)
	}
}

// ---- stream reader ----

func TestStreamReaderResyncsOnGarbage(t *testing.T) {
	want := testFrame()
	var stream []byte
	stream = append(stream, 0x00, 0x42, 0x13, 0x37) // noise, incl. a false marker
	stream = AppendFrame(stream, want)

	s := NewStreamReader(bytes.NewReader(stream))
	got, err := s.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got != want {
		t.Errorf("frame mismatch: %+v", got)
	}

	if _, err := s.Next(); err != io.EOF {
		t.Errorf("expected EOF at stream end, got %v", err)
	}
}

func TestStreamReaderSkipsBadFrame(t *testing.T) {
	good := testFrame()
	bad := AppendFrame(nil, good)
	bad[12] ^= 0xFF // corrupt one payload byte

	stream := append([]byte(nil), bad...)
	stream = AppendFrame(stream, good)

	s := NewStreamReader(bytes.NewReader(stream))

	if _, err := s.Next(); !errors.Is(err, ErrChecksum) {
		t.Fatalf("first Next: err = %v, want ErrChecksum", err)
	}
	got, err := s.Next()
	if err != nil {
		t.Fatalf("second Next: %v", err)
	}
	if got != good {
		t.Errorf("frame mismatch after resync: %+v", got)
	}
}

func TestStreamReaderHandlesShortReads(t *testing.T) {
	want := testFrame()
	raw := AppendFrame(nil, want)

	s := NewStreamReader(&chunkReader{data: raw, chunk: 5})
	got, err := s.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got != want {
		t.Errorf("frame mismatch over short reads: %+v", got)
	}
}

// chunkReader delivers data in fixed-size chunks to exercise reassembly.
type chunkReader struct {
	data  []byte
	chunk int
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := min(r.chunk, len(r.data), len(p))
	n = copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}
