package pms5x03

import (
	"errors"
	"testing"
)

func testFrame() Frame {
	return Frame{
		PM1Std: 4, PM25Std: 10, PM10Std: 15,
		PM1Env: 4, PM25Env: 9, PM10Env: 14,
		Particles03: 612, Particles05: 318, Particles10: 42,
		Particles25: 6, Particles50: 2, Particles100: 1,
	}
}

func TestParseFrameRoundTrip(t *testing.T) {
	want := testFrame()
	raw := AppendFrame(nil, want)
	if len(raw) != FrameLen {
		t.Fatalf("encoded length %d, want %d", len(raw), FrameLen)
	}

	got, err := ParseFrame(raw)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if got != want {
		t.Errorf("decode mismatch:\n got=%+v\nwant=%+v", got, want)
	}

	// Decode-then-recompute round-trips to the same trailing checksum.
	if Checksum(raw[:FrameLen-2]) != be16(raw[FrameLen-2:]) {
		t.Error("checksum recompute mismatch on a valid frame")
	}
}

func TestParseFrameBadHeader(t *testing.T) {
	raw := AppendFrame(nil, testFrame())

	for _, i := range []int{0, 1} {
		bad := append([]byte(nil), raw...)
		bad[i] ^= 0xFF
		if _, err := ParseFrame(bad); !errors.Is(err, ErrBadHeader) {
			t.Errorf("corrupt header byte %d: err = %v, want ErrBadHeader", i, err)
		}
	}
}

func TestParseFrameTruncated(t *testing.T) {
	raw := AppendFrame(nil, testFrame())
	for _, n := range []int{0, 1, 3, 4, FrameLen - 1} {
		if _, err := ParseFrame(raw[:n]); !errors.Is(err, ErrTruncated) {
			t.Errorf("len %d: err = %v, want ErrTruncated", n, err)
		}
	}
}

func TestParseFrameChecksumMismatch(t *testing.T) {
	raw := AppendFrame(nil, testFrame())

	// Any corrupted payload or checksum byte must be rejected, never decoded.
	for i := 4; i < FrameLen; i++ {
		bad := append([]byte(nil), raw...)
		bad[i] ^= 0x01
		if _, err := ParseFrame(bad); !errors.Is(err, ErrChecksum) {
			t.Errorf("corrupt byte %d: err = %v, want ErrChecksum", i, err)
		}
	}
}

func TestParseFrameUnknownLength(t *testing.T) {
	raw := AppendFrame(nil, testFrame())
	raw[3] = 40 // declared length of a frame flavour we do not speak
	if _, err := ParseFrame(raw); !errors.Is(err, ErrBadHeader) {
		t.Errorf("err = %v, want ErrBadHeader", err)
	}
}

func TestAverage(t *testing.T) {
	a := Frame{PM25Std: 10, Particles03: 100}
	b := Frame{PM25Std: 21, Particles03: 101}

	avg := Average([]Frame{a, b})
	if avg.PM25Std != 16 { // rounds up
		t.Errorf("PM25Std = %d, want 16", avg.PM25Std)
	}
	if avg.Particles03 != 101 {
		t.Errorf("Particles03 = %d, want 101", avg.Particles03)
	}

	if got := Average(nil); got != (Frame{}) {
		t.Errorf("empty average = %+v, want zero", got)
	}
	if got := Average([]Frame{a}); got != a {
		t.Errorf("single-frame average = %+v, want identity", got)
	}
}
