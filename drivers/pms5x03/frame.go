package pms5x03

import "aqstation-go/x/mathx"

// Frame is one validated, checksum-verified sensor output record.
// Concentrations are µg/m³; particle counts are per 0.1 L of air.
type Frame struct {
	// "Standard particle" concentrations (CF=1, factory calibration).
	PM1Std  uint16
	PM25Std uint16
	PM10Std uint16

	// Atmospheric-environment concentrations.
	PM1Env  uint16
	PM25Env uint16
	PM10Env uint16

	// Counts of particles larger than 0.3/0.5/1.0/2.5/5.0/10 µm.
	Particles03  uint16
	Particles05  uint16
	Particles10  uint16
	Particles25  uint16
	Particles50  uint16
	Particles100 uint16
}

// ParseFrame validates and decodes one frame from buf. It checks the start
// marker, the declared length against the bytes available, and the trailing
// 16-bit additive checksum before decoding any field. Pure function; buf is
// not retained.
func ParseFrame(buf []byte) (Frame, error) {
	if len(buf) < 4 {
		return Frame{}, ErrTruncated
	}
	if buf[0] != header0 || buf[1] != header1 {
		return Frame{}, ErrBadHeader
	}
	declared := be16(buf[2:])
	if declared != payloadLen {
		// Unknown frame flavour; treat as undecodable rather than guessing.
		return Frame{}, ErrBadHeader
	}
	total := 4 + int(declared)
	if len(buf) < total {
		return Frame{}, ErrTruncated
	}
	want := be16(buf[total-2:])
	if Checksum(buf[:total-2]) != want {
		return Frame{}, ErrChecksum
	}

	var f Frame
	f.PM1Std = be16(buf[4:])
	f.PM25Std = be16(buf[6:])
	f.PM10Std = be16(buf[8:])
	f.PM1Env = be16(buf[10:])
	f.PM25Env = be16(buf[12:])
	f.PM10Env = be16(buf[14:])
	f.Particles03 = be16(buf[16:])
	f.Particles05 = be16(buf[18:])
	f.Particles10 = be16(buf[20:])
	f.Particles25 = be16(buf[22:])
	f.Particles50 = be16(buf[24:])
	f.Particles100 = be16(buf[26:])
	return f, nil
}

// Checksum returns the 16-bit additive checksum over b (sum modulo 2^16).
func Checksum(b []byte) uint16 {
	var sum uint16
	for _, v := range b {
		sum += uint16(v)
	}
	return sum
}

func be16(b []byte) uint16 {
	return uint16(b[0])<<8 | uint16(b[1])
}

// Average reduces a burst of frames to one frame of rounded per-field means.
// The zero Frame is returned for an empty input.
func Average(frames []Frame) Frame {
	n := uint32(len(frames))
	if n == 0 {
		return Frame{}
	}
	var acc [12]uint32
	for _, f := range frames {
		for i, v := range f.fields() {
			acc[i] += uint32(v)
		}
	}
	var out Frame
	dst := []*uint16{
		&out.PM1Std, &out.PM25Std, &out.PM10Std,
		&out.PM1Env, &out.PM25Env, &out.PM10Env,
		&out.Particles03, &out.Particles05, &out.Particles10,
		&out.Particles25, &out.Particles50, &out.Particles100,
	}
	for i := range dst {
		*dst[i] = uint16(mathx.RoundDiv(acc[i], n))
	}
	return out
}

func (f Frame) fields() [12]uint16 {
	return [12]uint16{
		f.PM1Std, f.PM25Std, f.PM10Std,
		f.PM1Env, f.PM25Env, f.PM10Env,
		f.Particles03, f.Particles05, f.Particles10,
		f.Particles25, f.Particles50, f.Particles100,
	}
}

// AppendFrame encodes f into the on-wire format, appending to dst.
// Used by fakes and the host-side tooling; the sensor itself is read-only.
func AppendFrame(dst []byte, f Frame) []byte {
	start := len(dst)
	dst = append(dst, header0, header1, 0, payloadLen)
	for _, v := range f.fields() {
		dst = append(dst, byte(v>>8), byte(v))
	}
	dst = append(dst, 0, 0) // reserved
	sum := Checksum(dst[start:])
	return append(dst, byte(sum>>8), byte(sum))
}
