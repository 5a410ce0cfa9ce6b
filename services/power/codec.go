package power

import (
	"errors"

	"aqstation-go/drivers/pms5x03"
	"aqstation-go/types"
)

// Persisted record layout, big-endian:
//
//	0..1   magic "AQ"
//	2      version
//	3      flags (bit0 havePM, bit1 haveTemp, bit2 haveHum)
//	4..27  particulate frame, 12 x uint16
//	28..29 deci °C (int16)
//	30..31 deci %RH (int16)
//	32     failure counter
//	33..34 backoff seconds
//	35     backoff count
//	36..39 wake count
//	40..47 last sample unix seconds
//	48..49 battery mV
//	50..51 additive checksum over bytes 0..49
//
// Absence or any validation failure on load is a cold start, never an
// error the cycle has to handle.

// RecordLen is the fixed size of the persisted station record.
const RecordLen = 52

const (
	recMagic0  = 'A'
	recMagic1  = 'Q'
	recVersion = 1

	flagHavePM   = 1 << 0
	flagHaveTemp = 1 << 1
	flagHaveHum  = 1 << 2
)

// ErrCorrupt means the stored record failed validation.
var ErrCorrupt = errors.New("power: corrupt state record")

// EncodeState serialises st into a fixed-size record ending in a checksum.
func EncodeState(st *types.StationState) [RecordLen]byte {
	var b [RecordLen]byte
	b[0], b[1], b[2] = recMagic0, recMagic1, recVersion

	var flags byte
	if st.HavePM {
		flags |= flagHavePM
	}
	if st.HaveTemp {
		flags |= flagHaveTemp
	}
	if st.HaveHum {
		flags |= flagHaveHum
	}
	b[3] = flags

	pm := [12]uint16{
		st.PM.PM1Std, st.PM.PM25Std, st.PM.PM10Std,
		st.PM.PM1Env, st.PM.PM25Env, st.PM.PM10Env,
		st.PM.Particles03, st.PM.Particles05, st.PM.Particles10,
		st.PM.Particles25, st.PM.Particles50, st.PM.Particles100,
	}
	for i, v := range pm {
		put16(b[4+2*i:], v)
	}
	put16(b[28:], uint16(st.DeciTempC))
	put16(b[30:], uint16(st.DeciRH))
	b[32] = st.Failures
	put16(b[33:], st.BackoffSecs)
	b[35] = st.BackoffCount
	put32(b[36:], st.Wakes)
	put64(b[40:], uint64(st.LastSampleUnix))
	put16(b[48:], st.BatteryMilliV)

	put16(b[RecordLen-2:], sum16(b[:RecordLen-2]))
	return b
}

// DecodeState validates buf and reconstructs the station state.
func DecodeState(buf []byte) (types.StationState, error) {
	var st types.StationState
	if len(buf) < RecordLen {
		return st, ErrCorrupt
	}
	if buf[0] != recMagic0 || buf[1] != recMagic1 || buf[2] != recVersion {
		return st, ErrCorrupt
	}
	if get16(buf[RecordLen-2:]) != sum16(buf[:RecordLen-2]) {
		return st, ErrCorrupt
	}

	flags := buf[3]
	st.HavePM = flags&flagHavePM != 0
	st.HaveTemp = flags&flagHaveTemp != 0
	st.HaveHum = flags&flagHaveHum != 0

	st.PM = pms5x03.Frame{
		PM1Std: get16(buf[4:]), PM25Std: get16(buf[6:]), PM10Std: get16(buf[8:]),
		PM1Env: get16(buf[10:]), PM25Env: get16(buf[12:]), PM10Env: get16(buf[14:]),
		Particles03: get16(buf[16:]), Particles05: get16(buf[18:]), Particles10: get16(buf[20:]),
		Particles25: get16(buf[22:]), Particles50: get16(buf[24:]), Particles100: get16(buf[26:]),
	}
	st.DeciTempC = int16(get16(buf[28:]))
	st.DeciRH = int16(get16(buf[30:]))
	st.Failures = buf[32]
	st.BackoffSecs = get16(buf[33:])
	st.BackoffCount = buf[35]
	st.Wakes = get32(buf[36:])
	st.LastSampleUnix = int64(get64(buf[40:]))
	st.BatteryMilliV = get16(buf[48:])
	return st, nil
}

func sum16(b []byte) uint16 {
	var s uint16
	for _, v := range b {
		s += uint16(v)
	}
	return s
}

func put16(b []byte, v uint16) { b[0] = byte(v >> 8); b[1] = byte(v) }
func get16(b []byte) uint16    { return uint16(b[0])<<8 | uint16(b[1]) }

func put32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}
func get32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func put64(b []byte, v uint64) {
	put32(b, uint32(v>>32))
	put32(b[4:], uint32(v))
}
func get64(b []byte) uint64 {
	return uint64(get32(b))<<32 | uint64(get32(b[4:]))
}
