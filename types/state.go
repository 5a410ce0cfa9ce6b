package types

import (
	"aqstation-go/drivers/pms5x03"
	"aqstation-go/errcode"
)

// ------------------------
// Wake cycle
// ------------------------

// WakeCause identifies what ended the previous sleep.
type WakeCause uint8

const (
	WakeCold   WakeCause = iota // no persisted state: first boot or corrupt record
	WakeTimer                   // scheduled sample deadline
	WakeButton                  // user button, out-of-cycle early wake
)

func (c WakeCause) String() string {
	switch c {
	case WakeTimer:
		return "timer"
	case WakeButton:
		return "button"
	default:
		return "cold"
	}
}

// ------------------------
// Cross-cycle station state
// ------------------------

// StationState is the only record that outlives a wake cycle. It is loaded
// from non-volatile storage on wake and persisted before sleep, and always
// reflects the most recent successful readings; a failed cycle leaves the
// readings alone and bumps Failures.
type StationState struct {
	// Last successful particulate reading.
	HavePM bool
	PM     pms5x03.Frame

	// Last successful climate reading, halves valid independently.
	HaveTemp  bool
	DeciTempC int16 // tenths of °C
	HaveHum   bool
	DeciRH    int16 // tenths of %RH

	// Consecutive cycles with at least one failed sensor.
	Failures uint8

	// Exponential-backoff sleep bookkeeping (seconds / rounds).
	BackoffSecs  uint16
	BackoffCount uint8

	// Total wake cycles since cold start.
	Wakes uint32

	// Unix seconds of the last successful sample, 0 when unknown.
	LastSampleUnix int64

	// Last measured battery level, 0 when unknown.
	BatteryMilliV uint16
}

// EffectivePM25 is the value classification runs on: fresh if the last
// sample succeeded, else the retained prior value. ok is false only when
// no particulate reading has ever succeeded.
func (s *StationState) EffectivePM25() (v uint16, ok bool) {
	return s.PM.PM25Std, s.HavePM
}

// ------------------------
// Bus payloads
// ------------------------

// ReadingValue is published retained on station/reading after each cycle.
type ReadingValue struct {
	PM1       uint16 `json:"pm1"`
	PM25      uint16 `json:"pm25"`
	PM10      uint16 `json:"pm10"`
	DeciTempC int16  `json:"deci_c"`
	DeciRH    int16  `json:"deci_rh"`
	Category  string `json:"category"`
	Stale     bool   `json:"stale"`
	Wakes     uint32 `json:"wakes"`
}

// CycleStatus is published on station/state at each phase transition.
// Code is the stable identifier consumers switch on; Error is free text
// for logs only.
type CycleStatus struct {
	Phase    string       `json:"phase"`
	Cause    string       `json:"cause"`
	Failures uint8        `json:"failures"`
	Code     errcode.Code `json:"code,omitempty"`
	Error    string       `json:"error,omitempty"`
}
