// Package power owns everything that crosses a sleep boundary: loading and
// persisting the station record, the sample interval, the exponential
// failure backoff, and the deep-sleep handoff. No other component writes
// persistent state.
package power

import (
	"time"

	"aqstation-go/types"
	"aqstation-go/x/mathx"
)

// Store is the non-volatile slot holding the persisted station record:
// retained sleep memory on the target, a byte slab in tests. Load fills
// dst and returns the byte count; a short or failed read is simply a cold
// start upstream.
type Store interface {
	Load(dst []byte) (int, error)
	Save(src []byte) error
}

// Sleeper suspends execution until a wake source fires. DeepSleep reports
// which source ended the sleep; a button press may end it early.
type Sleeper interface {
	DeepSleep(d time.Duration) types.WakeCause
}

// Config controls scheduling behaviour. All fields are optional.
type Config struct {
	// Interval between samples. Default 3 minutes.
	Interval time.Duration
	// Failure backoff bounds and round limit. Defaults 15s / 5m / 12.
	BackoffMin      time.Duration
	BackoffMax      time.Duration
	BackoffMaxCount uint8
}

// Scheduler drives the sleep/wake cycle and persists minimal state across
// power-down.
type Scheduler struct {
	cfg     Config
	store   Store
	sleeper Sleeper
}

// NewScheduler creates a scheduler over the given store and sleeper.
func NewScheduler(store Store, sleeper Sleeper, cfgs ...Config) *Scheduler {
	c := Config{}
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	if c.Interval <= 0 {
		c.Interval = 3 * time.Minute
	}
	if c.BackoffMin <= 0 {
		c.BackoffMin = 15 * time.Second
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 5 * time.Minute
	}
	if c.BackoffMaxCount == 0 {
		c.BackoffMaxCount = 12
	}
	return &Scheduler{cfg: c, store: store, sleeper: sleeper}
}

// Interval returns the configured sample interval.
func (s *Scheduler) Interval() time.Duration { return s.cfg.Interval }

// Load reads the persisted record. Absence or corruption yields a zeroed
// state and cold=true; it is degraded behaviour, never an error.
func (s *Scheduler) Load() (st types.StationState, cold bool) {
	var buf [RecordLen]byte
	n, err := s.store.Load(buf[:])
	if err != nil || n < RecordLen {
		return types.StationState{}, true
	}
	st, err = DecodeState(buf[:])
	if err != nil {
		return types.StationState{}, true
	}
	return st, false
}

// Persist writes the record. The caller logs a failure and sleeps on
// schedule regardless; stale state on the next wake is acceptable.
func (s *Scheduler) Persist(st *types.StationState) error {
	rec := EncodeState(st)
	return s.store.Save(rec[:])
}

// Elapsed returns the time since the last successful sample, or 0 when no
// sample has ever succeeded.
func (s *Scheduler) Elapsed(st *types.StationState, now time.Time) time.Duration {
	if st.LastSampleUnix == 0 {
		return 0
	}
	d := now.Unix() - st.LastSampleUnix
	if d < 0 {
		return 0
	}
	return time.Duration(d) * time.Second
}

// NextSleep picks the coming sleep length. A failed cycle advances the
// persisted exponential backoff (doubling between the configured bounds);
// once the round limit is reached the backoff is abandoned and the normal
// interval resumes, because an unattended station must keep sampling
// rather than give up. A clean cycle resets the backoff.
func (s *Scheduler) NextSleep(st *types.StationState, cycleFailed bool) time.Duration {
	if !cycleFailed {
		st.BackoffSecs = 0
		st.BackoffCount = 0
		return s.cfg.Interval
	}
	if st.BackoffCount >= s.cfg.BackoffMaxCount {
		st.BackoffSecs = 0
		st.BackoffCount = 0
		return s.cfg.Interval
	}
	secs := st.BackoffSecs
	if secs == 0 {
		secs = uint16(s.cfg.BackoffMin / time.Second)
	} else {
		secs = mathx.Clamp(secs*2, uint16(s.cfg.BackoffMin/time.Second), uint16(s.cfg.BackoffMax/time.Second))
	}
	st.BackoffSecs = secs
	st.BackoffCount++
	return time.Duration(secs) * time.Second
}

// Sleep suspends until the next wake source fires.
func (s *Scheduler) Sleep(d time.Duration) types.WakeCause {
	return s.sleeper.DeepSleep(d)
}
