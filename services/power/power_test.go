package power

import (
	"errors"
	"testing"
	"time"

	"aqstation-go/drivers/pms5x03"
	"aqstation-go/types"
)

// Compile-time checks.
var (
	_ Store   = (*fakeStore)(nil)
	_ Sleeper = (*fakeSleeper)(nil)
)

type fakeStore struct {
	rec     []byte
	saveErr error
	loadErr error
}

func (f *fakeStore) Load(dst []byte) (int, error) {
	if f.loadErr != nil {
		return 0, f.loadErr
	}
	return copy(dst, f.rec), nil
}

func (f *fakeStore) Save(src []byte) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.rec = append(f.rec[:0], src...)
	return nil
}

type fakeSleeper struct {
	slept []time.Duration
	cause types.WakeCause
}

func (f *fakeSleeper) DeepSleep(d time.Duration) types.WakeCause {
	f.slept = append(f.slept, d)
	return f.cause
}

func sampleState() types.StationState {
	return types.StationState{
		HavePM: true,
		PM: pms5x03.Frame{
			PM1Std: 3, PM25Std: 10, PM10Std: 14,
			Particles03: 321, Particles100: 1,
		},
		HaveTemp:       true,
		DeciTempC:      -55, // negatives must survive the round trip
		HaveHum:        true,
		DeciRH:         452,
		Failures:       2,
		BackoffSecs:    30,
		BackoffCount:   1,
		Wakes:          99,
		LastSampleUnix: 1700000000,
		BatteryMilliV:  3700,
	}
}

func TestStateCodecRoundTrip(t *testing.T) {
	in := sampleState()
	rec := EncodeState(&in)
	out, err := DecodeState(rec[:])
	if err != nil {
		t.Fatalf("DecodeState: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch:\n in=%+v\nout=%+v", in, out)
	}
}

func TestStateCodecRejectsCorruption(t *testing.T) {
	in := sampleState()
	rec := EncodeState(&in)

	for i := 0; i < RecordLen; i++ {
		bad := rec
		bad[i] ^= 0xFF
		if _, err := DecodeState(bad[:]); err == nil {
			t.Errorf("flipping byte %d went undetected", i)
		}
	}

	if _, err := DecodeState(rec[:RecordLen-1]); !errors.Is(err, ErrCorrupt) {
		t.Errorf("short record: got %v, want ErrCorrupt", err)
	}
}

func TestLoadColdStart(t *testing.T) {
	cases := []struct {
		name  string
		store *fakeStore
	}{
		{"empty store", &fakeStore{}},
		{"read failure", &fakeStore{loadErr: errors.New("nvm fault")}},
		{"garbage", &fakeStore{rec: make([]byte, RecordLen)}},
	}
	for _, c := range cases {
		s := NewScheduler(c.store, &fakeSleeper{})
		st, cold := s.Load()
		if !cold {
			t.Errorf("%s: expected cold start", c.name)
		}
		if st != (types.StationState{}) {
			t.Errorf("%s: cold start must zero the state", c.name)
		}
	}
}

func TestPersistThenLoad(t *testing.T) {
	store := &fakeStore{}
	s := NewScheduler(store, &fakeSleeper{})

	in := sampleState()
	if err := s.Persist(&in); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	out, cold := s.Load()
	if cold {
		t.Fatal("unexpected cold start after persist")
	}
	if out != in {
		t.Errorf("persisted state mismatch:\n in=%+v\nout=%+v", in, out)
	}
}

func TestNextSleepBackoff(t *testing.T) {
	s := NewScheduler(&fakeStore{}, &fakeSleeper{}, Config{
		Interval:        3 * time.Minute,
		BackoffMin:      15 * time.Second,
		BackoffMax:      5 * time.Minute,
		BackoffMaxCount: 3,
	})
	var st types.StationState

	// Failure escalates: 15s, 30s, 60s.
	want := []time.Duration{15 * time.Second, 30 * time.Second, 60 * time.Second}
	for i, w := range want {
		if got := s.NextSleep(&st, true); got != w {
			t.Errorf("failure %d: sleep %v, want %v", i+1, got, w)
		}
	}

	// Round limit reached: fall back to the interval and reset.
	if got := s.NextSleep(&st, true); got != 3*time.Minute {
		t.Errorf("after limit: sleep %v, want interval", got)
	}
	if st.BackoffSecs != 0 || st.BackoffCount != 0 {
		t.Errorf("backoff not reset after limit: %+v", st)
	}
}

func TestNextSleepBackoffClamped(t *testing.T) {
	s := NewScheduler(&fakeStore{}, &fakeSleeper{}, Config{
		BackoffMin: 15 * time.Second,
		BackoffMax: 60 * time.Second,
	})
	st := types.StationState{BackoffSecs: 45, BackoffCount: 2}
	if got := s.NextSleep(&st, true); got != 60*time.Second {
		t.Errorf("sleep %v, want clamp at 60s", got)
	}
}

func TestNextSleepSuccessClearsBackoff(t *testing.T) {
	s := NewScheduler(&fakeStore{}, &fakeSleeper{})
	st := types.StationState{BackoffSecs: 120, BackoffCount: 5}
	if got := s.NextSleep(&st, false); got != s.Interval() {
		t.Errorf("sleep %v, want interval %v", got, s.Interval())
	}
	if st.BackoffSecs != 0 || st.BackoffCount != 0 {
		t.Errorf("success did not clear backoff: %+v", st)
	}
}

func TestElapsed(t *testing.T) {
	s := NewScheduler(&fakeStore{}, &fakeSleeper{})
	now := time.Unix(1700000600, 0)

	st := types.StationState{LastSampleUnix: 1700000000}
	if got := s.Elapsed(&st, now); got != 10*time.Minute {
		t.Errorf("Elapsed = %v, want 10m", got)
	}

	st.LastSampleUnix = 0
	if got := s.Elapsed(&st, now); got != 0 {
		t.Errorf("Elapsed with no sample = %v, want 0", got)
	}
}
