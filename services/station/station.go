// Package station orchestrates one wake cycle of the air-quality monitor:
// read both sensors, classify, render to the e-ink panel, persist state,
// sleep. The cycle is an explicit state machine that always runs to the
// Sleeping phase; there is no resident polling loop. Failures degrade
// (retain the previous reading, bump the failure counter, show the stale
// marker) and never halt the device.
package station

import (
	"errors"
	"time"

	"aqstation-go/bus"
	"aqstation-go/errcode"
	"aqstation-go/services/display"
	"aqstation-go/services/power"
	"aqstation-go/types"
)

// Phase names, published on station/state as the cycle advances.
const (
	PhaseWaking      = "waking"
	PhaseSampling    = "sampling"
	PhaseClassifying = "classifying"
	PhaseRendering   = "rendering"
	PhasePersisting  = "persisting"
	PhaseSleeping    = "sleeping"
)

var (
	topicReading = bus.Topic{"station", "reading"}
	topicState   = bus.Topic{"station", "state"}
)

// StandbyPin gates the particulate sensor's fan between cycles.
type StandbyPin interface {
	Set(on bool)
}

// BatteryMeter reports the pack voltage.
type BatteryMeter interface {
	MilliVolts() (uint16, error)
}

// Refresher performs the physical panel transfer. It owns the panel's
// refresh-time bound; the loop treats it as opaque.
type Refresher interface {
	Refresh(buf *display.Buffer, mode display.Mode) error
}

// Hardware collects the injected collaborators. Standby and Battery are
// optional; the rest are required.
type Hardware struct {
	PM      ParticulateSensor
	Climate ClimateSensor
	Panel   Refresher
	Standby StandbyPin
	Battery BatteryMeter
}

// Config controls the cycle. All fields are optional.
type Config struct {
	// Warmup is how long the particulate sensor spins up after leaving
	// standby before frames are trusted. Default 30 s; only applied when
	// a StandbyPin is wired.
	Warmup time.Duration
	Reader ReaderConfig
}

// Loop runs wake cycles. One instance exists per device; cycles never
// overlap (the device sleeps between them).
type Loop struct {
	hw       Hardware
	reader   *Reader
	renderer *display.Renderer
	sched    *power.Scheduler
	conn     *bus.Connection
	cfg      Config

	// Overridable for tests.
	now   func() time.Time
	sleep func(time.Duration)
}

// New wires a loop. conn may be nil when no bus is attached (tests).
func New(hw Hardware, renderer *display.Renderer, sched *power.Scheduler, conn *bus.Connection, cfgs ...Config) *Loop {
	c := Config{}
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	if c.Warmup <= 0 {
		c.Warmup = 30 * time.Second
	}
	return &Loop{
		hw:       hw,
		reader:   NewReader(hw.PM, hw.Climate, c.Reader),
		renderer: renderer,
		sched:    sched,
		conn:     conn,
		cfg:      c,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Run executes wake cycles forever. cause describes what started the very
// first cycle (the platform's reset/alarm inspection).
func (l *Loop) Run(cause types.WakeCause) {
	for {
		cause = l.RunCycle(cause)
	}
}

// RunCycle executes exactly one Waking→Sleeping pass and returns the wake
// cause that ended the sleep, i.e. the cause of the next cycle.
func (l *Loop) RunCycle(cause types.WakeCause) types.WakeCause {
	// Waking: recover cross-cycle state; a missing or corrupt record is a
	// cold start, not an error.
	st, cold := l.sched.Load()
	if cold {
		cause = types.WakeCold
		println("Info: cold start, no persisted state")
	}
	st.Wakes++
	l.phase(PhaseWaking, cause, &st, nil)

	// Sampling: both sensors, behind the bounded-retry reader. A failure
	// retains the previous reading; success overwrites both readings and
	// clears the failure counter.
	l.phase(PhaseSampling, cause, &st, nil)
	if l.hw.Standby != nil {
		l.hw.Standby.Set(true)
		l.sleep(l.cfg.Warmup)
	}
	frame, pmErr := l.reader.ReadParticulate()
	climate, clErr := l.reader.ReadClimate()

	sampled := pmErr == nil && clErr == nil
	if sampled {
		st.Failures = 0
		st.HavePM = true
		st.PM = frame
		// Climate halves carry their own validity; a corrupt half keeps
		// its previous value.
		if climate.TempOK {
			st.HaveTemp = true
			st.DeciTempC = int16(climate.DeciCelsius())
		}
		if climate.HumidityOK {
			st.HaveHum = true
			st.DeciRH = int16(climate.DeciRelHumidity())
		}
		st.LastSampleUnix = l.now().Unix()
	} else {
		if st.Failures < 255 {
			st.Failures++
		}
		err := pmErr
		if err == nil {
			err = clErr
		}
		println("Warn: sampling failed:", err.Error(), "failures:", st.Failures)
		l.phase(PhaseSampling, cause, &st, err)
	}

	if l.hw.Battery != nil {
		if mv, err := l.hw.Battery.MilliVolts(); err == nil {
			st.BatteryMilliV = mv
		}
	}

	// Classifying: runs on the effective PM2.5 value, fresh or retained.
	l.phase(PhaseClassifying, cause, &st, nil)
	pm25, _ := st.EffectivePM25()
	cat := Classify(pm25)

	// Rendering: always produces a frame, even after a failed sample, so
	// the display is never blank or silently frozen.
	l.phase(PhaseRendering, cause, &st, nil)
	buf, mode := l.renderer.Render(&st, cat, cause)
	if err := l.hw.Panel.Refresh(buf, mode); err != nil {
		println("Error: panel refresh failed:", err.Error())
	}

	l.publishReading(&st, cat, !sampled)

	// Persisting: decide the coming sleep first so backoff bookkeeping is
	// part of the persisted record. Persist failure is logged, non-fatal.
	l.phase(PhasePersisting, cause, &st, nil)
	d := l.sched.NextSleep(&st, !sampled)
	if err := l.sched.Persist(&st); err != nil {
		println("Error: persist failed:", err.Error())
		l.phase(PhasePersisting, cause, &st, &errcode.E{C: errcode.PersistFailed, Err: err})
	}

	// Sleeping: park the sensor fan and suspend. The cycle ends here.
	l.phase(PhaseSleeping, cause, &st, nil)
	if l.hw.Standby != nil {
		l.hw.Standby.Set(false)
	}
	println("Info: sleeping for", int64(d/time.Second), "s")
	return l.sched.Sleep(d)
}

func (l *Loop) phase(phase string, cause types.WakeCause, st *types.StationState, err error) {
	if l.conn == nil {
		return
	}
	status := types.CycleStatus{
		Phase:    phase,
		Cause:    cause.String(),
		Failures: st.Failures,
	}
	if err != nil {
		status.Code = codeOf(err)
		status.Error = err.Error()
	}
	l.conn.Publish(l.conn.NewMessage(topicState, status, true))
}

// codeOf maps cycle errors to their stable bus codes.
func codeOf(err error) errcode.Code {
	switch {
	case errors.Is(err, ErrUnreadable):
		return errcode.Unreadable
	case errors.Is(err, ErrBusFault):
		return errcode.BusFault
	}
	return errcode.Of(err)
}

func (l *Loop) publishReading(st *types.StationState, cat types.Category, stale bool) {
	if l.conn == nil {
		return
	}
	l.conn.Publish(l.conn.NewMessage(topicReading, types.ReadingValue{
		PM1:       st.PM.PM1Std,
		PM25:      st.PM.PM25Std,
		PM10:      st.PM.PM10Std,
		DeciTempC: st.DeciTempC,
		DeciRH:    st.DeciRH,
		Category:  cat.String(),
		Stale:     stale,
		Wakes:     st.Wakes,
	}, true))
}
