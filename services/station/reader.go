package station

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"aqstation-go/drivers/pms5x03"
	"aqstation-go/drivers/sht3x"
)

// ParticulateSensor yields one decoded frame per call (I2C or UART variant).
type ParticulateSensor interface {
	ReadFrame() (pms5x03.Frame, error)
}

// ClimateSensor yields one measurement per call.
type ClimateSensor interface {
	Read(out *sht3x.Sample) error
}

// Errors surfaced to the cycle after retries are exhausted. Neither is
// fatal: the loop retains the last known reading and bumps the failure
// counter.
var (
	// ErrUnreadable: transactions complete but frames keep failing validation.
	ErrUnreadable = errors.New("station: sensor unreadable")
	// ErrBusFault: the bus itself fails (no ack, timeout).
	ErrBusFault = errors.New("station: bus fault")
)

// ReaderConfig is the bounded-retry policy, explicit so it can be tested
// in isolation from hardware. All fields are optional.
type ReaderConfig struct {
	// MaxAttempts per sample, including the first. Default 3.
	MaxAttempts int
	// RetryBackoff between attempts. Default 100 ms.
	RetryBackoff time.Duration
	// CallTimeout is the hard bound on one Read* call including retries
	// and backoff. Default 5 s.
	CallTimeout time.Duration
	// Samples per particulate reading; the burst is averaged. Default 10.
	Samples int
}

// Reader drives both sensors with the shared retry policy.
type Reader struct {
	pm      ParticulateSensor
	climate ClimateSensor
	cfg     ReaderConfig

	sleepFrames time.Duration // spacing between burst samples
}

// NewReader binds the sensors to a retry policy.
func NewReader(pm ParticulateSensor, climate ClimateSensor, cfgs ...ReaderConfig) *Reader {
	c := ReaderConfig{}
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 100 * time.Millisecond
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 5 * time.Second
	}
	if c.Samples <= 0 {
		c.Samples = 10
	}
	// The sensor produces a fresh frame roughly once a second in active
	// mode; spacing burst samples avoids re-reading the same frame.
	return &Reader{pm: pm, climate: climate, cfg: c, sleepFrames: 250 * time.Millisecond}
}

// retry runs op under the policy: constant short backoff, bounded attempt
// count, hard deadline. The last error is kept so the caller can map it.
func (r *Reader) retry(op func() error) error {
	deadline := time.Now().Add(r.cfg.CallTimeout)
	bo := backoff.WithMaxRetries(
		backoff.NewConstantBackOff(r.cfg.RetryBackoff),
		uint64(r.cfg.MaxAttempts-1),
	)
	return backoff.Retry(func() error {
		if time.Now().After(deadline) {
			return backoff.Permanent(errDeadline)
		}
		return op()
	}, bo)
}

var errDeadline = errors.New("station: read deadline exceeded")

// ReadParticulate takes a burst of frames and averages it. Each sample is
// retried under the policy; a sample that still fails surfaces
// ErrUnreadable (frames keep failing validation) or ErrBusFault.
func (r *Reader) ReadParticulate() (pms5x03.Frame, error) {
	frames := make([]pms5x03.Frame, 0, r.cfg.Samples)
	for i := 0; i < r.cfg.Samples; i++ {
		if i > 0 {
			time.Sleep(r.sleepFrames)
		}
		var f pms5x03.Frame
		var lastErr error
		err := r.retry(func() error {
			var e error
			f, e = r.pm.ReadFrame()
			if e != nil {
				lastErr = e
			}
			return e
		})
		if err != nil {
			return pms5x03.Frame{}, mapPMErr(lastErr, err)
		}
		frames = append(frames, f)
	}
	return pms5x03.Average(frames), nil
}

// ReadClimate reads one climate sample under the retry policy. A sample
// with one corrupt half still counts as a success; validity travels in the
// sample flags.
func (r *Reader) ReadClimate() (sht3x.Sample, error) {
	var s sht3x.Sample
	var lastErr error
	err := r.retry(func() error {
		var e error
		e = r.climate.Read(&s)
		if e != nil {
			lastErr = e
		}
		return e
	})
	if err != nil {
		return sht3x.Sample{}, mapClimateErr(lastErr, err)
	}
	return s, nil
}

func isFrameErr(err error) bool {
	return errors.Is(err, pms5x03.ErrBadHeader) ||
		errors.Is(err, pms5x03.ErrTruncated) ||
		errors.Is(err, pms5x03.ErrChecksum)
}

func mapPMErr(lastErr, err error) error {
	if lastErr == nil {
		lastErr = err
	}
	if isFrameErr(lastErr) {
		return ErrUnreadable
	}
	return ErrBusFault
}

func mapClimateErr(lastErr, err error) error {
	if lastErr == nil {
		lastErr = err
	}
	if errors.Is(lastErr, sht3x.ErrChecksum) {
		return ErrUnreadable
	}
	return ErrBusFault
}
