// cmd/stationsim runs the full wake cycle on a host with scripted
// hardware: a particulate sensor that goes dark for a stretch of cycles,
// an ASCII rendition of the e-ink panel, and compressed sleeps. Useful
// for watching the failure backoff and stale marker without a board.
package main

import (
	"context"
	"strings"
	"time"

	"aqstation-go/bus"
	"aqstation-go/drivers/pms5x03"
	"aqstation-go/drivers/sht3x"
	"aqstation-go/services/config"
	"aqstation-go/services/display"
	"aqstation-go/services/power"
	"aqstation-go/services/station"
	"aqstation-go/types"
)

const (
	cyclesToRun = 12

	// Cycles in [failFrom, failTo] get a dead particulate sensor.
	failFrom = 4
	failTo   = 6

	// Real seconds per simulated sleep second.
	sleepScale = 0.05
)

// ---------- Scripted hardware ----------

type scriptedPM struct {
	cycle *int
	seed  uint32
}

func (s *scriptedPM) next(span uint32) uint16 {
	s.seed = s.seed*1664525 + 1013904223
	return uint16(s.seed >> 16 % span)
}

func (s *scriptedPM) ReadFrame() (pms5x03.Frame, error) {
	if *s.cycle >= failFrom && *s.cycle <= failTo {
		return pms5x03.Frame{}, pms5x03.ErrChecksum
	}
	pm25 := 8 + s.next(50)
	return pms5x03.Frame{
		PM1Std:      pm25 / 2,
		PM25Std:     pm25,
		PM10Std:     pm25 + s.next(12),
		PM1Env:      pm25 / 2,
		PM25Env:     pm25,
		PM10Env:     pm25 + s.next(12),
		Particles03: 2500 + s.next(2000),
		Particles05: 800 + s.next(400),
		Particles10: 120 + s.next(80),
		Particles25: 15 + s.next(15),
		Particles50: 3 + s.next(5),
	}, nil
}

type steadyClimate struct{}

func (steadyClimate) Read(out *sht3x.Sample) error {
	out.RawTemp = uint16((uint32(228+450)*65535 + 875) / 1750)    // 22.8 C
	out.RawHumidity = uint16((uint32(510)*65535 + 500) / 1000)    // 51.0 %
	out.TempOK = true
	out.HumidityOK = true
	return nil
}

// asciiPanel downsamples the 1-bpp buffer to terminal characters, one char
// per 4x4 block.
type asciiPanel struct{}

func (asciiPanel) Refresh(buf *display.Buffer, mode display.Mode) error {
	kind := "partial"
	if mode == display.ModeFull {
		kind = "full"
	}
	w, h := buf.Size()
	println("---- panel refresh (" + kind + ") ----")
	var sb strings.Builder
	for by := int16(0); by < h; by += 4 {
		sb.Reset()
		for bx := int16(0); bx < w; bx += 4 {
			on := 0
			for y := by; y < by+4 && y < h; y++ {
				for x := bx; x < bx+4 && x < w; x++ {
					if buf.Get(x, y) {
						on++
					}
				}
			}
			if on >= 4 {
				sb.WriteByte('#')
			} else if on > 0 {
				sb.WriteByte('.')
			} else {
				sb.WriteByte(' ')
			}
		}
		println(sb.String())
	}
	return nil
}

type fastSleeper struct{}

func (fastSleeper) DeepSleep(d time.Duration) types.WakeCause {
	time.Sleep(time.Duration(float64(d) * sleepScale))
	return types.WakeTimer
}

type memStore struct {
	rec  []byte
	have bool
}

func (m *memStore) Load(dst []byte) (int, error) {
	if !m.have {
		return 0, nil
	}
	return copy(dst, m.rec), nil
}

func (m *memStore) Save(src []byte) error {
	m.rec = append(m.rec[:0], src...)
	m.have = true
	return nil
}

type fanPin struct{}

func (fanPin) Set(on bool) {}

type fullBattery struct{}

func (fullBattery) MilliVolts() (uint16, error) { return 4100, nil }

// ---------- Wiring ----------

func main() {
	println("[sim] bootstrapping bus ...")
	b := bus.NewBus(8)
	ctx := context.Background()

	config.NewConfigService().Start(ctx, "sim", b.NewConnection("config"))
	cfg, err := config.Load("sim")
	if err != nil {
		println("[sim] config load failed:", err.Error())
		return
	}

	println("[sim] subscribing to station/# for diagnostics ...")
	mon := b.NewConnection("monitor").Subscribe(bus.Topic{"station", bus.TokAll})
	go func() {
		for m := range mon.Channel() {
			switch v := m.Payload.(type) {
			case types.CycleStatus:
				if v.Error != "" {
					println("[monitor] state:", v.Phase, "failures:", v.Failures, "err:", v.Error)
				} else {
					println("[monitor] state:", v.Phase)
				}
			case types.ReadingValue:
				println("[monitor] reading: pm2.5", v.PM25, v.Category, "wakes", v.Wakes)
			}
		}
	}()

	cycle := 0
	hw := station.Hardware{
		PM:      &scriptedPM{cycle: &cycle, seed: 0xA17},
		Climate: steadyClimate{},
		Panel:   asciiPanel{},
		Standby: fanPin{},
		Battery: fullBattery{},
	}

	sched := power.NewScheduler(&memStore{}, fastSleeper{}, cfg.PowerConfig())
	renderer := display.NewRenderer(cfg.DisplayConfig())
	loop := station.New(hw, renderer, sched, b.NewConnection("station"), cfg.StationConfig())

	cause := types.WakeCold
	for cycle = 1; cycle <= cyclesToRun; cycle++ {
		println("[sim] ---- cycle", cycle, "cause:", cause.String(), "----")
		cause = loop.RunCycle(cause)
	}
	println("[sim] done")
}
