//go:build !rp2040

package main

import (
	"os"
	"time"

	"aqstation-go/drivers/pms5x03"
	"aqstation-go/drivers/sht3x"
	"aqstation-go/services/display"
	"aqstation-go/services/station"
	"aqstation-go/types"
)

// Host build: no hardware, everything simulated. Used for watching full
// wake cycles on a laptop; cmd/stationsim drives the same pieces with
// failure injection.

const deviceID = "sim"

// simPM synthesizes particulate frames with a slow deterministic drift, so
// consecutive cycles show movement without a real sensor.
type simPM struct {
	seed uint32
}

func (s *simPM) next(span uint32) uint16 {
	s.seed = s.seed*1664525 + 1013904223
	return uint16(s.seed >> 16 % span)
}

func (s *simPM) ReadFrame() (pms5x03.Frame, error) {
	pm25 := 5 + s.next(60)
	f := pms5x03.Frame{
		PM1Std:  pm25 / 2,
		PM25Std: pm25,
		PM10Std: pm25 + s.next(10),
		PM1Env:  pm25 / 2,
		PM25Env: pm25,
		PM10Env: pm25 + s.next(10),
		Particles03:  3000 + s.next(2000),
		Particles05:  900 + s.next(500),
		Particles10:  150 + s.next(100),
		Particles25:  20 + s.next(20),
		Particles50:  4 + s.next(6),
		Particles100: s.next(3),
	}
	return f, nil
}

// simClimate reports a fixed pleasant room.
type simClimate struct{}

func (simClimate) Read(out *sht3x.Sample) error {
	// 21.5 C and 48.0 %RH, expressed as sensor raw words.
	out.RawTemp = uint16((uint32(215+450)*65535 + 875) / 1750)
	out.RawHumidity = uint16((uint32(480)*65535 + 500) / 1000)
	out.TempOK = true
	out.HumidityOK = true
	return nil
}

// consolePanel logs the refresh instead of driving a panel.
type consolePanel struct{}

func (consolePanel) Refresh(buf *display.Buffer, mode display.Mode) error {
	kind := "partial"
	if mode == display.ModeFull {
		kind = "full"
	}
	println("Info: panel refresh (" + kind + ")")
	return nil
}

type simStandby struct{}

func (simStandby) Set(on bool) {
	if on {
		println("Info: pm sensor fan on")
	} else {
		println("Info: pm sensor fan off")
	}
}

type simBattery struct{}

func (simBattery) MilliVolts() (uint16, error) { return 4012, nil }

// hostSleeper sleeps in real time; the sim config keeps intervals short.
type hostSleeper struct{}

func (hostSleeper) DeepSleep(d time.Duration) types.WakeCause {
	time.Sleep(d)
	return types.WakeTimer
}

func initPlatform() (platform, types.WakeCause) {
	return platform{
		hw: station.Hardware{
			PM:      &simPM{seed: 0x5eed},
			Climate: simClimate{},
			Panel:   consolePanel{},
			Standby: simStandby{},
			Battery: simBattery{},
		},
		store:   &ramStore{},
		sleeper: hostSleeper{},
		uplink:  os.Stdout,
	}, types.WakeCold
}
