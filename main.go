package main

import (
	"context"
	"io"
	"time"

	"aqstation-go/bus"
	"aqstation-go/services/config"
	"aqstation-go/services/display"
	"aqstation-go/services/power"
	"aqstation-go/services/station"
	"aqstation-go/services/telemetry"
	"aqstation-go/services/uplink"
)

// platform is what a build target must provide: the wired sensors and
// panel, the persistence slot, the sleep primitive and an optional byte
// link for the uplink. platform_host.go and platform_rp2040.go each
// implement initPlatform and set deviceID.
type platform struct {
	hw      station.Hardware
	store   power.Store
	sleeper power.Sleeper
	uplink  io.Writer
}

// ramStore keeps the persisted record in a RAM slab. On targets where the
// processor stays powered between cycles this is the real store; tests and
// the host build use it as-is.
type ramStore struct {
	buf  []byte
	have bool
}

func (s *ramStore) Load(dst []byte) (int, error) {
	if !s.have {
		return 0, nil
	}
	return copy(dst, s.buf), nil
}

func (s *ramStore) Save(src []byte) error {
	s.buf = append(s.buf[:0], src...)
	s.have = true
	return nil
}

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("Info: air-quality station booting, device:", deviceID)

	cfg, err := config.Load(deviceID)
	if err != nil {
		// Zero config falls through to each package's compiled-in defaults.
		println("Error: config load failed:", err.Error())
	}

	ctx := context.Background()
	b := bus.NewBus(8)

	config.NewConfigService().Start(ctx, deviceID, b.NewConnection("config"))
	if cfg.Telemetry.Enabled {
		svc := &telemetry.Service{}
		if err := svc.Start(ctx, b.NewConnection("telemetry")); err != nil {
			println("Error: telemetry start failed:", err.Error())
		}
	}

	plat, cause := initPlatform()
	if plat.uplink != nil {
		if err := uplink.New(plat.uplink).Start(ctx, b.NewConnection("uplink")); err != nil {
			println("Error: uplink start failed:", err.Error())
		}
	}

	sched := power.NewScheduler(plat.store, plat.sleeper, cfg.PowerConfig())
	renderer := display.NewRenderer(cfg.DisplayConfig())
	loop := station.New(plat.hw, renderer, sched, b.NewConnection("station"), cfg.StationConfig())

	println("Info: entering wake cycle, cause:", cause.String())
	loop.Run(cause)
}
