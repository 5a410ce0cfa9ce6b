//go:build rp2040

package main

import (
	"image/color"
	"machine"
	"time"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/uc8151"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"aqstation-go/drivers/pms5x03"
	"aqstation-go/drivers/sht3x"
	"aqstation-go/services/display"
	"aqstation-go/services/station"
	"aqstation-go/types"
)

const deviceID = "station"

// Board wiring. Both sensors share i2c0; the panel hangs off spi0.
const (
	pinSDA = machine.GP4
	pinSCL = machine.GP5

	pinSCK = machine.GP18
	pinSDO = machine.GP19

	pinEpdCS   = machine.GP17
	pinEpdDC   = machine.GP20
	pinEpdRST  = machine.GP21
	pinEpdBusy = machine.GP26

	pinPMStandby = machine.GP6  // PMSA003I SET line, high = running
	pinButton    = machine.GP7  // active low, wakes the station early
	pinVsysADC   = machine.GP29 // VSYS/3 divider on the Pico

	pinUplinkTX = machine.GP8
	pinUplinkRX = machine.GP9
)

var (
	white = color.RGBA{255, 255, 255, 255}
	black = color.RGBA{0, 0, 0, 255}
)

// einkPanel pushes a rendered buffer to the UC8151 panel. A full refresh
// reconfigures the slower flash-free LUT; partial refreshes reuse the fast
// one.
type einkPanel struct {
	dev uc8151.Device
}

func (p *einkPanel) configure(mode display.Mode) {
	speed := uc8151.MEDIUM
	if mode == display.ModeFull {
		speed = uc8151.DEFAULT
	}
	p.dev.Configure(uc8151.Config{
		Rotation: drivers.Rotation270,
		Speed:    speed,
		Blocking: true,
	})
}

func (p *einkPanel) Refresh(buf *display.Buffer, mode display.Mode) error {
	p.configure(mode)
	w, h := buf.Size()
	for y := int16(0); y < h; y++ {
		for x := int16(0); x < w; x++ {
			c := white
			if buf.Get(x, y) {
				c = black
			}
			p.dev.SetPixel(x, y, c)
		}
	}
	return p.dev.Display()
}

type standbyPin struct {
	pin machine.Pin
}

func (s standbyPin) Set(on bool) { s.pin.Set(on) }

// vsysBattery reads the Pico's VSYS/3 divider through the ADC.
type vsysBattery struct {
	adc machine.ADC
}

func (b vsysBattery) MilliVolts() (uint16, error) {
	raw := uint32(b.adc.Get())
	// 16-bit reading against the 3.3 V reference, times the divider.
	return uint16(raw * 3 * 3300 / 65535), nil
}

// picoSleeper idles between cycles. The RP2040 stays powered (dormant mode
// is not reachable from here), so sleep is a low-rate poll of the wake
// button; the RAM-backed store survives it.
type picoSleeper struct {
	button machine.Pin
}

func (s *picoSleeper) DeepSleep(d time.Duration) types.WakeCause {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if !s.button.Get() {
			// Wait for release so one press is one wake.
			for !s.button.Get() {
				time.Sleep(10 * time.Millisecond)
			}
			return types.WakeButton
		}
		time.Sleep(50 * time.Millisecond)
	}
	return types.WakeTimer
}

func initPlatform() (platform, types.WakeCause) {
	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{
		Frequency: 100 * machine.KHz,
		SDA:       pinSDA,
		SCL:       pinSCL,
	}); err != nil {
		println("Error: i2c configure failed:", err.Error())
	}

	if err := machine.SPI0.Configure(machine.SPIConfig{
		Frequency: 12 * machine.MHz,
		SCK:       pinSCK,
		SDO:       pinSDO,
	}); err != nil {
		println("Error: spi configure failed:", err.Error())
	}

	pm := pms5x03.New(i2c)
	climate := sht3x.New(i2c)

	panel := &einkPanel{dev: uc8151.New(machine.SPI0, pinEpdCS, pinEpdDC, pinEpdRST, pinEpdBusy)}
	panel.configure(display.ModeFull)

	pinPMStandby.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pinPMStandby.Set(false)
	pinButton.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	machine.InitADC()
	adc := machine.ADC{Pin: pinVsysADC}
	adc.Configure(machine.ADCConfig{})

	// Uplink over uart1; console stays free for logs.
	link := uartx.UART1
	if err := link.Configure(uartx.UARTConfig{
		BaudRate: 115200,
		TX:       pinUplinkTX,
		RX:       pinUplinkRX,
	}); err != nil {
		println("Error: uplink uart configure failed:", err.Error())
	}

	return platform{
		hw: station.Hardware{
			PM:      &pm,
			Climate: &climate,
			Panel:   panel,
			Standby: standbyPin{pin: pinPMStandby},
			Battery: vsysBattery{adc: adc},
		},
		store:   &ramStore{},
		sleeper: &picoSleeper{button: pinButton},
		uplink:  link,
	}, types.WakeCold
}
