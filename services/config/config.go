package config

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"aqstation-go/bus"
	"aqstation-go/services/display"
	"aqstation-go/services/power"
	"aqstation-go/services/station"
)

// -----------------------------------------------------------------------------
// String constants (live in flash, not RAM)
// -----------------------------------------------------------------------------

const (
	serviceName  = "config"
	configPrefix = "config"
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// -----------------------------------------------------------------------------
// Typed device configuration
// -----------------------------------------------------------------------------

// DeviceConfig is the embedded JSON schema. Durations are plain seconds or
// milliseconds so the flash blobs stay trivial to write by hand.
type DeviceConfig struct {
	Station   StationCfg   `json:"station"`
	Power     PowerCfg     `json:"power"`
	Display   DisplayCfg   `json:"display"`
	Telemetry TelemetryCfg `json:"telemetry"`
}

type StationCfg struct {
	WarmupS        int `json:"warmup_s"`
	Samples        int `json:"samples"`
	MaxAttempts    int `json:"max_attempts"`
	RetryBackoffMS int `json:"retry_backoff_ms"`
	CallTimeoutMS  int `json:"call_timeout_ms"`
}

type PowerCfg struct {
	IntervalS       int   `json:"interval_s"`
	BackoffMinS     int   `json:"backoff_min_s"`
	BackoffMaxS     int   `json:"backoff_max_s"`
	BackoffMaxCount uint8 `json:"backoff_max_count"`
}

type DisplayCfg struct {
	Width         int16  `json:"width"`
	Height        int16  `json:"height"`
	FullEvery     uint32 `json:"full_every"`
	LowBattMilliV uint16 `json:"low_batt_mv"`
}

type TelemetryCfg struct {
	Enabled bool `json:"enabled"`
}

// Load resolves and decodes the embedded config for a device ID.
func Load(device string) (DeviceConfig, error) {
	var cfg DeviceConfig
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return cfg, errors.New("no embedded config for device: " + device)
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// StationConfig converts to the loop's config.
func (c DeviceConfig) StationConfig() station.Config {
	return station.Config{
		Warmup: time.Duration(c.Station.WarmupS) * time.Second,
		Reader: station.ReaderConfig{
			MaxAttempts:  c.Station.MaxAttempts,
			RetryBackoff: time.Duration(c.Station.RetryBackoffMS) * time.Millisecond,
			CallTimeout:  time.Duration(c.Station.CallTimeoutMS) * time.Millisecond,
			Samples:      c.Station.Samples,
		},
	}
}

// PowerConfig converts to the scheduler's config.
func (c DeviceConfig) PowerConfig() power.Config {
	return power.Config{
		Interval:        time.Duration(c.Power.IntervalS) * time.Second,
		BackoffMin:      time.Duration(c.Power.BackoffMinS) * time.Second,
		BackoffMax:      time.Duration(c.Power.BackoffMaxS) * time.Second,
		BackoffMaxCount: c.Power.BackoffMaxCount,
	}
}

// DisplayConfig converts to the renderer's config.
func (c DeviceConfig) DisplayConfig() display.Config {
	return display.Config{
		Width:         c.Display.Width,
		Height:        c.Display.Height,
		FullEvery:     c.Display.FullEvery,
		LowBattMilliV: c.Display.LowBattMilliV,
	}
}

// -----------------------------------------------------------------------------
// Config service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// publishConfig decodes the device config and publishes each section as a
// retained message, so late-starting services see it on subscribe.
func (s *ConfigService) publishConfig(device string, conn *bus.Connection) error {
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return errors.New("no embedded config for device: " + device)
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}

	for k, v := range m {
		var payload any
		if err := json.Unmarshal(v, &payload); err != nil {
			continue
		}
		conn.Publish(&bus.Message{
			Topic:    bus.Topic{configPrefix, k},
			Payload:  payload,
			Retained: true,
		})
	}
	return nil
}

// Start launches the config publisher in a goroutine.
func (s *ConfigService) Start(ctx context.Context, device string, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(device, conn); err != nil {
			println("Error: config publish failed:", err.Error())
		}
	}()
}
