package config

import (
	"context"
	"testing"
	"time"

	"aqstation-go/bus"
)

func TestLoadKnownDevice(t *testing.T) {
	cfg, err := Load("station")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Power.IntervalS != 180 {
		t.Errorf("interval_s = %d, want 180", cfg.Power.IntervalS)
	}
	if cfg.Station.Samples != 10 {
		t.Errorf("samples = %d, want 10", cfg.Station.Samples)
	}
	if pc := cfg.PowerConfig(); pc.Interval != 3*time.Minute {
		t.Errorf("PowerConfig interval = %v, want 3m", pc.Interval)
	}
	if sc := cfg.StationConfig(); sc.Warmup != 30*time.Second {
		t.Errorf("StationConfig warmup = %v, want 30s", sc.Warmup)
	}
	if dc := cfg.DisplayConfig(); dc.Width != 296 || dc.Height != 128 {
		t.Errorf("DisplayConfig geometry = %dx%d", dc.Width, dc.Height)
	}
}

func TestLoadUnknownDevice(t *testing.T) {
	if _, err := Load("nonsense"); err == nil {
		t.Error("expected error for unknown device")
	}
}

func TestServicePublishesRetainedSections(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("test")

	svc := NewConfigService()
	svc.Start(context.Background(), "station", conn)

	// Retained delivery means subscribing after publish still works.
	deadline := time.After(500 * time.Millisecond)
	for {
		sub := conn.Subscribe(bus.Topic{"config", "power"})
		select {
		case msg := <-sub.Channel():
			m, ok := msg.Payload.(map[string]any)
			if !ok {
				t.Fatalf("payload type %T", msg.Payload)
			}
			if iv, _ := m["interval_s"].(float64); iv != 180 {
				t.Errorf("interval_s = %v, want 180", m["interval_s"])
			}
			sub.Unsubscribe()
			return
		case <-time.After(10 * time.Millisecond):
			sub.Unsubscribe()
		case <-deadline:
			t.Fatal("timeout waiting for retained config")
		}
	}
}
