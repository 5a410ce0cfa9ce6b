package display

import (
	"bytes"
	"testing"

	"aqstation-go/drivers/pms5x03"
	"aqstation-go/types"
)

func freshState() *types.StationState {
	return &types.StationState{
		HavePM: true,
		PM: pms5x03.Frame{
			PM1Std: 4, PM25Std: 10, PM10Std: 15,
			Particles03: 120, Particles05: 40, Particles10: 8,
		},
		HaveTemp:  true,
		DeciTempC: 231,
		HaveHum:   true,
		DeciRH:    452,
		Wakes:     3,
	}
}

func TestRenderDeterministic(t *testing.T) {
	r := NewRenderer()
	st := freshState()

	b1, m1 := r.Render(st, types.Good, types.WakeTimer)
	b2, m2 := r.Render(st, types.Good, types.WakeTimer)

	if !bytes.Equal(b1.Bytes(), b2.Bytes()) {
		t.Error("identical state produced different buffers")
	}
	if m1 != m2 {
		t.Errorf("identical state produced different modes: %v vs %v", m1, m2)
	}
}

func TestRenderFailureIndicator(t *testing.T) {
	r := NewRenderer()

	st := freshState()
	clean, _ := r.Render(st, types.Good, types.WakeTimer)

	st.Failures = 3
	stale, _ := r.Render(st, types.Good, types.WakeTimer)

	if bytes.Equal(clean.Bytes(), stale.Bytes()) {
		t.Error("failure counter > 0 must change the rendered buffer")
	}

	// The marker box sits top-right; fresh renders leave that corner blank.
	w, _ := clean.Size()
	marked := false
	for x := w - 80; x < w; x++ {
		if stale.Get(x, 2) {
			marked = true
			break
		}
	}
	if !marked {
		t.Error("no stale marker drawn in the top-right corner")
	}
	for x := w - 80; x < w; x++ {
		if clean.Get(x, 2) {
			t.Error("fresh render must not draw the stale marker")
			break
		}
	}
}

func TestRenderPlaceholdersWithoutReadings(t *testing.T) {
	r := NewRenderer()
	st := &types.StationState{Failures: 1}

	b, _ := r.Render(st, types.Good, types.WakeCold)

	empty := NewBuffer(b.Size())
	if bytes.Equal(b.Bytes(), empty.Bytes()) {
		t.Error("cold-start render must not be blank")
	}
}

func TestRefreshMode(t *testing.T) {
	r := NewRenderer(Config{FullEvery: 8})
	st := freshState()

	cases := []struct {
		name  string
		wakes uint32
		cause types.WakeCause
		want  Mode
	}{
		{"timer wake, off cadence", 3, types.WakeTimer, ModePartial},
		{"timer wake, on cadence", 16, types.WakeTimer, ModeFull},
		{"button wake", 3, types.WakeButton, ModeFull},
		{"cold start", 0, types.WakeCold, ModeFull},
	}
	for _, c := range cases {
		st.Wakes = c.wakes
		if _, got := r.Render(st, types.Good, c.cause); got != c.want {
			t.Errorf("%s: mode = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestBufferPacking(t *testing.T) {
	b := NewBuffer(16, 2)
	b.Set(0, 0, true)
	b.Set(15, 1, true)

	pix := b.Bytes()
	if pix[0] != 0x80 {
		t.Errorf("pixel (0,0): byte 0 = %#x, want 0x80", pix[0])
	}
	if pix[3] != 0x01 {
		t.Errorf("pixel (15,1): byte 3 = %#x, want 0x01", pix[3])
	}
	b.Set(0, 0, false)
	if pix[0] != 0 {
		t.Errorf("clearing pixel left %#x", pix[0])
	}
}
