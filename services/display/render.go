// Package display renders station state into a monochrome framebuffer for
// a bistable (e-ink) panel. Rendering is a deterministic pure function of
// StationState: identical state yields byte-identical buffers, which keeps
// partial-refresh diffing and tests honest. The physical transfer is the
// platform's job; this package never touches hardware.
package display

import (
	"aqstation-go/types"
	"aqstation-go/x/conv"
)

// Mode selects the physical refresh style for a produced buffer.
type Mode uint8

const (
	// ModePartial updates only changed pixels; fast, accumulates ghosting.
	ModePartial Mode = iota
	// ModeFull flashes the whole panel; slow, clears ghosting.
	ModeFull
)

func (m Mode) String() string {
	if m == ModeFull {
		return "full"
	}
	return "partial"
}

// Config controls renderer behaviour. All fields are optional.
type Config struct {
	// Panel geometry. Defaults 296x128 (2.9" class panel).
	Width  int16
	Height int16
	// FullEvery forces a full refresh every N wakes to clear ghosting.
	// Default 8; 0 keeps the default.
	FullEvery uint32
	// LowBattMilliV is the low-battery marker threshold. Default 3500.
	LowBattMilliV uint16
}

// Renderer lays out the latest reading summary. Stateless apart from config.
type Renderer struct {
	cfg Config
}

// NewRenderer creates a renderer. It may be called with no cfg.
func NewRenderer(cfgs ...Config) *Renderer {
	c := Config{}
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	if c.Width <= 0 {
		c.Width = 296
	}
	if c.Height <= 0 {
		c.Height = 128
	}
	if c.FullEvery == 0 {
		c.FullEvery = 8
	}
	if c.LowBattMilliV == 0 {
		c.LowBattMilliV = 3500
	}
	return &Renderer{cfg: c}
}

// Render builds the frame for one wake cycle and decides the refresh mode:
// full on button wake, cold start and every FullEvery-th wake, partial
// otherwise. The buffer encodes the three PM values, climate values, the
// air-quality category, particle-bin stats, and a stale marker whenever the
// consecutive-failure counter is non-zero.
func (r *Renderer) Render(st *types.StationState, cat types.Category, cause types.WakeCause) (*Buffer, Mode) {
	b := NewBuffer(r.cfg.Width, r.cfg.Height)

	colW := r.cfg.Width / 3
	centers := [3]int16{colW / 2, colW + colW/2, 2*colW + colW/2}

	// Big concentration values.
	var num [8]byte
	vals := [3]uint16{st.PM.PM1Std, st.PM.PM25Std, st.PM.PM10Std}
	for i, cx := range centers {
		s := "--"
		if st.HavePM {
			s = string(conv.Itoa(num[:], int64(vals[i])))
		}
		drawTextCentered(b, cx, 8, 3, s)
	}
	labels := [3]string{"PM 1.0", "PM 2.5", "PM 10"}
	for i, cx := range centers {
		drawTextCentered(b, cx, 36, 1, labels[i])
	}

	// Category, only meaningful once a particulate reading exists.
	if st.HavePM {
		drawTextCentered(b, r.cfg.Width/2, 52, 2, cat.String())
	} else {
		drawTextCentered(b, r.cfg.Width/2, 52, 2, "NO DATA")
	}

	// Climate line; halves degrade to placeholders independently.
	climate := deci(st.HaveTemp, int32(st.DeciTempC)) + "C  " +
		deci(st.HaveHum, int32(st.DeciRH)) + "%RH"
	drawTextCentered(b, r.cfg.Width/2, 76, 1, climate)

	// Particle-bin stats, per 0.1 L of air.
	if st.HavePM {
		drawText(b, 8, 92, 1, binLine3(">0.3: ", st.PM.Particles03, " >0.5: ", st.PM.Particles05, " >1.0: ", st.PM.Particles10))
		drawText(b, 8, 102, 1, binLine3(">2.5: ", st.PM.Particles25, " >5.0: ", st.PM.Particles50, " >10: ", st.PM.Particles100))
	}

	// Footer: wake counter.
	wakes := "WAKE " + string(conv.Itoa(num[:], int64(st.Wakes)))
	drawText(b, r.cfg.Width-textWidth(wakes, 1)-4, r.cfg.Height-12, 1, wakes)

	// Stale marker: a failed cycle must be visibly distinct from fresh data.
	if st.Failures > 0 {
		msg := "STALE X" + string(conv.Itoa(num[:], int64(st.Failures)))
		w := textWidth(msg, 1) + 8
		x := r.cfg.Width - w - 2
		b.drawRect(x, 2, w, 13)
		drawText(b, x+4, 5, 1, msg)
	}

	// Low-battery marker, inverted block top-left.
	if st.BatteryMilliV > 0 && st.BatteryMilliV < r.cfg.LowBattMilliV {
		w := textWidth("LOW BATT", 1) + 8
		b.fillRect(2, 2, w, 13, true)
		drawTextInverted(b, 6, 5, "LOW BATT")
	}

	mode := ModePartial
	if cause != types.WakeTimer || r.cfg.FullEvery > 0 && st.Wakes%r.cfg.FullEvery == 0 {
		mode = ModeFull
	}
	return b, mode
}

// deci formats tenths as "23.1", or "--" when the value is absent.
func deci(have bool, v int32) string {
	if !have {
		return "--"
	}
	var buf [8]byte
	s := ""
	if v < 0 {
		s = "-"
		v = -v
	}
	s += string(conv.Itoa(buf[:], int64(v/10)))
	return s + "." + string(conv.Itoa(buf[:], int64(v%10)))
}

func binLine3(l1 string, v1 uint16, l2 string, v2 uint16, l3 string, v3 uint16) string {
	var buf [8]byte
	return l1 + string(conv.Itoa(buf[:], int64(v1))) +
		l2 + string(conv.Itoa(buf[:], int64(v2))) +
		l3 + string(conv.Itoa(buf[:], int64(v3)))
}

// drawTextInverted renders white-on-black, for use inside filled blocks.
func drawTextInverted(b *Buffer, x, y int16, s string) {
	for i := 0; i < len(s); i++ {
		g := glyph(s[i])
		for col := int16(0); col < glyphW; col++ {
			for row := int16(0); row < glyphH; row++ {
				if g[col]&(1<<uint(row)) != 0 {
					b.Set(x+col, y+row, false)
				}
			}
		}
		x += glyphW + 1
	}
}
