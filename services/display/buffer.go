package display

// Buffer is a monochrome framebuffer rebuilt from scratch each cycle.
// Pixels are packed row-major, 8 per byte, MSB first; a set bit is black.
// It is transient: nothing persists it, the refresh driver consumes it.
type Buffer struct {
	w, h   int16
	stride int
	pix    []byte
}

// NewBuffer allocates a cleared w×h buffer.
func NewBuffer(w, h int16) *Buffer {
	stride := (int(w) + 7) / 8
	return &Buffer{
		w:      w,
		h:      h,
		stride: stride,
		pix:    make([]byte, stride*int(h)),
	}
}

// Size returns the buffer dimensions in pixels.
func (b *Buffer) Size() (w, h int16) { return b.w, b.h }

// Set turns the pixel at (x, y) on (black) or off. Out-of-range is a no-op
// so callers can draw partially clipped elements without bounds fuss.
func (b *Buffer) Set(x, y int16, on bool) {
	if x < 0 || y < 0 || x >= b.w || y >= b.h {
		return
	}
	i := int(y)*b.stride + int(x)/8
	mask := byte(0x80) >> (uint(x) % 8)
	if on {
		b.pix[i] |= mask
	} else {
		b.pix[i] &^= mask
	}
}

// Get reports whether the pixel at (x, y) is black.
func (b *Buffer) Get(x, y int16) bool {
	if x < 0 || y < 0 || x >= b.w || y >= b.h {
		return false
	}
	return b.pix[int(y)*b.stride+int(x)/8]&(0x80>>(uint(x)%8)) != 0
}

// Bytes exposes the packed pixel data. Callers must treat it as read-only.
func (b *Buffer) Bytes() []byte { return b.pix }

// Clear resets every pixel to white.
func (b *Buffer) Clear() {
	for i := range b.pix {
		b.pix[i] = 0
	}
}

// fillRect paints a solid rectangle, clipped to the buffer.
func (b *Buffer) fillRect(x, y, w, h int16, on bool) {
	for yy := y; yy < y+h; yy++ {
		for xx := x; xx < x+w; xx++ {
			b.Set(xx, yy, on)
		}
	}
}

// drawRect paints a 1-pixel rectangle outline.
func (b *Buffer) drawRect(x, y, w, h int16) {
	for xx := x; xx < x+w; xx++ {
		b.Set(xx, y, true)
		b.Set(xx, y+h-1, true)
	}
	for yy := y; yy < y+h; yy++ {
		b.Set(x, yy, true)
		b.Set(x+w-1, yy, true)
	}
}
