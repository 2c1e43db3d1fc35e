package hal

import (
	"image"
	"image/color"

	"tinygo.org/x/drivers"
)

// LCD draws into a rectangular region of an RGB565 framebuffer. It
// implements drivers.Displayer, so tinyfont and tinyterm can render into
// it. Coordinates are relative to the region.
type LCD struct {
	fb   Framebuffer
	area image.Rectangle
}

var _ drivers.Displayer = (*LCD)(nil)

// NewLCD returns a display for area of fb, clipped to the framebuffer. An
// empty area means the whole framebuffer.
func NewLCD(fb Framebuffer, area image.Rectangle) *LCD {
	if fb == nil {
		return &LCD{}
	}
	full := image.Rect(0, 0, fb.Width(), fb.Height())
	if area.Empty() {
		area = full
	}
	return &LCD{fb: fb, area: area.Intersect(full)}
}

func (d *LCD) usable() []byte {
	if d.fb == nil || d.fb.Format() != PixelFormatRGB565 {
		return nil
	}
	return d.fb.Buffer()
}

func (d *LCD) Size() (x, y int16) {
	return int16(d.area.Dx()), int16(d.area.Dy())
}

func (d *LCD) SetPixel(x, y int16, c color.RGBA) {
	buf := d.usable()
	if buf == nil {
		return
	}
	ix := int(x)
	iy := int(y)
	if ix < 0 || ix >= d.area.Dx() || iy < 0 || iy >= d.area.Dy() {
		return
	}
	off := (d.area.Min.Y+iy)*d.fb.StrideBytes() + (d.area.Min.X+ix)*2
	if off < 0 || off+1 >= len(buf) {
		return
	}
	pixel := rgb565(c.R, c.G, c.B)
	buf[off] = byte(pixel)
	buf[off+1] = byte(pixel >> 8)
}

func (d *LCD) Display() error {
	if d.fb == nil {
		return nil
	}
	return d.fb.Present()
}

// ScrollUp moves the region content up by lines and clears the exposed
// rows with bg.
func (d *LCD) ScrollUp(lines int16, bg color.RGBA) error {
	buf := d.usable()
	if buf == nil || lines <= 0 {
		return nil
	}
	w := d.area.Dx()
	h := d.area.Dy()
	n := int(lines)
	if n >= h {
		return d.FillRectangle(0, 0, int16(w), int16(h), bg)
	}
	stride := d.fb.StrideBytes()
	rowBytes := w * 2
	for y := 0; y < h-n; y++ {
		dst := (d.area.Min.Y+y)*stride + d.area.Min.X*2
		src := dst + n*stride
		if src+rowBytes > len(buf) {
			break
		}
		copy(buf[dst:dst+rowBytes], buf[src:src+rowBytes])
	}
	return d.FillRectangle(0, int16(h-n), int16(w), int16(n), bg)
}

func (d *LCD) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	buf := d.usable()
	if buf == nil {
		return nil
	}
	r := image.Rect(int(x), int(y), int(x)+int(width), int(y)+int(height)).
		Add(d.area.Min).
		Intersect(d.area)
	if r.Empty() {
		return nil
	}

	pixel := rgb565(c.R, c.G, c.B)
	lo := byte(pixel)
	hi := byte(pixel >> 8)

	stride := d.fb.StrideBytes()
	for py := r.Min.Y; py < r.Max.Y; py++ {
		row := py * stride
		for px := r.Min.X; px < r.Max.X; px++ {
			off := row + px*2
			if off+1 >= len(buf) {
				continue
			}
			buf[off] = lo
			buf[off+1] = hi
		}
	}
	return nil
}

func (d *LCD) SetScroll(line int16) {
	_ = line
}

func (d *LCD) SetRotation(rotation drivers.Rotation) error {
	if rotation != drivers.Rotation0 {
		return ErrNotImplemented
	}
	return nil
}
