package hal

import "errors"

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
}

var ErrNotImplemented = errors.New("not implemented")

// PixelFormat defines the framebuffer pixel encoding.
type PixelFormat uint8

const (
	// PixelFormatRGB565 is 16bpp: rrrrrggggggbbbbb.
	PixelFormatRGB565 PixelFormat = iota + 1
)

// Framebuffer is a simple pixel buffer plus a "present" hook.
type Framebuffer interface {
	Width() int
	Height() int
	Format() PixelFormat
	StrideBytes() int
	Buffer() []byte
	ClearRGB(r, g, b uint8)
	Present() error
}

// Display provides access to the framebuffer (if available).
type Display interface {
	Framebuffer() Framebuffer
}

// Serial is the console UART.
type Serial interface {
	Write(p []byte) (int, error)
	// OnReceive installs the receive interrupt handler. It runs in
	// interrupt context once per received byte.
	OnReceive(fn func(b byte)) error
}

// HAL provides the only contact point between the kernel and the outside
// world.
type HAL interface {
	Logger() Logger
	LED() LED
	GPIO() GPIO
	Display() Display
	Serial() Serial
	Machine() Machine
}

type teeLogger []Logger

// Tee returns a logger writing every line to each non-nil logger.
func Tee(loggers ...Logger) Logger {
	var t teeLogger
	for _, l := range loggers {
		if l != nil {
			t = append(t, l)
		}
	}
	return t
}

func (t teeLogger) WriteLineString(s string) {
	for _, l := range t {
		l.WriteLineString(s)
	}
}

func (t teeLogger) WriteLineBytes(b []byte) {
	for _, l := range t {
		l.WriteLineBytes(b)
	}
}
