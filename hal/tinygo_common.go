//go:build tinygo && baremetal

package hal

import (
	"fmt"
	"machine"
	"time"
)

type tinyGoDisplay struct {
	fb Framebuffer
}

func (d tinyGoDisplay) Framebuffer() Framebuffer { return d.fb }

type uartLogger struct {
	uart *machine.UART
}

func (l *uartLogger) WriteLineString(s string) {
	for i := 0; i < len(s); i++ {
		l.uart.WriteByte(s[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

func (l *uartLogger) WriteLineBytes(b []byte) {
	for i := 0; i < len(b); i++ {
		l.uart.WriteByte(b[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

type pinLED struct {
	pin machine.Pin
}

func (l *pinLED) High() { l.pin.High() }
func (l *pinLED) Low()  { l.pin.Low() }

type uartSerial struct {
	uart *machine.UART
	m    *GoMachine
	rx   func(b byte)
}

func (s *uartSerial) Write(p []byte) (int, error) {
	if s.uart == nil {
		return 0, ErrNotImplemented
	}
	return s.uart.Write(p)
}

// OnReceive drains the UART ring buffer every millisecond and raises one
// interrupt per byte.
func (s *uartSerial) OnReceive(fn func(b byte)) error {
	if s.uart == nil {
		return ErrNotImplemented
	}
	start := s.rx == nil
	s.rx = fn
	if !start {
		return nil
	}
	go func() {
		for {
			for s.uart.Buffered() > 0 {
				b, err := s.uart.ReadByte()
				if err != nil {
					break
				}
				if b == '\r' {
					b = '\n'
				}
				rx := s.rx
				s.m.Raise(func() { rx(b) })
			}
			time.Sleep(time.Millisecond)
		}
	}()
	return nil
}

// pinButton is an active-low button wired to a GPIO with a pull-up.
type pinButton struct {
	name string
	pin  machine.Pin
	m    *GoMachine
}

func (p *pinButton) Name() string   { return p.name }
func (p *pinButton) Caps() GPIOCaps { return GPIOCapInput | GPIOCapPullUp }

func (p *pinButton) Configure(mode GPIOMode, pull GPIOPull) error {
	if mode != GPIOModeInput {
		return fmt.Errorf("gpio: pin %s: only input supported", p.name)
	}
	cfg := machine.PinConfig{Mode: machine.PinInput}
	switch pull {
	case GPIOPullNone:
	case GPIOPullUp:
		cfg.Mode = machine.PinInputPullup
	default:
		return fmt.Errorf("gpio: pin %s: pull-down unsupported", p.name)
	}
	p.pin.Configure(cfg)
	return nil
}

func (p *pinButton) Read() (bool, error) { return p.pin.Get(), nil }

func (p *pinButton) Write(level bool) error {
	_ = level
	return fmt.Errorf("gpio: pin %s: output unsupported", p.name)
}

func (p *pinButton) OnEdge(fn func()) error {
	return p.pin.SetInterrupt(machine.PinFalling, func(machine.Pin) {
		p.m.Raise(fn)
	})
}
