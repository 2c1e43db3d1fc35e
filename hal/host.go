//go:build !tinygo

package hal

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// HostConfig controls the host HAL.
type HostConfig struct {
	Machine GoMachineConfig
	// Buttons is the number of virtual push buttons (edge sources).
	Buttons int
	// Console reads the controlling terminal in raw mode for serial input.
	Console bool
	// LogOutput receives log lines; nil means stdout.
	LogOutput io.Writer
	// SerialOutput receives serial transmit bytes; nil means stdout.
	SerialOutput io.Writer
}

// Host is the desktop HAL: a simulated core, virtual buttons, an LCD
// framebuffer and the terminal as serial port.
type Host struct {
	logger  *hostLogger
	led     *hostLED
	gpio    GPIO
	buttons []*ButtonPin
	fb      *hostFramebuffer
	serial  *hostSerial
	m       *GoMachine
}

// New returns a host HAL implementation.
func New() HAL {
	return NewHost(HostConfig{Buttons: 2, Console: true})
}

// NewHost returns a host HAL with an explicit configuration.
func NewHost(cfg HostConfig) *Host {
	var w io.Writer = os.Stdout
	if cfg.LogOutput != nil {
		w = cfg.LogOutput
	}
	logger := &hostLogger{w: w}
	var tx io.Writer = os.Stdout
	if cfg.SerialOutput != nil {
		tx = cfg.SerialOutput
	}
	m := NewGoMachine(cfg.Machine)
	led := &hostLED{logger: logger}
	pins := []GPIOPin{newLEDPin("LED", led)}
	var buttons []*ButtonPin
	for i := 0; i < cfg.Buttons; i++ {
		b := newButtonPin(fmt.Sprintf("SW%d", i+1), m)
		buttons = append(buttons, b)
		pins = append(pins, b)
	}
	return &Host{
		logger:  logger,
		led:     led,
		gpio:    newVirtualGPIO(pins),
		buttons: buttons,
		fb:      newHostFramebuffer(320, 240),
		serial:  &hostSerial{w: tx, m: m, console: cfg.Console, log: logger},
		m:       m,
	}
}

func (h *Host) Logger() Logger   { return h.logger }
func (h *Host) LED() LED         { return h.led }
func (h *Host) GPIO() GPIO       { return h.gpio }
func (h *Host) Display() Display { return hostDisplay{fb: h.fb} }
func (h *Host) Serial() Serial   { return h.serial }
func (h *Host) Machine() Machine { return h.m }

// Core returns the simulated core.
func (h *Host) Core() *GoMachine { return h.m }

// Button returns virtual push button i, or nil.
func (h *Host) Button(i int) *ButtonPin {
	if i < 0 || i >= len(h.buttons) {
		return nil
	}
	return h.buttons[i]
}

// LEDOn reports the state of the board LED.
func (h *Host) LEDOn() bool {
	h.led.mu.Lock()
	defer h.led.mu.Unlock()
	return h.led.on
}

// SerialInput delivers bytes to the serial receive interrupt.
func (h *Host) SerialInput(p []byte) { h.serial.Inject(p) }

type hostDisplay struct {
	fb *hostFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostLogger struct {
	mu  sync.Mutex
	w   io.Writer
	eol string
}

// setRaw switches line endings while the terminal has output processing
// disabled.
func (l *hostLogger) setRaw(raw bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.eol = ""
	if raw {
		l.eol = "\r\n"
	}
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.eol != "" {
		fmt.Fprint(l.w, s, l.eol)
		return
	}
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.WriteLineString(string(b))
}

type hostLED struct {
	mu     sync.Mutex
	on     bool
	logger *hostLogger
}

func (l *hostLED) High() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.on = true
	l.logger.WriteLineString("led: HIGH")
}

func (l *hostLED) Low() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.on = false
	l.logger.WriteLineString("led: LOW")
}
