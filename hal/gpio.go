package hal

import (
	"fmt"
	"sync"
)

// GPIOMode selects whether a pin is an input or output.
type GPIOMode uint8

const (
	GPIOModeInput GPIOMode = iota
	GPIOModeOutput
)

// GPIOPull selects the pull resistor configuration.
type GPIOPull uint8

const (
	GPIOPullNone GPIOPull = iota
	GPIOPullUp
	GPIOPullDown
)

// GPIOCaps declares what operations a pin supports.
type GPIOCaps uint8

const (
	GPIOCapInput GPIOCaps = 1 << iota
	GPIOCapOutput
	GPIOCapPullUp
	GPIOCapPullDown
)

// GPIO provides access to general-purpose IO pins.
//
// Implementations may return nil if GPIO is unsupported.
type GPIO interface {
	PinCount() int
	Pin(id int) GPIOPin
}

// GPIOPin is a single digital IO pin.
type GPIOPin interface {
	Name() string
	Caps() GPIOCaps
	Configure(mode GPIOMode, pull GPIOPull) error
	Read() (level bool, err error)
	Write(level bool) error
}

type nullGPIO struct{}

func (nullGPIO) PinCount() int      { return 0 }
func (nullGPIO) Pin(id int) GPIOPin { return nil }

type virtualGPIO struct {
	pins []GPIOPin
}

func newVirtualGPIO(pins []GPIOPin) GPIO {
	if len(pins) == 0 {
		return nullGPIO{}
	}
	return &virtualGPIO{pins: pins}
}

func (g *virtualGPIO) PinCount() int {
	if g == nil {
		return 0
	}
	return len(g.pins)
}

func (g *virtualGPIO) Pin(id int) GPIOPin {
	if g == nil || id < 0 || id >= len(g.pins) {
		return nil
	}
	return g.pins[id]
}

// ButtonPin is an active-low push button with a falling-edge interrupt.
type ButtonPin struct {
	mu      sync.Mutex
	name    string
	m       Machine
	mode    GPIOMode
	pull    GPIOPull
	pressed bool
	presses uint32
	onEdge  func()
}

func newButtonPin(name string, m Machine) *ButtonPin {
	return &ButtonPin{name: name, m: m, mode: GPIOModeInput, pull: GPIOPullUp}
}

func (p *ButtonPin) Name() string   { return p.name }
func (p *ButtonPin) Caps() GPIOCaps { return GPIOCapInput | GPIOCapPullUp }

func (p *ButtonPin) Configure(mode GPIOMode, pull GPIOPull) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if mode != GPIOModeInput {
		return fmt.Errorf("gpio: pin %s: only input supported", p.name)
	}
	if pull == GPIOPullDown {
		return fmt.Errorf("gpio: pin %s: pull-down unsupported", p.name)
	}
	p.mode = mode
	p.pull = pull
	return nil
}

func (p *ButtonPin) Read() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.pressed, nil
}

func (p *ButtonPin) Write(level bool) error {
	_ = level
	return fmt.Errorf("gpio: pin %s: output unsupported", p.name)
}

// OnEdge installs the falling-edge interrupt handler.
func (p *ButtonPin) OnEdge(fn func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.m == nil {
		return fmt.Errorf("gpio: pin %s: no interrupt controller", p.name)
	}
	p.onEdge = fn
	return nil
}

// Press drives the pin low and raises the edge interrupt.
func (p *ButtonPin) Press() {
	p.mu.Lock()
	if p.pressed {
		p.mu.Unlock()
		return
	}
	p.pressed = true
	p.presses++
	fn := p.onEdge
	p.mu.Unlock()
	if fn != nil {
		p.m.Raise(fn)
	}
}

// Release lets the pull-up bring the pin back high.
func (p *ButtonPin) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pressed = false
}

// Presses returns the number of falling edges seen so far.
func (p *ButtonPin) Presses() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.presses
}

type ledPin struct {
	mu    sync.Mutex
	led   LED
	name  string
	level bool
}

func newLEDPin(name string, led LED) GPIOPin {
	if led == nil {
		return nil
	}
	return &ledPin{led: led, name: name}
}

func (p *ledPin) Name() string   { return p.name }
func (p *ledPin) Caps() GPIOCaps { return GPIOCapOutput }

func (p *ledPin) Configure(mode GPIOMode, pull GPIOPull) error {
	if mode != GPIOModeOutput {
		return fmt.Errorf("gpio: pin %s: only output supported", p.name)
	}
	if pull != GPIOPullNone {
		return fmt.Errorf("gpio: pin %s: pull unsupported", p.name)
	}
	return nil
}

func (p *ledPin) Read() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level, nil
}

func (p *ledPin) Write(level bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
	if level {
		p.led.High()
	} else {
		p.led.Low()
	}
	return nil
}
