package app

import (
	"errors"
	"fmt"
	"image"
	"time"

	"ember/hal"
	"ember/kernel"
	"ember/monitor"
)

// Config selects what runs on top of the kernel.
type Config struct {
	Kernel kernel.Config
	// Slice overrides Kernel.TimeSlice when non-zero.
	Slice time.Duration

	Demo bool
	// Load adds a CPU-bound thread at the lowest priority.
	Load    bool
	Shell   bool
	Status  bool
	Console bool
}

// DefaultConfig runs the demo with the full monitor.
func DefaultConfig() Config {
	kc := kernel.DefaultConfig()
	kc.MaxThreads = 16
	return Config{
		Kernel:  kc,
		Demo:    true,
		Shell:   true,
		Status:  true,
		Console: true,
	}
}

// System is a kernel with its monitor and demo threads, ready to boot.
type System struct {
	h   hal.HAL
	k   *kernel.Kernel
	cfg Config

	shell   *monitor.Shell
	status  *monitor.Status
	console *monitor.Console
	demo    *Demo
}

// Screen layout: status on top, log console below.
var (
	statusArea  = image.Rect(0, 0, 320, 60)
	consoleArea = image.Rect(0, 60, 320, 240)
)

// NewSystem builds the kernel on h and adds every configured thread.
func NewSystem(h hal.HAL, cfg Config) (*System, error) {
	s := &System{h: h, cfg: cfg}
	m := h.Machine()

	var fb hal.Framebuffer
	if d := h.Display(); d != nil {
		fb = d.Framebuffer()
	}
	if fb != nil {
		splash(fb, cfg)
	}
	if cfg.Console && fb != nil {
		s.console = monitor.NewConsole(m, hal.NewLCD(fb, consoleArea))
		cfg.Kernel.Logger = hal.Tee(h.Logger(), s.console)
	} else if cfg.Kernel.Logger == nil {
		cfg.Kernel.Logger = h.Logger()
	}

	k, err := kernel.New(m, cfg.Kernel)
	if err != nil {
		return nil, fmt.Errorf("kernel: %w", err)
	}
	s.k = k
	installFatalHandler(h, k)

	low := cfg.Kernel.MaxPriority
	if s.console != nil {
		if err := s.add("console", func() { s.console.Loop(k, 100) }, low); err != nil {
			return nil, err
		}
	}
	if cfg.Status && fb != nil {
		s.status = monitor.NewStatus(k, hal.NewLCD(fb, statusArea))
		if err := s.add("status", s.status.Run, max(low-1, 0)); err != nil {
			return nil, err
		}
	}
	if cfg.Shell && h.Serial() != nil {
		sh := monitor.NewShell(k, h.Serial())
		switch err := sh.Attach(h.Serial()); {
		case errors.Is(err, hal.ErrNotImplemented):
			if l := cfg.Kernel.Logger; l != nil {
				l.WriteLineString("shell: serial input unavailable")
			}
		case err != nil:
			return nil, fmt.Errorf("shell: %w", err)
		default:
			s.shell = sh
			if err := s.add("shell", sh.Run, min(2, low)); err != nil {
				return nil, err
			}
		}
	}
	if cfg.Demo {
		d, err := newDemo(h, k, cfg.Load)
		if err != nil {
			return nil, fmt.Errorf("demo: %w", err)
		}
		s.demo = d
	}
	return s, nil
}

func (s *System) add(name string, fn func(), priority int) error {
	if _, err := s.k.AddThread(name, fn, 0, priority); err != nil {
		return fmt.Errorf("%s thread: %w", name, err)
	}
	return nil
}

// Kernel returns the system kernel.
func (s *System) Kernel() *kernel.Kernel { return s.k }

// Demo returns the demo threads, or nil when disabled.
func (s *System) Demo() *Demo { return s.demo }

// Boot launches the kernel. It returns once the machine halts.
func (s *System) Boot() error { return s.k.Launch(s.cfg.Slice) }

// New builds the default system; the returned function boots it.
func New(h hal.HAL) func() error {
	return NewWithConfig(h, DefaultConfig())
}

// NewWithConfig builds a system for the host runners.
func NewWithConfig(h hal.HAL, cfg Config) func() error {
	s, err := NewSystem(h, cfg)
	if err != nil {
		return func() error { return err }
	}
	return s.Boot
}

// Run boots the default system and never returns (TinyGo entrypoint).
func Run(h hal.HAL) {
	if err := New(h)(); err != nil && h.Logger() != nil {
		h.Logger().WriteLineString("ember: " + err.Error())
	}
	select {}
}
