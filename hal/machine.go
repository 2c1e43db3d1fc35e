package hal

import (
	"errors"
	"time"
)

// IntState is the interrupt-enable state saved by DisableInterrupts.
type IntState uint32

const (
	// IntEnabled means interrupts were enabled before masking.
	IntEnabled IntState = iota
	// IntMasked means interrupts were already masked.
	IntMasked
)

// Context is an opaque saved execution context (a thread's stack pointer on
// hardware).
type Context interface{}

// Timer is a hardware countdown that calls its handler in interrupt
// context.
type Timer interface {
	// Periodic reloads the countdown every period until stopped.
	Periodic(period time.Duration) error
	// OneShot fires the handler once after d.
	OneShot(d time.Duration) error
	Stop()
}

// Machine is the CPU-specific layer under the kernel: interrupt masking,
// stack frames, context switching and timers.
type Machine interface {
	// DisableInterrupts masks interrupts and returns the previous state.
	DisableInterrupts() IntState
	// RestoreInterrupts restores a state returned by DisableInterrupts.
	// Interrupts that became pending while masked are taken here.
	RestoreInterrupts(IntState)
	// InInterrupt reports whether the caller runs in interrupt context.
	InInterrupt() bool

	// NewContext lays out an initial frame on stack so that the first
	// restore runs entry, and exit if entry returns.
	NewContext(stack []uint32, entry, exit func()) Context
	// ReleaseContext marks ctx dead. A released context is never resumed.
	ReleaseContext(ctx Context)
	// SwitchContext saves from and restores to. It must be called from the
	// switch handler.
	SwitchContext(from, to Context)

	// OnSwitchRequest installs the deferred switch handler.
	OnSwitchRequest(fn func())
	// RequestSwitch pends the switch handler. It runs once no other
	// interrupt is pending and interrupts are enabled.
	RequestSwitch()

	// NewTimer allocates a hardware timer calling fn on expiry.
	NewTimer(fn func()) (Timer, error)
	// Raise asserts a device interrupt line; fn runs in interrupt context.
	Raise(fn func())

	// Cycles returns a free-running cycle counter.
	Cycles() uint32
	// CyclesPerSecond is the counter frequency.
	CyclesPerSecond() uint32

	// WaitForInterrupt sleeps the core until an interrupt was serviced.
	WaitForInterrupt()
	// Start restores ctx with interrupts enabled. On hardware it never
	// returns; host machines return after Halt.
	Start(ctx Context)
	// Halt stops the machine.
	Halt()
}

// EdgeSource is an input that raises an interrupt on an edge.
type EdgeSource interface {
	// OnEdge installs fn as the edge interrupt handler.
	OnEdge(fn func()) error
}

var (
	// ErrNoTimer is returned when every hardware timer is in use.
	ErrNoTimer = errors.New("hal: no free hardware timer")
	// ErrBadPeriod is returned for non-positive timer periods.
	ErrBadPeriod = errors.New("hal: invalid timer period")
)
