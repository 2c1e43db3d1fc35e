package kernel

import (
	"errors"
	"testing"
	"time"

	"ember/hal"
)

var errHalted = errors.New("fake machine halted")

// fakeMachine takes interrupts synchronously on the calling goroutine and
// only records context switches, so tests can act as whichever thread the
// kernel made current.
type fakeMachine struct {
	masked   bool
	depth    int
	onSwitch func()
	pending  bool
	irqs     []func()

	switches int
	started  hal.Context
	halted   bool
	cycles   uint32
	timers   []*fakeTimer
	released []hal.Context
}

type fakeContext struct {
	entry, exit func()
	frame       []uint32
}

type fakeTimer struct {
	fn     func()
	period time.Duration
	active bool
}

func (t *fakeTimer) Periodic(period time.Duration) error {
	if period <= 0 {
		return hal.ErrBadPeriod
	}
	t.period, t.active = period, true
	return nil
}

func (t *fakeTimer) OneShot(d time.Duration) error { return t.Periodic(d) }
func (t *fakeTimer) Stop()                         { t.active = false }

func newFakeMachine() *fakeMachine { return &fakeMachine{masked: true} }

func (m *fakeMachine) DisableInterrupts() hal.IntState {
	if m.masked {
		return hal.IntMasked
	}
	m.masked = true
	return hal.IntEnabled
}

func (m *fakeMachine) RestoreInterrupts(s hal.IntState) {
	if s == hal.IntMasked {
		return
	}
	m.masked = false
	m.poll()
}

func (m *fakeMachine) InInterrupt() bool { return m.depth > 0 }

func (m *fakeMachine) NewContext(stack []uint32, entry, exit func()) hal.Context {
	return &fakeContext{entry: entry, exit: exit, frame: stack}
}

func (m *fakeMachine) ReleaseContext(ctx hal.Context) { m.released = append(m.released, ctx) }
func (m *fakeMachine) SwitchContext(from, to hal.Context) { m.switches++ }
func (m *fakeMachine) OnSwitchRequest(fn func())          { m.onSwitch = fn }

func (m *fakeMachine) RequestSwitch() {
	m.pending = true
	m.poll()
}

func (m *fakeMachine) NewTimer(fn func()) (hal.Timer, error) {
	if len(m.timers) >= 8 {
		return nil, hal.ErrNoTimer
	}
	t := &fakeTimer{fn: fn}
	m.timers = append(m.timers, t)
	return t, nil
}

func (m *fakeMachine) Raise(fn func()) {
	m.irqs = append(m.irqs, fn)
	m.poll()
}

func (m *fakeMachine) poll() {
	for !m.masked && !m.halted {
		var fn func()
		switch {
		case len(m.irqs) > 0:
			fn = m.irqs[0]
			m.irqs = m.irqs[1:]
		case m.pending && m.onSwitch != nil:
			m.pending = false
			fn = m.onSwitch
		default:
			return
		}
		m.masked = true
		m.depth++
		fn()
		m.depth--
		m.masked = false
	}
}

func (m *fakeMachine) Cycles() uint32          { return m.cycles }
func (m *fakeMachine) CyclesPerSecond() uint32 { return 1_000_000 }

func (m *fakeMachine) WaitForInterrupt() {
	if m.halted {
		panic(errHalted)
	}
}

func (m *fakeMachine) Start(ctx hal.Context) {
	m.started = ctx
	m.masked = false
	m.poll()
}

func (m *fakeMachine) Halt() { m.halted = true }

// timer returns the most recently allocated armed timer with the given
// period. The tick is allocated after system time.
func (m *fakeMachine) timer(t *testing.T, period time.Duration) *fakeTimer {
	t.Helper()
	for i := len(m.timers) - 1; i >= 0; i-- {
		if ft := m.timers[i]; ft.active && ft.period == period {
			return ft
		}
	}
	t.Fatalf("no timer armed with period %v", period)
	return nil
}

// fire delivers one expiry of ft.
func (m *fakeMachine) fire(ft *fakeTimer) { m.Raise(ft.fn) }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxThreads = 6
	cfg.StackWords = 64
	cfg.MaxPriority = 4
	cfg.TimeSlice = time.Millisecond
	cfg.JitterBuckets = 8
	return cfg
}

func newTestKernel(t *testing.T, cfg Config) (*Kernel, *fakeMachine) {
	t.Helper()
	m := newFakeMachine()
	k, err := New(m, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return k, m
}

func mustAdd(t *testing.T, k *Kernel, name string, priority int) *TCB {
	t.Helper()
	id, err := k.AddThread(name, func() {}, 0, priority)
	if err != nil {
		t.Fatalf("AddThread(%q) error = %v", name, err)
	}
	return &k.pool[id]
}

func mustLaunch(t *testing.T, k *Kernel) {
	t.Helper()
	if err := k.Launch(0); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	checkInvariants(t, k)
}

func checkInvariants(t *testing.T, k *Kernel) {
	t.Helper()
	if err := k.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants() = %v", err)
	}
}

// runCurrent runs the body of the current thread to completion on the
// test goroutine, followed by its exit routine.
func runCurrent(t *testing.T, k *Kernel) {
	t.Helper()
	c, ok := k.current.ctx.(*fakeContext)
	if !ok {
		t.Fatalf("current context is %T", k.current.ctx)
	}
	c.entry()
	c.exit()
}

func expectFault(t *testing.T, want error, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		f, ok := r.(*Fault)
		if !ok {
			t.Fatalf("recovered %v, want *Fault", r)
		}
		if !errors.Is(f, want) {
			t.Fatalf("fault = %v, want %v", f, want)
		}
	}()
	fn()
}
