package hal

import (
	"reflect"
	"runtime"
	"sync"
	"time"
)

// GoMachineConfig controls the goroutine-backed core.
type GoMachineConfig struct {
	// ManualClock stops wall-clock timers; time only moves through Advance.
	ManualClock bool
	// Timers is the number of hardware timers; 0 means 8.
	Timers int
	// CyclesPerSecond is the cycle counter rate; 0 means 80 MHz.
	CyclesPerSecond uint32
}

// GoMachine runs every thread context on its own goroutine and passes a
// single permit between them, so exactly one context holds the core at a
// time. Interrupts are taken where real hardware would take them once
// unmasked: when interrupts are restored, when a switch is requested, and
// in WaitForInterrupt. Code that never calls into the kernel is not
// preempted.
type GoMachine struct {
	cfg GoMachineConfig

	// Core registers. Only the goroutine holding the core touches these;
	// ownership moves through the resume channels.
	masked   bool
	depth    int
	cur      *hostContext
	onSwitch func()

	mu            sync.Mutex
	cond          *sync.Cond
	irqs          []func()
	switchPending bool
	idle          bool
	stopped       bool
	halted        chan struct{}
	now           time.Duration
	epoch         time.Time
	timers        []*hostTimer
}

type hostContext struct {
	resume  chan struct{}
	entry   func()
	exit    func()
	started bool
	dead    bool
}

const frameWords = 16

// NewGoMachine returns a core with interrupts masked, as after reset.
func NewGoMachine(cfg GoMachineConfig) *GoMachine {
	if cfg.Timers <= 0 {
		cfg.Timers = 8
	}
	if cfg.CyclesPerSecond == 0 {
		cfg.CyclesPerSecond = 80_000_000
	}
	m := &GoMachine{
		cfg:    cfg,
		masked: true,
		halted: make(chan struct{}),
		epoch:  time.Now(),
	}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *GoMachine) DisableInterrupts() IntState {
	if m.masked {
		return IntMasked
	}
	m.masked = true
	return IntEnabled
}

func (m *GoMachine) RestoreInterrupts(s IntState) {
	if s == IntMasked {
		return
	}
	m.masked = false
	m.poll()
}

func (m *GoMachine) InInterrupt() bool { return m.depth > 0 }

// NewContext writes an exception-return frame (r4-r11, r0-r3, r12, lr,
// pc, psr) at the top of stack. The goroutine backing the context is
// started on first restore.
func (m *GoMachine) NewContext(stack []uint32, entry, exit func()) Context {
	if len(stack) >= frameWords {
		frame := stack[len(stack)-frameWords:]
		for i := 0; i < 8; i++ {
			frame[i] = uint32(i+4) * 0x01010101
		}
		for i := 0; i < 4; i++ {
			frame[8+i] = uint32(i) * 0x01010101
		}
		frame[12] = 0x12121212
		frame[13] = funcAddr(exit)
		frame[14] = funcAddr(entry)
		frame[15] = 0x01000000
	}
	return &hostContext{
		resume: make(chan struct{}, 1),
		entry:  entry,
		exit:   exit,
	}
}

func funcAddr(fn func()) uint32 {
	if fn == nil {
		return 0
	}
	return uint32(reflect.ValueOf(fn).Pointer())
}

func (m *GoMachine) ReleaseContext(ctx Context) {
	if c, ok := ctx.(*hostContext); ok {
		c.dead = true
	}
}

func (m *GoMachine) SwitchContext(from, to Context) {
	f, _ := from.(*hostContext)
	t := to.(*hostContext)
	if f == t {
		return
	}
	m.cur = t
	if !t.started {
		t.started = true
		go m.run(t)
	} else {
		t.resume <- struct{}{}
	}
	if f == nil {
		return
	}
	if f.dead {
		runtime.Goexit()
	}
	select {
	case <-f.resume:
	case <-m.halted:
		runtime.Goexit()
	}
}

// run is the first instruction of a fresh context: return from the
// exception that switched to it, then call entry and exit.
func (m *GoMachine) run(c *hostContext) {
	if m.depth > 0 {
		m.depth--
	}
	m.masked = false
	m.poll()
	c.entry()
	if c.exit != nil {
		c.exit()
	}
	panic("hal: thread exit routine returned")
}

func (m *GoMachine) OnSwitchRequest(fn func()) { m.onSwitch = fn }

func (m *GoMachine) RequestSwitch() {
	m.mu.Lock()
	m.switchPending = true
	m.mu.Unlock()
	m.poll()
}

func (m *GoMachine) Raise(fn func()) {
	m.mu.Lock()
	m.irqs = append(m.irqs, fn)
	m.cond.Broadcast()
	m.mu.Unlock()
}

// poll services pending interrupts while they are unmasked. The switch
// handler has the lowest priority.
func (m *GoMachine) poll() {
	for !m.masked {
		fn := m.take()
		if fn == nil {
			return
		}
		m.masked = true
		m.depth++
		fn()
		m.depth--
		m.masked = false
	}
}

func (m *GoMachine) take() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.irqs) > 0 {
		fn := m.irqs[0]
		m.irqs[0] = nil
		m.irqs = m.irqs[1:]
		return fn
	}
	if m.switchPending && m.onSwitch != nil {
		m.switchPending = false
		return m.onSwitch
	}
	return nil
}

func (m *GoMachine) WaitForInterrupt() {
	m.mu.Lock()
	for {
		if m.stopped {
			m.mu.Unlock()
			runtime.Goexit()
		}
		if len(m.irqs) > 0 || m.switchPending {
			break
		}
		m.idle = true
		m.cond.Broadcast()
		m.cond.Wait()
	}
	m.idle = false
	m.mu.Unlock()
	m.poll()
}

func (m *GoMachine) Start(ctx Context) {
	c := ctx.(*hostContext)
	m.cur = c
	c.started = true
	go m.run(c)
	<-m.halted
}

func (m *GoMachine) Halt() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.stopped = true
	close(m.halted)
	for _, t := range m.timers {
		t.stopLocked()
	}
	m.cond.Broadcast()
}

// Settle blocks until the core is idle with nothing pending, or halted.
func (m *GoMachine) Settle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settleLocked()
}

func (m *GoMachine) settleLocked() {
	for !m.stopped && (!m.idle || len(m.irqs) > 0 || m.switchPending) {
		m.cond.Wait()
	}
}

// Advance moves the manual clock forward by d, firing due timers in
// deadline order and letting the core go idle after each one.
func (m *GoMachine) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	target := m.now + d
	for !m.stopped {
		t := m.nextDueLocked(target)
		if t == nil {
			break
		}
		m.now = t.next
		if t.period > 0 {
			t.next += t.period
		} else {
			t.active = false
		}
		m.irqs = append(m.irqs, t.fn)
		m.cond.Broadcast()
		m.settleLocked()
	}
	if m.now < target {
		m.now = target
	}
}

func (m *GoMachine) nextDueLocked(limit time.Duration) *hostTimer {
	var due *hostTimer
	for _, t := range m.timers {
		if !t.active || t.next > limit {
			continue
		}
		if due == nil || t.next < due.next {
			due = t
		}
	}
	return due
}

func (m *GoMachine) elapsed() time.Duration {
	if m.cfg.ManualClock {
		m.mu.Lock()
		defer m.mu.Unlock()
		return m.now
	}
	return time.Since(m.epoch)
}

func (m *GoMachine) Cycles() uint32 {
	e := m.elapsed()
	return uint32(uint64(e) * uint64(m.cfg.CyclesPerSecond) / uint64(time.Second))
}

func (m *GoMachine) CyclesPerSecond() uint32 { return m.cfg.CyclesPerSecond }

func (m *GoMachine) NewTimer(fn func()) (Timer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.timers) >= m.cfg.Timers {
		return nil, ErrNoTimer
	}
	t := &hostTimer{m: m, fn: fn}
	m.timers = append(m.timers, t)
	return t, nil
}

type hostTimer struct {
	m      *GoMachine
	fn     func()
	active bool
	period time.Duration
	next   time.Duration
	stop   chan struct{}
}

func (t *hostTimer) Periodic(period time.Duration) error {
	return t.arm(period, period)
}

func (t *hostTimer) OneShot(d time.Duration) error {
	return t.arm(d, 0)
}

func (t *hostTimer) arm(first, period time.Duration) error {
	if first <= 0 {
		return ErrBadPeriod
	}
	m := t.m
	m.mu.Lock()
	defer m.mu.Unlock()
	t.stopLocked()
	t.active = true
	t.period = period
	t.next = m.now + first
	if m.cfg.ManualClock || m.stopped {
		return nil
	}
	stop := make(chan struct{})
	t.stop = stop
	go t.loop(first, period, stop)
	return nil
}

func (t *hostTimer) loop(first, period time.Duration, stop chan struct{}) {
	timer := time.NewTimer(first)
	defer timer.Stop()
	for {
		select {
		case <-stop:
			return
		case <-timer.C:
			t.m.Raise(t.fn)
			if period <= 0 {
				return
			}
			timer.Reset(period)
		}
	}
}

func (t *hostTimer) Stop() {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.stopLocked()
}

func (t *hostTimer) stopLocked() {
	t.active = false
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}
