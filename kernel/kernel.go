// Package kernel is a preemptive, priority-aware kernel for a single core.
//
// Threads run on contexts provided by a hal.Machine. Every shared list is
// mutated with interrupts masked; a deferred switch request (PendSV on
// Cortex-M) runs the context-switch trampoline once no other interrupt is
// pending.
package kernel

import (
	"fmt"
	"time"

	"ember/hal"
	"ember/internal/list"
)

// Kernel owns the thread pool, the scheduler and the timers. There is one
// per machine.
type Kernel struct {
	_ [0]func() // prevent accidental copying.

	cfg   Config
	m     hal.Machine
	log   hal.Logger
	alloc Allocator

	pool     []TCB
	free     list.Linear[*TCB]
	idle     *TCB
	sched    Scheduler
	sleeping list.Linear[*TCB]
	current  *TCB

	procs    []Process
	periodic []*PeriodicTask
	edges    []*EdgeTask

	slice     time.Duration
	tickTimer hal.Timer
	msTimer   hal.Timer
	launched  bool

	stats      counters
	fatalState fatalState
}

// New builds a kernel on m. Interrupts stay masked until Launch.
func New(m hal.Machine, cfg Config) (*Kernel, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil machine", ErrBadConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	k := &Kernel{
		cfg:   cfg,
		m:     m,
		log:   cfg.Logger,
		alloc: cfg.Allocator,
		pool:  make([]TCB, cfg.MaxThreads),
		procs: make([]Process, cfg.MaxProcesses),
	}
	if k.alloc == nil {
		k.alloc = NewArena(cfg.heapWords(), ArenaUnitWords)
	}
	for i := range k.pool {
		t := &k.pool[i]
		t.id = ThreadID(i)
		k.free.Append(t)
	}
	for i := range k.procs {
		k.procs[i].id = ProcessID(i)
	}

	idle := &TCB{id: IdleThread, name: "idle", priority: cfg.MaxPriority + 1}
	stack, err := k.alloc.Alloc(IdleStackWords)
	if err != nil {
		return nil, fmt.Errorf("idle stack: %w", err)
	}
	idle.stack = stack
	idle.stack.Mem[0] = StackMagic
	idle.entry = k.idleLoop
	idle.ctx = m.NewContext(idle.stack.Mem, idle.entry, k.idleLoop)
	idle.state = StateReady
	k.idle = idle

	switch cfg.Scheduler {
	case SchedRoundRobin:
		k.sched = NewRoundRobin(idle)
	default:
		k.sched = NewPriority(idle, cfg.MaxPriority)
	}
	m.OnSwitchRequest(k.contextSwitch)
	return k, nil
}

// Config returns the configuration the kernel was built with.
func (k *Kernel) Config() Config { return k.cfg }

// Machine returns the machine the kernel runs on.
func (k *Kernel) Machine() hal.Machine { return k.m }

func (k *Kernel) idleLoop() {
	for {
		k.stats.idleLoops++
		k.m.WaitForInterrupt()
	}
}

// Launch starts the tick at slice (0 uses Config.TimeSlice), arms the
// periodic tasks and restores the first thread. On hardware it never
// returns; on host machines it returns once the machine halts.
func (k *Kernel) Launch(slice time.Duration) error {
	if k.launched {
		return ErrLaunched
	}
	if slice == 0 {
		slice = k.cfg.TimeSlice
	}
	if slice < time.Millisecond {
		return fmt.Errorf("%w: time slice %v", ErrBadPeriod, slice)
	}
	k.slice = slice

	// System time is armed first so that it has advanced by the time a
	// coinciding tick wakes a sleeper.
	var err error
	if k.msTimer, err = k.m.NewTimer(k.msTick); err != nil {
		return fmt.Errorf("ms timer: %w", err)
	}
	if k.tickTimer, err = k.m.NewTimer(k.tick); err != nil {
		return fmt.Errorf("tick timer: %w", err)
	}
	if err := k.msTimer.Periodic(time.Millisecond); err != nil {
		return fmt.Errorf("ms timer: %w", err)
	}
	if err := k.tickTimer.Periodic(slice); err != nil {
		return fmt.Errorf("tick timer: %w", err)
	}
	for _, p := range k.periodic {
		if err := p.timer.Periodic(p.period); err != nil {
			return fmt.Errorf("periodic task %s: %w", p.name, err)
		}
	}

	s := k.enterCritical()
	first := k.sched.Next(nil)
	first.state = StateRunning
	first.runs++
	k.current = first
	k.launched = true
	k.exitCritical(s)

	k.logf("launch: %s scheduler, slice %v, %d threads ready, first %q",
		k.cfg.Scheduler, slice, k.sched.Ready(), first.name)
	k.m.Start(first.ctx)
	return nil
}

// Launched reports whether Launch has started the first thread.
func (k *Kernel) Launched() bool { return k.launched }

func (k *Kernel) logf(format string, args ...any) {
	if k.log == nil {
		return
	}
	k.log.WriteLineString("kernel: " + fmt.Sprintf(format, args...))
}

// CheckInvariants verifies that every TCB is held by exactly the
// collection its state names. It masks interrupts while it runs.
func (k *Kernel) CheckInvariants() error {
	s := k.enterCritical()
	defer k.exitCritical(s)

	for i := range k.pool {
		if err := k.checkTCB(&k.pool[i]); err != nil {
			return err
		}
	}
	if k.idle.Linked() {
		return fmt.Errorf("idle thread linked into %T", k.idle.Owner())
	}
	if k.current != nil && k.current.state != StateRunning && k.current.state != StateDying {
		return fmt.Errorf("current thread %d in state %v", k.current.id, k.current.state)
	}
	if !k.sched.Locked() {
		return nil
	}
	if k.current == nil || !k.current.background {
		return fmt.Errorf("scheduler locked without a running background thread")
	}
	return nil
}

func (k *Kernel) checkTCB(t *TCB) error {
	inFree := k.free.Contains(t)
	inReady := k.sched.Contains(t)
	inSleep := k.sleeping.Contains(t)
	inSem := t.blockedOn != nil && t.blockedOn.holds(t)

	n := 0
	for _, in := range []bool{inFree, inReady, inSleep, inSem} {
		if in {
			n++
		}
	}
	if n > 1 {
		return fmt.Errorf("thread %d is in %d collections", t.id, n)
	}
	if n == 0 && t.Linked() {
		return fmt.Errorf("thread %d linked into untracked %T", t.id, t.Owner())
	}
	if n == 0 && (t.Next() != nil || t.Prev() != nil) {
		return fmt.Errorf("thread %d has dangling links", t.id)
	}

	var ok bool
	switch t.state {
	case StateFree:
		ok = inFree
	case StateReady:
		ok = inReady
	case StateSleeping:
		ok = inSleep
	case StateBlocked:
		ok = inSem
	case StateRunning:
		ok = t == k.current && (inReady || n == 0 && t.background)
	case StateDying:
		ok = n == 0 && t == k.current
	}
	if !ok {
		return fmt.Errorf("thread %d (%s) in state %v is misplaced: free=%v ready=%v sleeping=%v blocked=%v",
			t.id, t.name, t.state, inFree, inReady, inSleep, inSem)
	}
	return nil
}
