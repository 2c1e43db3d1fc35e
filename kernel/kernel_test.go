package kernel

import (
	"errors"
	"testing"
	"time"
)

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Scheduler = "lottery"
	if _, err := New(newFakeMachine(), cfg); !errors.Is(err, ErrBadConfig) {
		t.Fatalf("New() error = %v, want ErrBadConfig", err)
	}
	if _, err := New(nil, testConfig()); !errors.Is(err, ErrBadConfig) {
		t.Fatalf("New(nil) error = %v, want ErrBadConfig", err)
	}
}

func TestLaunchWithoutThreadsRunsIdle(t *testing.T) {
	k, m := newTestKernel(t, testConfig())
	mustLaunch(t, k)
	if k.current != k.idle {
		t.Fatalf("current = %v, want idle", k.current.id)
	}
	if m.started != k.idle.ctx {
		t.Fatal("machine did not start the idle context")
	}
	if k.ID() != IdleThread {
		t.Fatalf("ID() = %d, want %d", k.ID(), IdleThread)
	}
	if err := k.Launch(0); !errors.Is(err, ErrLaunched) {
		t.Fatalf("second Launch() = %v, want ErrLaunched", err)
	}
}

func TestLaunchRejectsShortSlice(t *testing.T) {
	k, _ := newTestKernel(t, testConfig())
	if err := k.Launch(time.Microsecond); !errors.Is(err, ErrBadPeriod) {
		t.Fatalf("Launch() = %v, want ErrBadPeriod", err)
	}
}

func TestLaunchPicksMostUrgentThread(t *testing.T) {
	k, m := newTestKernel(t, testConfig())
	mustAdd(t, k, "low", 3)
	hi := mustAdd(t, k, "high", 0)
	mustLaunch(t, k)
	if k.current != hi {
		t.Fatalf("current = %q, want %q", k.current.name, hi.name)
	}
	if hi.State() != StateRunning {
		t.Fatalf("State() = %v, want running", hi.State())
	}
	m.timer(t, time.Millisecond)
}

func TestAddThreadValidates(t *testing.T) {
	k, _ := newTestKernel(t, testConfig())
	if _, err := k.AddThread("p", func() {}, 0, 5); !errors.Is(err, ErrBadPriority) {
		t.Fatalf("AddThread(priority 5) = %v, want ErrBadPriority", err)
	}
	if _, err := k.AddThread("s", func() {}, MinStackWords-1, 1); !errors.Is(err, ErrBadStackSize) {
		t.Fatalf("AddThread(small stack) = %v, want ErrBadStackSize", err)
	}
	if _, err := k.AddThread("nil", nil, 0, 1); !errors.Is(err, ErrNoEntry) {
		t.Fatalf("AddThread(nil) = %v, want ErrNoEntry", err)
	}
	if k.free.Len() != k.cfg.MaxThreads {
		t.Fatalf("free = %d, want %d", k.free.Len(), k.cfg.MaxThreads)
	}
}

func TestAddThreadExhaustsPool(t *testing.T) {
	cfg := testConfig()
	cfg.MaxThreads = 2
	k, _ := newTestKernel(t, cfg)
	a := mustAdd(t, k, "a", 1)
	mustAdd(t, k, "b", 1)
	avail := k.alloc.Available()

	if _, err := k.AddThread("c", func() {}, 0, 1); !errors.Is(err, ErrNoThreads) {
		t.Fatalf("AddThread() = %v, want ErrNoThreads", err)
	}
	if k.alloc.Available() != avail {
		t.Fatalf("Available() = %d, want %d", k.alloc.Available(), avail)
	}
	if a.State() != StateReady || a.Name() != "a" {
		t.Fatalf("existing thread changed: %v %q", a.State(), a.Name())
	}
	checkInvariants(t, k)
}

func TestAddThreadExhaustsMemory(t *testing.T) {
	cfg := testConfig()
	cfg.HeapWords = IdleStackWords + 64 + MinStackWords
	k, _ := newTestKernel(t, cfg)
	mustAdd(t, k, "a", 1)
	free, head := k.free.Len(), k.free.Head()

	if _, err := k.AddThread("b", func() {}, 0, 1); !errors.Is(err, ErrNoMemory) {
		t.Fatalf("AddThread() = %v, want ErrNoMemory", err)
	}
	if k.free.Len() != free || k.free.Head() != head {
		t.Fatalf("free = %d head %d, want %d head %d", k.free.Len(), k.free.Head().id, free, head.id)
	}
	checkInvariants(t, k)

	// The next spawn still gets the slot that was at the head.
	if id, err := k.AddThread("c", func() {}, MinStackWords, 1); err != nil || id != head.id {
		t.Fatalf("AddThread() = %d, %v, want %d, nil", id, err, head.id)
	}
}

func TestAddThreadPreemptsLessUrgent(t *testing.T) {
	k, _ := newTestKernel(t, testConfig())
	low := mustAdd(t, k, "low", 3)
	mustLaunch(t, k)

	hi := mustAdd(t, k, "high", 1)
	if k.current != hi {
		t.Fatalf("current = %q, want %q", k.current.name, hi.name)
	}
	if low.State() != StateReady {
		t.Fatalf("low State() = %v, want ready", low.State())
	}

	mustAdd(t, k, "peer", 1)
	if k.current != hi {
		t.Fatalf("equal priority thread preempted: current = %q", k.current.name)
	}
	checkInvariants(t, k)
}

func TestKillReclaimsAfterSwitch(t *testing.T) {
	k, m := newTestKernel(t, testConfig())
	a := mustAdd(t, k, "a", 1)
	b := mustAdd(t, k, "b", 1)
	mustLaunch(t, k)
	avail := k.alloc.Available()
	words := a.stack.Words()
	ctx := a.ctx

	k.Kill()

	if k.current != b {
		t.Fatalf("current = %q, want %q", k.current.name, b.name)
	}
	if a.State() != StateFree || !k.free.Contains(a) {
		t.Fatalf("killed thread State() = %v, free = %v", a.State(), k.free.Contains(a))
	}
	if got, want := k.alloc.Available(), avail+words; got != want {
		t.Fatalf("Available() = %d, want %d", got, want)
	}
	if len(m.released) != 1 || m.released[0] != ctx {
		t.Fatalf("released = %v, want the killed context", m.released)
	}
	if s := k.Snapshot(); s.Killed != 1 {
		t.Fatalf("Killed = %d, want 1", s.Killed)
	}
	checkInvariants(t, k)
}

func TestReturnFromEntryKills(t *testing.T) {
	k, _ := newTestKernel(t, testConfig())
	ran := false
	if _, err := k.AddThread("once", func() { ran = true }, 0, 1); err != nil {
		t.Fatalf("AddThread() error = %v", err)
	}
	mustLaunch(t, k)

	runCurrent(t, k)
	if !ran {
		t.Fatal("entry did not run")
	}
	if k.current != k.idle {
		t.Fatalf("current = %q, want idle", k.current.name)
	}
	if k.free.Len() != k.cfg.MaxThreads {
		t.Fatalf("free = %d, want %d", k.free.Len(), k.cfg.MaxThreads)
	}
	checkInvariants(t, k)
}

func TestSleepWakesOnTick(t *testing.T) {
	k, m := newTestKernel(t, testConfig())
	a := mustAdd(t, k, "a", 0)
	b := mustAdd(t, k, "b", 1)
	mustLaunch(t, k)
	tick := m.timer(t, time.Millisecond)

	k.Sleep(50)
	if k.current != b {
		t.Fatalf("current = %q, want %q", k.current.name, b.name)
	}
	for i := 0; i < 49; i++ {
		m.fire(tick)
	}
	if !k.sleeping.Contains(a) || a.sleep != time.Millisecond {
		t.Fatalf("after 49 ticks: sleeping = %v, counter = %v; want true, 1ms", k.sleeping.Contains(a), a.sleep)
	}
	checkInvariants(t, k)

	m.fire(tick)
	if k.sleeping.Contains(a) || a.sleep != 0 {
		t.Fatalf("after 50 ticks: sleeping = %v, counter = %v; want false, 0", k.sleeping.Contains(a), a.sleep)
	}
	if !k.sched.Contains(a) || k.current != a {
		t.Fatalf("woken thread not running: ready = %v, current = %q", k.sched.Contains(a), k.current.name)
	}
	checkInvariants(t, k)
}

func TestSleepRoundsUpToTicks(t *testing.T) {
	cfg := testConfig()
	cfg.TimeSlice = 2 * time.Millisecond
	k, m := newTestKernel(t, cfg)
	a := mustAdd(t, k, "a", 0)
	mustLaunch(t, k)
	tick := m.timer(t, 2*time.Millisecond)

	k.Sleep(3)
	m.fire(tick)
	if a.State() != StateSleeping {
		t.Fatalf("State() after 2ms = %v, want sleeping", a.State())
	}
	m.fire(tick)
	if a.State() != StateRunning {
		t.Fatalf("State() after 4ms = %v, want running", a.State())
	}
}

func TestSleepWithFractionalSlice(t *testing.T) {
	cfg := testConfig()
	cfg.TimeSlice = 1500 * time.Microsecond
	k, m := newTestKernel(t, cfg)
	a := mustAdd(t, k, "a", 0)
	mustLaunch(t, k)
	tick := m.timer(t, cfg.TimeSlice)

	k.Sleep(3)
	m.fire(tick)
	if a.State() != StateSleeping {
		t.Fatalf("State() after 1.5ms = %v, want sleeping", a.State())
	}
	if got := k.Snapshot().Threads[0].SleepMs; got != 2 {
		t.Fatalf("SleepMs = %d, want 2", got)
	}
	m.fire(tick)
	if a.State() != StateRunning {
		t.Fatalf("State() after 3ms = %v, want running", a.State())
	}
}

func TestTickRotatesEqualPriorities(t *testing.T) {
	k, m := newTestKernel(t, testConfig())
	a := mustAdd(t, k, "a", 1)
	b := mustAdd(t, k, "b", 1)
	mustLaunch(t, k)
	tick := m.timer(t, time.Millisecond)

	want := []*TCB{b, a, b}
	for i, w := range want {
		m.fire(tick)
		if k.current != w {
			t.Fatalf("tick %d: current = %q, want %q", i, k.current.name, w.name)
		}
	}
	if s := k.Snapshot(); s.Ticks != 3 || s.Switches != 3 {
		t.Fatalf("Ticks, Switches = %d, %d; want 3, 3", s.Ticks, s.Switches)
	}
}

func TestMsTime(t *testing.T) {
	cfg := testConfig()
	cfg.TimeSlice = 5 * time.Millisecond
	k, m := newTestKernel(t, cfg)
	mustLaunch(t, k)
	ms := m.timer(t, time.Millisecond)
	for i := 0; i < 7; i++ {
		m.fire(ms)
	}
	if got := k.MsTime(); got != 7 {
		t.Fatalf("MsTime() = %d, want 7", got)
	}
	k.ClearMsTime()
	if got := k.MsTime(); got != 0 {
		t.Fatalf("MsTime() after clear = %d, want 0", got)
	}
}

func TestTimeDifferenceWraps(t *testing.T) {
	if got := TimeDifference(0xFFFFFFF0, 0x10); got != 0x20 {
		t.Fatalf("TimeDifference() = %#x, want 0x20", got)
	}
	k, m := newTestKernel(t, testConfig())
	m.cycles = 1234
	if got := k.Time(); got != 1234 {
		t.Fatalf("Time() = %d, want 1234", got)
	}
	if got := k.Elapsed(1500); got != 1500*time.Microsecond {
		t.Fatalf("Elapsed() = %v, want 1.5ms", got)
	}
}

func TestSuspendYields(t *testing.T) {
	k, _ := newTestKernel(t, testConfig())
	mustAdd(t, k, "a", 1)
	b := mustAdd(t, k, "b", 1)
	mustLaunch(t, k)
	k.Suspend()
	if k.current != b {
		t.Fatalf("current = %q, want %q", k.current.name, b.name)
	}
}

func TestStackOverflowIsFatal(t *testing.T) {
	k, m := newTestKernel(t, testConfig())
	a := mustAdd(t, k, "a", 1)
	mustAdd(t, k, "b", 1)
	mustLaunch(t, k)

	var got []FatalInfo
	k.SetFatalHandler(func(info FatalInfo) { got = append(got, info) })
	a.stack.Mem[0] = 0

	func() {
		defer func() {
			if r := recover(); r != errHalted {
				t.Fatalf("recovered %v, want halt", r)
			}
		}()
		k.Suspend()
	}()

	if !m.halted || !k.InFatal() {
		t.Fatalf("halted = %v, InFatal() = %v; want true, true", m.halted, k.InFatal())
	}
	if len(got) != 1 {
		t.Fatalf("handler calls = %d, want 1", len(got))
	}
	if got[0].Thread != a.id || !errors.Is(got[0].Err, ErrStackOverflow) {
		t.Fatalf("FatalInfo = %d %v, want %d %v", got[0].Thread, got[0].Err, a.id, ErrStackOverflow)
	}
	if len(got[0].Stack) == 0 {
		t.Fatal("FatalInfo.Stack is empty")
	}
}

func TestBlockingMisuseFaults(t *testing.T) {
	k, m := newTestKernel(t, testConfig())
	s := k.NewSemaphore(0)
	expectFault(t, ErrNoCurrent, s.Wait)

	mustAdd(t, k, "a", 1)
	mustLaunch(t, k)

	st := k.StartCritical()
	expectFault(t, ErrBlockMasked, s.Wait)
	expectFault(t, ErrBlockMasked, func() { k.Sleep(1) })
	k.EndCritical(st)
	checkInvariants(t, k)

	expectFault(t, ErrBlockInISR, func() { m.Raise(s.Wait) })
}
