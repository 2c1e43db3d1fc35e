package kernel

import "testing"

func TestWaitBlocksUntilSignal(t *testing.T) {
	k, _ := newTestKernel(t, testConfig())
	a := mustAdd(t, k, "a", 1)
	b := mustAdd(t, k, "b", 1)
	s := k.NewSemaphore(0)
	mustLaunch(t, k)

	s.Wait()
	if k.current != b {
		t.Fatalf("current = %q, want %q", k.current.name, b.name)
	}
	if k.sched.Contains(a) || !s.holds(a) || a.State() != StateBlocked {
		t.Fatalf("blocked thread: ready = %v, queued = %v, state = %v", k.sched.Contains(a), s.holds(a), a.State())
	}
	if s.Value() != -1 || s.Waiters() != 1 {
		t.Fatalf("Value(), Waiters() = %d, %d; want -1, 1", s.Value(), s.Waiters())
	}
	checkInvariants(t, k)

	s.Signal()
	if s.holds(a) || !k.sched.Contains(a) || a.State() != StateReady {
		t.Fatalf("woken thread: ready = %v, queued = %v, state = %v", k.sched.Contains(a), s.holds(a), a.State())
	}
	if s.Value() != 0 {
		t.Fatalf("Value() = %d, want 0", s.Value())
	}
	if k.current != b {
		t.Fatalf("equal priority wake preempted: current = %q", k.current.name)
	}
	checkInvariants(t, k)
}

func TestSignalWakesMoreUrgentWaiter(t *testing.T) {
	k, _ := newTestKernel(t, testConfig())
	hi := mustAdd(t, k, "hi", 0)
	mustAdd(t, k, "lo", 2)
	s := k.NewSemaphore(0)
	mustLaunch(t, k)

	s.Wait()
	s.Signal()
	if k.current != hi {
		t.Fatalf("current = %q, want %q", k.current.name, hi.name)
	}
}

func TestTryWait(t *testing.T) {
	k, _ := newTestKernel(t, testConfig())
	empty := k.NewSemaphore(0)
	if empty.TryWait() {
		t.Fatal("TryWait() on 0 = true, want false")
	}
	if empty.Value() != 0 {
		t.Fatalf("Value() = %d, want 0", empty.Value())
	}
	two := k.NewSemaphore(2)
	if !two.TryWait() {
		t.Fatal("TryWait() on 2 = false, want true")
	}
	if two.Value() != 1 {
		t.Fatalf("Value() = %d, want 1", two.Value())
	}
}

func TestWaitersWakeInFIFOOrder(t *testing.T) {
	k, _ := newTestKernel(t, testConfig())
	a := mustAdd(t, k, "a", 1)
	b := mustAdd(t, k, "b", 1)
	c := mustAdd(t, k, "c", 1)
	d := mustAdd(t, k, "d", 1)
	s := k.NewSemaphore(0)
	mustLaunch(t, k)

	for _, w := range []*TCB{a, b, c} {
		if k.current != w {
			t.Fatalf("current = %q, want %q", k.current.name, w.name)
		}
		s.Wait()
	}
	if k.current != d {
		t.Fatalf("current = %q, want %q", k.current.name, d.name)
	}
	for i, w := range []*TCB{a, b, c} {
		s.Signal()
		if w.State() != StateReady {
			t.Fatalf("Signal() #%d woke the wrong thread; %q is %v", i, w.name, w.State())
		}
		if s.Waiters() != 2-i {
			t.Fatalf("Waiters() = %d, want %d", s.Waiters(), 2-i)
		}
	}
	checkInvariants(t, k)
}

func TestPrioritySemaphoreWakesMostUrgent(t *testing.T) {
	cfg := testConfig()
	cfg.Scheduler = SchedRoundRobin
	k, _ := newTestKernel(t, cfg)
	p3 := mustAdd(t, k, "p3", 3)
	p1 := mustAdd(t, k, "p1", 1)
	p2 := mustAdd(t, k, "p2", 2)
	mustAdd(t, k, "signaller", 4)
	s := k.NewPrioritySemaphore(0)
	mustLaunch(t, k)

	for i := 0; i < 3; i++ {
		s.Wait()
	}
	for _, w := range []*TCB{p1, p2, p3} {
		s.Signal()
		if w.State() != StateReady {
			t.Fatalf("%q State() = %v, want ready", w.name, w.State())
		}
	}
	checkInvariants(t, k)
}

func TestSemaphoreConservation(t *testing.T) {
	k, _ := newTestKernel(t, testConfig())
	mustAdd(t, k, "a", 1)
	mustAdd(t, k, "b", 1)
	mustAdd(t, k, "c", 1)
	s := k.NewSemaphore(1)
	mustLaunch(t, k)

	waits, signals := 0, 0
	for _, op := range "wwwsswss" {
		if op == 'w' {
			s.Wait()
			waits++
		} else {
			s.Signal()
			signals++
		}
		if got, want := s.Value(), int32(1-waits+signals); got != want {
			t.Fatalf("Value() = %d, want %d", got, want)
		}
		if got := s.Value(); got < 0 && int(-got) != s.Waiters() {
			t.Fatalf("Value() = %d with %d waiters", got, s.Waiters())
		}
		checkInvariants(t, k)
	}
}

func TestBinarySemaphore(t *testing.T) {
	k, _ := newTestKernel(t, testConfig())
	a := mustAdd(t, k, "a", 1)
	mustAdd(t, k, "b", 1)
	s := k.NewSemaphore(0)
	mustLaunch(t, k)

	s.BSignal()
	s.BSignal()
	if s.Value() != 1 {
		t.Fatalf("Value() after two BSignal = %d, want 1", s.Value())
	}
	s.BWait()
	if s.Value() != 0 || k.current != a {
		t.Fatalf("BWait() on 1: Value() = %d, current = %q", s.Value(), k.current.name)
	}

	s.BWait()
	if a.State() != StateBlocked || s.Value() != 0 {
		t.Fatalf("BWait() on 0: State() = %v, Value() = %d", a.State(), s.Value())
	}
	s.BSignal()
	if a.State() != StateReady || s.Value() != 0 {
		t.Fatalf("BSignal() with waiter: State() = %v, Value() = %d", a.State(), s.Value())
	}
	checkInvariants(t, k)
}

func TestSemaphoreMisuseFaults(t *testing.T) {
	k, _ := newTestKernel(t, testConfig())
	var nilSem *Semaphore
	expectFault(t, ErrNilSemaphore, nilSem.Signal)
	expectFault(t, ErrNilSemaphore, func() { k.InitSemaphore(nil, 0, FIFO) })

	var s Semaphore
	expectFault(t, ErrUninitialized, s.Signal)
	expectFault(t, ErrUninitialized, func() { s.TryWait() })

	k.InitSemaphore(&s, 1, FIFO)
	expectFault(t, ErrDoubleInit, func() { k.InitSemaphore(&s, 1, FIFO) })
	if s.Value() != 1 {
		t.Fatalf("Value() = %d, want 1", s.Value())
	}
}

func TestSignalFromInterrupt(t *testing.T) {
	k, m := newTestKernel(t, testConfig())
	a := mustAdd(t, k, "a", 0)
	mustAdd(t, k, "b", 1)
	s := k.NewSemaphore(0)
	mustLaunch(t, k)

	s.Wait()
	m.Raise(s.Signal)
	if k.current != a {
		t.Fatalf("current = %q, want %q", k.current.name, a.name)
	}
	checkInvariants(t, k)
}
