package kernel

import "time"

// AddThread creates a foreground thread and makes it ready. stackWords 0
// uses Config.StackWords. A thread added by a process thread joins that
// process. When the new thread outranks the caller it runs before
// AddThread returns.
func (k *Kernel) AddThread(name string, fn func(), stackWords, priority int) (ThreadID, error) {
	var proc *Process
	if k.current != nil && !k.m.InInterrupt() {
		proc = k.current.proc
	}

	s := k.enterCritical()
	t, err := k.spawn(name, fn, stackWords, priority, false, proc)
	if err != nil {
		k.exitCritical(s)
		return 0, err
	}
	id, words := t.id, t.stack.Words()
	k.sched.Schedule(t)
	if k.current != nil && k.sched.Preempts(t, k.current) {
		k.m.RequestSwitch()
	}
	k.exitCritical(s)

	k.logf("thread %d %q added, priority %d, %d words", id, name, priority, words)
	return id, nil
}

// spawn takes a TCB from the pool and gives it a stack and an initial
// frame. On failure the pool is left as it was. Interrupts are masked.
func (k *Kernel) spawn(name string, fn func(), stackWords, priority int, background bool, proc *Process) (*TCB, error) {
	if fn == nil {
		return nil, ErrNoEntry
	}
	if priority < 0 || priority > k.cfg.MaxPriority {
		return nil, ErrBadPriority
	}
	if stackWords == 0 {
		stackWords = k.cfg.StackWords
	}
	if stackWords < MinStackWords || stackWords > MaxStackWords {
		return nil, ErrBadStackSize
	}

	t := k.free.Head()
	if t == nil {
		return nil, ErrNoThreads
	}
	stack, err := k.alloc.Alloc(stackWords)
	if err != nil {
		return nil, ErrNoMemory
	}
	k.free.Remove(t)

	t.name = name
	t.priority = priority
	t.background = background
	t.stack = stack
	t.stack.Mem[0] = StackMagic
	t.entry = fn
	t.proc = proc
	if proc != nil {
		proc.threads++
	}
	exit := k.Kill
	if background {
		exit = k.backgroundExit
	}
	t.ctx = k.m.NewContext(t.stack.Mem, fn, exit)
	t.state = StateReady
	k.stats.spawned++
	return t, nil
}

// Sleep deschedules the running thread for at least ms milliseconds,
// rounded up to whole ticks. Sleep(0) is Suspend.
func (k *Kernel) Sleep(ms uint32) {
	if ms == 0 {
		k.Suspend()
		return
	}
	t, s := k.blockingEnter("Sleep")
	k.sched.Unschedule(t)
	t.sleep = time.Duration(ms) * time.Millisecond
	t.state = StateSleeping
	k.sleeping.Append(t)
	k.m.RequestSwitch()
	k.exitCritical(s)
}

// Suspend gives up the rest of the time slice.
func (k *Kernel) Suspend() {
	if k.m.InInterrupt() {
		fault("Suspend", k.current, ErrBlockInISR)
	}
	k.m.RequestSwitch()
}

// Kill ends the running thread. Its stack and TCB are reclaimed once the
// core has switched away; Kill does not return.
func (k *Kernel) Kill() {
	t, s := k.blockingEnter("Kill")
	k.sched.Unschedule(t)
	t.state = StateDying
	k.m.RequestSwitch()
	k.exitCritical(s)
}

// backgroundExit is the return address of background threads: release
// the scheduler lock and die.
func (k *Kernel) backgroundExit() {
	t := k.current
	s := k.enterCritical()
	t.state = StateDying
	k.sched.Unlock()
	k.m.RequestSwitch()
	k.exitCritical(s)
}

// ID returns the running thread's ID.
func (k *Kernel) ID() ThreadID {
	if k.current == nil {
		return NoThread
	}
	return k.current.id
}

// Current returns the running thread's TCB, or nil before Launch.
func (k *Kernel) Current() *TCB { return k.current }

// Threads calls fn for every live thread in pool order, with interrupts
// masked.
func (k *Kernel) Threads(fn func(t *TCB)) {
	s := k.enterCritical()
	defer k.exitCritical(s)
	for i := range k.pool {
		if t := &k.pool[i]; t.state != StateFree {
			fn(t)
		}
	}
}
