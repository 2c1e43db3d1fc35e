package kernel

import (
	"ember/internal/list"
	"ember/internal/prioq"
)

// QueueOrder selects how blocked threads are woken.
type QueueOrder uint8

const (
	// FIFO wakes threads in the order they blocked.
	FIFO QueueOrder = iota
	// PriorityOrder wakes the most urgent thread first, FIFO among equals.
	PriorityOrder
)

// Semaphore is a counting semaphore that doubles as a binary one through
// BWait and BSignal. A semaphore must be initialized once, with
// InitSemaphore or NewSemaphore, before use. Do not mix counting and
// binary operations on the same semaphore.
type Semaphore struct {
	_ [0]func() // prevent accidental copying.

	k     *Kernel
	value int32
	order QueueOrder

	fifo list.Linear[*TCB]
	prio prioq.Queue[*TCB]
}

// InitSemaphore sets the initial value of s. Initializing a semaphore
// twice panics with a *Fault.
func (k *Kernel) InitSemaphore(s *Semaphore, value int32, order QueueOrder) {
	if s == nil {
		fault("InitSemaphore", k.current, ErrNilSemaphore)
	}
	st := k.enterCritical()
	if s.k != nil {
		k.exitCritical(st)
		fault("InitSemaphore", k.current, ErrDoubleInit)
	}
	s.k = k
	s.value = value
	s.order = order
	k.exitCritical(st)
}

// NewSemaphore returns an initialized FIFO semaphore.
func (k *Kernel) NewSemaphore(value int32) *Semaphore {
	s := new(Semaphore)
	k.InitSemaphore(s, value, FIFO)
	return s
}

// NewPrioritySemaphore returns an initialized semaphore that wakes the
// most urgent waiter first.
func (k *Kernel) NewPrioritySemaphore(value int32) *Semaphore {
	s := new(Semaphore)
	k.InitSemaphore(s, value, PriorityOrder)
	return s
}

func (s *Semaphore) kernel(op string) *Kernel {
	if s == nil {
		fault(op, nil, ErrNilSemaphore)
	}
	if s.k == nil {
		fault(op, nil, ErrUninitialized)
	}
	return s.k
}

// Wait decrements the value and blocks the caller while it is negative.
func (s *Semaphore) Wait() {
	k := s.kernel("Wait")
	t, st := k.blockingEnter("Wait")
	s.value--
	if s.value < 0 {
		k.block(t, s)
	}
	k.exitCritical(st)
}

// Signal increments the value and wakes one waiter while it is not
// positive. It may be called from interrupt context.
func (s *Semaphore) Signal() {
	k := s.kernel("Signal")
	st := k.enterCritical()
	s.value++
	if s.value <= 0 {
		if t := s.pop(); t != nil {
			k.wake(t)
		}
	}
	k.exitCritical(st)
}

// TryWait decrements the value only if it is positive. It never blocks
// and may be called from interrupt context.
func (s *Semaphore) TryWait() bool {
	k := s.kernel("TryWait")
	st := k.enterCritical()
	ok := s.value > 0
	if ok {
		s.value--
	}
	k.exitCritical(st)
	return ok
}

// BWait takes a binary semaphore, blocking while it is held.
func (s *Semaphore) BWait() {
	k := s.kernel("BWait")
	t, st := k.blockingEnter("BWait")
	if s.value > 0 {
		s.value = 0
	} else {
		k.block(t, s)
	}
	k.exitCritical(st)
}

// BSignal releases a binary semaphore. A waiter takes it over directly
// and the value stays 0. It may be called from interrupt context.
func (s *Semaphore) BSignal() {
	k := s.kernel("BSignal")
	st := k.enterCritical()
	if t := s.pop(); t != nil {
		k.wake(t)
	} else {
		s.value = 1
	}
	k.exitCritical(st)
}

// Value returns the current count. Negative values count waiters.
func (s *Semaphore) Value() int32 {
	k := s.kernel("Value")
	st := k.enterCritical()
	v := s.value
	k.exitCritical(st)
	return v
}

// Waiters returns the number of blocked threads.
func (s *Semaphore) Waiters() int {
	k := s.kernel("Waiters")
	st := k.enterCritical()
	n := s.fifo.Len() + s.prio.Len()
	k.exitCritical(st)
	return n
}

func (s *Semaphore) enqueue(t *TCB) {
	if s.order == PriorityOrder {
		s.prio.Insert(t)
		return
	}
	s.fifo.Append(t)
}

func (s *Semaphore) pop() *TCB {
	if s.order == PriorityOrder {
		return s.prio.Pop()
	}
	return s.fifo.PopHead()
}

func (s *Semaphore) holds(t *TCB) bool {
	return s.fifo.Contains(t) || s.prio.Contains(t)
}

// block moves the running thread t from the scheduler onto s and pends a
// switch. Interrupts are masked.
func (k *Kernel) block(t *TCB, s *Semaphore) {
	k.sched.Unschedule(t)
	t.state = StateBlocked
	t.blockedOn = s
	s.enqueue(t)
	k.stats.blocks++
	k.m.RequestSwitch()
}

// wake hands a thread popped from a semaphore back to the scheduler.
// Interrupts are masked.
func (k *Kernel) wake(t *TCB) {
	t.blockedOn = nil
	t.state = StateReady
	k.sched.Schedule(t)
	if k.current != nil && k.sched.Preempts(t, k.current) {
		k.m.RequestSwitch()
	}
}
