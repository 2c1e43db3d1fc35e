package kernel

import (
	"ember/internal/list"
	"ember/internal/prioq"
)

// Scheduler picks the thread that runs next. It is only called with
// interrupts masked.
type Scheduler interface {
	// Schedule makes t runnable at the back of its level. Scheduling a
	// thread that is already ready is a no-op.
	Schedule(t *TCB)
	// ScheduleImmediate makes t the next thread of its level.
	ScheduleImmediate(t *TCB)
	// Unschedule removes t from the ready structures. It reports false if
	// t was not ready.
	Unschedule(t *TCB) bool
	// Next returns the thread to run. With the lock held it returns
	// current. It never returns nil.
	Next(current *TCB) *TCB
	// Preempts reports whether a newly ready t should displace current.
	Preempts(t, current *TCB) bool

	Lock()
	Unlock()
	Locked() bool

	Contains(t *TCB) bool
	// Ready counts runnable threads, background included.
	Ready() int
}

// base holds what both policies share: the background queue, the lock
// and the idle thread.
type base struct {
	idle   *TCB
	bg     prioq.Queue[*TCB]
	locked bool
}

func (b *base) Lock()        { b.locked = true }
func (b *base) Unlock()      { b.locked = false }
func (b *base) Locked() bool { return b.locked }

// nextBackground pops the most urgent background thread and takes the
// lock so that it runs to completion.
func (b *base) nextBackground() *TCB {
	t := b.bg.Pop()
	if t != nil {
		b.locked = true
	}
	return t
}

// RoundRobin keeps every foreground thread in a single ring and ignores
// priorities, except for ordering the background queue.
type RoundRobin struct {
	base
	ring list.Circular[*TCB]
}

// NewRoundRobin returns a round-robin scheduler falling back to idle.
func NewRoundRobin(idle *TCB) *RoundRobin {
	return &RoundRobin{base: base{idle: idle}}
}

func (s *RoundRobin) Schedule(t *TCB) {
	if s.Contains(t) {
		return
	}
	if t.background {
		s.bg.Insert(t)
		return
	}
	s.ring.Append(t)
}

func (s *RoundRobin) ScheduleImmediate(t *TCB) {
	if s.Contains(t) {
		return
	}
	if t.background {
		s.bg.Insert(t)
		return
	}
	s.ring.PushFront(t)
}

func (s *RoundRobin) Unschedule(t *TCB) bool {
	if t.background {
		return s.bg.Remove(t)
	}
	return s.ring.Remove(t)
}

func (s *RoundRobin) Next(current *TCB) *TCB {
	if s.locked && current != nil {
		return current
	}
	if t := s.nextBackground(); t != nil {
		return t
	}
	if t := s.ring.Advance(); t != nil {
		return t
	}
	return s.idle
}

func (s *RoundRobin) Preempts(t, current *TCB) bool {
	return current == s.idle || t.background
}

func (s *RoundRobin) Contains(t *TCB) bool {
	return s.ring.Contains(t) || s.bg.Contains(t)
}

func (s *RoundRobin) Ready() int { return s.ring.Len() + s.bg.Len() }

// Priority keeps one ring per priority level. The background queue is
// served before every ring.
type Priority struct {
	base
	levels []list.Circular[*TCB]
}

// NewPriority returns a scheduler for priorities 0 through maxPriority.
func NewPriority(idle *TCB, maxPriority int) *Priority {
	return &Priority{
		base:   base{idle: idle},
		levels: make([]list.Circular[*TCB], maxPriority+1),
	}
}

func (s *Priority) level(t *TCB) *list.Circular[*TCB] {
	return &s.levels[t.priority]
}

func (s *Priority) Schedule(t *TCB) {
	if s.Contains(t) {
		return
	}
	if t.background {
		s.bg.Insert(t)
		return
	}
	s.level(t).Append(t)
}

func (s *Priority) ScheduleImmediate(t *TCB) {
	if s.Contains(t) {
		return
	}
	if t.background {
		s.bg.Insert(t)
		return
	}
	s.level(t).PushFront(t)
}

func (s *Priority) Unschedule(t *TCB) bool {
	if t.background {
		return s.bg.Remove(t)
	}
	if t.priority < 0 || t.priority >= len(s.levels) {
		return false
	}
	return s.level(t).Remove(t)
}

func (s *Priority) Next(current *TCB) *TCB {
	if s.locked && current != nil {
		return current
	}
	if t := s.nextBackground(); t != nil {
		return t
	}
	for i := range s.levels {
		if t := s.levels[i].Advance(); t != nil {
			return t
		}
	}
	return s.idle
}

func (s *Priority) Preempts(t, current *TCB) bool {
	return t.background || !current.background && t.priority < current.priority
}

func (s *Priority) Contains(t *TCB) bool {
	if s.bg.Contains(t) {
		return true
	}
	if t.background || t.priority < 0 || t.priority >= len(s.levels) {
		return false
	}
	return s.level(t).Contains(t)
}

func (s *Priority) Ready() int {
	n := s.bg.Len()
	for i := range s.levels {
		n += s.levels[i].Len()
	}
	return n
}
