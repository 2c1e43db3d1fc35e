package kernel

import "ember/hal"

// StartCritical masks interrupts and returns the state EndCritical must
// restore. Pairs nest.
func (k *Kernel) StartCritical() hal.IntState { return k.enterCritical() }

// EndCritical restores the interrupt state saved by StartCritical.
func (k *Kernel) EndCritical(s hal.IntState) { k.exitCritical(s) }

func (k *Kernel) enterCritical() hal.IntState {
	s := k.m.DisableInterrupts()
	if s == hal.IntEnabled {
		k.stats.maskedAt = k.m.Cycles()
	}
	return s
}

func (k *Kernel) exitCritical(s hal.IntState) {
	if s == hal.IntEnabled {
		d := k.m.Cycles() - k.stats.maskedAt
		k.stats.maskedTotal += uint64(d)
		if d > k.stats.maskedMax {
			k.stats.maskedMax = d
		}
	}
	k.m.RestoreInterrupts(s)
}

// blockingEnter masks interrupts for an operation that may deschedule the
// running thread. It faults if the caller cannot block.
func (k *Kernel) blockingEnter(op string) (*TCB, hal.IntState) {
	t := k.current
	if k.m.InInterrupt() {
		fault(op, t, ErrBlockInISR)
	}
	if t == nil {
		fault(op, nil, ErrNoCurrent)
	}
	s := k.enterCritical()
	if s == hal.IntMasked {
		k.exitCritical(s)
		fault(op, t, ErrBlockMasked)
	}
	if t.background {
		k.exitCritical(s)
		fault(op, t, ErrBlockInBackground)
	}
	if t.state == StateDying {
		k.exitCritical(s)
		fault(op, t, ErrDeadThread)
	}
	return t, s
}
