package kernel

import "ember/hal"

// contextSwitch is the deferred switch handler. It runs in interrupt
// context once no other interrupt is pending.
//
// A dying thread is reclaimed here, after the next thread is chosen and
// before its context is abandoned. Nothing can run in between, so its
// TCB and stack are not reused while it still holds the core.
func (k *Kernel) contextSwitch() {
	prev := k.current
	if prev != nil && !prev.stackIntact() {
		k.fatal(prev, ErrStackOverflow)
		return
	}
	next := k.sched.Next(prev)
	if next == prev {
		return
	}
	if !next.stackIntact() {
		k.fatal(next, ErrStackOverflow)
		return
	}

	var prevCtx hal.Context
	if prev != nil {
		prevCtx = prev.ctx
		if prev.state == StateRunning {
			prev.state = StateReady
		}
	}
	next.state = StateRunning
	next.runs++
	k.current = next
	k.stats.switches++

	if prev != nil && prev.state == StateDying {
		k.m.ReleaseContext(prevCtx)
		k.reclaim(prev)
	}
	k.m.SwitchContext(prevCtx, next.ctx)
}

// reclaim returns a dead thread's stack and TCB. Interrupts are masked.
func (k *Kernel) reclaim(t *TCB) {
	k.alloc.Free(t.stack)
	if p := t.proc; p != nil {
		p.threads--
		if p.threads == 0 {
			k.releaseProcess(p)
		}
	}
	if t.background {
		k.stats.backgroundDone++
	} else {
		k.stats.killed++
	}
	t.clear()
	k.free.Append(t)
}
