package kernel

import "time"

// Time returns the free-running cycle counter. It wraps.
func (k *Kernel) Time() uint32 { return k.m.Cycles() }

// TimeDifference returns the cycles elapsed from start to stop, across a
// single wrap of the counter.
func TimeDifference(start, stop uint32) uint32 { return stop - start }

// Elapsed converts a cycle count into a duration.
func (k *Kernel) Elapsed(cycles uint32) time.Duration {
	hz := k.m.CyclesPerSecond()
	if hz == 0 {
		return 0
	}
	return time.Duration(uint64(cycles) * uint64(time.Second) / uint64(hz))
}

// MsTime returns milliseconds since Launch or the last ClearMsTime.
func (k *Kernel) MsTime() uint32 {
	s := k.enterCritical()
	ms := k.stats.ms
	k.exitCritical(s)
	return ms
}

// ClearMsTime resets system time to zero.
func (k *Kernel) ClearMsTime() {
	s := k.enterCritical()
	k.stats.ms = 0
	k.exitCritical(s)
}

// Ticks returns the number of time-slice interrupts since Launch.
func (k *Kernel) Ticks() uint64 {
	s := k.enterCritical()
	n := k.stats.ticks
	k.exitCritical(s)
	return n
}
