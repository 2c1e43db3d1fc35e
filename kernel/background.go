package kernel

import (
	"fmt"
	"time"

	"ember/hal"
)

// PeriodicTask spawns a background thread on every expiry of its own
// hardware timer.
type PeriodicTask struct {
	name     string
	fn       func()
	period   time.Duration
	priority int
	timer    hal.Timer

	runs    uint32
	dropped uint32
	last    uint32
	jitter  []uint32
	maxJit  time.Duration
}

// EdgeTask spawns a background thread on every edge of its source.
type EdgeTask struct {
	name     string
	fn       func()
	priority int

	runs    uint32
	dropped uint32
}

// AddPeriodicTask runs fn as a background thread every period. Background
// threads must not block; they run to completion ahead of every
// foreground thread.
func (k *Kernel) AddPeriodicTask(name string, fn func(), period time.Duration, priority int) error {
	if fn == nil {
		return ErrNoEntry
	}
	if priority < 0 || priority > k.cfg.MaxPriority {
		return ErrBadPriority
	}
	if period <= 0 {
		return fmt.Errorf("%w: %v", ErrBadPeriod, period)
	}
	if len(k.periodic) >= k.cfg.MaxPeriodicTasks {
		return ErrTooManyTasks
	}
	p := &PeriodicTask{
		name:     name,
		fn:       fn,
		period:   period,
		priority: priority,
		jitter:   make([]uint32, k.cfg.JitterBuckets),
	}
	timer, err := k.m.NewTimer(func() { k.firePeriodic(p) })
	if err != nil {
		return fmt.Errorf("periodic task %s: %w", name, err)
	}
	p.timer = timer
	if k.launched {
		if err := timer.Periodic(period); err != nil {
			timer.Stop()
			return fmt.Errorf("periodic task %s: %w", name, err)
		}
	}

	s := k.enterCritical()
	k.periodic = append(k.periodic, p)
	k.exitCritical(s)
	k.logf("periodic task %q every %v, priority %d", name, period, priority)
	return nil
}

// AddEdgeTask runs fn as a background thread on every edge of src.
func (k *Kernel) AddEdgeTask(name string, src hal.EdgeSource, fn func(), priority int) error {
	if fn == nil || src == nil {
		return ErrNoEntry
	}
	if priority < 0 || priority > k.cfg.MaxPriority {
		return ErrBadPriority
	}
	if len(k.edges) >= k.cfg.MaxEdgeTasks {
		return ErrTooManyTasks
	}
	e := &EdgeTask{name: name, fn: fn, priority: priority}
	if err := src.OnEdge(func() { k.fireEdge(e) }); err != nil {
		return fmt.Errorf("edge task %s: %w", name, err)
	}

	s := k.enterCritical()
	k.edges = append(k.edges, e)
	k.exitCritical(s)
	k.logf("edge task %q, priority %d", name, priority)
	return nil
}

// firePeriodic runs in the task timer's interrupt.
func (k *Kernel) firePeriodic(p *PeriodicTask) {
	now := k.m.Cycles()
	if p.runs+p.dropped > 0 {
		k.recordJitter(p, TimeDifference(p.last, now))
	}
	p.last = now
	if k.spawnBackground(p.name, p.fn, p.priority) {
		p.runs++
		return
	}
	p.dropped++
	k.logf("periodic task %q dropped (%d so far)", p.name, p.dropped)
}

// fireEdge runs in the edge source's interrupt.
func (k *Kernel) fireEdge(e *EdgeTask) {
	if k.spawnBackground(e.name, e.fn, e.priority) {
		e.runs++
		return
	}
	e.dropped++
	k.logf("edge task %q dropped (%d so far)", e.name, e.dropped)
}

func (k *Kernel) spawnBackground(name string, fn func(), priority int) bool {
	s := k.enterCritical()
	defer k.exitCritical(s)
	t, err := k.spawn(name, fn, 0, priority, true, nil)
	if err != nil {
		k.stats.dropped++
		return false
	}
	k.sched.ScheduleImmediate(t)
	k.m.RequestSwitch()
	return true
}

// recordJitter buckets the deviation of one period in microseconds.
func (k *Kernel) recordJitter(p *PeriodicTask, cycles uint32) {
	actual := k.Elapsed(cycles)
	d := actual - p.period
	if d < 0 {
		d = -d
	}
	if d > p.maxJit {
		p.maxJit = d
	}
	b := int(d / time.Microsecond)
	if b >= len(p.jitter) {
		b = len(p.jitter) - 1
	}
	p.jitter[b]++
}
