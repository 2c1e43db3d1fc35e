package kernel

import (
	"fmt"
	"time"

	"ember/hal"
)

// SchedulerKind selects the ready-structure policy.
type SchedulerKind string

const (
	SchedPriority   SchedulerKind = "priority"
	SchedRoundRobin SchedulerKind = "roundrobin"
)

const (
	// MinStackWords holds the exception frame plus the sentinel with room
	// to spare.
	MinStackWords = 32
	// MaxStackWords bounds a single stack request.
	MaxStackWords = 4096
	// IdleStackWords is the idle thread's stack size.
	IdleStackWords = MinStackWords
	// ArenaUnitWords is the allocation granule of the default arena.
	ArenaUnitWords = 32
)

// Config sizes the kernel's fixed tables.
type Config struct {
	MaxThreads       int
	StackWords       int
	MaxPriority      int
	TimeSlice        time.Duration
	MaxPeriodicTasks int
	MaxEdgeTasks     int
	MaxProcesses     int
	ProcessHeapWords int
	// HeapWords sizes the default arena for stacks and process heaps.
	// 0 leaves room for every thread at StackWords, the idle thread and
	// every process heap.
	HeapWords     int
	JitterBuckets int
	Scheduler     SchedulerKind

	// Logger receives kernel lifecycle lines; nil is silent.
	Logger hal.Logger
	// Allocator overrides the default arena.
	Allocator Allocator
}

// DefaultConfig mirrors a small Cortex-M4 build.
func DefaultConfig() Config {
	return Config{
		MaxThreads:       10,
		StackWords:       128,
		MaxPriority:      10,
		TimeSlice:        2 * time.Millisecond,
		MaxPeriodicTasks: 2,
		MaxEdgeTasks:     4,
		MaxProcesses:     4,
		ProcessHeapWords: 256,
		JitterBuckets:    64,
		Scheduler:        SchedPriority,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.MaxThreads < 1:
		return fmt.Errorf("%w: MaxThreads %d", ErrBadConfig, c.MaxThreads)
	case c.StackWords < MinStackWords || c.StackWords > MaxStackWords:
		return fmt.Errorf("%w: StackWords %d", ErrBadConfig, c.StackWords)
	case c.MaxPriority < 0 || c.MaxPriority > 254:
		return fmt.Errorf("%w: MaxPriority %d", ErrBadConfig, c.MaxPriority)
	case c.TimeSlice < time.Millisecond:
		return fmt.Errorf("%w: TimeSlice %v", ErrBadConfig, c.TimeSlice)
	case c.MaxPeriodicTasks < 0 || c.MaxEdgeTasks < 0 || c.MaxProcesses < 0:
		return fmt.Errorf("%w: negative table size", ErrBadConfig)
	case c.ProcessHeapWords < 0 || c.HeapWords < 0:
		return fmt.Errorf("%w: negative heap size", ErrBadConfig)
	case c.JitterBuckets < 1:
		return fmt.Errorf("%w: JitterBuckets %d", ErrBadConfig, c.JitterBuckets)
	}
	switch c.Scheduler {
	case SchedPriority, SchedRoundRobin:
	default:
		return fmt.Errorf("%w: scheduler %q", ErrBadConfig, c.Scheduler)
	}
	return nil
}

func (c Config) heapWords() int {
	if c.HeapWords > 0 {
		return c.HeapWords
	}
	return c.MaxThreads*roundUp(c.StackWords, ArenaUnitWords) +
		IdleStackWords +
		c.MaxProcesses*roundUp(c.ProcessHeapWords, ArenaUnitWords)
}

func roundUp(n, unit int) int {
	return (n + unit - 1) / unit * unit
}
