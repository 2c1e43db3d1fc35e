package kernel

import (
	"errors"
	"fmt"
)

// Resource exhaustion. Callers decide whether these are fatal.
var (
	ErrNoThreads    = errors.New("kernel: no free thread control block")
	ErrNoMemory     = errors.New("kernel: out of memory")
	ErrBadPriority  = errors.New("kernel: priority out of range")
	ErrBadStackSize = errors.New("kernel: stack size out of range")
	ErrNoProcesses  = errors.New("kernel: no free process slot")
	ErrTooManyTasks = errors.New("kernel: background task table full")
	ErrNoEntry      = errors.New("kernel: nil entry function")
	ErrBadPeriod    = errors.New("kernel: period out of range")
	ErrLaunched     = errors.New("kernel: already launched")
	ErrBadConfig    = errors.New("kernel: invalid configuration")
)

// Programming errors. They are never returned; they are carried by a
// *Fault panic.
var (
	ErrNilSemaphore      = errors.New("nil semaphore")
	ErrUninitialized     = errors.New("semaphore used before init")
	ErrDoubleInit        = errors.New("semaphore initialized twice")
	ErrBlockInISR        = errors.New("blocking call from interrupt context")
	ErrBlockInBackground = errors.New("blocking call from background thread")
	ErrBlockMasked       = errors.New("blocking call with interrupts masked")
	ErrDeadThread        = errors.New("thread is already dying")
	ErrNoCurrent         = errors.New("no running thread")
	ErrStackOverflow     = errors.New("stack sentinel overwritten")
)

// NoThread is reported by a Fault raised outside any thread.
const NoThread ThreadID = -2

// Fault is the panic value for kernel API misuse.
type Fault struct {
	Op     string
	Thread ThreadID
	Err    error
}

func (f *Fault) Error() string {
	if f.Thread == NoThread {
		return fmt.Sprintf("kernel: %s: %v", f.Op, f.Err)
	}
	return fmt.Sprintf("kernel: %s (thread %d): %v", f.Op, f.Thread, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

func fault(op string, t *TCB, err error) {
	id := NoThread
	if t != nil {
		id = t.id
	}
	panic(&Fault{Op: op, Thread: id, Err: err})
}
