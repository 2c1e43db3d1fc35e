package kernel

import (
	"time"

	"ember/hal"
	"ember/internal/list"
)

// ThreadID identifies a thread while it is alive. IDs are pool slots and
// are reused after a thread dies.
type ThreadID int

// IdleThread is the ID of the thread that runs when nothing else is ready.
const IdleThread ThreadID = -1

// ThreadState is the position of a TCB in its lifecycle.
type ThreadState uint8

const (
	StateFree ThreadState = iota
	StateReady
	StateRunning
	StateSleeping
	StateBlocked
	StateDying
)

func (s ThreadState) String() string {
	switch s {
	case StateFree:
		return "free"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateSleeping:
		return "sleeping"
	case StateBlocked:
		return "blocked"
	case StateDying:
		return "dying"
	default:
		return "unknown"
	}
}

// TCB is a thread control block. TCBs live in the kernel pool and move
// between the free list, the ready structures, the sleeping list and
// semaphore queues; the embedded link belongs to whichever holds it.
type TCB struct {
	list.Link[*TCB]

	id         ThreadID
	name       string
	priority   int
	background bool
	state      ThreadState

	ctx   hal.Context
	stack Block
	entry func()

	sleep     time.Duration
	blockedOn *Semaphore
	proc      *Process

	runs uint32
}

// Priority is the scheduling key; 0 is most urgent.
func (t *TCB) Priority() int { return t.priority }

func (t *TCB) ID() ThreadID       { return t.id }
func (t *TCB) Name() string       { return t.name }
func (t *TCB) State() ThreadState { return t.state }
func (t *TCB) Background() bool   { return t.background }

// stackIntact reports whether the overflow sentinel is still in place.
func (t *TCB) stackIntact() bool {
	return len(t.stack.Mem) == 0 || t.stack.Mem[0] == StackMagic
}

func (t *TCB) clear() {
	t.name = ""
	t.priority = 0
	t.background = false
	t.state = StateFree
	t.ctx = nil
	t.stack = Block{}
	t.entry = nil
	t.sleep = 0
	t.blockedOn = nil
	t.proc = nil
	t.runs = 0
}
