package kernel

import (
	"sync"
	"sync/atomic"
)

// FatalInfo describes an unrecoverable kernel error.
type FatalInfo struct {
	Thread ThreadID
	Name   string
	Err    error
	Stack  []byte
}

type fatalState struct {
	active  atomic.Bool
	once    sync.Once
	handler atomic.Value // func(FatalInfo)
}

// InFatal reports whether the kernel has stopped on a fatal error.
func (k *Kernel) InFatal() bool {
	return k.fatalState.active.Load()
}

// SetFatalHandler installs the handler for fatal errors.
//
// The handler is invoked at most once, in interrupt context, before the
// machine halts. It must not panic or block.
func (k *Kernel) SetFatalHandler(fn func(FatalInfo)) {
	k.fatalState.handler.Store(fn)
}

// fatal reports err against t and halts the machine. It does not return.
func (k *Kernel) fatal(t *TCB, err error) {
	info := FatalInfo{Thread: NoThread, Err: err}
	if t != nil {
		info.Thread = t.id
		info.Name = t.name
	}
	k.fatalState.once.Do(func() {
		k.fatalState.active.Store(true)
		info.Stack = captureStack()
		k.logf("fatal: thread %d %q: %v", info.Thread, info.Name, err)
		if v := k.fatalState.handler.Load(); v != nil {
			if fn, ok := v.(func(FatalInfo)); ok && fn != nil {
				fn(info)
			}
		}
	})
	k.m.Halt()
	for {
		k.m.WaitForInterrupt()
	}
}
