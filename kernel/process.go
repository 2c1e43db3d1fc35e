package kernel

// ProcessID identifies a process slot.
type ProcessID int

// Process is a loaded program: its code and data images, a private heap
// and the threads running it. A process is released when its last thread
// dies.
type Process struct {
	id      ProcessID
	name    string
	text    []byte
	data    []byte
	heap    Block
	threads int
	live    bool
}

func (p *Process) ID() ProcessID  { return p.id }
func (p *Process) Name() string   { return p.name }
func (p *Process) Threads() int   { return p.threads }
func (p *Process) Text() []byte   { return p.text }
func (p *Process) Data() []byte   { return p.data }
func (p *Process) Heap() []uint32 { return p.heap.Mem }

// AddProcess loads a process and starts fn as its first thread. The data
// image is copied so the process may modify it; text is shared.
func (k *Kernel) AddProcess(name string, fn func(), text, data []byte, stackWords, priority int) (ProcessID, error) {
	s := k.enterCritical()
	var p *Process
	for i := range k.procs {
		if !k.procs[i].live {
			p = &k.procs[i]
			break
		}
	}
	if p == nil {
		k.exitCritical(s)
		return 0, ErrNoProcesses
	}
	heap, err := k.alloc.Alloc(k.cfg.ProcessHeapWords)
	if err != nil {
		k.exitCritical(s)
		return 0, ErrNoMemory
	}
	t, err := k.spawn(name, fn, stackWords, priority, false, p)
	if err != nil {
		p.threads = 0
		k.alloc.Free(heap)
		k.exitCritical(s)
		return 0, err
	}
	p.name = name
	p.text = text
	p.data = append([]byte(nil), data...)
	p.heap = heap
	p.live = true
	id := p.id
	k.sched.Schedule(t)
	if k.current != nil && k.sched.Preempts(t, k.current) {
		k.m.RequestSwitch()
	}
	k.exitCritical(s)

	k.logf("process %d %q loaded: text %d bytes, data %d bytes, heap %d words",
		id, name, len(text), len(data), heap.Words())
	return id, nil
}

// releaseProcess frees a process whose last thread died. Interrupts are
// masked.
func (k *Kernel) releaseProcess(p *Process) {
	k.alloc.Free(p.heap)
	k.stats.processesDone++
	*p = Process{id: p.id}
}

// CurrentProcess returns the process of the running thread.
func (k *Kernel) CurrentProcess() (ProcessID, bool) {
	if k.current == nil || k.current.proc == nil {
		return 0, false
	}
	return k.current.proc.id, true
}

// ProcessHeap returns the heap of the running thread's process, or nil
// for threads outside any process.
func (k *Kernel) ProcessHeap() []uint32 {
	if k.current == nil || k.current.proc == nil {
		return nil
	}
	return k.current.proc.heap.Mem
}

// Processes calls fn for every live process, with interrupts masked.
func (k *Kernel) Processes(fn func(p *Process)) {
	s := k.enterCritical()
	defer k.exitCritical(s)
	for i := range k.procs {
		if p := &k.procs[i]; p.live {
			fn(p)
		}
	}
}
