package kernel

import "time"

type counters struct {
	ticks          uint64
	ms             uint32
	switches       uint32
	idleLoops      uint32
	spawned        uint32
	killed         uint32
	backgroundDone uint32
	blocks         uint32
	dropped        uint32
	processesDone  uint32

	maskedAt    uint32
	maskedTotal uint64
	maskedMax   uint32
}

// ThreadInfo describes one live thread.
type ThreadInfo struct {
	ID         ThreadID `json:"id"`
	Name       string   `json:"name"`
	Priority   int      `json:"priority"`
	State      string   `json:"state"`
	Background bool     `json:"background,omitempty"`
	Runs       uint32   `json:"runs"`
	StackWords int      `json:"stackWords"`
	SleepMs    uint32   `json:"sleepMs,omitempty"`
	Process    string   `json:"process,omitempty"`
}

// TaskInfo describes one periodic or edge task.
type TaskInfo struct {
	Name      string        `json:"name"`
	Kind      string        `json:"kind"`
	Priority  int           `json:"priority"`
	Period    time.Duration `json:"periodNs,omitempty"`
	Runs      uint32        `json:"runs"`
	Dropped   uint32        `json:"dropped"`
	MaxJitter time.Duration `json:"maxJitterNs,omitempty"`
	// Jitter counts periods by absolute deviation in whole microseconds;
	// the last bucket collects everything larger.
	Jitter []uint32 `json:"jitterUs,omitempty"`
}

// Snapshot is a consistent copy of the kernel counters and tables.
type Snapshot struct {
	Scheduler      SchedulerKind `json:"scheduler"`
	MsTime         uint32        `json:"msTime"`
	Ticks          uint64        `json:"ticks"`
	Switches       uint32        `json:"switches"`
	IdleLoops      uint32        `json:"idleLoops"`
	Spawned        uint32        `json:"spawned"`
	Killed         uint32        `json:"killed"`
	BackgroundDone uint32        `json:"backgroundDone"`
	Blocks         uint32        `json:"blocks"`
	Dropped        uint32        `json:"dropped"`
	ProcessesDone  uint32        `json:"processesDone"`
	Ready          int           `json:"ready"`
	FreeThreads    int           `json:"freeThreads"`
	FreeWords      int           `json:"freeWords"`
	MaskedMax      time.Duration `json:"maskedMaxNs"`
	MaskedTotal    time.Duration `json:"maskedTotalNs"`

	Current ThreadID     `json:"current"`
	Threads []ThreadInfo `json:"threads"`
	Tasks   []TaskInfo   `json:"tasks,omitempty"`
}

// Snapshot copies the kernel state with interrupts masked.
func (k *Kernel) Snapshot() Snapshot {
	s := k.enterCritical()
	c := k.stats
	snap := Snapshot{
		Scheduler:      k.cfg.Scheduler,
		MsTime:         c.ms,
		Ticks:          c.ticks,
		Switches:       c.switches,
		IdleLoops:      c.idleLoops,
		Spawned:        c.spawned,
		Killed:         c.killed,
		BackgroundDone: c.backgroundDone,
		Blocks:         c.blocks,
		Dropped:        c.dropped,
		ProcessesDone:  c.processesDone,
		Ready:          k.sched.Ready(),
		FreeThreads:    k.free.Len(),
		FreeWords:      k.alloc.Available(),
		Current:        NoThread,
	}
	if k.current != nil {
		snap.Current = k.current.id
	}
	for i := range k.pool {
		if t := &k.pool[i]; t.state != StateFree {
			snap.Threads = append(snap.Threads, t.info())
		}
	}
	for _, p := range k.periodic {
		snap.Tasks = append(snap.Tasks, TaskInfo{
			Name:      p.name,
			Kind:      "periodic",
			Priority:  p.priority,
			Period:    p.period,
			Runs:      p.runs,
			Dropped:   p.dropped,
			MaxJitter: p.maxJit,
			Jitter:    append([]uint32(nil), p.jitter...),
		})
	}
	for _, e := range k.edges {
		snap.Tasks = append(snap.Tasks, TaskInfo{
			Name:     e.name,
			Kind:     "edge",
			Priority: e.priority,
			Runs:     e.runs,
			Dropped:  e.dropped,
		})
	}
	k.exitCritical(s)

	snap.MaskedMax = k.Elapsed(c.maskedMax)
	if hz := uint64(k.m.CyclesPerSecond()); hz > 0 {
		whole, frac := c.maskedTotal/hz, c.maskedTotal%hz
		snap.MaskedTotal = time.Duration(whole)*time.Second + time.Duration(frac*uint64(time.Second)/hz)
	}
	return snap
}

func (t *TCB) info() ThreadInfo {
	ti := ThreadInfo{
		ID:         t.id,
		Name:       t.name,
		Priority:   t.priority,
		State:      t.state.String(),
		Background: t.background,
		Runs:       t.runs,
		StackWords: t.stack.Words(),
		SleepMs:    uint32((t.sleep + time.Millisecond - 1) / time.Millisecond),
	}
	if t.proc != nil {
		ti.Process = t.proc.name
	}
	return ti
}
