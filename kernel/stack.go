package kernel

// StackMagic is written at the low end of every stack. A thread that
// overruns its stack overwrites it first.
const StackMagic uint32 = 0x12312399

// Block is a span of allocator memory.
type Block struct {
	Mem   []uint32
	off   int
	units int
}

// Words returns the usable size of b.
func (b Block) Words() int { return len(b.Mem) }

// Allocator hands out memory for thread stacks and process heaps.
type Allocator interface {
	Alloc(words int) (Block, error)
	Free(b Block)
	// Available returns the number of free words.
	Available() int
}

// Arena is a first-fit allocator over a fixed word array. Requests are
// rounded up to whole units.
type Arena struct {
	mem  []uint32
	used []bool
	unit int
	free int
}

// NewArena returns an arena of words, rounded up to unit.
func NewArena(words, unit int) *Arena {
	if unit < 1 {
		unit = 1
	}
	n := (words + unit - 1) / unit
	return &Arena{
		mem:  make([]uint32, n*unit),
		used: make([]bool, n),
		unit: unit,
		free: n,
	}
}

func (a *Arena) Alloc(words int) (Block, error) {
	if words <= 0 {
		return Block{}, ErrNoMemory
	}
	need := (words + a.unit - 1) / a.unit
	if need > a.free {
		return Block{}, ErrNoMemory
	}
	run := 0
	for i := range a.used {
		if a.used[i] {
			run = 0
			continue
		}
		run++
		if run < need {
			continue
		}
		start := i - need + 1
		for j := start; j <= i; j++ {
			a.used[j] = true
		}
		a.free -= need
		mem := a.mem[start*a.unit : start*a.unit+words : (start+need)*a.unit]
		for j := range mem {
			mem[j] = 0
		}
		return Block{Mem: mem, off: start, units: need}, nil
	}
	return Block{}, ErrNoMemory
}

func (a *Arena) Free(b Block) {
	if b.units == 0 {
		return
	}
	if b.off < 0 || b.off+b.units > len(a.used) {
		panic("kernel: arena: block out of range")
	}
	for j := b.off; j < b.off+b.units; j++ {
		if !a.used[j] {
			panic("kernel: arena: double free")
		}
		a.used[j] = false
	}
	a.free += b.units
}

func (a *Arena) Available() int { return a.free * a.unit }
