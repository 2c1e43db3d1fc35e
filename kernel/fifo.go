package kernel

// Fifo is a bounded queue of words. Put never blocks and may be called
// from interrupt context; Get blocks on a counting semaphore until data
// arrives.
type Fifo struct {
	k     *Kernel
	items Semaphore
	buf   []uint32
	head  int // next slot to write
	tail  int // next slot to read
	n     int
	lost  uint32
}

// NewFifo returns an empty FIFO holding up to size words.
func (k *Kernel) NewFifo(size int) *Fifo {
	if size <= 0 {
		size = 1
	}
	f := &Fifo{k: k, buf: make([]uint32, size)}
	k.InitSemaphore(&f.items, 0, FIFO)
	return f
}

// Put appends v. It reports false and counts the word as lost when the
// FIFO is full.
func (f *Fifo) Put(v uint32) bool {
	s := f.k.enterCritical()
	if f.n == len(f.buf) {
		f.lost++
		f.k.exitCritical(s)
		return false
	}
	f.buf[f.head] = v
	f.head = (f.head + 1) % len(f.buf)
	f.n++
	f.items.Signal()
	f.k.exitCritical(s)
	return true
}

// Get removes the oldest word, blocking while the FIFO is empty.
func (f *Fifo) Get() uint32 {
	f.items.Wait()
	return f.take()
}

// TryGet removes the oldest word if there is one.
func (f *Fifo) TryGet() (uint32, bool) {
	if !f.items.TryWait() {
		return 0, false
	}
	return f.take(), true
}

func (f *Fifo) take() uint32 {
	s := f.k.enterCritical()
	v := f.buf[f.tail]
	f.tail = (f.tail + 1) % len(f.buf)
	f.n--
	f.k.exitCritical(s)
	return v
}

// Size returns the number of words queued.
func (f *Fifo) Size() int {
	s := f.k.enterCritical()
	n := f.n
	f.k.exitCritical(s)
	return n
}

// Cap returns the capacity.
func (f *Fifo) Cap() int { return len(f.buf) }

// Lost returns the number of words dropped by Put on a full FIFO.
func (f *Fifo) Lost() uint32 {
	s := f.k.enterCritical()
	n := f.lost
	f.k.exitCritical(s)
	return n
}
