package kernel

import "testing"

func TestFifoPutGet(t *testing.T) {
	k, m := newTestKernel(t, testConfig())
	mustAdd(t, k, "consumer", 1)
	f := k.NewFifo(3)
	mustLaunch(t, k)

	for _, v := range []uint32{10, 20, 30, 40} {
		m.Raise(func() { f.Put(v) })
	}
	if f.Size() != 3 || f.Lost() != 1 {
		t.Fatalf("Size(), Lost() = %d, %d; want 3, 1", f.Size(), f.Lost())
	}
	for _, want := range []uint32{10, 20} {
		if got := f.Get(); got != want {
			t.Fatalf("Get() = %d, want %d", got, want)
		}
	}
	if got, ok := f.TryGet(); !ok || got != 30 {
		t.Fatalf("TryGet() = %d, %v; want 30, true", got, ok)
	}
	if _, ok := f.TryGet(); ok {
		t.Fatal("TryGet() on empty FIFO = true")
	}
	if !f.Put(50) {
		t.Fatal("Put() after draining = false")
	}
	if got := f.Get(); got != 50 {
		t.Fatalf("Get() = %d, want 50", got)
	}
	checkInvariants(t, k)
}

func TestFifoGetBlocksWhenEmpty(t *testing.T) {
	k, m := newTestKernel(t, testConfig())
	consumer := mustAdd(t, k, "consumer", 0)
	mustAdd(t, k, "other", 1)
	f := k.NewFifo(4)
	mustLaunch(t, k)

	f.items.Wait()
	if consumer.State() != StateBlocked {
		t.Fatalf("State() = %v, want blocked", consumer.State())
	}
	m.Raise(func() { f.Put(7) })
	if k.current != consumer {
		t.Fatalf("current = %q, want consumer", k.current.Name())
	}
	if got := f.take(); got != 7 {
		t.Fatalf("take() = %d, want 7", got)
	}
}

func TestFifoWrapsAtCapacity(t *testing.T) {
	k, _ := newTestKernel(t, testConfig())
	mustAdd(t, k, "consumer", 1)
	f := k.NewFifo(3)
	mustLaunch(t, k)

	next, want := uint32(0), uint32(0)
	for round := 0; round < 7; round++ {
		for f.Put(next) {
			next++
		}
		for i := 0; i < 2; i++ {
			if got := f.Get(); got != want {
				t.Fatalf("round %d: Get() = %d, want %d", round, got, want)
			}
			want++
		}
		if f.head < 0 || f.head >= f.Cap() || f.tail < 0 || f.tail >= f.Cap() {
			t.Fatalf("round %d: head, tail = %d, %d outside [0, %d)", round, f.head, f.tail, f.Cap())
		}
	}
	if f.Size() != 1 || f.Lost() != 7 {
		t.Fatalf("Size(), Lost() = %d, %d; want 1, 7", f.Size(), f.Lost())
	}
}
