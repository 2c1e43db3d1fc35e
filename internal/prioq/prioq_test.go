package prioq

import (
	"math/rand"
	"testing"

	"ember/internal/list"
)

type item struct {
	list.Link[*item]
	prio int
	seq  int
}

func (i *item) Priority() int { return i.prio }

func checkSorted(t *testing.T, q *Queue[*item]) {
	t.Helper()
	last := -1
	lastSeq := -1
	q.Each(func(it *item) bool {
		if it.prio < last {
			t.Fatalf("queue not sorted: %d after %d", it.prio, last)
		}
		if it.prio == last && it.seq < lastSeq {
			t.Fatalf("equal priorities out of insertion order: seq %d after %d", it.seq, lastSeq)
		}
		last, lastSeq = it.prio, it.seq
		return true
	})
}

func TestInsertOrdersAndIsStable(t *testing.T) {
	var q Queue[*item]
	prios := []int{3, 1, 2, 1, 0, 3, 2}
	items := make([]*item, len(prios))
	for i, p := range prios {
		items[i] = &item{prio: p, seq: i}
		if !q.Insert(items[i]) {
			t.Fatalf("Insert(%d) = false", i)
		}
	}
	checkSorted(t, &q)

	want := []int{4, 1, 3, 2, 6, 0, 5}
	for _, seq := range want {
		got := q.Pop()
		if got == nil || got.seq != seq {
			t.Fatalf("Pop() = %+v, want seq %d", got, seq)
		}
		if got.Linked() {
			t.Fatal("popped item must be unlinked")
		}
	}
	if q.Pop() != nil {
		t.Fatal("Pop() on empty queue should return nil")
	}
}

func TestInsertRejectsDuplicate(t *testing.T) {
	var q Queue[*item]
	a := &item{prio: 1}
	b := &item{prio: 5}
	q.Insert(b)
	q.Insert(a)
	if q.Insert(a) {
		t.Fatal("second Insert of the same item = true, want false")
	}
	if q.Insert(b) {
		t.Fatal("second Insert of the tail item = true, want false")
	}
	if q.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", q.Len())
	}
}

func TestFindAndRemove(t *testing.T) {
	var q Queue[*item]
	a := &item{prio: 1, seq: 0}
	b := &item{prio: 2, seq: 1}
	c := &item{prio: 2, seq: 2}
	q.Insert(c)
	q.Insert(a)
	q.Insert(b)

	if got := q.Find(2); got != c {
		t.Fatalf("Find(2) = %+v, want first inserted with key 2", got)
	}
	if got := q.Find(7); got != nil {
		t.Fatalf("Find(7) = %+v, want nil", got)
	}
	if !q.Remove(c) {
		t.Fatal("Remove(c) = false")
	}
	if got := q.Find(2); got != b {
		t.Fatalf("Find(2) after remove = %+v, want b", got)
	}
	if q.Remove(c) {
		t.Fatal("Remove of unqueued item = true, want false")
	}
	if q.Peek() != a {
		t.Fatalf("Peek() = %+v, want a", q.Peek())
	}
}

func TestRandomOpsStaySorted(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var q Queue[*item]
	pool := make([]*item, 64)
	for i := range pool {
		pool[i] = &item{}
	}
	seq := 0
	for step := 0; step < 2000; step++ {
		it := pool[rng.Intn(len(pool))]
		switch {
		case !it.Linked():
			it.prio = rng.Intn(8)
			it.seq = seq
			seq++
			q.Insert(it)
		case rng.Intn(3) == 0:
			q.Pop()
		default:
			q.Remove(it)
		}
		checkSorted(t, &q)
	}
}
