// Package prioq implements a priority queue as a sorted intrusive list.
//
// Lower priority values come first. Insertion is O(n), Pop is O(1).
package prioq

import "ember/internal/list"

// Item is a list node that carries a priority key.
type Item[E any] interface {
	list.Elem[E]
	Priority() int
}

// Queue is kept sorted ascending by Priority. Items with equal priority
// keep their insertion order. The zero value is an empty queue.
type Queue[E Item[E]] struct {
	l list.Linear[E]
}

// Insert places n after every item with priority <= n.Priority() and
// before the first strictly greater one. Inserting an item that is already
// queued here is rejected and reports false.
func (q *Queue[E]) Insert(n E) bool {
	if q.l.Contains(n) {
		return false
	}
	p := n.Priority()
	var mark E
	q.l.Each(func(cur E) bool {
		if cur.Priority() > p {
			mark = cur
			return false
		}
		return true
	})
	q.l.InsertBefore(mark, n)
	return true
}

// Pop removes and returns the item with the lowest priority value, or the
// zero E when empty.
func (q *Queue[E]) Pop() E { return q.l.PopHead() }

// Peek returns the head without removing it.
func (q *Queue[E]) Peek() E { return q.l.Head() }

// Find returns the first item whose priority equals key, or the zero E.
func (q *Queue[E]) Find(key int) E {
	var found E
	q.l.Each(func(cur E) bool {
		if cur.Priority() == key {
			found = cur
			return false
		}
		// Sorted: nothing past a greater key can match.
		return cur.Priority() < key
	})
	return found
}

// Remove unlinks n if it is queued here.
func (q *Queue[E]) Remove(n E) bool { return q.l.Remove(n) }

// Contains reports whether n is queued here.
func (q *Queue[E]) Contains(n E) bool { return q.l.Contains(n) }

// Len returns the number of queued items.
func (q *Queue[E]) Len() int { return q.l.Len() }

// Empty reports whether the queue has no items.
func (q *Queue[E]) Empty() bool { return q.l.Empty() }

// Each visits items in priority order until fn returns false.
func (q *Queue[E]) Each(fn func(E) bool) { q.l.Each(fn) }
