// Package list implements intrusive doubly linked lists.
//
// Nodes embed a Link and are linked into at most one list at a time. The
// list never allocates: every operation only rewires the links that the
// nodes already carry.
package list

// Elem is implemented by pointer types that embed a Link.
type Elem[E any] interface {
	comparable
	Links() *Link[E]
}

// Link is the pair of link fields embedded in a node, plus the
// collection currently holding it.
type Link[E any] struct {
	next  E
	prev  E
	owner any
}

// Links returns the link fields. Embedding Link promotes this method so
// that *T satisfies Elem[*T].
func (l *Link[E]) Links() *Link[E] { return l }

// Next returns the following node, or the zero E at the end of a linear
// list.
func (l *Link[E]) Next() E { return l.next }

// Prev returns the preceding node, or the zero E at the start of a linear
// list.
func (l *Link[E]) Prev() E { return l.prev }

// Owner returns the list holding the node, or nil when unlinked.
func (l *Link[E]) Owner() any { return l.owner }

// Linked reports whether the node is a member of any list.
func (l *Link[E]) Linked() bool { return l.owner != nil }

func (l *Link[E]) reset() {
	var zero E
	l.next = zero
	l.prev = zero
	l.owner = nil
}

func claim[E Elem[E]](n E, owner any) *Link[E] {
	var zero E
	if n == zero {
		panic("list: nil node")
	}
	ln := n.Links()
	if ln.owner != nil {
		panic("list: node is already a member of a list")
	}
	ln.owner = owner
	return ln
}

func isZero[E comparable](n E) bool {
	var zero E
	return n == zero
}

// Linear is a nil-terminated list with head and tail. The zero value is an
// empty list.
type Linear[E Elem[E]] struct {
	head E
	tail E
	n    int
}

// Create makes n the only element of an empty list.
func (l *Linear[E]) Create(n E) {
	if l.n != 0 {
		panic("list: Create on non-empty list")
	}
	ln := claim(n, l)
	var zero E
	ln.next, ln.prev = zero, zero
	l.head, l.tail = n, n
	l.n = 1
}

// Head returns the first node or the zero E.
func (l *Linear[E]) Head() E { return l.head }

// Tail returns the last node or the zero E.
func (l *Linear[E]) Tail() E { return l.tail }

// Len returns the number of nodes.
func (l *Linear[E]) Len() int { return l.n }

// Empty reports whether the list has no nodes.
func (l *Linear[E]) Empty() bool { return l.n == 0 }

// Contains reports whether n is linked into this list.
func (l *Linear[E]) Contains(n E) bool {
	return !isZero(n) && n.Links().owner == any(l)
}

// Append adds n at the tail.
func (l *Linear[E]) Append(n E) {
	if l.n == 0 {
		l.Create(n)
		return
	}
	ln := claim(n, l)
	var zero E
	ln.prev = l.tail
	ln.next = zero
	l.tail.Links().next = n
	l.tail = n
	l.n++
}

// InsertBefore links n in front of mark. A zero mark appends.
func (l *Linear[E]) InsertBefore(mark, n E) {
	if isZero(mark) {
		l.Append(n)
		return
	}
	if !l.Contains(mark) {
		panic("list: InsertBefore mark is not in this list")
	}
	ln := claim(n, l)
	ml := mark.Links()
	ln.next = mark
	ln.prev = ml.prev
	if isZero(ml.prev) {
		l.head = n
	} else {
		ml.prev.Links().next = n
	}
	ml.prev = n
	l.n++
}

// Remove unlinks n. Removing a node that is not in this list is a no-op
// and reports false.
func (l *Linear[E]) Remove(n E) bool {
	if !l.Contains(n) {
		return false
	}
	ln := n.Links()
	if isZero(ln.prev) {
		l.head = ln.next
	} else {
		ln.prev.Links().next = ln.next
	}
	if isZero(ln.next) {
		l.tail = ln.prev
	} else {
		ln.next.Links().prev = ln.prev
	}
	ln.reset()
	l.n--
	return true
}

// PopHead unlinks and returns the first node, or the zero E.
func (l *Linear[E]) PopHead() E {
	n := l.head
	if !isZero(n) {
		l.Remove(n)
	}
	return n
}

// PopTail unlinks and returns the last node, or the zero E.
func (l *Linear[E]) PopTail() E {
	n := l.tail
	if !isZero(n) {
		l.Remove(n)
	}
	return n
}

// Each calls fn for every node from head to tail until fn returns false.
// fn may remove the node it was given.
func (l *Linear[E]) Each(fn func(E) bool) {
	for n := l.head; !isZero(n); {
		next := n.Links().next
		if !fn(n) {
			return
		}
		n = next
	}
}

// Circular is a ring with a cursor (the head). The zero value is an empty
// ring.
type Circular[E Elem[E]] struct {
	head E
	n    int
}

// Create makes n the only element of an empty ring; it links to itself.
func (r *Circular[E]) Create(n E) {
	if r.n != 0 {
		panic("list: Create on non-empty ring")
	}
	ln := claim(n, r)
	ln.next, ln.prev = n, n
	r.head = n
	r.n = 1
}

// Head returns the cursor node or the zero E.
func (r *Circular[E]) Head() E { return r.head }

// Len returns the number of nodes.
func (r *Circular[E]) Len() int { return r.n }

// Empty reports whether the ring has no nodes.
func (r *Circular[E]) Empty() bool { return r.n == 0 }

// Contains reports whether n is linked into this ring.
func (r *Circular[E]) Contains(n E) bool {
	return !isZero(n) && n.Links().owner == any(r)
}

// Append adds n at the tail, the position just before the head.
func (r *Circular[E]) Append(n E) {
	if r.n == 0 {
		r.Create(n)
		return
	}
	r.link(r.head.Links().prev, r.head, n)
}

// Insert adds n immediately after the head.
func (r *Circular[E]) Insert(n E) {
	if r.n == 0 {
		r.Create(n)
		return
	}
	r.link(r.head, r.head.Links().next, n)
}

// PushFront adds n before the head and makes it the new head.
func (r *Circular[E]) PushFront(n E) {
	r.Append(n)
	r.head = n
}

func (r *Circular[E]) link(prev, next, n E) {
	ln := claim(n, r)
	ln.prev = prev
	ln.next = next
	prev.Links().next = n
	next.Links().prev = n
	r.n++
}

// Remove unlinks n, moving the head forward if n was the head. Removing a
// node that is not in this ring is a no-op and reports false.
func (r *Circular[E]) Remove(n E) bool {
	if !r.Contains(n) {
		return false
	}
	ln := n.Links()
	if r.n == 1 {
		var zero E
		r.head = zero
	} else {
		ln.prev.Links().next = ln.next
		ln.next.Links().prev = ln.prev
		if r.head == n {
			r.head = ln.next
		}
	}
	ln.reset()
	r.n--
	return true
}

// PopHead unlinks and returns the head, or the zero E.
func (r *Circular[E]) PopHead() E {
	n := r.head
	if !isZero(n) {
		r.Remove(n)
	}
	return n
}

// Advance returns the head and moves the cursor one step forward.
func (r *Circular[E]) Advance() E {
	n := r.head
	if !isZero(n) {
		r.head = n.Links().next
	}
	return n
}

// Each visits every node once starting at the head until fn returns false.
// fn may remove the node it was given.
func (r *Circular[E]) Each(fn func(E) bool) {
	n := r.head
	for count := r.n; count > 0 && !isZero(n); count-- {
		next := n.Links().next
		if !fn(n) {
			return
		}
		n = next
	}
}
