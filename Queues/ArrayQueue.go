package Queues

const minRingCap = 4

type circArrQ[T any] struct {
	sz, head, tail uint
	content        []T
}

// MakeArrayQueue returns a ring queue that can hold initCap items before growing.
func MakeArrayQueue[T any](initCap uint) ArrayQueue[T] {
	return &circArrQ[T]{0, 0, 0, make([]T, max(initCap, minRingCap))}
}

func (q *circArrQ[T]) Empty() bool {
	return q.sz == 0
}

func (q *circArrQ[T]) resize(newLen uint) {
	nc := make([]T, max(newLen, minRingCap))
	if q.head < q.tail || q.sz == 0 {
		copy(nc, q.content[q.head:q.tail])
	} else {
		n := copy(nc, q.content[q.head:])
		copy(nc[n:], q.content[:q.tail])
	}
	q.content, q.head, q.tail = nc, 0, q.sz%uint(len(nc))
}

// Shrink the ring to fit the queued items.
func (q *circArrQ[T]) Shrink() {
	q.resize(q.sz + 1)
}

// Clear drops every queued item.
func (q *circArrQ[T]) Clear() {
	clear(q.content)
	q.tail, q.head, q.sz = 0, 0, 0
}

func (q *circArrQ[T]) Size() uint {
	return q.sz
}

func (q *circArrQ[T]) Push(item T) {
	if q.sz == uint(len(q.content)) {
		q.resize(q.sz * 3 / 2)
	}
	q.content[q.tail] = item
	q.tail = (q.tail + 1) % uint(len(q.content))
	q.sz++
}

func (q *circArrQ[T]) Pop() (item T, e error) {
	if q.Empty() {
		return item, &EmptyQueueError{}
	}
	item = q.content[q.head]
	q.content[q.head] = *new(T)
	q.head = (q.head + 1) % uint(len(q.content))
	q.sz--
	return item, nil
}

func (q *circArrQ[T]) Peek() (item T, ok bool) {
	if q.Empty() {
		return
	}
	return q.content[q.head], true
}
