package Queues

import (
	"sync/atomic"
)

// node's value is cleared once it's popped, since the popped node stays on as the sentinel.
type node[T any] struct {
	v  atomic.Pointer[T]
	nx atomic.Pointer[node[T]]
}

// ConcLinkedQueue is a lock-free Michael-Scott queue. Any number of goroutines may Push and Pop at the same time.
type ConcLinkedQueue[T any] struct {
	headPtr, tail atomic.Pointer[node[T]]
	sz            atomic.Int64
}

// NewConcLinkedQueue returns an empty queue.
func NewConcLinkedQueue[T any]() *ConcLinkedQueue[T] {
	q := new(ConcLinkedQueue[T])
	sentinel := new(node[T])
	q.headPtr.Store(sentinel)
	q.tail.Store(sentinel)
	return q
}

func (q *ConcLinkedQueue[T]) Push(item T) {
	newNode := new(node[T])
	newNode.v.Store(&item)
	for {
		oldTail := q.tail.Load()
		if next := oldTail.nx.Load(); next != nil { //tail is lagging, help it forward.
			q.tail.CompareAndSwap(oldTail, next)
		} else if oldTail.nx.CompareAndSwap(nil, newNode) {
			q.tail.CompareAndSwap(oldTail, newNode)
			q.sz.Add(1)
			return
		}
	}
}

func (q *ConcLinkedQueue[T]) Pop() (T, error) {
	for {
		oldHeadPtr, oldTail := q.headPtr.Load(), q.tail.Load()
		oldHead := oldHeadPtr.nx.Load()
		if oldHeadPtr == oldTail {
			if oldHead == nil {
				return *new(T), &EmptyQueueError{}
			}
			q.tail.CompareAndSwap(oldTail, oldHead)
		} else if q.headPtr.CompareAndSwap(oldHeadPtr, oldHead) {
			q.sz.Add(-1)
			return *oldHead.v.Swap(nil), nil
		}
	}
}

func (q *ConcLinkedQueue[T]) Peek() (T, bool) {
	for {
		first := q.headPtr.Load().nx.Load()
		if first == nil {
			return *new(T), false
		}
		if v := first.v.Load(); v != nil {
			return *v, true
		}
		//popped meanwhile, look again.
	}
}

func (q *ConcLinkedQueue[T]) Empty() bool {
	return q.headPtr.Load().nx.Load() == nil
}

// Size is approximate while Push and Pop are in flight.
func (q *ConcLinkedQueue[T]) Size() int {
	return int(q.sz.Load())
}

// Drain pops every item currently reachable and hands it to fn, returning how many were popped.
func (q *ConcLinkedQueue[T]) Drain(fn func(T)) (n int) {
	for {
		v, err := q.Pop()
		if err != nil {
			return
		}
		fn(v)
		n++
	}
}
