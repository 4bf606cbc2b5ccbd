// Package Queues holds the FIFO queues used to hand retired storage from writers to the reclaimer.
package Queues

// Queue is a FIFO queue.
type Queue[T any] interface {
	Push(item T)
	Pop() (T, error)
	Peek() (T, bool)
	Empty() bool
}

// ArrayQueue is a Queue backed by a growable ring. It isn't safe for concurrent use.
type ArrayQueue[T any] interface {
	Queue[T]
	Shrink()
	Clear()
	Size() uint
	resize(newLen uint)
}

// EmptyQueueError is returned by Pop on an empty queue.
type EmptyQueueError struct {
}

func (e *EmptyQueueError) Error() string {
	return "Queue is Empty: cannot Pop."
}
