package fifoqueue

import (
	"fmt"
	mathbits "math/bits"
	"sync"

	"github.com/ef-ds/deque"
)

// FifoQueue implements a FIFO queue with max capacity and length observer.
// Elements that exceed the queue's max capacity are silently dropped.
// By default, the capacity equals the largest `int` value. Capacity can be
// set at construction time via the option `WithCapacity`.
// Each time the queue's length changes, the QueueLengthObserver is called
// with the new length.
//
// The queue is concurrency safe. The QueueLengthObserver must be non-blocking.
type FifoQueue[T any] struct {
	mu             sync.RWMutex
	queue          deque.Deque
	maxCapacity    int
	lengthObserver QueueLengthObserver
}

// ConstructorOption is an optional argument of NewFifoQueue.
type ConstructorOption func(*config) error

// QueueLengthObserver is a callback that can optionally be provided
// to the `NewFifoQueue` constructor (via `WithLengthObserver` option).
type QueueLengthObserver func(int)

type config struct {
	maxCapacity    int
	lengthObserver QueueLengthObserver
}

// WithCapacity specifies the max number of elements the queue can hold.
func WithCapacity(capacity int) ConstructorOption {
	return func(cfg *config) error {
		if capacity < 1 {
			return fmt.Errorf("capacity for Fifo queue must be positive")
		}
		cfg.maxCapacity = capacity
		return nil
	}
}

// WithLengthObserver registers a callback invoked with the new length each
// time the queue's length changes.
// Caution: the QueueLengthObserver callback must be non-blocking
func WithLengthObserver(callback QueueLengthObserver) ConstructorOption {
	return func(cfg *config) error {
		if callback == nil {
			return fmt.Errorf("nil is not a valid QueueLengthObserver")
		}
		cfg.lengthObserver = callback
		return nil
	}
}

// NewFifoQueue creates an empty queue.
func NewFifoQueue[T any](options ...ConstructorOption) (*FifoQueue[T], error) {
	cfg := config{
		maxCapacity:    1<<(mathbits.UintSize-1) - 1,
		lengthObserver: func(int) { /* noop */ },
	}
	for _, opt := range options {
		err := opt(&cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to apply constructor option to fifoqueue queue: %w", err)
		}
	}
	return &FifoQueue[T]{
		maxCapacity:    cfg.maxCapacity,
		lengthObserver: cfg.lengthObserver,
	}, nil
}

// Push appends the given value to the tail of the queue.
// If queue capacity is reached, the element is silently dropped and false
// is returned.
func (q *FifoQueue[T]) Push(element T) bool {
	length, pushed := q.push(element)
	if pushed {
		q.lengthObserver(length)
	}
	return pushed
}

func (q *FifoQueue[T]) push(element T) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	length := q.queue.Len()
	if length < q.maxCapacity {
		q.queue.PushBack(element)
		return length + 1, true
	}
	return length, false
}

// Front peeks at the head of the queue without removing it.
func (q *FifoQueue[T]) Front() (T, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	element, ok := q.queue.Front()
	if !ok {
		var zero T
		return zero, false
	}
	return element.(T), true
}

// Pop removes and returns the queue's head element.
func (q *FifoQueue[T]) Pop() (T, bool) {
	element, length, ok := q.pop()
	if !ok {
		var zero T
		return zero, false
	}

	q.lengthObserver(length)
	return element.(T), true
}

func (q *FifoQueue[T]) pop() (interface{}, int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	element, ok := q.queue.PopFront()
	return element, q.queue.Len(), ok
}

// Len returns the current length of the queue.
func (q *FifoQueue[T]) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return q.queue.Len()
}
