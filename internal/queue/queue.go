package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Pop once the queue is closed and drained.
var ErrClosed = errors.New("queue closed")

// Queue is a FIFO between one producer and its consumers.
// Push never blocks. Pop blocks until an item arrives, the queue is closed, or ctx is done.
// A capacity of 0 means unbounded; otherwise Push drops the newest item when full.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	closed   bool
	notify   chan struct{}
	done     chan struct{}
}

// New creates and returns a new Queue instance.
func New[T any](capacity int) *Queue[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue[T]{
		capacity: capacity,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Push adds an element to the end of the queue.
// It reports false when the item was dropped because the queue is full or closed.
func (q *Queue[T]) Push(item T) bool {
	q.mu.Lock()
	if q.closed || (q.capacity > 0 && len(q.items) >= q.capacity) {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, item)
	q.mu.Unlock()

	q.signal()
	return true
}

// Pop removes and returns the front element, blocking while the queue is empty.
// Items pushed before Close are still delivered; after that Pop returns ErrClosed.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	var zero T
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items[0] = zero
			q.items = q.items[1:]
			remaining := len(q.items)
			q.mu.Unlock()
			if remaining > 0 {
				q.signal()
			}
			return item, nil
		}
		if q.closed {
			q.mu.Unlock()
			return zero, ErrClosed
		}
		q.mu.Unlock()

		select {
		case <-q.notify:
		case <-q.done:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

func (q *Queue[T]) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Close stops accepting items and wakes blocked consumers. It is safe to call more than once.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.done)
}

// Discard drops every pending item and returns how many were dropped.
func (q *Queue[T]) Discard() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	return n
}

// Len returns the number of elements in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
