package bus

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var (
	ErrQueueFull   = errors.New("event queue full")
	ErrQueueClosed = errors.New("event queue closed")
)

// Queue is a bounded, non-blocking queue carrying one event kind between
// pipeline stages. Producers never block: a full queue rejects the event
// and the caller decides whether dropping is acceptable.
type Queue[T any] struct {
	name  string
	ch    chan T
	drops uint64

	mu     sync.RWMutex
	closed bool
}

// NewQueue allocates a queue with the given capacity.
func NewQueue[T any](name string, capacity int) *Queue[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue[T]{name: name, ch: make(chan T, capacity)}
}

// Name returns the queue label used in logs and metrics.
func (q *Queue[T]) Name() string {
	return q.name
}

// TryPublish enqueues an event without blocking. The closed check and the
// send share the read lock so a concurrent Close cannot slip between them.
func (q *Queue[T]) TryPublish(v T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- v:
		return nil
	default:
		atomic.AddUint64(&q.drops, 1)
		return ErrQueueFull
	}
}

// Close stops the queue from accepting new events. Buffered events are
// still delivered to the consumer.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

// Len returns the number of buffered events.
func (q *Queue[T]) Len() int {
	return len(q.ch)
}

// Drops returns the number of rejected publishes.
func (q *Queue[T]) Drops() uint64 {
	return atomic.LoadUint64(&q.drops)
}

// Run consumes events until the context is done or the queue is closed
// and drained.
func (q *Queue[T]) Run(ctx context.Context, handler func(T)) {
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-q.ch:
			if !ok {
				return
			}
			handler(v)
		}
	}
}
