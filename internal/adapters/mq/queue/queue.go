// Package queue hands accepted refresh requests to the single runner.
//
// The shared refresh flag already guarantees that at most one request is
// accepted at a time, so the default capacity is one and a full queue
// rejects rather than blocks.
package queue

import (
	"context"
	"sync"

	"github.com/okian/streamscout/internal/domain/model"
	"github.com/okian/streamscout/pkg/metrics"
)

const defaultCapacity = 1

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a request. It never blocks: ErrFull when no slot is free,
	// ErrClosed after Close, or the context error if ctx is already done.
	Enqueue(ctx context.Context, req model.RefreshRequest) error

	// Dequeue returns the channel the runner reads. It is closed by Close.
	Dequeue() <-chan model.RefreshRequest

	// Len returns the number of waiting requests.
	Len() int

	// Close stops accepting requests and closes the dequeue channel.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	requests chan model.RefreshRequest
	capacity int
	mu       sync.RWMutex
	closed   bool
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.requests = make(chan model.RefreshRequest, q.capacity)
	return q
}

// Enqueue adds a request to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, req model.RefreshRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}

	select {
	case q.requests <- req:
		return nil
	default:
		metrics.RecordErrorByComponent("queue", "full")
		return ErrFull
	}
}

// Dequeue returns the receive side of the queue.
func (q *InMemoryQueue) Dequeue() <-chan model.RefreshRequest {
	return q.requests
}

// Len returns the current number of queued requests.
func (q *InMemoryQueue) Len() int {
	return len(q.requests)
}

// Close gracefully shuts down the queue. Waiting requests stay readable.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.requests)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
