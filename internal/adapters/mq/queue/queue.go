// Package queue buffers finished match records between the match observer
// and the persistence workers.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/fifteen/internal/domain/model"
	"github.com/okian/fifteen/pkg/metrics"
)

const defaultQueueCapacity = 10000

// Record is the payload flowing through the queue.
type Record = model.MatchRecord

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a record without blocking. It returns ErrFull or
	// ErrClosed when the record was not accepted.
	Enqueue(ctx context.Context, r Record) error

	// Dequeue returns the channel records are delivered on. It is closed
	// once the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Record

	// Len returns the number of waiting records.
	Len(ctx context.Context) int

	// Close stops accepting records. Records already queued stay readable.
	Close() error
}

// InMemoryQueue implements Queue with a buffered channel.
type InMemoryQueue struct {
	records  chan Record
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.records = make(chan Record, q.capacity)

	metrics.UpdateReportQueueCapacity(q.capacity)
	metrics.UpdateReportQueueSize(0)
	return q
}

// Enqueue adds a record to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, r Record) error { //nolint:gocritic // hugeParam: records travel by value
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordReportEnqueueError("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordReportEnqueueError("context_cancelled")
		return fmt.Errorf("enqueue %s: %w", r.MatchID, err)
	}

	select {
	case q.records <- r:
		metrics.UpdateReportQueueSize(len(q.records))
		return nil
	default:
		metrics.RecordReportEnqueueError("full")
		metrics.RecordErrorByComponent("queue", "queue_full")
		return fmt.Errorf("%w: %s dropped at capacity %d", ErrFull, r.MatchID, q.capacity)
	}
}

// Dequeue returns the delivery channel.
func (q *InMemoryQueue) Dequeue(_ context.Context) <-chan Record {
	return q.records
}

// Len returns the current number of queued records.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.records)
	metrics.UpdateReportQueueSize(size)
	return size
}

// Close stops the queue from accepting records.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.records)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
