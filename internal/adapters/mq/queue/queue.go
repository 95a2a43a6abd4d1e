// Package queue defines the contract for enqueuing and consuming rating
// updates produced by completed tournaments.
//
// The engine returns deltas synchronously; persistence to the store happens
// through this bounded in-memory queue so a burst of finishing tournaments
// cannot stall voters.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/purrank/internal/domain/types"
	"github.com/okian/purrank/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 10_000
)

// Update is one rating delta awaiting persistence.
type Update struct {
	// ID is the idempotency key, sessionID:candidateID.
	ID string
	// SessionID identifies the tournament that produced the delta.
	SessionID string
	// Name is the candidate's display name, carried for the store.
	Name string
	// Delta is the rating change to apply last-writer-wins.
	Delta types.RatingDelta
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an update to the queue.
	// Returns false if the queue is full and the update was not enqueued.
	Enqueue(ctx context.Context, u Update) bool

	// Dequeue returns a channel that receives updates as they arrive.
	// The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Update

	// Len returns the current number of queued updates.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue. After closing, no new updates
	// can be enqueued and the dequeue channel will be closed.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	updates  chan Update
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.updates = make(chan Update, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds an update to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, u Update) bool {
	start := time.Now()
	defer func() {
		metrics.RecordQueueLatency(float64(time.Since(start).Milliseconds()))
	}()

	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	select {
	case q.updates <- u:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.updates))
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false // queue is full
	}
}

// Dequeue returns a channel that receives updates as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Update {
	out := make(chan Update)
	go func() {
		defer close(out)
		for u := range q.updates {
			select {
			case out <- u:
				metrics.RecordQueueDequeue()
				metrics.UpdateQueueSize(len(q.updates))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued updates.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	size := len(q.updates)
	metrics.UpdateQueueSize(size)
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil // already closed
	}
	close(q.updates)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
