// Package dedupe defines the interface for idempotency tracking.
//
// Elo deltas are not idempotent: applying the same one twice doubles its
// effect. The deduper guards the persistence pipeline so a retried session
// completion cannot re-apply a delta that already reached the store.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen update IDs to ensure at-most-once application.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an ID from the seen set, allowing a retry. Used when
	// an update was marked as seen but could not be enqueued.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper implements Deduper with a bounded map plus a FIFO ring of
// insertion order: when the cap is reached the oldest entry is evicted.
// A maxSize of zero or below disables eviction entirely.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	ring    []string // insertion order, oldest at head
	head    int      // index of the oldest live entry in ring
	maxSize int
	size    atomic.Int64
}

// defaultMaxSize bounds the deduper when no option overrides it.
const defaultMaxSize = 50_000

// Option applies a configuration option to the deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize caps the number of IDs kept in memory. Zero or negative
// means unbounded.
func WithMaxSize(n int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = n
	}
}

// NewInMemoryDeduper creates a new in-memory deduper with options applied.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{})
	if d.maxSize > 0 {
		d.ring = make([]string, 0, d.maxSize)
	}
	return d
}

// SeenAndRecord atomically checks if id was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}

	if d.maxSize > 0 {
		if len(d.seen) >= d.maxSize {
			d.evictOldest()
		}
		d.ring = append(d.ring, id)
	}
	d.seen[id] = struct{}{}
	d.size.Add(1)
	return false
}

// Unrecord removes an ID from the seen set. The ring keeps a stale slot
// until eviction reaches it; evictOldest skips slots no longer in the map.
func (d *inMemoryDeduper) Unrecord(ctx context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; !ok {
		return
	}
	delete(d.seen, id)
	d.size.Add(-1)
}

// evictOldest drops the oldest live entry. Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	for d.head < len(d.ring) {
		id := d.ring[d.head]
		d.head++
		if _, ok := d.seen[id]; ok {
			delete(d.seen, id)
			d.size.Add(-1)
			break
		}
	}
	// Compact once the dead prefix dominates the ring.
	if d.head > 0 && d.head*2 >= len(d.ring) {
		d.ring = append(d.ring[:0], d.ring[d.head:]...)
		d.head = 0
	}
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
