// Package dedupe tracks identifiers already seen during a refresh cycle.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen keys so each entity is collected at most once.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a later attempt can record it again.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper is a map with optional FIFO eviction once maxSize is reached.
type inMemoryDeduper struct {
	mu        sync.Mutex
	seen      map[string]struct{}
	order     []string // insertion order, bounded mode only
	maxSize   int      // 0 or negative = unbounded
	normalize func(string) string
	size      atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		normalize: func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{})
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	key := d.normalize(id)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}
	d.seen[key] = struct{}{}
	if d.maxSize > 0 {
		d.order = append(d.order, key)
	}
	d.size.Store(int64(len(d.seen)))
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	key := d.normalize(id)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; !ok {
		return
	}
	delete(d.seen, key)
	if d.maxSize > 0 {
		for i, k := range d.order {
			if k == key {
				d.order = append(d.order[:i], d.order[i+1:]...)
				break
			}
		}
	}
	d.size.Store(int64(len(d.seen)))
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// evictOldest drops the earliest recorded key. Caller holds mu.
func (d *inMemoryDeduper) evictOldest() {
	if len(d.order) == 0 {
		return
	}
	oldest := d.order[0]
	d.order = d.order[1:]
	delete(d.seen, oldest)
}
