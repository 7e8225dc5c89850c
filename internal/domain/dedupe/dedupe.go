// Package dedupe tracks ids already handled during a run, such as match ids
// queued by the crawler or failures already reported.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen ids.
type Deduper interface {
	// SeenAndRecord reports whether id was seen before and records it if not.
	SeenAndRecord(ctx context.Context, id string) bool

	// Forget removes id so it can be recorded again.
	Forget(ctx context.Context, id string)

	// Size returns how many ids are currently remembered.
	Size() int
}

// inMemoryDeduper keeps ids in a map plus an insertion-ordered ring used for
// FIFO eviction when bounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	maxSize int
	seen    map[string]struct{}
	order   []string // ring of ids in insertion order, bounded mode only
	head    int      // index of the oldest id in order
}

// NewInMemoryDeduper creates an in-memory deduper. It is unbounded unless
// WithMaxSize is given.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{})
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize > 0 {
		if len(d.order) < d.maxSize {
			d.order = append(d.order, id)
		} else {
			// full: the oldest slot is reused for the new id
			delete(d.seen, d.order[d.head])
			d.order[d.head] = id
			d.head = (d.head + 1) % len(d.order)
		}
	}
	d.seen[id] = struct{}{}
	return false
}

func (d *inMemoryDeduper) Forget(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; !ok {
		return
	}
	delete(d.seen, id)
	if d.maxSize <= 0 {
		return
	}

	// rebuild the ring without id, oldest first
	kept := make([]string, 0, len(d.order))
	for i := range d.order {
		v := d.order[(d.head+i)%len(d.order)]
		if v != id {
			kept = append(kept, v)
		}
	}
	d.order = kept
	d.head = 0
}

func (d *inMemoryDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
