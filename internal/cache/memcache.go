package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Blob is a shared, immutable, ordered sequence of domain records. The
// in-process tier never mutates a Blob; a refresh replaces the whole
// blob under its hash.
type Blob[T any] struct {
	Records []T
}

// NewBlob constructs a read-only shared blob from a slice of records.
// Callers must not mutate records after handing it to NewBlob.
func NewBlob[T any](records []T) *Blob[T] {
	return &Blob[T]{Records: records}
}

// MemCache is the bounded, concurrency-safe in-process tier: a mapping
// from 64-bit key hash to a shared read-only Blob. It never errors;
// absence is the only failure mode.
type MemCache[T any] struct {
	lru      *lru.Cache[KeyHash, *Blob[T]]
	metrics  *Metrics
	kind     string
	capacity int
}

// NewMemCache builds a bounded in-process cache of the given capacity
// with approximately-LRU eviction.
func NewMemCache[T any](capacity int, kind string, metrics *Metrics) *MemCache[T] {
	onEvict := func(_ KeyHash, v *Blob[T]) {
		if metrics != nil {
			metrics.RecordEviction(len(v.Records))
		}
	}
	l, err := lru.NewWithEvict[KeyHash, *Blob[T]](capacity, onEvict)
	if err != nil {
		// capacity <= 0 is a programmer error at construction time, not a
		// runtime condition this component is specified to handle.
		panic(err)
	}
	return &MemCache[T]{lru: l, metrics: metrics, kind: kind, capacity: capacity}
}

// Get returns the shared blob for hash, or (nil, false) on absence.
func (c *MemCache[T]) Get(hash KeyHash) (*Blob[T], bool) {
	return c.lru.Get(hash)
}

// Insert publishes a shared blob under hash, replacing any prior value
// atomically. Callers must have already committed the value to the
// remote tier before calling Insert.
func (c *MemCache[T]) Insert(hash KeyHash, blob *Blob[T]) {
	c.lru.Add(hash, blob)
	if c.metrics != nil {
		c.metrics.SetMemoryEntries(c.kind, c.lru.Len())
	}
}

// Remove drops hash from the in-process tier; returns true iff a live
// entry was removed.
func (c *MemCache[T]) Remove(hash KeyHash) bool {
	present := c.lru.Contains(hash)
	c.lru.Remove(hash)
	if c.metrics != nil {
		c.metrics.SetMemoryEntries(c.kind, c.lru.Len())
	}
	return present
}

// Len returns the current number of entries.
func (c *MemCache[T]) Len() int { return c.lru.Len() }

// Capacity returns the configured bound.
func (c *MemCache[T]) Capacity() int { return c.capacity }

// Clear drops all entries, returning the count removed.
func (c *MemCache[T]) Clear() int {
	n := c.lru.Len()
	c.lru.Purge()
	if c.metrics != nil {
		c.metrics.SetMemoryEntries(c.kind, 0)
	}
	return n
}
