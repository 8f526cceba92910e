package cache

import (
	"context"
	"time"
)

// MultiCacheStats is the synchronous, non-blocking snapshot returned by
// Stats().
type MultiCacheStats struct {
	Kind        string
	MemoryLen   int
	MemoryCap   int
	MappingSize int
}

// ComputeFunc produces a blob on a cache miss for GetOrCompute. There
// is no single-flight guarantee: concurrent misses on the same key may
// both invoke ComputeFunc, so implementations must be idempotent.
type ComputeFunc[T any] func(ctx context.Context) (*Blob[T], error)

// MultiCache is the generic, kind-parameterized multi-level cache: a
// single generic type specialized by T, with each record kind getting
// a thin facade (see ohlcv_cache.go, tick_cache.go) that only supplies
// the metric/kind label and the TTL.
type MultiCache[T any] struct {
	kind    string
	mem     *MemCache[T]
	remote  RemoteStore
	mapping *mapping
	metrics *Metrics
	ttl     time.Duration
}

// NewMultiCache builds the coordinating cache for one record kind.
func NewMultiCache[T any](kind string, capacity int, remote RemoteStore, ttl time.Duration, metrics *Metrics) *MultiCache[T] {
	return &MultiCache[T]{
		kind:    kind,
		mem:     NewMemCache[T](capacity, kind, metrics),
		remote:  remote,
		mapping: newMapping(metrics),
		metrics: metrics,
		ttl:     ttl,
	}
}

// probeMemory returns the blob for key iff the in-process entry under
// hash verifies against key. On a hash collision with a different
// canonical key the stale entry is dropped and counted, and the probe
// reports absence; the mapping entry itself is left to be overwritten
// by the next write for that hash.
func (c *MultiCache[T]) probeMemory(hash KeyHash, key string) (*Blob[T], bool) {
	blob, ok := c.mem.Get(hash)
	if !ok {
		return nil, false
	}
	if !c.mapping.verify(hash, key) {
		c.mem.Remove(hash)
		c.metrics.RecordInconsistentCleanup()
		return nil, false
	}
	return blob, true
}

// Get probes the in-process tier by hash, then the remote tier by key,
// populating the in-process tier and the mapping table on a remote hit.
func (c *MultiCache[T]) Get(ctx context.Context, key string) (*Blob[T], error) {
	start := time.Now()
	defer func() { c.metrics.RecordLatency("get", time.Since(start)) }()

	hash := HashKey(key)
	if blob, ok := c.probeMemory(hash, key); ok {
		c.metrics.RecordHit("memory", c.kind)
		return blob, nil
	}

	raw, err := c.remote.Get(ctx, key)
	if err != nil {
		if IsMiss(err) {
			c.metrics.RecordMiss(c.kind)
			return nil, err
		}
		c.metrics.RecordError("get", c.kind)
		return nil, err
	}

	blob, err := DecodeBlob[T](raw)
	if err != nil {
		c.metrics.RecordError("get", c.kind)
		return nil, err
	}
	c.metrics.RecordHit("remote", c.kind)
	c.mem.Insert(hash, blob)
	c.mapping.put(hash, key)
	return blob, nil
}

// Set writes through remote-before-memory: a failed remote write
// leaves the in-process cache and mapping table unchanged, and the
// error is surfaced to the caller. An eviction from the in-process
// tier can then always recover the value from the remote tier.
func (c *MultiCache[T]) Set(ctx context.Context, key string, records []T) error {
	return c.SetArc(ctx, key, NewBlob(records))
}

// SetArc is Set taking an already-shared blob, avoiding a copy when the
// caller already holds one.
func (c *MultiCache[T]) SetArc(ctx context.Context, key string, blob *Blob[T]) error {
	raw, err := EncodeBlob(blob)
	if err != nil {
		c.metrics.RecordError("set", c.kind)
		return err
	}
	if err := c.remote.Set(ctx, key, raw, c.ttl); err != nil {
		c.metrics.RecordError("set", c.kind)
		return err
	}
	hash := HashKey(key)
	c.mem.Insert(hash, blob)
	c.mapping.put(hash, key)
	c.metrics.RecordSet(c.kind)
	return nil
}

// GetOrCompute runs fn on a remote miss and writes the result through
// remote->memory before returning it. No single-flight is attempted:
// concurrent misses may both compute, and the last successful remote
// write wins.
func (c *MultiCache[T]) GetOrCompute(ctx context.Context, key string, fn ComputeFunc[T]) (*Blob[T], error) {
	blob, err := c.Get(ctx, key)
	if err == nil {
		return blob, nil
	}
	if !IsMiss(err) {
		return nil, err
	}
	computed, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.SetArc(ctx, key, computed); err != nil {
		return nil, err
	}
	return computed, nil
}

// GetBatch probes in-process for all keys first, issues one remote
// mget for the remainder, and coalesces mapping updates into at most
// one exclusive acquisition. Result position i corresponds to keys[i].
func (c *MultiCache[T]) GetBatch(ctx context.Context, keys []string) ([]*Blob[T], error) {
	start := time.Now()
	defer func() { c.metrics.RecordBatchLatency("get_batch", c.kind, time.Since(start)) }()

	if len(keys) == 0 {
		return nil, nil
	}
	results := make([]*Blob[T], len(keys))
	var missKeys []string
	var missIdx []int

	for i, key := range keys {
		hash := HashKey(key)
		if blob, ok := c.probeMemory(hash, key); ok {
			results[i] = blob
			c.metrics.RecordHit("memory", c.kind)
			continue
		}
		missKeys = append(missKeys, key)
		missIdx = append(missIdx, i)
	}

	if len(missKeys) == 0 {
		c.metrics.RecordBatchOp("get_batch", c.kind)
		return results, nil
	}

	raws, err := c.remote.MGet(ctx, missKeys)
	if err != nil {
		c.metrics.RecordError("get_batch", c.kind)
		return nil, err
	}

	pending := make(map[KeyHash]string)
	for j, raw := range raws {
		if raw == nil {
			c.metrics.RecordMiss(c.kind)
			continue
		}
		blob, err := DecodeBlob[T](raw)
		if err != nil {
			c.metrics.RecordError("get_batch", c.kind)
			continue
		}
		idx := missIdx[j]
		key := missKeys[j]
		hash := HashKey(key)
		results[idx] = blob
		c.mem.Insert(hash, blob)
		pending[hash] = key
		c.metrics.RecordHit("remote", c.kind)
	}
	c.mapping.putBatch(pending)
	c.metrics.RecordBatchOp("get_batch", c.kind)
	return results, nil
}

// GetBatchBuffered is GetBatch using a caller-owned Buffer to avoid
// per-call allocation of the keys/indices scratch sequences.
func (c *MultiCache[T]) GetBatchBuffered(ctx context.Context, keys []string, buf *Buffer) ([]*Blob[T], error) {
	buf.Reset()
	if len(keys) == 0 {
		return nil, nil
	}
	results := make([]*Blob[T], len(keys))
	for i, key := range keys {
		hash := HashKey(key)
		if blob, ok := c.probeMemory(hash, key); ok {
			results[i] = blob
			c.metrics.RecordHit("memory", c.kind)
			continue
		}
		buf.add(i, key)
	}
	if len(buf.Keys) == 0 {
		return results, nil
	}
	raws, err := c.remote.MGet(ctx, buf.Keys)
	if err != nil {
		c.metrics.RecordError("get_batch_buffered", c.kind)
		return nil, err
	}
	pending := make(map[KeyHash]string)
	for j, raw := range raws {
		if raw == nil {
			c.metrics.RecordMiss(c.kind)
			continue
		}
		blob, err := DecodeBlob[T](raw)
		if err != nil {
			continue
		}
		idx := buf.Indices[j]
		key := buf.Keys[j]
		hash := HashKey(key)
		results[idx] = blob
		c.mem.Insert(hash, blob)
		pending[hash] = key
		c.metrics.RecordHit("remote", c.kind)
	}
	c.mapping.putBatch(pending)
	return results, nil
}

// KeyedBlob pairs a canonical key with its blob for batch set calls.
type KeyedBlob[T any] struct {
	Key  string
	Blob *Blob[T]
}

// SetBatch writes the in-process tier first across all items without
// holding the mapping lock, performs one exclusive mapping update, then
// calls remote MSet. A remote failure is reported but the
// in-process/mapping state is NOT rolled back; sets typically precede
// a first-ever read, and a later eviction reverts to the remote path.
func (c *MultiCache[T]) SetBatch(ctx context.Context, pairs []KeyedBlob[T]) error {
	return c.setBatch(ctx, pairs, false)
}

// SetBatchOptimized is SetBatch for already-shared blobs; the ordering
// is identical.
func (c *MultiCache[T]) SetBatchOptimized(ctx context.Context, pairs []KeyedBlob[T]) error {
	return c.setBatch(ctx, pairs, false)
}

// SetBatchPipeline is identical in ordering to SetBatch but uses the
// remote tier's pipelined variant for one network round-trip.
func (c *MultiCache[T]) SetBatchPipeline(ctx context.Context, pairs []KeyedBlob[T]) error {
	return c.setBatch(ctx, pairs, true)
}

func (c *MultiCache[T]) setBatch(ctx context.Context, pairs []KeyedBlob[T], pipeline bool) error {
	start := time.Now()
	op := "set_batch"
	if pipeline {
		op = "set_batch_pipeline"
	}
	defer func() { c.metrics.RecordBatchLatency(op, c.kind, time.Since(start)) }()

	if len(pairs) == 0 {
		return nil
	}

	encoded := make(map[string][]byte, len(pairs))
	pending := make(map[KeyHash]string, len(pairs))
	for _, p := range pairs {
		raw, err := EncodeBlob(p.Blob)
		if err != nil {
			c.metrics.RecordError(op, c.kind)
			return err
		}
		encoded[p.Key] = raw
		hash := HashKey(p.Key)
		c.mem.Insert(hash, p.Blob)
		pending[hash] = p.Key
	}
	c.mapping.putBatch(pending)

	var err error
	if pipeline {
		err = c.remote.PipelineMSet(ctx, encoded, c.ttl)
		c.metrics.RecordPipelineSet(c.kind)
	} else {
		err = c.remote.MSet(ctx, encoded, c.ttl)
		c.metrics.RecordBatchOp(op, c.kind)
	}
	if err != nil {
		c.metrics.RecordError(op, c.kind)
		return err
	}
	return nil
}

// WarmCache triggers a batch get and discards the results; a
// convenience for pre-populating the in-process tier.
func (c *MultiCache[T]) WarmCache(ctx context.Context, keys []string) error {
	_, err := c.GetBatch(ctx, keys)
	return err
}

// Delete removes a key from both tiers; returns true iff at least one
// tier removed a live entry.
func (c *MultiCache[T]) Delete(ctx context.Context, key string) (bool, error) {
	hash := HashKey(key)
	memRemoved := c.mem.Remove(hash)
	c.mapping.remove(hash)
	remoteRemoved, err := c.remote.Delete(ctx, key)
	if err != nil {
		c.metrics.RecordError("delete", c.kind)
		return memRemoved, err
	}
	removed := memRemoved || remoteRemoved
	if removed {
		c.metrics.RecordDelete("removed")
	} else {
		c.metrics.RecordDelete("absent")
	}
	return removed, nil
}

// ClearKind drops all entries of this kind from the in-process tier,
// counting the removed entries against the clear counter.
func (c *MultiCache[T]) ClearKind() int {
	n := c.mem.Clear()
	c.metrics.RecordClear(c.kind, n)
	return n
}

// Stats returns a synchronous, non-blocking snapshot.
func (c *MultiCache[T]) Stats() MultiCacheStats {
	return MultiCacheStats{
		Kind:        c.kind,
		MemoryLen:   c.mem.Len(),
		MemoryCap:   c.mem.Capacity(),
		MappingSize: c.mapping.len(),
	}
}
