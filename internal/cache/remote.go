package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RemoteStore is the remote key-value tier. Encoding is a
// self-describing JSON form; the only contract on the codec is that it
// round-trips.
type RemoteStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	MSet(ctx context.Context, pairs map[string][]byte, ttl time.Duration) error
	PipelineMSet(ctx context.Context, pairs map[string][]byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)
}

// RedisStore implements RemoteStore against a redis.Client. redis.Nil
// distinguishes a miss from a transport error.
type RedisStore struct {
	client  *redis.Client
	metrics *Metrics
	limiter *rate.Limiter
}

// NewRedisStore wraps an existing redis.Client with no rate limiter,
// leaving the remote tier unthrottled.
func NewRedisStore(client *redis.Client, metrics *Metrics) *RedisStore {
	return &RedisStore{client: client, metrics: metrics}
}

// NewRedisStoreWithLimit wraps client with a token-bucket limiter
// bounding single-key Get and Set calls; excess calls queue on the
// limiter rather than piling onto the connection pool. MGet, MSet,
// PipelineMSet and Delete do not wait on the limiter. opsPerSecond <= 0
// leaves the store unthrottled.
func NewRedisStoreWithLimit(client *redis.Client, metrics *Metrics, opsPerSecond int, burst int) *RedisStore {
	var limiter *rate.Limiter
	if opsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opsPerSecond), burst)
	}
	return &RedisStore{client: client, metrics: metrics, limiter: limiter}
}

func (r *RedisStore) recordOp(op string, start time.Time) {
	if r.metrics != nil {
		r.metrics.RecordLatency(op, time.Since(start))
	}
}

// wait blocks until the limiter admits one more outbound operation, or
// returns ctx's error if it expires first. A nil limiter never blocks.
func (r *RedisStore) wait(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}

// Get fetches a single value. A miss is reported as *Error with
// ErrCacheMiss, never as a bare nil, so callers can use IsMiss.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	defer r.recordOp("get", start)

	if err := r.wait(ctx); err != nil {
		return nil, NewError("get", key, ErrTimeout, err)
	}
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, NewError("get", key, ErrCacheMiss, err)
	}
	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordError("get", "")
		}
		return nil, NewError("get", key, ErrRemoteTransport, err)
	}
	return val, nil
}

// Set writes a single value with a non-zero TTL.
func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	defer r.recordOp("set", start)

	if err := r.wait(ctx); err != nil {
		return NewError("set", key, ErrTimeout, err)
	}
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		if r.metrics != nil {
			r.metrics.RecordError("set", "")
		}
		return NewError("set", key, ErrRemoteTransport, err)
	}
	return nil
}

// MGet fetches many keys in a single round-trip. Result order matches
// input order; a missing key yields a nil slice at that position
// rather than an error.
func (r *RedisStore) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	start := time.Now()
	defer r.recordOp("mget", start)

	if len(keys) == 0 {
		return nil, nil
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordError("mget", "")
		}
		return nil, NewError("mget", "", ErrRemoteTransport, err)
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		out[i] = []byte(s)
	}
	return out, nil
}

// MSet writes many pairs, each with its own per-key TTL expiry applied
// via a pipeline (redis MSET has no per-key TTL).
func (r *RedisStore) MSet(ctx context.Context, pairs map[string][]byte, ttl time.Duration) error {
	start := time.Now()
	defer r.recordOp("mset", start)

	if len(pairs) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	kv := make([]interface{}, 0, len(pairs)*2)
	for k, v := range pairs {
		kv = append(kv, k, v)
	}
	pipe.MSet(ctx, kv...)
	if ttl > 0 {
		for k := range pairs {
			pipe.Expire(ctx, k, ttl)
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		if r.metrics != nil {
			r.metrics.RecordError("mset", "")
		}
		return NewError("mset", "", ErrRemoteTransport, err)
	}
	return nil
}

// PipelineMSet is identical to MSet but is always issued as a single
// pipelined round-trip. go-redis's Pipeline already batches everything
// into one round-trip, so this is functionally the same call path as
// MSet; it exists as a distinct method so callers and metrics can
// distinguish the two logical operations.
func (r *RedisStore) PipelineMSet(ctx context.Context, pairs map[string][]byte, ttl time.Duration) error {
	start := time.Now()
	defer r.recordOp("pipeline_mset", start)

	if len(pairs) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for k, v := range pairs {
		pipe.Set(ctx, k, v, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		if r.metrics != nil {
			r.metrics.RecordError("pipeline_mset", "")
		}
		return NewError("pipeline_mset", "", ErrRemoteTransport, err)
	}
	return nil
}

// Delete removes a key; returns true iff a live entry was removed.
func (r *RedisStore) Delete(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	defer r.recordOp("delete", start)

	n, err := r.client.Del(ctx, key).Result()
	if err != nil {
		if r.metrics != nil {
			r.metrics.RecordError("delete", "")
		}
		return false, NewError("delete", key, ErrRemoteTransport, err)
	}
	return n > 0, nil
}

// EncodeBlob/DecodeBlob are the self-describing JSON codec used by
// every per-kind facade to round-trip a Blob through RemoteStore.
func EncodeBlob[T any](blob *Blob[T]) ([]byte, error) {
	b, err := json.Marshal(blob.Records)
	if err != nil {
		return nil, NewError("encode", "", ErrSerializationFailed, err)
	}
	return b, nil
}

func DecodeBlob[T any](data []byte) (*Blob[T], error) {
	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, NewError("decode", "", ErrSerializationFailed, err)
	}
	return NewBlob(records), nil
}
