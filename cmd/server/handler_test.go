package main

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allenneverland/backtest-server-sub001/internal/cache"
	"github.com/allenneverland/backtest-server-sub001/internal/marketdata"
	"github.com/allenneverland/backtest-server-sub001/internal/validation"
)

// inMemoryRemoteStore is a minimal cache.RemoteStore used only by this
// package's tests.
type inMemoryRemoteStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newInMemoryRemoteStore() *inMemoryRemoteStore {
	return &inMemoryRemoteStore{data: make(map[string][]byte)}
}

func (s *inMemoryRemoteStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, cache.NewError("get", key, cache.ErrCacheMiss, errNotFound)
	}
	return v, nil
}

func (s *inMemoryRemoteStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *inMemoryRemoteStore) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	out := make([][]byte, len(keys))
	for i, k := range keys {
		v, err := s.Get(ctx, k)
		if err == nil {
			out[i] = v
		}
	}
	return out, nil
}

func (s *inMemoryRemoteStore) MSet(ctx context.Context, pairs map[string][]byte, ttl time.Duration) error {
	for k, v := range pairs {
		if err := s.Set(ctx, k, v, ttl); err != nil {
			return err
		}
	}
	return nil
}

func (s *inMemoryRemoteStore) PipelineMSet(ctx context.Context, pairs map[string][]byte, ttl time.Duration) error {
	return s.MSet(ctx, pairs, ttl)
}

func (s *inMemoryRemoteStore) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	delete(s.data, key)
	return ok, nil
}

type errString string

func (e errString) Error() string { return string(e) }

const errNotFound = errString("not found")

// noopDedupRepository treats every symbol as unresolved, so the dedup
// step never rejects.
type noopDedupRepository struct{}

func (noopDedupRepository) ResolveInstrumentID(context.Context, string) (int32, bool, error) {
	return 0, false, nil
}

func (noopDedupRepository) ExistingTimestamps(context.Context, string, int32, int64, int64) (map[int64]bool, error) {
	return nil, nil
}

func newTestHandler() func([]byte) ([]byte, error) {
	metrics := cache.NewMetrics(nil)
	remote := newInMemoryRemoteStore()
	ohlcvCache := cache.NewOHLCVCache(16, remote, time.Hour, metrics)
	tickCache := cache.NewTickCache(16, remote, time.Hour, metrics)

	valCfg := validation.DefaultConfig()
	ohlcvValidator := validation.NewTimeSeriesValidator[marketdata.OHLCVRecord](noopDedupRepository{}).
		WithItemValidator(validation.NewOHLCVValidator(valCfg))
	tickValidator := validation.NewTimeSeriesValidator[marketdata.TickRecord](noopDedupRepository{}).
		WithItemValidator(validation.NewTickValidator(valCfg))

	logger := logrus.New()
	logger.SetOutput(noopWriter{})
	return newCacheRequestHandler(ohlcvCache, tickCache, ohlcvValidator, tickValidator, logger)
}

type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestHandlerPutThenGetRoundTrips(t *testing.T) {
	handler := newTestHandler()

	putReq := cacheRequest{
		Op: "put", Kind: "ohlcv", InstrumentID: 1, Frequency: "1m",
		Start: 1000, End: 2000,
		OHLCV: []marketdata.OHLCVRecord{
			{Timestamp: 1000, Open: decimal.NewFromInt(10), High: decimal.NewFromInt(11), Low: decimal.NewFromInt(9), Close: decimal.NewFromInt(10), Volume: decimal.NewFromInt(100)},
		},
	}
	body, err := json.Marshal(putReq)
	require.NoError(t, err)

	respBody, err := handler(body)
	require.NoError(t, err)
	var putResp cacheResponse
	require.NoError(t, json.Unmarshal(respBody, &putResp))
	assert.True(t, putResp.OK)

	getReq := cacheRequest{Op: "get", Kind: "ohlcv", InstrumentID: 1, Frequency: "1m", Start: 1000, End: 2000}
	body, err = json.Marshal(getReq)
	require.NoError(t, err)

	respBody, err = handler(body)
	require.NoError(t, err)
	var getResp cacheResponse
	require.NoError(t, json.Unmarshal(respBody, &getResp))
	assert.True(t, getResp.OK)
	require.Len(t, getResp.OHLCV, 1)
	assert.True(t, getResp.OHLCV[0].Close.Equal(decimal.NewFromInt(10)))
}

func TestHandlerGetMissReturnsCacheMissError(t *testing.T) {
	handler := newTestHandler()

	req := cacheRequest{Op: "get", Kind: "tick", InstrumentID: 99, Frequency: "1m", Start: 1, End: 2}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	respBody, err := handler(body)
	require.NoError(t, err)
	var resp cacheResponse
	require.NoError(t, json.Unmarshal(respBody, &resp))
	assert.False(t, resp.OK)
	assert.Equal(t, "cache_miss", resp.Error)
}

func TestHandlerUnknownFrequencyIsRejected(t *testing.T) {
	handler := newTestHandler()

	req := cacheRequest{Op: "get", Kind: "ohlcv", InstrumentID: 1, Frequency: "bogus", Start: 1, End: 2}
	body, err := json.Marshal(req)
	require.NoError(t, err)

	respBody, err := handler(body)
	require.NoError(t, err)
	var resp cacheResponse
	require.NoError(t, json.Unmarshal(respBody, &resp))
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "unknown frequency")
}

func TestHandlerMalformedPayloadIsRejected(t *testing.T) {
	handler := newTestHandler()

	respBody, err := handler([]byte("not json"))
	require.NoError(t, err)
	var resp cacheResponse
	require.NoError(t, json.Unmarshal(respBody, &resp))
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "malformed request")
}
