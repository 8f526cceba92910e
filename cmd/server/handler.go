package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/allenneverland/backtest-server-sub001/internal/cache"
	"github.com/allenneverland/backtest-server-sub001/internal/marketdata"
	"github.com/allenneverland/backtest-server-sub001/internal/validation"
)

// structValidator enforces request-shape constraints (required fields,
// enumerated op/kind) on the RPC envelope before it ever reaches the
// domain validator chain.
var structValidator = validator.New()

// cacheRequest is the envelope carried over the RPC contract: an
// operation name, the fingerprint fields a cache key is derived from,
// and, for a put, the records being admitted.
type cacheRequest struct {
	Op           string                   `json:"op" validate:"required,oneof=get put"`
	Kind         string                   `json:"kind" validate:"required,oneof=ohlcv tick"`
	InstrumentID int32                    `json:"instrument_id"`
	Symbol       string                   `json:"symbol"`
	Frequency    string                   `json:"frequency" validate:"required"`
	Start        int64                    `json:"start"`
	End          int64                    `json:"end" validate:"gtefield=Start"`
	OHLCV        []marketdata.OHLCVRecord `json:"ohlcv,omitempty"`
	Ticks        []marketdata.TickRecord  `json:"ticks,omitempty"`
}

type cacheResponse struct {
	OK       bool                     `json:"ok"`
	Error    string                   `json:"error,omitempty"`
	OHLCV    []marketdata.OHLCVRecord `json:"ohlcv,omitempty"`
	Ticks    []marketdata.TickRecord  `json:"ticks,omitempty"`
	Rejected int                      `json:"rejected,omitempty"`
}

// newCacheRequestHandler builds the RPCHandler driving the cache: the
// thin seam between the AMQP transport and the cache and validation
// layers.
func newCacheRequestHandler(
	ohlcvCache *cache.OHLCVCache,
	tickCache *cache.TickCache,
	ohlcvValidator *validation.TimeSeriesValidator[marketdata.OHLCVRecord],
	tickValidator *validation.TimeSeriesValidator[marketdata.TickRecord],
	log *logrus.Logger,
) func(payload []byte) ([]byte, error) {
	return func(payload []byte) ([]byte, error) {
		var req cacheRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return encodeResponse(cacheResponse{OK: false, Error: fmt.Sprintf("malformed request: %v", err)})
		}
		if err := structValidator.Struct(&req); err != nil {
			return encodeResponse(cacheResponse{OK: false, Error: fmt.Sprintf("invalid request: %v", err)})
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		freq, err := marketdata.ParseFrequency(req.Frequency)
		if err != nil {
			return encodeResponse(cacheResponse{OK: false, Error: err.Error()})
		}
		key := cache.BuildKey(req.InstrumentID, string(freq), req.Start, req.End)

		switch req.Kind {
		case "ohlcv":
			return handleOHLCV(ctx, req, key, freq, ohlcvCache, ohlcvValidator, log)
		case "tick":
			return handleTick(ctx, req, key, freq, tickCache, tickValidator, log)
		default:
			return encodeResponse(cacheResponse{OK: false, Error: fmt.Sprintf("unknown kind %q", req.Kind)})
		}
	}
}

func handleOHLCV(
	ctx context.Context,
	req cacheRequest,
	key string,
	freq marketdata.FrequencyTag,
	c *cache.OHLCVCache,
	v *validation.TimeSeriesValidator[marketdata.OHLCVRecord],
	log *logrus.Logger,
) ([]byte, error) {
	switch req.Op {
	case "get":
		blob, err := c.Get(ctx, key)
		if err != nil {
			if cache.IsMiss(err) {
				return encodeResponse(cacheResponse{OK: false, Error: "cache_miss"})
			}
			log.WithError(err).Error("ohlcv cache get failed")
			return encodeResponse(cacheResponse{OK: false, Error: err.Error()})
		}
		return encodeResponse(cacheResponse{OK: true, OHLCV: blob.Records})
	case "put":
		meta := validation.SeriesMeta{InstrumentID: req.InstrumentID, Symbol: req.Symbol, Frequency: freq, Table: "minute_bar"}
		filtered, errs, err := v.Validate(ctx, meta, req.OHLCV)
		if err != nil {
			log.WithError(err).Error("ohlcv validation failed")
			return encodeResponse(cacheResponse{OK: false, Error: err.Error()})
		}
		if len(errs) > 0 {
			return encodeResponse(cacheResponse{OK: false, Error: joinErrors(errs), Rejected: len(req.OHLCV)})
		}
		if err := c.Set(ctx, key, filtered); err != nil {
			log.WithError(err).Error("ohlcv cache set failed")
			return encodeResponse(cacheResponse{OK: false, Error: err.Error()})
		}
		return encodeResponse(cacheResponse{OK: true, OHLCV: filtered})
	default:
		return encodeResponse(cacheResponse{OK: false, Error: fmt.Sprintf("unknown op %q", req.Op)})
	}
}

func handleTick(
	ctx context.Context,
	req cacheRequest,
	key string,
	freq marketdata.FrequencyTag,
	c *cache.TickCache,
	v *validation.TimeSeriesValidator[marketdata.TickRecord],
	log *logrus.Logger,
) ([]byte, error) {
	switch req.Op {
	case "get":
		blob, err := c.Get(ctx, key)
		if err != nil {
			if cache.IsMiss(err) {
				return encodeResponse(cacheResponse{OK: false, Error: "cache_miss"})
			}
			log.WithError(err).Error("tick cache get failed")
			return encodeResponse(cacheResponse{OK: false, Error: err.Error()})
		}
		return encodeResponse(cacheResponse{OK: true, Ticks: blob.Records})
	case "put":
		meta := validation.SeriesMeta{InstrumentID: req.InstrumentID, Symbol: req.Symbol, Frequency: freq, Table: "tick"}
		filtered, errs, err := v.Validate(ctx, meta, req.Ticks)
		if err != nil {
			log.WithError(err).Error("tick validation failed")
			return encodeResponse(cacheResponse{OK: false, Error: err.Error()})
		}
		if len(errs) > 0 {
			return encodeResponse(cacheResponse{OK: false, Error: joinErrors(errs), Rejected: len(req.Ticks)})
		}
		if err := c.Set(ctx, key, filtered); err != nil {
			log.WithError(err).Error("tick cache set failed")
			return encodeResponse(cacheResponse{OK: false, Error: err.Error()})
		}
		return encodeResponse(cacheResponse{OK: true, Ticks: filtered})
	default:
		return encodeResponse(cacheResponse{OK: false, Error: fmt.Sprintf("unknown op %q", req.Op)})
	}
}

func encodeResponse(resp cacheResponse) ([]byte, error) {
	return json.Marshal(resp)
}

func joinErrors(errs validation.Errors) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}
