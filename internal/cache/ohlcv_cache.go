package cache

import (
	"time"

	"github.com/allenneverland/backtest-server-sub001/internal/marketdata"
)

// OHLCVCache is the thin per-kind facade over the generic MultiCache:
// it only supplies the "ohlcv" metric label and TTL, delegating all
// behavior.
type OHLCVCache struct {
	*MultiCache[marketdata.OHLCVRecord]
}

// NewOHLCVCache builds the OHLCV cache facade.
func NewOHLCVCache(capacity int, remote RemoteStore, ttl time.Duration, metrics *Metrics) *OHLCVCache {
	return &OHLCVCache{MultiCache: NewMultiCache[marketdata.OHLCVRecord]("ohlcv", capacity, remote, ttl, metrics)}
}
