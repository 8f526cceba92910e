package cache

import (
	"time"

	"github.com/allenneverland/backtest-server-sub001/internal/marketdata"
)

// TickCache is the thin per-kind facade for tick records, analogous to
// OHLCVCache.
type TickCache struct {
	*MultiCache[marketdata.TickRecord]
}

// NewTickCache builds the tick cache facade.
func NewTickCache(capacity int, remote RemoteStore, ttl time.Duration, metrics *Metrics) *TickCache {
	return &TickCache{MultiCache: NewMultiCache[marketdata.TickRecord]("tick", capacity, remote, ttl, metrics)}
}
