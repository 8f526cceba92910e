// Package cache implements the multi-level market-data cache:
// fingerprint/key derivation, the in-process LRU tier, the remote
// key-value tier, and the coordinating multi-level cache over both.
package cache

import (
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// KeyHash is the 64-bit non-cryptographic hash used to key the
// in-process tier. Collisions are tolerated because the multi-level
// cache keeps a hash->canonical-key mapping table to verify hits.
type KeyHash uint64

var keyBuilderPool = sync.Pool{
	New: func() any { return &strings.Builder{} },
}

// BuildKey produces the canonical ASCII cache key
// "market_data:{instrument_id}:{frequency}:{start}:{end}". The key
// format is wire-visible: external producers pre-populating the remote
// tier construct the same string. A pooled builder keeps per-call
// allocation bounded.
func BuildKey(instrumentID int32, freqTag string, startTS, endTS int64) string {
	b := keyBuilderPool.Get().(*strings.Builder)
	b.Reset()
	defer keyBuilderPool.Put(b)

	b.WriteString("market_data:")
	b.WriteString(strconv.FormatInt(int64(instrumentID), 10))
	b.WriteByte(':')
	b.WriteString(freqTag)
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(startTS, 10))
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(endTS, 10))
	return b.String()
}

// HashKey computes a stable, pure 64-bit hash of a canonical key.
func HashKey(key string) KeyHash {
	return KeyHash(xxhash.Sum64String(key))
}
