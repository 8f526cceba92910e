// Package marketdata defines the domain record types cached and
// validated by this service: OHLCV bars and tick quotes.
package marketdata

import (
	"time"

	"github.com/shopspring/decimal"
)

// OHLCVRecord is a single open/high/low/close/volume bar.
type OHLCVRecord struct {
	Timestamp int64           `json:"timestamp"` // ms since epoch
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// TickRecord is a single trade/quote tick.
type TickRecord struct {
	Timestamp int64            `json:"timestamp"` // ms since epoch
	Price     decimal.Decimal  `json:"price"`
	Volume    decimal.Decimal  `json:"volume"`
	Bid       *decimal.Decimal `json:"bid,omitempty"`
	Ask       *decimal.Decimal `json:"ask,omitempty"`
	BidVolume *decimal.Decimal `json:"bid_volume,omitempty"`
	AskVolume *decimal.Decimal `json:"ask_volume,omitempty"`
}

// TimeRange is a half-open [Start, End) interval in epoch milliseconds.
type TimeRange struct {
	Start int64
	End   int64
}

// Intersects reports whether two half-open ranges overlap.
func (r TimeRange) Intersects(other TimeRange) bool {
	return r.Start < other.End && other.Start < r.End
}

// OverlapWindow returns the intersection of two overlapping ranges.
// Callers must check Intersects first.
func (r TimeRange) OverlapWindow(other TimeRange) TimeRange {
	start := r.Start
	if other.Start > start {
		start = other.Start
	}
	end := r.End
	if other.End < end {
		end = other.End
	}
	return TimeRange{Start: start, End: end}
}

// HasTimestamp is implemented by record kinds the time-series validator
// operates over.
type HasTimestamp interface {
	TS() int64
	TimeRangeFor(freq FrequencyTag) TimeRange
}

// TS implements HasTimestamp.
func (o OHLCVRecord) TS() int64 { return o.Timestamp }

// TimeRangeFor derives (timestamp, timestamp+interval) from the bar's
// frequency tag, defaulting to 1 minute when freq is unknown.
func (o OHLCVRecord) TimeRangeFor(freq FrequencyTag) TimeRange {
	interval := freq.Milliseconds()
	if interval <= 0 {
		interval = int64(time.Minute / time.Millisecond)
	}
	return TimeRange{Start: o.Timestamp, End: o.Timestamp + interval}
}

// TS implements HasTimestamp.
func (t TickRecord) TS() int64 { return t.Timestamp }

// FilterByRange returns the records whose timestamps fall within
// [start, end]. Both endpoints are inclusive.
func FilterByRange[T HasTimestamp](records []T, start, end int64) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if ts := r.TS(); ts >= start && ts <= end {
			out = append(out, r)
		}
	}
	return out
}

// TimeRangeFor gives ticks a zero-width interval so overlap checking is
// trivially satisfied for tick series: a half-open [t, t) range is
// empty and never intersects another range, even one from a record
// sharing the same timestamp.
func (t TickRecord) TimeRangeFor(_ FrequencyTag) TimeRange {
	return TimeRange{Start: t.Timestamp, End: t.Timestamp}
}
