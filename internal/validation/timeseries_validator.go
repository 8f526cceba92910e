package validation

import (
	"context"
	"fmt"

	"github.com/allenneverland/backtest-server-sub001/internal/marketdata"
)

// DedupRepository resolves a series' instrument identity and queries
// the primary store for existing timestamps, backing
// TimeSeriesValidator's database-dedup step.
type DedupRepository interface {
	// ResolveInstrumentID looks up an instrument id by symbol. Absence is
	// reported via found=false and is treated as "not a duplicate": a
	// symbol not yet provisioned in the instrument table cannot collide.
	ResolveInstrumentID(ctx context.Context, symbol string) (instrumentID int32, found bool, err error)
	// ExistingTimestamps returns the set of timestamps already present in
	// table for instrumentID within [start, end].
	ExistingTimestamps(ctx context.Context, table string, instrumentID int32, start, end int64) (map[int64]bool, error)
}

// SeriesMeta identifies the instrument/frequency/persistence-table
// context a time series belongs to, needed by the dedup step and by
// frequency-interval derivation for overlap checking.
type SeriesMeta struct {
	InstrumentID int32
	Symbol       string
	Frequency    marketdata.FrequencyTag
	Table        string // "minute_bar" or "tick"
}

// TimeSeriesValidator checks ordering, persistence-layer duplicates,
// gaps, and adjacent-range overlap over a series of records exposing
// HasTimestamp.
type TimeSeriesValidator[T marketdata.HasTimestamp] struct {
	itemValidator              Validator[T]
	validateChronologicalOrder bool
	allowDuplicateTimestamps   bool
	minDataPoints              *int
	checkDatabaseDuplicates    bool
	maxGapMillis               int64
	dedup                      DedupRepository
}

// NewTimeSeriesValidator builds a validator with chronological-order
// checking enabled and DB dedup disabled by default.
func NewTimeSeriesValidator[T marketdata.HasTimestamp](dedup DedupRepository) *TimeSeriesValidator[T] {
	return &TimeSeriesValidator[T]{
		validateChronologicalOrder: true,
		dedup:                      dedup,
	}
}

func (v *TimeSeriesValidator[T]) WithItemValidator(iv Validator[T]) *TimeSeriesValidator[T] {
	v.itemValidator = iv
	return v
}

func (v *TimeSeriesValidator[T]) WithMinDataPoints(n int) *TimeSeriesValidator[T] {
	v.minDataPoints = &n
	return v
}

func (v *TimeSeriesValidator[T]) WithDatabaseDedup(enabled bool) *TimeSeriesValidator[T] {
	v.checkDatabaseDuplicates = enabled
	return v
}

func (v *TimeSeriesValidator[T]) WithAllowDuplicateTimestamps(allowed bool) *TimeSeriesValidator[T] {
	v.allowDuplicateTimestamps = allowed
	return v
}

func (v *TimeSeriesValidator[T]) WithMaxGap(maxGapMillis int64) *TimeSeriesValidator[T] {
	v.maxGapMillis = maxGapMillis
	return v
}

// Validate runs, in order: minimum-length check, database dedup,
// per-record filter, ordering check, gap check, overlap check. It
// returns the filtered, order-checked series on success. Ordering,
// overlap, and duplicate failures are fatal for the series (nil
// records, non-empty Errors); per-record failures only drop the
// offending record.
func (v *TimeSeriesValidator[T]) Validate(ctx context.Context, meta SeriesMeta, records []T) ([]T, Errors, error) {
	if v.minDataPoints != nil && len(records) < *v.minDataPoints {
		return nil, Errors{NewError(KindMissingData, "",
			fmt.Sprintf("series has %d records, minimum is %d", len(records), *v.minDataPoints))}, nil
	}
	if len(records) == 0 {
		return records, nil, nil
	}

	if v.checkDatabaseDuplicates && v.dedup != nil {
		dupErrs, err := v.checkDuplicates(ctx, meta, records)
		if err != nil {
			return nil, nil, NewError(KindSystemError, "", "persistence-layer dedup query failed").WithCause(err)
		}
		if len(dupErrs) > 0 {
			return nil, dupErrs, nil
		}
	}

	filtered := records
	if v.itemValidator != nil {
		filtered = v.filterValid(records)
	}
	if len(filtered) == 0 {
		return filtered, nil, nil
	}

	if v.validateChronologicalOrder {
		if errs := v.checkOrder(filtered); len(errs) > 0 {
			return nil, errs, nil
		}
	}

	if v.maxGapMillis > 0 && len(filtered) > 1 {
		if errs := v.checkGaps(filtered); len(errs) > 0 {
			return nil, errs, nil
		}
	}

	if len(filtered) > 1 {
		if errs := v.checkOverlap(filtered, meta.Frequency); len(errs) > 0 {
			return nil, errs, nil
		}
	}

	return filtered, nil, nil
}

func (v *TimeSeriesValidator[T]) checkDuplicates(ctx context.Context, meta SeriesMeta, records []T) (Errors, error) {
	instrumentID := meta.InstrumentID
	if instrumentID == 0 && meta.Symbol != "" {
		id, found, err := v.dedup.ResolveInstrumentID(ctx, meta.Symbol)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, nil
		}
		instrumentID = id
	}
	if instrumentID == 0 {
		return nil, nil
	}

	start := records[0].TS()
	end := records[len(records)-1].TS()
	existing, err := v.dedup.ExistingTimestamps(ctx, meta.Table, instrumentID, start, end)
	if err != nil {
		return nil, err
	}

	var errs Errors
	for _, r := range records {
		ts := r.TS()
		if existing[ts] {
			errs = append(errs, NewError(KindDuplicateEntry, "timestamp",
				fmt.Sprintf("timestamp %d already present in %s", ts, meta.Table)).WithTimestamp(ts))
		}
	}
	return errs, nil
}

func (v *TimeSeriesValidator[T]) filterValid(records []T) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if len(v.itemValidator.ValidateRecord(r)) == 0 {
			out = append(out, r)
		}
	}
	return out
}

func (v *TimeSeriesValidator[T]) checkOrder(records []T) Errors {
	var errs Errors
	for i := 1; i < len(records); i++ {
		prev, cur := records[i-1].TS(), records[i].TS()
		if cur < prev {
			errs = append(errs, NewError(KindOutOfOrder, "timestamp",
				fmt.Sprintf("record %d timestamp %d precedes record %d timestamp %d", i, cur, i-1, prev)))
		} else if cur == prev && !v.allowDuplicateTimestamps {
			errs = append(errs, NewError(KindOutOfOrder, "timestamp",
				fmt.Sprintf("record %d and %d share timestamp %d", i-1, i, cur)))
		}
	}
	return errs
}

// checkGaps flags adjacent records spaced further apart than
// maxGapMillis. A gap exactly equal to the bound passes.
func (v *TimeSeriesValidator[T]) checkGaps(records []T) Errors {
	var errs Errors
	for i := 1; i < len(records); i++ {
		gap := records[i].TS() - records[i-1].TS()
		if gap > v.maxGapMillis {
			errs = append(errs, NewError(KindLargeGap, "timestamp",
				fmt.Sprintf("gap of %dms between record %d and %d exceeds max %dms", gap, i-1, i, v.maxGapMillis)))
		}
	}
	return errs
}

// checkOverlap compares each adjacent pair's derived time range,
// classifying the overlap geometry (equal starts, A-covers-B-start,
// B-covers-A-start, full containment) so the diagnostic message names
// which case triggered the failure.
func (v *TimeSeriesValidator[T]) checkOverlap(records []T, freq marketdata.FrequencyTag) Errors {
	var errs Errors
	for i := 0; i < len(records)-1; i++ {
		a := records[i].TimeRangeFor(freq)
		b := records[i+1].TimeRangeFor(freq)
		if !a.Intersects(b) {
			continue
		}
		window := a.OverlapWindow(b)
		geometry := classifyOverlap(a, b)
		errs = append(errs, NewError(KindTimeSeriesOverlap, "",
			fmt.Sprintf("records %d (ts %d) and %d (ts %d) overlap (%s): window [%d, %d) length %dms",
				i, records[i].TS(), i+1, records[i+1].TS(), geometry, window.Start, window.End, window.End-window.Start)).
			WithTimestamp(records[i+1].TS()))
	}
	return errs
}

func classifyOverlap(a, b marketdata.TimeRange) string {
	switch {
	case a.Start == b.Start:
		return "equal starts"
	case a.Start <= b.Start && a.End >= b.End:
		return "first fully contains second"
	case b.Start <= a.Start && b.End >= a.End:
		return "second fully contains first"
	case a.Start < b.Start:
		return "first covers second's start"
	default:
		return "second covers first's start"
	}
}
