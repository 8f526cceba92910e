package marketdata

import (
	"testing"

	"github.com/shopspring/decimal"
)

func tickAt(ts int64) TickRecord {
	return TickRecord{Timestamp: ts, Price: decimal.NewFromInt(10), Volume: decimal.NewFromInt(1)}
}

func TestFilterByRangeIncludesBothEndpoints(t *testing.T) {
	records := []TickRecord{tickAt(999), tickAt(1000), tickAt(1500), tickAt(2000), tickAt(2001)}
	got := FilterByRange(records, 1000, 2000)
	if len(got) != 3 {
		t.Fatalf("expected 3 records in [1000, 2000], got %d", len(got))
	}
	if got[0].TS() != 1000 || got[2].TS() != 2000 {
		t.Fatalf("expected both endpoint records included, got %v..%v", got[0].TS(), got[len(got)-1].TS())
	}
}

func TestTimeRangeIntersects(t *testing.T) {
	a := TimeRange{Start: 0, End: 60_000}
	b := TimeRange{Start: 30, End: 60_030}
	if !a.Intersects(b) {
		t.Fatalf("expected overlapping ranges to intersect")
	}
	c := TimeRange{Start: 60_000, End: 120_000}
	if a.Intersects(c) {
		t.Fatalf("half-open ranges sharing only a boundary must not intersect")
	}
}

func TestTimeRangeOverlapWindow(t *testing.T) {
	a := TimeRange{Start: 1704067200000, End: 1704067260000}
	b := TimeRange{Start: 1704067200030, End: 1704067260030}
	w := a.OverlapWindow(b)
	if w.End-w.Start != 59_970 {
		t.Fatalf("expected overlap window length 59970ms, got %d", w.End-w.Start)
	}
}

func TestTickTimeRangeIsEmpty(t *testing.T) {
	r := tickAt(1000).TimeRangeFor(FreqTick)
	if r.Intersects(r) {
		t.Fatalf("a zero-width range must not even intersect itself")
	}
}

func TestParseFrequencyClosedVocabulary(t *testing.T) {
	for _, tag := range []string{"tick", "1s", "1m", "5m", "15m", "1h", "1d", "1w", "1mo"} {
		if _, err := ParseFrequency(tag); err != nil {
			t.Fatalf("expected %q to parse, got %v", tag, err)
		}
	}
	if _, err := ParseFrequency("2m"); err == nil {
		t.Fatalf("expected an unknown tag to be rejected")
	}
}

func TestFrequencyIntervals(t *testing.T) {
	if Freq1m.Milliseconds() != 60_000 {
		t.Fatalf("1m interval = %d, want 60000", Freq1m.Milliseconds())
	}
	if Freq1m.Seconds() != 60 {
		t.Fatalf("1m seconds = %d, want 60", Freq1m.Seconds())
	}
	// unknown tags fall back to one minute for interval derivation.
	if FrequencyTag("bogus").Milliseconds() != 60_000 {
		t.Fatalf("unknown tag must default to a one-minute interval")
	}
	if FreqTick.IsOHLCV() {
		t.Fatalf("tick is not an OHLCV frequency")
	}
	if !Freq1d.IsOHLCV() {
		t.Fatalf("1d is an OHLCV frequency")
	}
}
