package validation

import (
	"testing"

	"github.com/allenneverland/backtest-server-sub001/internal/marketdata"
	"github.com/shopspring/decimal"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func TestOHLCVValidatorRejectsHighBelowOpen(t *testing.T) {
	v := NewOHLCVValidator(DefaultConfig())
	rec := marketdata.OHLCVRecord{
		Timestamp: 1704067200000,
		Open:      d(10), High: d(9), Low: d(8), Close: d(9.5), Volume: d(100),
	}
	errs := v.ValidateRecord(rec)
	if len(errs) != 1 {
		t.Fatalf("expected exactly one error, got %d: %v", len(errs), errs)
	}
	if errs[0].Kind != KindInconsistentValue {
		t.Fatalf("expected InconsistentValue, got %s", errs[0].Kind)
	}
}

func TestOHLCVValidatorAcceptsConsistentBar(t *testing.T) {
	v := NewOHLCVValidator(DefaultConfig())
	rec := marketdata.OHLCVRecord{
		Timestamp: 1704067200000,
		Open:      d(10), High: d(12), Low: d(9), Close: d(11), Volume: d(100),
	}
	if errs := v.ValidateRecord(rec); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestOHLCVValidatorOutOfRangePrice(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Params["max_price"] = 100.0
	v := NewOHLCVValidator(cfg)
	rec := marketdata.OHLCVRecord{
		Timestamp: 1, Open: d(10), High: d(200), Low: d(9), Close: d(11), Volume: d(1),
	}
	errs := v.ValidateRecord(rec)
	found := false
	for _, e := range errs {
		if e.Kind == KindOutOfRange {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an OutOfRange error, got %v", errs)
	}
}

func TestOHLCVValidatorNegativeVolumeIsInvalidValue(t *testing.T) {
	v := NewOHLCVValidator(DefaultConfig())
	rec := marketdata.OHLCVRecord{
		Timestamp: 1, Open: d(10), High: d(12), Low: d(9), Close: d(11), Volume: d(-5),
	}
	errs := v.ValidateRecord(rec)
	if len(errs) != 1 || errs[0].Kind != KindInvalidValue {
		t.Fatalf("expected a single InvalidValue error, got %v", errs)
	}
}
