package validation

import (
	"testing"

	"github.com/allenneverland/backtest-server-sub001/internal/marketdata"
	"github.com/shopspring/decimal"
)

func TestTickValidatorBidAskOrdering(t *testing.T) {
	v := NewTickValidator(DefaultConfig())
	bid, ask := d(99), d(101)
	rec := tickRecordWithBidAsk(100, bid, ask)
	if errs := v.ValidateRecord(rec); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestTickValidatorRejectsBidNotLessThanAsk(t *testing.T) {
	v := NewTickValidator(DefaultConfig())
	bid, ask := d(101), d(99)
	rec := tickRecordWithBidAsk(100, bid, ask)
	errs := v.ValidateRecord(rec)
	if len(errs) == 0 {
		t.Fatalf("expected an error for bid >= ask")
	}
	if errs[0].Kind != KindInconsistentValue {
		t.Fatalf("expected InconsistentValue, got %s", errs[0].Kind)
	}
}

func TestTickValidatorReasonablePriceChangeRule(t *testing.T) {
	v := NewTickValidator(DefaultConfig())
	// mid of 99/101 is 100; a price of 120 deviates 20% from mid.
	bid, ask := d(99), d(101)
	rec := tickRecordWithBidAsk(120, bid, ask)
	errs := v.ValidateRecord(rec)
	found := false
	for _, e := range errs {
		if e.Kind == KindCustomRuleFailed && e.Field == "reasonable_price_change" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the reasonable_price_change rule to fail, got %v", errs)
	}

	// within 10% of mid the rule passes.
	rec = tickRecordWithBidAsk(100.5, bid, ask)
	for _, e := range v.ValidateRecord(rec) {
		if e.Kind == KindCustomRuleFailed {
			t.Fatalf("expected no rule failure near mid, got %v", e)
		}
	}
}

func TestTickValidatorVolumePriceConsistencyRule(t *testing.T) {
	v := NewTickValidator(DefaultConfig())
	rec := marketdata.TickRecord{
		Timestamp: 1704067200000,
		Price:     decimal.Zero,
		Volume:    decimal.NewFromInt(10),
	}
	errs := v.ValidateRecord(rec)
	found := false
	for _, e := range errs {
		if e.Kind == KindCustomRuleFailed && e.Field == "volume_price_consistency" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the volume_price_consistency rule to fail, got %v", errs)
	}
}

func TestTickValidatorCarriesNamedRules(t *testing.T) {
	v := NewTickValidator(DefaultConfig())
	names := v.RuleNames()
	if len(names) != 2 || names[0] != "reasonable_price_change" || names[1] != "volume_price_consistency" {
		t.Fatalf("unexpected rule set: %v", names)
	}
}

func TestTickValidatorRejectsNonPositivePrice(t *testing.T) {
	v := NewTickValidator(DefaultConfig())
	rec := tickRecordWithBidAsk(0, d(0), d(0))
	errs := v.ValidateRecord(rec)
	found := false
	for _, e := range errs {
		if e.Kind == KindInvalidValue && e.Field == "price" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an InvalidValue error for price, got %v", errs)
	}
}
