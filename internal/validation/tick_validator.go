package validation

import (
	"fmt"

	"github.com/allenneverland/backtest-server-sub001/internal/marketdata"
	"github.com/shopspring/decimal"
)

// TickValidator enforces the per-record tick invariants: positive
// price, bid/ask ordering, price-within-spread, and the spread-percent
// bound, plus a set of named extension rules whose failures report the
// rule name.
type TickValidator struct {
	cfg          Config
	minPrice     decimal.Decimal
	maxPrice     decimal.Decimal
	maxSpreadPct decimal.Decimal
	rules        []tickRule
}

// tickRule is a named extension check carried by the validator so a
// failure reports which rule rejected the record.
type tickRule struct {
	name  string
	check func(rec marketdata.TickRecord) (ok bool, detail string)
}

func defaultTickRules() []tickRule {
	return []tickRule{
		{
			name: "reasonable_price_change",
			check: func(rec marketdata.TickRecord) (bool, string) {
				if rec.Bid == nil || rec.Ask == nil {
					return true, ""
				}
				mid := rec.Bid.Add(*rec.Ask).Div(decimal.NewFromInt(2))
				if !mid.IsPositive() {
					return true, ""
				}
				deviation := rec.Price.Sub(mid).Abs().Div(mid)
				if deviation.GreaterThan(decimal.NewFromFloat(0.10)) {
					return false, fmt.Sprintf("price %s deviates %s from mid %s", rec.Price, deviation, mid)
				}
				return true, ""
			},
		},
		{
			name: "volume_price_consistency",
			check: func(rec marketdata.TickRecord) (bool, string) {
				if rec.Volume.IsPositive() && !rec.Price.IsPositive() {
					return false, fmt.Sprintf("volume %s traded at non-positive price %s", rec.Volume, rec.Price)
				}
				return true, ""
			},
		},
	}
}

// NewTickValidator builds a tick validator; defaults mirror the OHLCV
// validator's price range and cap the spread at 5% absent an override.
func NewTickValidator(cfg Config) *TickValidator {
	return &TickValidator{
		cfg:          cfg,
		minPrice:     decimalParam(cfg, "min_price", decimal.Zero),
		maxPrice:     decimalParam(cfg, "max_price", decimal.NewFromInt(1_000_000)),
		maxSpreadPct: decimalParam(cfg, "max_spread_percent", decimal.NewFromFloat(0.05)),
		rules:        defaultTickRules(),
	}
}

// RuleNames lists the extension rules this validator carries, in
// evaluation order.
func (v *TickValidator) RuleNames() []string {
	names := make([]string, len(v.rules))
	for i, r := range v.rules {
		names[i] = r.name
	}
	return names
}

func (v *TickValidator) Name() string   { return "tick" }
func (v *TickValidator) Config() Config { return v.cfg }

func (v *TickValidator) ValidateRecord(rec marketdata.TickRecord) Errors {
	var errs Errors

	if !rec.Price.IsPositive() {
		errs = append(errs, NewError(KindInvalidValue, "price",
			fmt.Sprintf("price %s is not positive", rec.Price)))
	} else if rec.Price.LessThan(v.minPrice) || rec.Price.GreaterThan(v.maxPrice) {
		errs = append(errs, NewError(KindOutOfRange, "price",
			fmt.Sprintf("price %s out of range [%s, %s]", rec.Price, v.minPrice, v.maxPrice)))
	}

	if rec.Volume.IsNegative() {
		errs = append(errs, NewError(KindInvalidValue, "volume",
			fmt.Sprintf("volume %s is negative", rec.Volume)))
	}

	if rec.Bid != nil && rec.Ask != nil {
		bid, ask := *rec.Bid, *rec.Ask
		if !bid.LessThan(ask) {
			errs = append(errs, NewError(KindInconsistentValue, "bid",
				fmt.Sprintf("bid %s is not less than ask %s", bid, ask)))
		} else {
			if rec.Price.LessThan(bid) || rec.Price.GreaterThan(ask) {
				errs = append(errs, NewError(KindInconsistentValue, "price",
					fmt.Sprintf("price %s outside [bid %s, ask %s]", rec.Price, bid, ask)))
			}
			if bid.IsPositive() {
				spread := ask.Sub(bid).Div(bid)
				if spread.GreaterThan(v.maxSpreadPct) {
					errs = append(errs, NewError(KindOutOfRange, "spread",
						fmt.Sprintf("spread %s exceeds max %s", spread, v.maxSpreadPct)))
				}
			}
		}
	}

	if rec.BidVolume != nil && rec.BidVolume.IsNegative() {
		errs = append(errs, NewError(KindInvalidValue, "bid_volume", "bid_volume is negative"))
	}
	if rec.AskVolume != nil && rec.AskVolume.IsNegative() {
		errs = append(errs, NewError(KindInvalidValue, "ask_volume", "ask_volume is negative"))
	}

	for _, r := range v.rules {
		if ok, detail := r.check(rec); !ok {
			errs = append(errs, NewError(KindCustomRuleFailed, r.name, detail))
		}
	}

	return errs
}

func (v *TickValidator) ValidateBatch(records []marketdata.TickRecord) Errors {
	return ValidateBatchLoop[marketdata.TickRecord](v, records)
}
