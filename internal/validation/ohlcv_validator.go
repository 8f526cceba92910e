package validation

import (
	"fmt"

	"github.com/allenneverland/backtest-server-sub001/internal/marketdata"
	"github.com/shopspring/decimal"
)

// OHLCVValidator enforces the per-record bar invariants: price
// consistency (high/low bound open/close), price range, and volume
// range.
type OHLCVValidator struct {
	cfg       Config
	minPrice  decimal.Decimal
	maxPrice  decimal.Decimal
	minVolume decimal.Decimal
	maxVolume decimal.Decimal
}

// NewOHLCVValidator builds a validator with default bounds
// (min_price=0, max_price=1_000_000, min_volume=0, max_volume=1e15),
// overridable via cfg.Params.
func NewOHLCVValidator(cfg Config) *OHLCVValidator {
	return &OHLCVValidator{
		cfg:       cfg,
		minPrice:  decimalParam(cfg, "min_price", decimal.Zero),
		maxPrice:  decimalParam(cfg, "max_price", decimal.NewFromInt(1_000_000)),
		minVolume: decimalParam(cfg, "min_volume", decimal.Zero),
		maxVolume: decimalParam(cfg, "max_volume", decimal.New(1, 15)),
	}
}

func decimalParam(cfg Config, key string, fallback decimal.Decimal) decimal.Decimal {
	if v, ok := cfg.Params[key]; ok {
		if d, ok := v.(decimal.Decimal); ok {
			return d
		}
		if f, ok := v.(float64); ok {
			return decimal.NewFromFloat(f)
		}
	}
	return fallback
}

func (v *OHLCVValidator) Name() string   { return "ohlcv" }
func (v *OHLCVValidator) Config() Config { return v.cfg }

// ValidateRecord runs price-consistency, price-range, and volume checks
// against a single bar, in that order.
func (v *OHLCVValidator) ValidateRecord(rec marketdata.OHLCVRecord) Errors {
	var errs Errors
	errs = append(errs, v.validatePriceConsistency(rec)...)
	errs = append(errs, v.validatePriceRange(rec)...)
	errs = append(errs, v.validateVolume(rec)...)
	return errs
}

func (v *OHLCVValidator) ValidateBatch(records []marketdata.OHLCVRecord) Errors {
	return ValidateBatchLoop[marketdata.OHLCVRecord](v, records)
}

// validatePriceConsistency checks low <= min(open, close) and
// max(open, close) <= high. Open and close are compared against
// high/low as a single bound each, not field-by-field, so a bar with
// both open and close on the wrong side of high (or low) is reported
// as one violation, not two.
func (v *OHLCVValidator) validatePriceConsistency(r marketdata.OHLCVRecord) Errors {
	var errs Errors
	if r.High.LessThan(r.Low) {
		errs = append(errs, NewError(KindInconsistentValue, "high",
			fmt.Sprintf("high %s is less than low %s", r.High, r.Low)))
	}

	maxOC, maxField := r.Open, "open"
	if r.Close.GreaterThan(maxOC) {
		maxOC, maxField = r.Close, "close"
	}
	if r.High.LessThan(maxOC) {
		errs = append(errs, NewError(KindInconsistentValue, "high",
			fmt.Sprintf("high %s is less than %s %s", r.High, maxField, maxOC)))
	}

	minOC, minField := r.Open, "open"
	if r.Close.LessThan(minOC) {
		minOC, minField = r.Close, "close"
	}
	if r.Low.GreaterThan(minOC) {
		errs = append(errs, NewError(KindInconsistentValue, "low",
			fmt.Sprintf("low %s is greater than %s %s", r.Low, minField, minOC)))
	}
	return errs
}

func (v *OHLCVValidator) validatePriceRange(r marketdata.OHLCVRecord) Errors {
	var errs Errors
	check := func(field string, price decimal.Decimal) {
		if price.LessThan(v.minPrice) || price.GreaterThan(v.maxPrice) {
			errs = append(errs, NewError(KindOutOfRange, field,
				fmt.Sprintf("%s %s out of range [%s, %s]", field, price, v.minPrice, v.maxPrice)))
		}
	}
	check("open", r.Open)
	check("high", r.High)
	check("low", r.Low)
	check("close", r.Close)
	return errs
}

func (v *OHLCVValidator) validateVolume(r marketdata.OHLCVRecord) Errors {
	var errs Errors
	if r.Volume.IsNegative() {
		errs = append(errs, NewError(KindInvalidValue, "volume",
			fmt.Sprintf("volume %s is negative", r.Volume)))
		return errs
	}
	if r.Volume.LessThan(v.minVolume) || r.Volume.GreaterThan(v.maxVolume) {
		errs = append(errs, NewError(KindOutOfRange, "volume",
			fmt.Sprintf("volume %s out of range [%s, %s]", r.Volume, v.minVolume, v.maxVolume)))
	}
	return errs
}
