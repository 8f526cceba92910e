// Package validation implements the composable validator chain, the
// time-series validator, and the validation report.
package validation

// Config is a validator's tunable policy. Params carries
// validator-specific knobs: min_price, max_price, min_volume and
// max_volume for the OHLCV validator, and min_price, max_price and
// max_spread_percent for the tick validator. The time-series gap bound
// is not a param; it is set with TimeSeriesValidator.WithMaxGap.
type Config struct {
	Enabled     bool
	FailOnError bool
	MaxErrors   int
	Params      map[string]any
}

// DefaultConfig returns an enabled validator configuration with a
// generous error cap and no fail-fast behavior.
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		FailOnError: false,
		MaxErrors:   100,
		Params:      map[string]any{},
	}
}
