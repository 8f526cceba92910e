package validation

import (
	"testing"

	"github.com/allenneverland/backtest-server-sub001/internal/marketdata"
)

func TestChainCollectsErrorsUnderTag(t *testing.T) {
	chain := NewChain[marketdata.OHLCVRecord]()
	chain.Add(string(TagOHLCV), NewOHLCVValidator(DefaultConfig()))

	records := []marketdata.OHLCVRecord{bar(1), {Timestamp: 2, Open: d(10), High: d(9), Low: d(8), Close: d(9), Volume: d(1)}}
	result := chain.Run(records)

	if result.OK {
		t.Fatalf("expected chain to fail on an inconsistent bar")
	}
	if _, ok := result.TagErrors[string(TagOHLCV)]; !ok {
		t.Fatalf("expected errors collected under the OHLCV tag")
	}
}

func TestChainSkipsDisabledValidator(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	chain := NewChain[marketdata.OHLCVRecord]()
	chain.Add(string(TagOHLCV), NewOHLCVValidator(cfg))

	records := []marketdata.OHLCVRecord{{Timestamp: 1, Open: d(10), High: d(9), Low: d(8), Close: d(9), Volume: d(1)}}
	result := chain.Run(records)

	if !result.OK {
		t.Fatalf("expected disabled validator to be skipped")
	}
}

func TestChainFailOnErrorStopsEarly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FailOnError = true
	chain := NewChain[marketdata.OHLCVRecord]()
	chain.Add(string(TagOHLCV), NewOHLCVValidator(cfg))
	chain.Add(string(CustomTag("extra")), &alwaysFailValidator{cfg: DefaultConfig()})

	records := []marketdata.OHLCVRecord{{Timestamp: 1, Open: d(10), High: d(9), Low: d(8), Close: d(9), Volume: d(1)}}
	result := chain.Run(records)

	if len(result.TagOrder) != 1 {
		t.Fatalf("expected chain to stop after the first failing validator, ran %d", len(result.TagOrder))
	}
}

func TestValidateBatchLoopStopsAtMaxErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxErrors = 2
	v := &alwaysFailValidator{cfg: cfg}

	records := make([]marketdata.OHLCVRecord, 10)
	errs := v.ValidateBatch(records)
	if len(errs) != 2 {
		t.Fatalf("expected collection to stop at max_errors=2, got %d", len(errs))
	}
}

func TestRegistryBuildsRegisteredFactory(t *testing.T) {
	reg := NewRegistry[marketdata.OHLCVRecord]()
	reg.Register(TagOHLCV, func(cfg Config) Validator[marketdata.OHLCVRecord] {
		return NewOHLCVValidator(cfg)
	})

	v, ok := reg.Build(TagOHLCV, DefaultConfig())
	if !ok || v.Name() != "ohlcv" {
		t.Fatalf("expected registry to build the registered validator, ok=%v", ok)
	}
	if _, ok := reg.Build(CustomTag("missing"), DefaultConfig()); ok {
		t.Fatalf("expected unregistered tag to report absence")
	}
}

func TestRegistryIsAppendOnly(t *testing.T) {
	reg := NewRegistry[marketdata.OHLCVRecord]()
	factory := func(cfg Config) Validator[marketdata.OHLCVRecord] { return NewOHLCVValidator(cfg) }
	reg.Register(TagOHLCV, factory)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected duplicate registration to panic")
		}
	}()
	reg.Register(TagOHLCV, factory)
}

type alwaysFailValidator struct{ cfg Config }

func (a *alwaysFailValidator) Name() string   { return "always-fail" }
func (a *alwaysFailValidator) Config() Config { return a.cfg }
func (a *alwaysFailValidator) ValidateRecord(rec marketdata.OHLCVRecord) Errors {
	return Errors{NewError(KindCustomRuleFailed, "", "always fails")}
}
func (a *alwaysFailValidator) ValidateBatch(records []marketdata.OHLCVRecord) Errors {
	return ValidateBatchLoop[marketdata.OHLCVRecord](a, records)
}
