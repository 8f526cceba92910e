package marketdata

import "fmt"

// FrequencyTag is a member of the closed frequency vocabulary used in
// range fingerprints and cache keys.
type FrequencyTag string

const (
	FreqTick FrequencyTag = "tick"
	Freq1s   FrequencyTag = "1s"
	Freq1m   FrequencyTag = "1m"
	Freq5m   FrequencyTag = "5m"
	Freq15m  FrequencyTag = "15m"
	Freq1h   FrequencyTag = "1h"
	Freq1d   FrequencyTag = "1d"
	Freq1w   FrequencyTag = "1w"
	Freq1mo  FrequencyTag = "1mo"
)

// frequencyMeta is one row of the frequency configuration table:
// seconds, milliseconds, alias suffix, display name, and whether the
// frequency produces OHLCV bars (false only for tick).
type frequencyMeta struct {
	seconds     int64
	millis      int64
	alias       string
	displayName string
	isOHLCV     bool
}

var frequencyTable = map[FrequencyTag]frequencyMeta{
	FreqTick: {seconds: 0, millis: 0, alias: "tick", displayName: "Tick", isOHLCV: false},
	Freq1s:   {seconds: 1, millis: 1_000, alias: "1s", displayName: "1 Second", isOHLCV: true},
	Freq1m:   {seconds: 60, millis: 60_000, alias: "1m", displayName: "1 Minute", isOHLCV: true},
	Freq5m:   {seconds: 300, millis: 300_000, alias: "5m", displayName: "5 Minutes", isOHLCV: true},
	Freq15m:  {seconds: 900, millis: 900_000, alias: "15m", displayName: "15 Minutes", isOHLCV: true},
	Freq1h:   {seconds: 3_600, millis: 3_600_000, alias: "1h", displayName: "1 Hour", isOHLCV: true},
	Freq1d:   {seconds: 86_400, millis: 86_400_000, alias: "1d", displayName: "1 Day", isOHLCV: true},
	Freq1w:   {seconds: 604_800, millis: 604_800_000, alias: "1w", displayName: "1 Week", isOHLCV: true},
	Freq1mo:  {seconds: 2_592_000, millis: 2_592_000_000, alias: "1mo", displayName: "1 Month", isOHLCV: true},
}

// ParseFrequency validates a wire-visible frequency tag against the
// closed vocabulary.
func ParseFrequency(tag string) (FrequencyTag, error) {
	ft := FrequencyTag(tag)
	if _, ok := frequencyTable[ft]; !ok {
		return "", fmt.Errorf("marketdata: unknown frequency tag %q", tag)
	}
	return ft, nil
}

// Valid reports whether the tag belongs to the closed vocabulary.
func (f FrequencyTag) Valid() bool {
	_, ok := frequencyTable[f]
	return ok
}

// Seconds returns the bar interval in seconds; 0 for tick.
func (f FrequencyTag) Seconds() int64 {
	return frequencyTable[f].seconds
}

// Milliseconds returns the bar interval in milliseconds, defaulting to
// one minute for an unknown or zero-interval tag.
func (f FrequencyTag) Milliseconds() int64 {
	meta, ok := frequencyTable[f]
	if !ok || meta.millis == 0 {
		return 60_000
	}
	return meta.millis
}

// DisplayName returns a human-readable label for the frequency.
func (f FrequencyTag) DisplayName() string {
	return frequencyTable[f].displayName
}

// IsOHLCV reports whether this frequency produces bar (as opposed to
// tick) records.
func (f FrequencyTag) IsOHLCV() bool {
	return frequencyTable[f].isOHLCV
}
