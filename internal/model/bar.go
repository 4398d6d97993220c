package model

import (
	"math"
	"time"
)

// OHLCV represents a single candlestick bar. Timestamps are UTC and aligned
// to the start of the containing minute before a bar enters any buffer.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Valid reports whether every numeric field of the bar is finite.
// Bars failing this check must never enter a buffer.
func (b OHLCV) Valid() bool {
	return IsFinite(b.Open) && IsFinite(b.High) && IsFinite(b.Low) &&
		IsFinite(b.Close) && IsFinite(b.Volume)
}

// AlignMinute returns the bar's timestamp truncated to the start of its
// minute, in UTC.
func (b OHLCV) AlignMinute() time.Time {
	return b.Time.UTC().Truncate(time.Minute)
}

// IsFinite reports whether v is neither NaN nor infinite. All data-entry
// boundaries (ingestion, return computation, normalization) go through this
// predicate instead of ad hoc x != x checks.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
