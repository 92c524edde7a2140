// Package indicator provides technical indicator calculations over candle data.
//
// All functions are pure and deterministic: they take an ordered candle (or
// value) sequence and return a Series aligned index-for-index with the input.
// Indexes without sufficient lookback hold the not-ready marker instead of a
// numeric value, so callers can test readiness before consuming.
package indicator

import "math"

// Series is an indicator output aligned index-for-index with its input
// sequence. NaN marks "insufficient lookback", never zero.
type Series []float64

// NewSeries returns a Series of length n with every index not ready.
func NewSeries(n int) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// Ready reports whether the value at index i is computed.
// Out-of-range indexes are never ready.
func (s Series) Ready(i int) bool {
	return i >= 0 && i < len(s) && !math.IsNaN(s[i])
}

// At returns the value at index i and whether it is ready.
func (s Series) At(i int) (float64, bool) {
	if !s.Ready(i) {
		return 0, false
	}
	return s[i], true
}

// Last returns the final ready value of the series, or false if none exists.
func (s Series) Last() (float64, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if !math.IsNaN(s[i]) {
			return s[i], true
		}
	}
	return 0, false
}
