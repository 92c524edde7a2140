// Package model defines the core domain types shared across the engine:
// candles, trades, bot sessions, and backtest reports.
package model

import (
	"encoding/json"
	"time"
)

// Candle represents one OHLC aggregate for a (symbol, timeframe) pair.
// Candles are immutable once stored and strictly ascending by timestamp.
type Candle struct {
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"` // e.g. "15m", "1h"
	TS        time.Time `json:"ts"`        // bucket start time (UTC)
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Key returns the unique key for this candle: "symbol:timeframe:unixts".
func (c *Candle) Key() string {
	return c.Symbol + ":" + c.Timeframe + ":" + c.TS.UTC().Format(time.RFC3339)
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

// Closes extracts the close prices of a candle sequence, index-aligned.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Close
	}
	return out
}
