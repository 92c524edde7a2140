package indicator

import (
	"math"
	"testing"
	"time"

	"trading-enginev1/internal/model"
)

// ────────────────────────────────────────────────────────────
// Helpers
// ────────────────────────────────────────────────────────────

func candlesFromCloses(closes ...float64) []model.Candle {
	out := make([]model.Candle, len(closes))
	base := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	for i, c := range closes {
		out[i] = model.Candle{
			Symbol: "XAUUSD", Timeframe: "15m",
			TS:   base.Add(time.Duration(i) * 15 * time.Minute),
			Open: c, High: c + 0.5, Low: c - 0.5, Close: c,
		}
	}
	return out
}

func assertClose(t *testing.T, label string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s: got %.6f, want %.6f (tol=%.6f, diff=%.6f)", label, got, want, tol, math.Abs(got-want))
	}
}

// ────────────────────────────────────────────────────────────
// SMA
// ────────────────────────────────────────────────────────────

func TestSMA_Correctness_Period3(t *testing.T) {
	// Hand-calculated SMA(3) for a known price series:
	// Prices: 100, 102, 104, 103, 105
	// SMA at index 2: (100+102+104)/3 = 102.0
	// SMA at index 3: (102+104+103)/3 = 103.0
	// SMA at index 4: (104+103+105)/3 = 104.0
	values := []float64{100, 102, 104, 103, 105}
	out := SMA(values, 3)

	expected := []float64{0, 0, 102.0, 103.0, 104.0}
	ready := []bool{false, false, true, true, true}
	for i := range values {
		if out.Ready(i) != ready[i] {
			t.Errorf("index %d: Ready()=%v, want %v", i, out.Ready(i), ready[i])
		}
		if ready[i] {
			assertClose(t, "SMA(3)", out[i], expected[i], 0.0001)
		}
	}
}

func TestSMA_ShortInput_NeverReady(t *testing.T) {
	out := SMA([]float64{1, 2, 3, 4}, 5)
	for i := range out {
		if out.Ready(i) {
			t.Errorf("index %d ready on input shorter than period", i)
		}
	}
}

// ────────────────────────────────────────────────────────────
// StdDev / Bollinger
// ────────────────────────────────────────────────────────────

func TestStdDev_Correctness(t *testing.T) {
	// Window {2, 4, 6}: mean 4, population variance (4+0+4)/3, stddev ~1.632993
	values := []float64{2, 4, 6}
	sma := SMA(values, 3)
	out := StdDev(values, 3, sma)

	if !out.Ready(2) {
		t.Fatal("expected stddev ready at index 2")
	}
	assertClose(t, "StdDev(3)", out[2], 1.632993, 0.0001)
}

func TestBollingerBands_Alignment(t *testing.T) {
	candles := candlesFromCloses(10, 12, 14, 16, 18)
	b := BollingerBands(candles, 3, 2.0)

	if b.Middle.Ready(1) || b.Upper.Ready(1) || b.Lower.Ready(1) {
		t.Error("bands ready before full lookback")
	}
	m, ok := b.Middle.At(2)
	if !ok {
		t.Fatal("middle band not ready at index 2")
	}
	assertClose(t, "middle", m, 12.0, 0.0001)

	u, _ := b.Upper.At(2)
	l, _ := b.Lower.At(2)
	sd := math.Sqrt(float64(2*2+0+2*2) / 3.0)
	assertClose(t, "upper", u, 12.0+2*sd, 0.0001)
	assertClose(t, "lower", l, 12.0-2*sd, 0.0001)
}

// ────────────────────────────────────────────────────────────
// RSI
// ────────────────────────────────────────────────────────────

func TestRSI_AllGains_Is100(t *testing.T) {
	// Monotonic rise: average loss is exactly zero, so RSI must be 100.
	candles := candlesFromCloses(100, 101, 102, 103, 104, 105)
	out := RSI(candles, 3)

	if out.Ready(2) {
		t.Error("RSI ready before period deltas exist")
	}
	v, ok := out.At(5)
	if !ok {
		t.Fatal("RSI not ready at index 5")
	}
	assertClose(t, "RSI all-gains", v, 100.0, 0.0001)
}

func TestRSI_SeededAverage(t *testing.T) {
	// Deltas over first 3 bars: +2, -1, +2 → avgGain (2+2)/3, avgLoss 1/3
	// RS = 4 → RSI = 100 - 100/5 = 80
	candles := candlesFromCloses(100, 102, 101, 103)
	out := RSI(candles, 3)

	v, ok := out.At(3)
	if !ok {
		t.Fatal("RSI not ready at index 3")
	}
	assertClose(t, "RSI seed", v, 80.0, 0.0001)
}

func TestRSI_ShortInput_NeverReady(t *testing.T) {
	out := RSI(candlesFromCloses(100, 101, 102), 14)
	for i := range out {
		if out.Ready(i) {
			t.Errorf("index %d ready on input shorter than period", i)
		}
	}
}

// ────────────────────────────────────────────────────────────
// ATR
// ────────────────────────────────────────────────────────────

func TestATR_SeedIsSimpleAverage(t *testing.T) {
	base := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	mk := func(i int, high, low, close float64) model.Candle {
		return model.Candle{TS: base.Add(time.Duration(i) * time.Minute), Open: close, High: high, Low: low, Close: close}
	}
	candles := []model.Candle{
		mk(0, 10, 9, 9.5),
		mk(1, 11, 10, 10.5), // TR = max(1, |11-9.5|, |10-9.5|) = 1.5
		mk(2, 12, 11, 11.5), // TR = max(1, |12-10.5|, |11-10.5|) = 1.5
		mk(3, 12, 10, 11),   // TR = max(2, |12-11.5|, |10-11.5|) = 2.0
	}
	out := ATR(candles, 3)

	if out.Ready(2) {
		t.Error("ATR ready before period true ranges exist")
	}
	v, ok := out.At(3)
	if !ok {
		t.Fatal("ATR not ready at index 3")
	}
	assertClose(t, "ATR seed", v, (1.5+1.5+2.0)/3.0, 0.0001)
}

// ────────────────────────────────────────────────────────────
// ADX
// ────────────────────────────────────────────────────────────

func TestADX_FlatSeries_ZeroDX(t *testing.T) {
	// Identical bars: no directional movement either side, DX=0, ADX=0.
	candles := make([]model.Candle, 30)
	base := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	for i := range candles {
		candles[i] = model.Candle{
			TS: base.Add(time.Duration(i) * time.Minute),
			Open: 100, High: 101, Low: 99, Close: 100,
		}
	}
	di := ADX(candles, 5)

	v, ok := di.ADX.At(len(candles) - 1)
	if !ok {
		t.Fatal("ADX not ready at end of flat series")
	}
	assertClose(t, "ADX flat", v, 0.0, 0.0001)
}

func TestADX_TrendingSeries_Strong(t *testing.T) {
	candles := make([]model.Candle, 40)
	base := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	for i := range candles {
		p := 100.0 + float64(i)*2
		candles[i] = model.Candle{
			TS: base.Add(time.Duration(i) * time.Minute),
			Open: p, High: p + 1, Low: p - 1, Close: p,
		}
	}
	di := ADX(candles, 14)

	v, ok := di.ADX.At(len(candles) - 1)
	if !ok {
		t.Fatal("ADX not ready for trending series")
	}
	if v < 25 {
		t.Errorf("expected strong trend ADX, got %.2f", v)
	}
	plus, _ := di.PlusDI.At(len(candles) - 1)
	minus, _ := di.MinusDI.At(len(candles) - 1)
	if plus <= minus {
		t.Errorf("uptrend should have +DI > -DI, got +DI=%.2f -DI=%.2f", plus, minus)
	}
}

func TestADX_ShortInput_NeverReady(t *testing.T) {
	di := ADX(candlesFromCloses(1, 2, 3, 4, 5), 14)
	for i := range di.ADX {
		if di.ADX.Ready(i) || di.PlusDI.Ready(i) || di.MinusDI.Ready(i) {
			t.Errorf("index %d ready on input shorter than lookback", i)
		}
	}
}
