package indicator

import (
	"math"

	"trading-enginev1/internal/model"
)

// StdDev computes the population standard deviation over the trailing window,
// aligned to the given SMA series. output[i] is ready wherever sma[i] is.
func StdDev(values []float64, period int, sma Series) Series {
	out := NewSeries(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	for i := period - 1; i < len(values); i++ {
		mean, ok := sma.At(i)
		if !ok {
			continue
		}
		var sq float64
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - mean
			sq += d * d
		}
		out[i] = math.Sqrt(sq / float64(period))
	}
	return out
}

// Bands holds the three Bollinger band series, index-aligned with the input.
type Bands struct {
	Middle Series
	Upper  Series
	Lower  Series
}

// BollingerBands computes middle/upper/lower bands over candle closes.
// upper/lower = middle ± stdDevMult * population stddev of the window.
func BollingerBands(candles []model.Candle, period int, stdDevMult float64) Bands {
	closes := model.Closes(candles)
	middle := SMA(closes, period)
	sd := StdDev(closes, period, middle)

	upper := NewSeries(len(candles))
	lower := NewSeries(len(candles))
	for i := range candles {
		m, ok := middle.At(i)
		if !ok {
			continue
		}
		d, ok := sd.At(i)
		if !ok {
			continue
		}
		upper[i] = m + stdDevMult*d
		lower[i] = m - stdDevMult*d
	}
	return Bands{Middle: middle, Upper: upper, Lower: lower}
}

// ATR computes the Average True Range. True range at i is
// max(high-low, |high-prevClose|, |low-prevClose|); the first ATR value is a
// simple average of the first period true ranges, then Wilder-smoothed.
// output[i] is ready only for i >= period.
func ATR(candles []model.Candle, period int) Series {
	out := NewSeries(len(candles))
	if period <= 0 || len(candles) < period+1 {
		return out
	}

	tr := make([]float64, len(candles))
	for i := 1; i < len(candles); i++ {
		tr[i] = trueRange(candles[i], candles[i-1].Close)
	}

	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += tr[i]
	}
	out[period] = sum / float64(period)

	p := float64(period)
	for i := period + 1; i < len(candles); i++ {
		out[i] = (out[i-1]*(p-1) + tr[i]) / p
	}
	return out
}

func trueRange(c model.Candle, prevClose float64) float64 {
	hl := c.High - c.Low
	hc := math.Abs(c.High - prevClose)
	lc := math.Abs(c.Low - prevClose)
	return math.Max(hl, math.Max(hc, lc))
}
