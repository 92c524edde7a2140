package indicator

import "trading-enginev1/internal/model"

// RSI computes the classic Wilder Relative Strength Index over candle closes.
// Average gain/loss are seeded by a simple average over the first period
// deltas, then recursively smoothed. RSI is 100 when the average loss is
// exactly zero. output[i] is ready only for i >= period.
func RSI(candles []model.Candle, period int) Series {
	out := NewSeries(len(candles))
	if period <= 0 || len(candles) < period+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		delta := candles[i].Close - candles[i-1].Close
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	p := float64(period)
	for i := period + 1; i < len(candles); i++ {
		delta := candles[i].Close - candles[i-1].Close
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}
