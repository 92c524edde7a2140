package strategy

import (
	"trading-enginev1/internal/indicator"
	"trading-enginev1/internal/model"
)

// evalAdaptive classifies the regime by ADX and routes to the matching
// strategy: trending markets (ADX above the trend threshold) go to the SMA
// crossover, ranging markets (ADX below the range threshold) go to mean
// reversion. The band between the thresholds is ambiguous and yields HOLD.
func evalAdaptive(history []model.Candle, price float64, p Parameters) Signal {
	di := indicator.ADX(history, p.ADXPeriod)
	adx, ready := di.ADX.At(len(history) - 1)
	if !ready {
		return hold(price)
	}

	switch {
	case adx > p.ADXTrendThreshold:
		return evalSMACrossover(history, price, p)
	case adx < p.ADXRangeThreshold:
		return evalMeanReversion(history, price, p)
	default:
		return hold(price)
	}
}
