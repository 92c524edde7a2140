package indicator

import "trading-enginev1/internal/model"

// DirectionalIndex holds the ADX series and its directional components,
// all index-aligned with the input candles.
type DirectionalIndex struct {
	ADX     Series
	PlusDI  Series
	MinusDI Series
}

// ADX computes the Average Directional Index with +DI/-DI.
//
// Directional movement at each bar comes from the consecutive high/low
// deltas: only the larger, positive move counts, and a tie yields zero on
// both sides. +DM/-DM and true range are Wilder-smoothed, converted to
// +DI/-DI, DX = 100*|+DI - -DI|/(+DI + -DI) (0 when the sum is zero), and
// ADX is the Wilder-smoothed DX series. +DI/-DI are ready from index period;
// ADX needs a second smoothing pass and is ready from index 2*period-1.
func ADX(candles []model.Candle, period int) DirectionalIndex {
	n := len(candles)
	di := DirectionalIndex{
		ADX:     NewSeries(n),
		PlusDI:  NewSeries(n),
		MinusDI: NewSeries(n),
	}
	if period <= 0 || n < 2*period {
		return di
	}

	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	tr := make([]float64, n)
	for i := 1; i < n; i++ {
		upMove := candles[i].High - candles[i-1].High
		downMove := candles[i-1].Low - candles[i].Low
		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
		tr[i] = trueRange(candles[i], candles[i-1].Close)
	}

	// Wilder smoothing: seed with the sum of the first period values, then
	// sm = sm - sm/period + x.
	var smPlus, smMinus, smTR float64
	for i := 1; i <= period; i++ {
		smPlus += plusDM[i]
		smMinus += minusDM[i]
		smTR += tr[i]
	}

	dx := NewSeries(n)
	p := float64(period)
	for i := period; i < n; i++ {
		if i > period {
			smPlus = smPlus - smPlus/p + plusDM[i]
			smMinus = smMinus - smMinus/p + minusDM[i]
			smTR = smTR - smTR/p + tr[i]
		}
		if smTR == 0 {
			di.PlusDI[i] = 0
			di.MinusDI[i] = 0
		} else {
			di.PlusDI[i] = 100 * smPlus / smTR
			di.MinusDI[i] = 100 * smMinus / smTR
		}
		sum := di.PlusDI[i] + di.MinusDI[i]
		if sum == 0 {
			dx[i] = 0
		} else {
			diff := di.PlusDI[i] - di.MinusDI[i]
			if diff < 0 {
				diff = -diff
			}
			dx[i] = 100 * diff / sum
		}
	}

	// Second pass: ADX seeded by the simple average of the first period DX
	// values, then Wilder-smoothed.
	seedEnd := 2*period - 1
	var dxSum float64
	for i := period; i <= seedEnd; i++ {
		dxSum += dx[i]
	}
	di.ADX[seedEnd] = dxSum / p
	for i := seedEnd + 1; i < n; i++ {
		di.ADX[i] = (di.ADX[i-1]*(p-1) + dx[i]) / p
	}
	return di
}
