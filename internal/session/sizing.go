package session

import "math"

// minLot is the smallest order the provider accepts.
const minLot = 0.01

// LotForRisk sizes a position so that a stop-out loses riskFrac of equity:
// lot = equity·riskFrac / (stop distance · point value). The result is
// clamped to [minLot, maxLot] and rounded to two decimals.
func LotForRisk(equity, riskFrac, entryPrice, stopLoss, maxLot float64) float64 {
	dist := math.Abs(entryPrice - stopLoss)
	if dist <= 0 || equity <= 0 || riskFrac <= 0 {
		return minLot
	}
	lot := equity * riskFrac / (dist * 100)
	if lot < minLot {
		lot = minLot
	}
	if lot > maxLot {
		lot = maxLot
	}
	return math.Round(lot*100) / 100
}
