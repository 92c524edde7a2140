package strategy

import (
	"trading-enginev1/internal/indicator"
	"trading-enginev1/internal/model"
)

// evalSMACrossover signals on the bar where the short SMA crosses the long.
//
// Buy: short crosses from <= to > long between the previous and the last
// closed candle (golden cross). Sell is the mirror. An unchanged relationship
// never signals.
func evalSMACrossover(history []model.Candle, price float64, p Parameters) Signal {
	closes := model.Closes(history)
	short := indicator.SMA(closes, p.SMAShortPeriod)
	long := indicator.SMA(closes, p.SMALongPeriod)

	last := len(history) - 1
	prev := last - 1

	curShort, ok1 := short.At(last)
	curLong, ok2 := long.At(last)
	prevShort, ok3 := short.At(prev)
	prevLong, ok4 := long.At(prev)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return hold(price)
	}

	var action Action
	switch {
	case prevShort <= prevLong && curShort > curLong:
		action = ActionBuy
	case prevShort >= prevLong && curShort < curLong:
		action = ActionSell
	default:
		return hold(price)
	}

	sl, tp, ok := stops(history, price, action, p)
	if !ok {
		return hold(price)
	}
	reason := "SMA golden cross (short > long)"
	if action == ActionSell {
		reason = "SMA death cross (short < long)"
	}
	return Signal{Action: action, PriceAtDecision: price, StopLoss: sl, TakeProfit: tp, Reason: reason}
}
