package strategy

import (
	"trading-enginev1/internal/indicator"
	"trading-enginev1/internal/model"
)

// evalBreakout signals when the last close escapes a rolling high/low channel.
//
// The channel spans the lookback candles before the last closed one; a break
// beyond either edge only counts when the channel is at least
// BreakoutMinWidthATR ATRs wide, which filters noise breaks in dead markets.
func evalBreakout(history []model.Candle, price float64, p Parameters) Signal {
	last := len(history) - 1
	start := last - p.BreakoutLookback
	if start < 0 {
		return hold(price)
	}

	channelHigh := history[start].High
	channelLow := history[start].Low
	for i := start + 1; i < last; i++ {
		if history[i].High > channelHigh {
			channelHigh = history[i].High
		}
		if history[i].Low < channelLow {
			channelLow = history[i].Low
		}
	}

	atr := indicator.ATR(history, p.ATRPeriod)
	atrVal, ready := atr.At(last)
	if !ready {
		return hold(price)
	}
	if channelHigh-channelLow < p.BreakoutMinWidthATR*atrVal {
		return hold(price)
	}

	lastClose := history[last].Close
	var action Action
	switch {
	case lastClose > channelHigh:
		action = ActionBuy
	case lastClose < channelLow:
		action = ActionSell
	default:
		return hold(price)
	}

	sl, tp, ok := stops(history, price, action, p)
	if !ok {
		return hold(price)
	}
	reason := "close above channel high"
	if action == ActionSell {
		reason = "close below channel low"
	}
	return Signal{Action: action, PriceAtDecision: price, StopLoss: sl, TakeProfit: tp, Reason: reason}
}
