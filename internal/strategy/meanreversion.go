package strategy

import (
	"trading-enginev1/internal/indicator"
	"trading-enginev1/internal/model"
)

// evalMeanReversion fades band touches with RSI momentum confirmation.
//
// Buy: last closed candle at or below the lower Bollinger band, RSI below the
// oversold level, and RSI rising versus the previous candle. Sell is the
// mirror at the upper band with RSI above overbought and falling.
func evalMeanReversion(history []model.Candle, price float64, p Parameters) Signal {
	bands := indicator.BollingerBands(history, p.BollingerPeriod, p.BollingerStdDev)
	rsi := indicator.RSI(history, p.RSIPeriod)

	last := len(history) - 1
	prev := last - 1

	upper, ok1 := bands.Upper.At(last)
	lower, ok2 := bands.Lower.At(last)
	curRSI, ok3 := rsi.At(last)
	prevRSI, ok4 := rsi.At(prev)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return hold(price)
	}

	lastClose := history[last].Close

	var action Action
	switch {
	case lastClose <= lower && curRSI < p.RSIOversold && curRSI > prevRSI:
		action = ActionBuy
	case lastClose >= upper && curRSI > p.RSIOverbought && curRSI < prevRSI:
		action = ActionSell
	default:
		return hold(price)
	}

	sl, tp, ok := stops(history, price, action, p)
	if !ok {
		return hold(price)
	}
	reason := "lower band touch, RSI oversold and rising"
	if action == ActionSell {
		reason = "upper band touch, RSI overbought and falling"
	}
	return Signal{Action: action, PriceAtDecision: price, StopLoss: sl, TakeProfit: tp, Reason: reason}
}
