// Package strategy decides BUY/SELL/HOLD for a single instrument.
//
// Evaluate is a stateless dispatcher: it receives a candle history, the index
// of the decision candle, a strategy mode, and the tunable parameters, and
// returns a Signal. Indicators are computed only from candles strictly before
// the decision index, so no strategy can look ahead; the decision candle's
// open price is the execution price.
package strategy

import (
	"trading-enginev1/internal/indicator"
	"trading-enginev1/internal/model"
)

// Action is what the dispatcher wants done.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Signal is one evaluation result. It is produced fresh per evaluation and
// consumed immediately by the caller, never persisted. A HOLD carries no
// stop-loss or take-profit.
type Signal struct {
	Action          Action  `json:"action"`
	PriceAtDecision float64 `json:"price_at_decision"`
	StopLoss        float64 `json:"stop_loss,omitempty"`
	TakeProfit      float64 `json:"take_profit,omitempty"`
	Reason          string  `json:"reason,omitempty"`
}

func hold(price float64) Signal {
	return Signal{Action: ActionHold, PriceAtDecision: price}
}

// Evaluate runs the strategy for the given mode at decisionIndex.
// Any indicator still short of lookback forces HOLD.
func Evaluate(candles []model.Candle, decisionIndex int, mode model.StrategyMode, p Parameters) Signal {
	if decisionIndex <= 0 || decisionIndex >= len(candles) {
		return Signal{Action: ActionHold}
	}
	history := candles[:decisionIndex]
	price := candles[decisionIndex].Open

	if len(history) < MinHistory(mode, p) {
		return hold(price)
	}

	switch mode {
	case model.ModeSMACrossover:
		return evalSMACrossover(history, price, p)
	case model.ModeMeanReversion:
		return evalMeanReversion(history, price, p)
	case model.ModeBreakout:
		return evalBreakout(history, price, p)
	case model.ModeAdaptive:
		return evalAdaptive(history, price, p)
	default:
		return hold(price)
	}
}

// MinHistory returns the number of closed candles a mode needs before it can
// produce anything other than HOLD.
func MinHistory(mode model.StrategyMode, p Parameters) int {
	atr := p.ATRPeriod + 1
	switch mode {
	case model.ModeSMACrossover:
		// Crossover needs two consecutive ready SMA values.
		return max(p.SMALongPeriod+1, atr)
	case model.ModeMeanReversion:
		// RSI momentum confirmation needs two consecutive ready RSI values.
		return max(p.BollingerPeriod, max(p.RSIPeriod+2, atr))
	case model.ModeBreakout:
		return max(p.BreakoutLookback+1, atr)
	case model.ModeAdaptive:
		adx := 2 * p.ADXPeriod
		return max(adx, max(MinHistory(model.ModeSMACrossover, p), MinHistory(model.ModeMeanReversion, p)))
	default:
		return 1
	}
}

// stops derives ATR-based stop-loss/take-profit around the decision price.
// Returns false when ATR is not ready.
func stops(history []model.Candle, price float64, action Action, p Parameters) (sl, tp float64, ok bool) {
	atr := indicator.ATR(history, p.ATRPeriod)
	v, ready := atr.At(len(history) - 1)
	if !ready {
		return 0, 0, false
	}
	if action == ActionBuy {
		return price - v*p.ATRStopLossMult, price + v*p.ATRTakeProfitMult, true
	}
	return price + v*p.ATRStopLossMult, price - v*p.ATRTakeProfitMult, true
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
