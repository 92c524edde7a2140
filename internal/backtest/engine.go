// Package backtest replays a historical candle series through the strategy
// dispatcher and simulates fills against intrabar highs and lows, including
// slippage and commission.
package backtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"trading-enginev1/internal/model"
	"trading-enginev1/internal/strategy"
)

const pointValue = 100.0

// ErrInsufficientData is returned when the candle series is shorter than the
// strategy's required lookback.
var ErrInsufficientData = errors.New("backtest: insufficient historical data")

// ReportStore persists a finished run.
type ReportStore interface {
	InsertReport(ctx context.Context, r *model.BacktestReport) (int64, error)
	InsertSimulatedTrades(ctx context.Context, reportID int64, trades []model.SimulatedTrade) error
	DeleteReport(ctx context.Context, reportID int64) error
}

// Config holds the simulation costs and sizing for one run.
type Config struct {
	Symbol         string
	Timeframe      string
	Mode           model.StrategyMode
	Params         strategy.Parameters
	LotSize          float64 // fixed lot per simulated position
	CommissionPerLot float64
	SlippagePoints   float64 // applied adversely at every exit
}

// Engine runs backtests and persists their reports.
type Engine struct {
	store ReportStore
}

// New creates a backtest engine writing to store. A nil store skips
// persistence, which the tests use.
func New(store ReportStore) *Engine {
	return &Engine{store: store}
}

// position is the single open simulated position during a run.
type position struct {
	typ        model.TradeType
	entryIndex int
	entryPrice float64
	stopLoss   float64
	takeProfit float64
	lots       float64
}

// Run replays candles through the dispatcher and returns the aggregated
// report with its simulated trades. The input must be ascending by timestamp.
func (e *Engine) Run(ctx context.Context, cfg Config, candles []model.Candle) (*model.BacktestReport, []model.SimulatedTrade, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, nil, err
	}
	if cfg.LotSize <= 0 {
		cfg.LotSize = 0.01
	}

	warmup := strategy.MinHistory(cfg.Mode, cfg.Params)
	if len(candles) <= warmup {
		return nil, nil, fmt.Errorf("%w: have %d candles, need more than %d", ErrInsufficientData, len(candles), warmup)
	}

	var (
		open   *position
		trades []model.SimulatedTrade
	)

	for i := warmup; i < len(candles); i++ {
		bar := candles[i]

		// Exit checks run against the current bar's extremes before any
		// new signal is considered. Stop-loss wins the intrabar tie.
		if open != nil {
			if reason, exitPrice, hit := exitAgainstBar(open, bar); hit {
				trades = append(trades, e.closePosition(cfg, candles, open, i, exitPrice, reason))
				open = nil
			}
		}

		sig := strategy.Evaluate(candles, i, cfg.Mode, cfg.Params)

		if open != nil && reverses(open.typ, sig.Action) {
			trades = append(trades, e.closePosition(cfg, candles, open, i, sig.PriceAtDecision, model.CloseSignal))
			open = nil
		}

		if open == nil && sig.Action != strategy.ActionHold {
			open = &position{
				typ:        tradeType(sig.Action),
				entryIndex: i,
				entryPrice: sig.PriceAtDecision,
				stopLoss:   sig.StopLoss,
				takeProfit: sig.TakeProfit,
				lots:       cfg.LotSize,
			}
		}
	}

	if open != nil {
		last := len(candles) - 1
		trades = append(trades, e.closePosition(cfg, candles, open, last, candles[last].Close, model.CloseEndOfTest))
	}

	report := aggregate(cfg, candles, trades)
	if e.store != nil {
		if err := e.persist(ctx, report, trades); err != nil {
			return nil, nil, err
		}
	}
	return report, trades, nil
}

// exitAgainstBar tests the position's SL then TP against one bar's range.
func exitAgainstBar(p *position, bar model.Candle) (model.CloseReason, float64, bool) {
	switch p.typ {
	case model.TradeBuy:
		if p.stopLoss > 0 && bar.Low <= p.stopLoss {
			return model.CloseStopLoss, p.stopLoss, true
		}
		if p.takeProfit > 0 && bar.High >= p.takeProfit {
			return model.CloseTakeProfit, p.takeProfit, true
		}
	case model.TradeSell:
		if p.stopLoss > 0 && bar.High >= p.stopLoss {
			return model.CloseStopLoss, p.stopLoss, true
		}
		if p.takeProfit > 0 && bar.Low <= p.takeProfit {
			return model.CloseTakeProfit, p.takeProfit, true
		}
	}
	return "", 0, false
}

// closePosition applies adverse slippage and commission and records the trade.
func (e *Engine) closePosition(cfg Config, candles []model.Candle, p *position, exitIndex int, exitPrice float64, reason model.CloseReason) model.SimulatedTrade {
	if p.typ == model.TradeBuy {
		exitPrice -= cfg.SlippagePoints
	} else {
		exitPrice += cfg.SlippagePoints
	}

	delta := exitPrice - p.entryPrice
	if p.typ == model.TradeSell {
		delta = -delta
	}
	pl := delta*p.lots*pointValue - cfg.CommissionPerLot*p.lots

	return model.SimulatedTrade{
		Type:         p.typ,
		LotSize:      p.lots,
		EntryTime:    candles[p.entryIndex].TS,
		EntryPrice:   p.entryPrice,
		ExitTime:     candles[exitIndex].TS,
		ExitPrice:    exitPrice,
		StopLoss:     p.stopLoss,
		TakeProfit:   p.takeProfit,
		ProfitOrLoss: pl,
		CloseReason:  reason,
	}
}

func aggregate(cfg Config, candles []model.Candle, trades []model.SimulatedTrade) *model.BacktestReport {
	paramsJSON, _ := json.Marshal(cfg.Params)
	r := &model.BacktestReport{
		Symbol:       cfg.Symbol,
		Timeframe:    cfg.Timeframe,
		From:         candles[0].TS,
		To:           candles[len(candles)-1].TS,
		StrategyMode: cfg.Mode,
		ParamsJSON:   string(paramsJSON),
		TotalTrades:  len(trades),
		CreatedAt:    time.Now().UTC(),
	}
	for _, t := range trades {
		r.TotalProfitLoss += t.ProfitOrLoss
		switch {
		case t.ProfitOrLoss > 0:
			r.WinningTrades++
		case t.ProfitOrLoss < 0:
			r.LosingTrades++
		}
	}
	if r.TotalTrades > 0 {
		r.WinRate = float64(r.WinningTrades) / float64(r.TotalTrades) * 100
	}
	return r
}

// persist writes the report then its trades; a trade write failure rolls the
// report back so no orphaned report survives.
func (e *Engine) persist(ctx context.Context, report *model.BacktestReport, trades []model.SimulatedTrade) error {
	id, err := e.store.InsertReport(ctx, report)
	if err != nil {
		return fmt.Errorf("persist report: %w", err)
	}
	report.ID = id

	if err := e.store.InsertSimulatedTrades(ctx, id, trades); err != nil {
		if delErr := e.store.DeleteReport(ctx, id); delErr != nil {
			log.Printf("[backtest] rollback of report %d failed: %v", id, delErr)
		}
		report.ID = 0
		return fmt.Errorf("persist simulated trades: %w", err)
	}
	return nil
}

func reverses(held model.TradeType, action strategy.Action) bool {
	return (held == model.TradeBuy && action == strategy.ActionSell) ||
		(held == model.TradeSell && action == strategy.ActionBuy)
}

func tradeType(a strategy.Action) model.TradeType {
	if a == strategy.ActionSell {
		return model.TradeSell
	}
	return model.TradeBuy
}
