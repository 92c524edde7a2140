package model

import "time"

// CloseReason explains why a simulated position was closed.
type CloseReason string

const (
	CloseStopLoss   CloseReason = "SL"
	CloseTakeProfit CloseReason = "TP"
	CloseSignal     CloseReason = "Signal"
	CloseEndOfTest  CloseReason = "EndOfTest"
)

// BacktestReport aggregates the outcome of one backtest run.
// Immutable once persisted; owns its SimulatedTrade collection.
type BacktestReport struct {
	ID              int64        `json:"id"`
	Symbol          string       `json:"symbol"`
	Timeframe       string       `json:"timeframe"`
	From            time.Time    `json:"from"`
	To              time.Time    `json:"to"`
	StrategyMode    StrategyMode `json:"strategy_mode"`
	ParamsJSON      string       `json:"params_json"`
	TotalTrades     int          `json:"total_trades"`
	TotalProfitLoss float64      `json:"total_profit_loss"`
	WinningTrades   int          `json:"winning_trades"`
	LosingTrades    int          `json:"losing_trades"`
	WinRate         float64      `json:"win_rate"` // winners/total*100
	CreatedAt       time.Time    `json:"created_at"`
}

// SimulatedTrade is one entry/exit pair recorded by the backtest engine.
type SimulatedTrade struct {
	ID           int64       `json:"id"`
	ReportID     int64       `json:"report_id"`
	Type         TradeType   `json:"type"`
	LotSize      float64     `json:"lot_size"`
	EntryTime    time.Time   `json:"entry_time"`
	EntryPrice   float64     `json:"entry_price"`
	ExitTime     time.Time   `json:"exit_time"`
	ExitPrice    float64     `json:"exit_price"`
	StopLoss     float64     `json:"stop_loss"`
	TakeProfit   float64     `json:"take_profit,omitempty"`
	ProfitOrLoss float64     `json:"profit_or_loss"`
	CloseReason  CloseReason `json:"close_reason"`
}
