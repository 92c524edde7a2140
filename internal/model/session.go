package model

import "time"

// SessionStatus is the lifecycle state of a bot session.
type SessionStatus string

const (
	SessionActive         SessionStatus = "active"
	SessionPausedDrawdown SessionStatus = "paused_drawdown"
	SessionStopped        SessionStatus = "stopped"
)

// StrategyMode selects which strategy the dispatcher runs for a session.
type StrategyMode string

const (
	ModeSMACrossover  StrategyMode = "sma_crossover"
	ModeMeanReversion StrategyMode = "mean_reversion"
	ModeBreakout      StrategyMode = "breakout"
	ModeAdaptive      StrategyMode = "adaptive"
)

// BotSession is one user's automated trading session for a single instrument.
// The live session processor is the sole mutator of its equity and counter
// fields. At most one open Trade exists per active session.
type BotSession struct {
	ID                   int64         `json:"id"`
	UserID               int64         `json:"user_id"`
	AccountID            string        `json:"account_id"`
	Symbol               string        `json:"symbol"`
	Timeframe            string        `json:"timeframe"`
	RiskLevel            string        `json:"risk_level"` // low, medium, high
	StrategyMode         StrategyMode  `json:"strategy_mode"`
	StrategyParamsJSON   string        `json:"strategy_params_json"` // overrides, JSON-encoded subset
	Status               SessionStatus `json:"status"`
	TotalTrades          int           `json:"total_trades"`
	WinningTrades        int           `json:"winning_trades"`
	LosingTrades         int           `json:"losing_trades"`
	TotalProfit          float64       `json:"total_profit"`
	SessionInitialEquity float64       `json:"session_initial_equity"` // 0 until first equity read
	SessionPeakEquity    float64       `json:"session_peak_equity"`
	LastTradeAt          time.Time     `json:"last_trade_at,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// RiskLevel bundles the sizing limits for a named risk tier.
type RiskLevel struct {
	Name          string  `json:"name"`
	RiskPerTrade  float64 `json:"risk_per_trade"` // fraction of equity risked per trade
	DefaultLot    float64 `json:"default_lot"`    // flat fallback when equity is unknown
	MaxLot        float64 `json:"max_lot"`
	MaxDrawdown   float64 `json:"max_drawdown"` // fraction, e.g. 0.10
}

// RiskLevelFor returns the limits for a named tier, defaulting to medium.
func RiskLevelFor(name string) RiskLevel {
	switch name {
	case "low":
		return RiskLevel{Name: "low", RiskPerTrade: 0.01, DefaultLot: 0.01, MaxLot: 0.10, MaxDrawdown: 0.10}
	case "high":
		return RiskLevel{Name: "high", RiskPerTrade: 0.05, DefaultLot: 0.05, MaxLot: 1.00, MaxDrawdown: 0.10}
	default:
		return RiskLevel{Name: "medium", RiskPerTrade: 0.02, DefaultLot: 0.02, MaxLot: 0.50, MaxDrawdown: 0.10}
	}
}
