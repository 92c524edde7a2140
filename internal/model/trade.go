package model

import "time"

// TradeType is the direction of a trade.
type TradeType string

const (
	TradeBuy  TradeType = "BUY"
	TradeSell TradeType = "SELL"
)

// TradeStatus is the lifecycle state of a trade.
type TradeStatus string

const (
	TradeOpen   TradeStatus = "open"
	TradeClosed TradeStatus = "closed"
)

// Trade represents an executed order at the provider. Created by the trade
// execution provider on order execution; the provider is the sole mutator of
// its lifecycle fields.
type Trade struct {
	ID         int64       `json:"id"`
	SessionID  int64       `json:"session_id"`
	TicketID   string      `json:"ticket_id"`
	Symbol     string      `json:"symbol"`
	Type       TradeType   `json:"type"`
	LotSize    float64     `json:"lot_size"`
	OpenPrice  float64     `json:"open_price"`
	StopLoss   float64     `json:"stop_loss"`
	TakeProfit float64     `json:"take_profit"`
	ClosePrice float64     `json:"close_price,omitempty"`
	ProfitLoss float64     `json:"profit_loss,omitempty"`
	Status     TradeStatus `json:"status"`
	OpenTime   time.Time   `json:"open_time"`
	CloseTime  time.Time   `json:"close_time,omitempty"`
}

// Open reports whether the trade is still open.
func (t *Trade) Open() bool { return t.Status == TradeOpen }
