package execution

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"trading-enginev1/internal/model"
	"trading-enginev1/internal/store/sqlite"
)

const pointValue = 100.0 // P&L per full price unit per lot

// Simulated records trades directly in the store instead of calling a
// broker. Close prices come from the current reference price.
type Simulated struct {
	store     *sqlite.Store
	price     PriceFunc
	balance   float64
	ticketSeq int64
}

// NewSimulated creates the store-backed provider. balance is the starting
// account balance; equity is balance plus realized P&L.
func NewSimulated(store *sqlite.Store, price PriceFunc, balance float64) *Simulated {
	if balance <= 0 {
		balance = 10000
	}
	return &Simulated{store: store, price: price, balance: balance}
}

func (s *Simulated) ExecuteOrder(ctx context.Context, p OrderParams) (*OrderResult, error) {
	seq := atomic.AddInt64(&s.ticketSeq, 1)
	ticket := fmt.Sprintf("SIM-%d-%d", time.Now().UnixMilli(), seq)

	id, err := s.store.InsertTrade(ctx, &model.Trade{
		SessionID:  p.SessionID,
		TicketID:   ticket,
		Symbol:     p.Symbol,
		Type:       p.Type,
		LotSize:    p.LotSize,
		OpenPrice:  p.Price,
		StopLoss:   p.StopLoss,
		TakeProfit: p.TakeProfit,
		Status:     model.TradeOpen,
		OpenTime:   time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("simulated execute: %w", err)
	}

	log.Printf("[simulated] %s %s lots=%.2f price=%.2f sl=%.2f tp=%.2f ticket=%s",
		p.Type, p.Symbol, p.LotSize, p.Price, p.StopLoss, p.TakeProfit, ticket)
	return &OrderResult{TradeID: id, TicketID: ticket}, nil
}

func (s *Simulated) CloseOrder(ctx context.Context, p CloseParams) (*CloseResult, error) {
	trade, err := s.store.GetTradeByTicket(ctx, p.TicketID)
	if err != nil {
		return nil, fmt.Errorf("simulated close: %w", err)
	}
	if trade == nil {
		return nil, fmt.Errorf("simulated close: no open trade with ticket %s", p.TicketID)
	}

	closePrice, err := s.price(ctx, trade.Symbol)
	if err != nil {
		return nil, fmt.Errorf("simulated close: reference price: %w", err)
	}

	lots := trade.LotSize
	if p.Lots > 0 && p.Lots < lots {
		lots = p.Lots
	}
	profit := ProfitFor(trade.Type, trade.OpenPrice, closePrice, lots)

	if err := s.store.CloseTrade(ctx, p.TicketID, closePrice, profit, time.Now().UTC()); err != nil {
		return nil, err
	}
	log.Printf("[simulated] closed %s at %.2f profit=%.2f", p.TicketID, closePrice, profit)
	return &CloseResult{TicketID: p.TicketID, ClosePrice: closePrice, Profit: profit}, nil
}

func (s *Simulated) GetAccountSummary(ctx context.Context, accountRef string) (*AccountSummary, error) {
	realized, err := s.store.SumClosedProfit(ctx)
	if err != nil {
		return nil, err
	}
	equity := s.balance + realized
	return &AccountSummary{
		Balance:    equity,
		Equity:     equity,
		FreeMargin: equity,
		Currency:   "USD",
	}, nil
}

func (s *Simulated) GetOpenPositions(ctx context.Context, accountRef string) ([]OpenPosition, error) {
	trades, err := s.store.ListOpenTrades(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]OpenPosition, 0, len(trades))
	for _, t := range trades {
		out = append(out, OpenPosition{
			TicketID:   t.TicketID,
			Symbol:     t.Symbol,
			Type:       t.Type,
			LotSize:    t.LotSize,
			OpenPrice:  t.OpenPrice,
			StopLoss:   t.StopLoss,
			TakeProfit: t.TakeProfit,
			OpenTime:   t.OpenTime,
		})
	}
	return out, nil
}

func (s *Simulated) GetServerTime(ctx context.Context) (time.Time, error) {
	return time.Now().UTC(), nil
}

// ProfitFor computes realized P&L: the directional price delta scaled by lot
// size and the instrument point value.
func ProfitFor(typ model.TradeType, openPrice, closePrice, lots float64) float64 {
	delta := closePrice - openPrice
	if typ == model.TradeSell {
		delta = -delta
	}
	return delta * lots * pointValue
}
