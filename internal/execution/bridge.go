package execution

import (
	"context"
	"fmt"
	"time"

	"trading-enginev1/internal/model"
	"trading-enginev1/pkg/brokerbridge"
)

// Bridge translates provider calls into HTTP requests against the external
// broker integration. Retry semantics live in the bridge client.
type Bridge struct {
	client *brokerbridge.Client
}

// NewBridge wraps a configured bridge client.
func NewBridge(client *brokerbridge.Client) *Bridge {
	return &Bridge{client: client}
}

func (b *Bridge) ExecuteOrder(ctx context.Context, p OrderParams) (*OrderResult, error) {
	resp, err := b.client.PlaceOrder(ctx, brokerbridge.OrderRequest{
		Symbol:     p.Symbol,
		Type:       string(p.Type),
		LotSize:    p.LotSize,
		StopLoss:   p.StopLoss,
		TakeProfit: p.TakeProfit,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBridgeUnavailable, err)
	}
	return &OrderResult{TicketID: resp.TicketID}, nil
}

func (b *Bridge) CloseOrder(ctx context.Context, p CloseParams) (*CloseResult, error) {
	resp, err := b.client.CloseOrder(ctx, brokerbridge.CloseRequest{
		TicketID: p.TicketID,
		Lots:     p.Lots,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBridgeUnavailable, err)
	}
	return &CloseResult{TicketID: resp.TicketID, ClosePrice: resp.ClosePrice, Profit: resp.Profit}, nil
}

func (b *Bridge) GetAccountSummary(ctx context.Context, accountRef string) (*AccountSummary, error) {
	resp, err := b.client.GetAccountSummary(ctx, accountRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBridgeUnavailable, err)
	}
	return &AccountSummary{
		Balance:    resp.Balance,
		Equity:     resp.Equity,
		Margin:     resp.Margin,
		FreeMargin: resp.FreeMargin,
		Currency:   resp.Currency,
	}, nil
}

func (b *Bridge) GetOpenPositions(ctx context.Context, accountRef string) ([]OpenPosition, error) {
	resp, err := b.client.GetOpenPositions(ctx, accountRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBridgeUnavailable, err)
	}
	out := make([]OpenPosition, 0, len(resp))
	for _, pos := range resp {
		out = append(out, OpenPosition{
			TicketID:   pos.TicketID,
			Symbol:     pos.Symbol,
			Type:       model.TradeType(pos.Type),
			LotSize:    pos.LotSize,
			OpenPrice:  pos.OpenPrice,
			StopLoss:   pos.StopLoss,
			TakeProfit: pos.TakeProfit,
			OpenTime:   pos.OpenTime,
		})
	}
	return out, nil
}

func (b *Bridge) GetServerTime(ctx context.Context) (time.Time, error) {
	resp, err := b.client.GetServerTime(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrBridgeUnavailable, err)
	}
	return resp.Time, nil
}
