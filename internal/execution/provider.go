// Package execution places and closes orders through a trade execution
// provider. Two implementations exist: a simulated provider that records
// trades directly in the store, and a bridge provider that calls the external
// broker integration over HTTP. Both conform to the same interface; nothing
// outside the selection point branches on the provider kind.
package execution

import (
	"context"
	"errors"
	"log"
	"time"

	"trading-enginev1/internal/model"
	"trading-enginev1/internal/store/sqlite"
	"trading-enginev1/pkg/brokerbridge"
)

// ErrBridgeUnavailable marks bridge calls that failed after retries.
var ErrBridgeUnavailable = errors.New("execution: bridge unavailable")

// OrderParams describes the order a caller wants executed.
type OrderParams struct {
	SessionID  int64
	Symbol     string
	Type       model.TradeType
	LotSize    float64
	Price      float64 // decision price; simulated fills use it directly
	StopLoss   float64
	TakeProfit float64
}

// OrderResult reports an executed order.
type OrderResult struct {
	TradeID  int64
	TicketID string
}

// CloseParams identifies the position to close.
type CloseParams struct {
	TicketID string
	Lots     float64 // 0 = full close
}

// CloseResult reports a closed position.
type CloseResult struct {
	TicketID   string
	ClosePrice float64
	Profit     float64
}

// AccountSummary is the provider's view of the trading account.
type AccountSummary struct {
	Balance    float64
	Equity     float64
	Margin     float64
	FreeMargin float64
	Currency   string
}

// OpenPosition is one open position as the provider sees it.
type OpenPosition struct {
	TicketID   string
	Symbol     string
	Type       model.TradeType
	LotSize    float64
	OpenPrice  float64
	StopLoss   float64
	TakeProfit float64
	OpenTime   time.Time
}

// Provider is the trade execution abstraction. Both implementations conform
// exactly; callers never branch on the concrete type.
type Provider interface {
	ExecuteOrder(ctx context.Context, p OrderParams) (*OrderResult, error)
	CloseOrder(ctx context.Context, p CloseParams) (*CloseResult, error)
	GetAccountSummary(ctx context.Context, accountRef string) (*AccountSummary, error)
	GetOpenPositions(ctx context.Context, accountRef string) ([]OpenPosition, error)
	GetServerTime(ctx context.Context) (time.Time, error)
}

// Config selects and configures the provider.
type Config struct {
	Mode string // "simulated" or "bridge"

	// Bridge settings; failover to simulated when endpoint/credentials are absent.
	BridgeURL        string
	BridgeAPIKey     string
	BridgeAccountRef string
	BridgeTOTPSecret string

	// Simulated settings.
	SimBalance float64 // starting balance for the simulated account
}

// PriceFunc returns the current reference price for a symbol.
type PriceFunc func(ctx context.Context, symbol string) (float64, error)

// Select builds the configured provider. Bridge mode without an endpoint or
// key fails over to the simulated provider rather than erroring out.
func Select(cfg Config, store *sqlite.Store, price PriceFunc) (Provider, error) {
	if cfg.Mode == "bridge" {
		if cfg.BridgeURL == "" || cfg.BridgeAPIKey == "" {
			log.Printf("[execution] bridge mode configured but endpoint/credentials absent, failing over to simulated")
			return NewSimulated(store, price, cfg.SimBalance), nil
		}
		client, err := brokerbridge.New(brokerbridge.Config{
			BaseURL:    cfg.BridgeURL,
			APIKey:     cfg.BridgeAPIKey,
			AccountRef: cfg.BridgeAccountRef,
			TOTPSecret: cfg.BridgeTOTPSecret,
		})
		if err != nil {
			return nil, err
		}
		log.Printf("[execution] using bridge provider at %s", cfg.BridgeURL)
		return NewBridge(client), nil
	}
	log.Printf("[execution] using simulated provider")
	return NewSimulated(store, price, cfg.SimBalance), nil
}
