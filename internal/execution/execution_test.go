package execution

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"trading-enginev1/internal/model"
	"trading-enginev1/internal/store/sqlite"
	"trading-enginev1/pkg/brokerbridge"
)

func testStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(sqlite.Config{DBPath: filepath.Join(t.TempDir(), "exec.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func fixedPrice(p float64) PriceFunc {
	return func(ctx context.Context, symbol string) (float64, error) { return p, nil }
}

// ────────────────────────────────────────────────────────────
// Simulated provider
// ────────────────────────────────────────────────────────────

func TestSimulated_BuyCloseProfit(t *testing.T) {
	store := testStore(t)
	prov := NewSimulated(store, fixedPrice(2010), 10000)
	ctx := context.Background()

	res, err := prov.ExecuteOrder(ctx, OrderParams{
		SessionID: 1, Symbol: "XAUUSD", Type: model.TradeBuy,
		LotSize: 0.5, Price: 2000, StopLoss: 1990, TakeProfit: 2030,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.TicketID == "" || res.TradeID == 0 {
		t.Fatalf("missing identifiers: %+v", res)
	}

	closed, err := prov.CloseOrder(ctx, CloseParams{TicketID: res.TicketID})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	// BUY 0.5 lots, 2000 → 2010: (2010-2000) * 0.5 * 100 = 500
	if closed.Profit != 500 {
		t.Errorf("profit = %.2f, want 500", closed.Profit)
	}
	if closed.ClosePrice != 2010 {
		t.Errorf("close price = %.2f, want 2010", closed.ClosePrice)
	}

	// Realized P&L must flow into the account summary.
	sum, err := prov.GetAccountSummary(ctx, "")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Equity != 10500 {
		t.Errorf("equity = %.2f, want 10500", sum.Equity)
	}
}

func TestSimulated_SellCloseLoss(t *testing.T) {
	store := testStore(t)
	prov := NewSimulated(store, fixedPrice(2005), 10000)
	ctx := context.Background()

	res, err := prov.ExecuteOrder(ctx, OrderParams{
		SessionID: 1, Symbol: "XAUUSD", Type: model.TradeSell,
		LotSize: 0.1, Price: 2000,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	closed, err := prov.CloseOrder(ctx, CloseParams{TicketID: res.TicketID})
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	// SELL 0.1 lots, 2000 → 2005: -(5) * 0.1 * 100 = -50
	if closed.Profit != -50 {
		t.Errorf("profit = %.2f, want -50", closed.Profit)
	}
}

func TestSimulated_CloseUnknownTicketFails(t *testing.T) {
	prov := NewSimulated(testStore(t), fixedPrice(2000), 10000)
	if _, err := prov.CloseOrder(context.Background(), CloseParams{TicketID: "NOPE"}); err == nil {
		t.Error("expected error closing unknown ticket")
	}
}

// ────────────────────────────────────────────────────────────
// Provider selection
// ────────────────────────────────────────────────────────────

func TestSelect_BridgeWithoutEndpointFailsOverToSimulated(t *testing.T) {
	prov, err := Select(Config{Mode: "bridge"}, testStore(t), fixedPrice(2000))
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, ok := prov.(*Simulated); !ok {
		t.Errorf("expected simulated failover, got %T", prov)
	}
}

func TestSelect_BridgeWithEndpoint(t *testing.T) {
	prov, err := Select(Config{
		Mode: "bridge", BridgeURL: "http://localhost:9/", BridgeAPIKey: "k",
	}, testStore(t), fixedPrice(2000))
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, ok := prov.(*Bridge); !ok {
		t.Errorf("expected bridge provider, got %T", prov)
	}
}

// ────────────────────────────────────────────────────────────
// Bridge provider retry semantics
// ────────────────────────────────────────────────────────────

func TestBridge_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ticket_id":"BR-42","open_price":2001.5}`))
	}))
	defer srv.Close()

	client, err := brokerbridge.New(brokerbridge.Config{BaseURL: srv.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	prov := NewBridge(client)

	res, err := prov.ExecuteOrder(context.Background(), OrderParams{
		Symbol: "XAUUSD", Type: model.TradeBuy, LotSize: 0.1,
	})
	if err != nil {
		t.Fatalf("execute after retries: %v", err)
	}
	if res.TicketID != "BR-42" {
		t.Errorf("ticket = %q, want BR-42", res.TicketID)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("expected 3 attempts (1 + 2 retries), got %d", n)
	}
}

func TestBridge_FailsAfterRetryBudget(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := brokerbridge.New(brokerbridge.Config{BaseURL: srv.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	prov := NewBridge(client)

	if _, err := prov.ExecuteOrder(context.Background(), OrderParams{
		Symbol: "XAUUSD", Type: model.TradeBuy, LotSize: 0.1,
	}); err == nil {
		t.Fatal("expected terminal error after retry budget")
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", n)
	}
}
