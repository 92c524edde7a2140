package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"trading-enginev1/internal/model"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{DBPath: filepath.Join(t.TempDir(), "engine.db")})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCandles_UpsertIsIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	batch := []model.Candle{
		{Symbol: "XAUUSD", Timeframe: "15m", TS: ts, Open: 2000, High: 2005, Low: 1999, Close: 2003, Volume: 10},
		{Symbol: "XAUUSD", Timeframe: "15m", TS: ts.Add(15 * time.Minute), Open: 2003, High: 2008, Low: 2002, Close: 2007, Volume: 12},
	}
	if err := s.UpsertCandles(ctx, batch); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// Re-insert the same keys with an updated close; must replace, not duplicate.
	batch[1].Close = 2006
	if err := s.UpsertCandles(ctx, batch); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.LoadCandles(ctx, "XAUUSD", "15m", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candles after duplicate upsert, got %d", len(got))
	}
	if got[1].Close != 2006 {
		t.Errorf("upsert did not replace: close=%.2f", got[1].Close)
	}
	if !got[0].TS.Before(got[1].TS) {
		t.Error("candles not in ascending timestamp order")
	}
}

func TestTrades_Lifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.InsertTrade(ctx, &model.Trade{
		SessionID: 7, TicketID: "SIM-1", Symbol: "XAUUSD", Type: model.TradeBuy,
		LotSize: 0.10, OpenPrice: 2000, StopLoss: 1990, TakeProfit: 2020,
		OpenTime: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("insert trade: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero trade id")
	}

	open, err := s.GetOpenTrade(ctx, 7)
	if err != nil {
		t.Fatalf("get open trade: %v", err)
	}
	if open == nil || open.TicketID != "SIM-1" {
		t.Fatalf("expected open trade SIM-1, got %+v", open)
	}

	if err := s.CloseTrade(ctx, "SIM-1", 2010, 100, time.Now().UTC()); err != nil {
		t.Fatalf("close trade: %v", err)
	}
	open, err = s.GetOpenTrade(ctx, 7)
	if err != nil {
		t.Fatalf("get open trade after close: %v", err)
	}
	if open != nil {
		t.Errorf("expected no open trade after close, got %+v", open)
	}

	// Closing again must fail: the trade is no longer open.
	if err := s.CloseTrade(ctx, "SIM-1", 2010, 100, time.Now().UTC()); err == nil {
		t.Error("expected error closing an already-closed trade")
	}
}

func TestSessions_ActiveFilterAndUpdate(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	id, err := s.CreateSession(ctx, &model.BotSession{
		UserID: 1, AccountID: "ACC-1", Symbol: "XAUUSD", Timeframe: "15m",
		RiskLevel: "medium", StrategyMode: model.ModeAdaptive,
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	active, err := s.ListActiveSessions(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected 1 active session, got %d", len(active))
	}

	sess := active[0]
	sess.Status = model.SessionPausedDrawdown
	sess.TotalTrades = 3
	sess.SessionInitialEquity = 10000
	sess.SessionPeakEquity = 10500
	if err := s.UpdateSession(ctx, &sess); err != nil {
		t.Fatalf("update session: %v", err)
	}

	active, err = s.ListActiveSessions(ctx)
	if err != nil {
		t.Fatalf("list active after pause: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("paused session still listed as active")
	}

	got, err := s.GetSession(ctx, id)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got == nil || got.Status != model.SessionPausedDrawdown || got.TotalTrades != 3 {
		t.Errorf("session update not persisted: %+v", got)
	}
}

func TestReports_DeleteRollsBackTrades(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	reportID, err := s.InsertReport(ctx, &model.BacktestReport{
		Symbol: "XAUUSD", Timeframe: "15m", From: now.Add(-24 * time.Hour), To: now,
		StrategyMode: model.ModeSMACrossover, TotalTrades: 1, TotalProfitLoss: 50,
		WinningTrades: 1, WinRate: 100,
	})
	if err != nil {
		t.Fatalf("insert report: %v", err)
	}

	trades := []model.SimulatedTrade{{
		Type: model.TradeBuy, LotSize: 0.1, EntryTime: now.Add(-time.Hour), EntryPrice: 2000,
		ExitTime: now, ExitPrice: 2005, StopLoss: 1995, ProfitOrLoss: 50,
		CloseReason: model.CloseTakeProfit,
	}}
	if err := s.InsertSimulatedTrades(ctx, reportID, trades); err != nil {
		t.Fatalf("insert simulated trades: %v", err)
	}

	n, err := s.CountSimulatedTrades(ctx, reportID)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 simulated trade, got %d (err=%v)", n, err)
	}

	if err := s.DeleteReport(ctx, reportID); err != nil {
		t.Fatalf("delete report: %v", err)
	}
	n, err = s.CountSimulatedTrades(ctx, reportID)
	if err != nil || n != 0 {
		t.Errorf("expected 0 simulated trades after rollback, got %d (err=%v)", n, err)
	}
}
