package backtest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"trading-enginev1/internal/model"
	"trading-enginev1/internal/strategy"
)

func candlesFromCloses(closes []float64) []model.Candle {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	candles := make([]model.Candle, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		hi := math.Max(open, c) + 0.3
		lo := math.Min(open, c) - 0.3
		candles[i] = model.Candle{
			Symbol: "XAUUSD", Timeframe: "15min",
			TS:   base.Add(time.Duration(i) * 15 * time.Minute),
			Open: open, High: hi, Low: lo, Close: c, Volume: 1000,
		}
	}
	return candles
}

func sineCloses(n int, base, amplitude float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = base + amplitude*math.Sin(2*math.Pi*float64(i)/float64(n))
	}
	return closes
}

func crossoverConfig() Config {
	p := strategy.DefaultParameters()
	p.SMAShortPeriod = 5
	p.SMALongPeriod = 10
	return Config{
		Symbol:    "XAUUSD",
		Timeframe: "15min",
		Mode:      model.ModeSMACrossover,
		Params:    p,
		LotSize:   0.1,
	}
}

func TestRunFailsOnShortSeries(t *testing.T) {
	cfg := crossoverConfig()
	candles := candlesFromCloses(sineCloses(10, 2000, 20))

	_, _, err := New(nil).Run(context.Background(), cfg, candles)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("err = %v, want ErrInsufficientData", err)
	}
}

func TestStopLossTakesPriorityOverTakeProfit(t *testing.T) {
	// One bar wide enough to hit both levels.
	bar := model.Candle{Open: 2000, High: 2012, Low: 1988, Close: 2001}

	buy := &position{typ: model.TradeBuy, stopLoss: 1995, takeProfit: 2005}
	reason, price, hit := exitAgainstBar(buy, bar)
	if !hit || reason != model.CloseStopLoss || price != 1995 {
		t.Errorf("buy exit = %v %v %v, want SL at 1995", reason, price, hit)
	}

	sell := &position{typ: model.TradeSell, stopLoss: 2005, takeProfit: 1995}
	reason, price, hit = exitAgainstBar(sell, bar)
	if !hit || reason != model.CloseStopLoss || price != 2005 {
		t.Errorf("sell exit = %v %v %v, want SL at 2005", reason, price, hit)
	}
}

func TestClosePositionAppliesSlippageAndCommission(t *testing.T) {
	cfg := crossoverConfig()
	cfg.SlippagePoints = 0.5
	cfg.CommissionPerLot = 7

	candles := candlesFromCloses([]float64{2000, 2010})
	p := &position{typ: model.TradeBuy, entryIndex: 0, entryPrice: 2000, lots: 0.5}

	tr := New(nil).closePosition(cfg, candles, p, 1, 2010, model.CloseTakeProfit)
	if tr.ExitPrice != 2009.5 {
		t.Errorf("exit price = %v, want 2009.5 after adverse slippage", tr.ExitPrice)
	}
	// (2009.5-2000)*0.5*100 - 7*0.5
	if math.Abs(tr.ProfitOrLoss-471.5) > 1e-9 {
		t.Errorf("P&L = %v, want 471.5", tr.ProfitOrLoss)
	}

	p = &position{typ: model.TradeSell, entryIndex: 0, entryPrice: 2010, lots: 0.5}
	tr = New(nil).closePosition(cfg, candles, p, 1, 2000, model.CloseTakeProfit)
	if tr.ExitPrice != 2000.5 {
		t.Errorf("sell exit price = %v, want 2000.5", tr.ExitPrice)
	}
	if math.Abs(tr.ProfitOrLoss-471.5) > 1e-9 {
		t.Errorf("sell P&L = %v, want 471.5", tr.ProfitOrLoss)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	cfg := crossoverConfig()
	candles := candlesFromCloses(sineCloses(60, 2000, 20))
	eng := New(nil)

	first, firstTrades, err := eng.Run(context.Background(), cfg, candles)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.TotalTrades == 0 {
		t.Fatal("expected at least one trade on a full sine cycle")
	}

	second, secondTrades, err := eng.Run(context.Background(), cfg, candles)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if first.TotalTrades != second.TotalTrades ||
		first.WinningTrades != second.WinningTrades ||
		first.LosingTrades != second.LosingTrades ||
		first.TotalProfitLoss != second.TotalProfitLoss ||
		first.WinRate != second.WinRate {
		t.Errorf("aggregates differ between runs:\n%+v\n%+v", first, second)
	}
	if len(firstTrades) != len(secondTrades) {
		t.Errorf("trade counts differ: %d vs %d", len(firstTrades), len(secondTrades))
	}
}

func TestRunAggregatesMatchTrades(t *testing.T) {
	cfg := crossoverConfig()
	candles := candlesFromCloses(sineCloses(60, 2000, 20))

	report, trades, err := New(nil).Run(context.Background(), cfg, candles)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.TotalTrades != len(trades) {
		t.Fatalf("TotalTrades = %d, have %d trades", report.TotalTrades, len(trades))
	}

	var sum float64
	var winners, losers int
	for _, tr := range trades {
		sum += tr.ProfitOrLoss
		switch {
		case tr.ProfitOrLoss > 0:
			winners++
		case tr.ProfitOrLoss < 0:
			losers++
		}
	}
	if math.Abs(report.TotalProfitLoss-sum) > 1e-9 {
		t.Errorf("TotalProfitLoss = %v, trades sum to %v", report.TotalProfitLoss, sum)
	}
	if report.WinningTrades != winners || report.LosingTrades != losers {
		t.Errorf("win/loss = %d/%d, want %d/%d", report.WinningTrades, report.LosingTrades, winners, losers)
	}
	want := float64(winners) / float64(len(trades)) * 100
	if math.Abs(report.WinRate-want) > 1e-9 {
		t.Errorf("WinRate = %v, want %v", report.WinRate, want)
	}
}

func TestRunFlatSeriesNoTrades(t *testing.T) {
	closes := make([]float64, 80)
	for i := range closes {
		closes[i] = 2000
	}
	candles := candlesFromCloses(closes)

	for _, mode := range []model.StrategyMode{
		model.ModeSMACrossover, model.ModeMeanReversion, model.ModeBreakout, model.ModeAdaptive,
	} {
		cfg := crossoverConfig()
		cfg.Mode = mode
		report, trades, err := New(nil).Run(context.Background(), cfg, candles)
		if err != nil {
			t.Fatalf("mode %s: %v", mode, err)
		}
		if report.TotalTrades != 0 || len(trades) != 0 {
			t.Errorf("mode %s: %d trades on flat series, want 0", mode, report.TotalTrades)
		}
	}
}

func TestRunForceClosesAtEndOfTest(t *testing.T) {
	// Ascending half cycle: the golden cross opens a BUY that never exits
	// before the data ends.
	n := 60
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 2000 + 20*math.Sin(math.Pi*float64(i)/float64(n))
	}
	cfg := crossoverConfig()
	cfg.Params.ATRStopLossMult = 50 // stops far enough away to never trigger
	cfg.Params.ATRTakeProfitMult = 50

	_, trades, err := New(nil).Run(context.Background(), cfg, candlesFromCloses(closes))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(trades) == 0 {
		t.Fatal("expected a trade from the upward cross")
	}
	last := trades[len(trades)-1]
	if last.CloseReason != model.CloseEndOfTest {
		t.Errorf("final close reason = %s, want EndOfTest", last.CloseReason)
	}
	if last.ExitPrice != closes[n-1] {
		t.Errorf("exit price = %v, want final close %v", last.ExitPrice, closes[n-1])
	}
}

type fakeStore struct {
	reportID   int64
	failTrades bool
	deleted    []int64
}

func (f *fakeStore) InsertReport(ctx context.Context, r *model.BacktestReport) (int64, error) {
	f.reportID++
	return f.reportID, nil
}

func (f *fakeStore) InsertSimulatedTrades(ctx context.Context, reportID int64, trades []model.SimulatedTrade) error {
	if f.failTrades {
		return errors.New("disk full")
	}
	return nil
}

func (f *fakeStore) DeleteReport(ctx context.Context, reportID int64) error {
	f.deleted = append(f.deleted, reportID)
	return nil
}

func TestRunRollsBackReportOnTradePersistFailure(t *testing.T) {
	store := &fakeStore{failTrades: true}
	cfg := crossoverConfig()
	candles := candlesFromCloses(sineCloses(60, 2000, 20))

	_, _, err := New(store).Run(context.Background(), cfg, candles)
	if err == nil {
		t.Fatal("expected persistence error")
	}
	if len(store.deleted) != 1 || store.deleted[0] != 1 {
		t.Errorf("deleted reports = %v, want [1]", store.deleted)
	}
}
