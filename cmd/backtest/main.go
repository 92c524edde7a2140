// cmd/backtest replays stored candle history through the strategy dispatcher
// and prints the resulting report.
//
// Usage:
//
//	go run ./cmd/backtest --mode=sma_crossover --from=2026-01-01 --to=2026-06-01
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"trading-enginev1/config"
	"trading-enginev1/internal/backtest"
	"trading-enginev1/internal/marketdata"
	"trading-enginev1/internal/model"
	sqlitestore "trading-enginev1/internal/store/sqlite"
	"trading-enginev1/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[backtest] no .env file loaded: %v", err)
	}
	cfg := config.Load()

	mode := flag.String("mode", "sma_crossover", "Strategy mode: sma_crossover, mean_reversion, breakout, adaptive")
	fromStr := flag.String("from", "", "Start date (YYYY-MM-DD, empty = all)")
	toStr := flag.String("to", "", "End date (YYYY-MM-DD, empty = all)")
	paramsJSON := flag.String("params", "", "Strategy parameter overrides, JSON subset")
	fetch := flag.Bool("fetch", false, "Fetch fresh candles from the provider before running")
	flag.Parse()

	from, to := parseRange(*fromStr, *toStr)

	store, err := sqlitestore.New(sqlitestore.Config{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[backtest] open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	if *fetch {
		src := marketdata.NewHTTPSource(cfg.MarketDataBaseURL, cfg.MarketDataAPIKey)
		candles, err := src.Candles(ctx, cfg.Symbol, cfg.Timeframe, cfg.CandleCount)
		if err != nil {
			log.Fatalf("[backtest] fetch candles: %v", err)
		}
		if err := store.UpsertCandles(ctx, candles); err != nil {
			log.Fatalf("[backtest] store candles: %v", err)
		}
		log.Printf("[backtest] fetched and stored %d candles", len(candles))
	}

	candles, err := store.LoadCandles(ctx, cfg.Symbol, cfg.Timeframe, from, to)
	if err != nil {
		log.Fatalf("[backtest] load candles: %v", err)
	}
	log.Printf("[backtest] loaded %d candles for %s %s", len(candles), cfg.Symbol, cfg.Timeframe)

	params := strategy.DefaultParameters()
	if *paramsJSON != "" {
		if err := params.ApplyJSON(*paramsJSON); err != nil {
			log.Fatalf("[backtest] parameters: %v", err)
		}
	}

	engine := backtest.New(store)
	start := time.Now()
	report, trades, err := engine.Run(ctx, backtest.Config{
		Symbol:           cfg.Symbol,
		Timeframe:        cfg.Timeframe,
		Mode:             model.StrategyMode(*mode),
		Params:           params,
		LotSize:          cfg.BacktestLot,
		CommissionPerLot: cfg.CommissionPerLot,
		SlippagePoints:   cfg.SlippagePoints,
	}, candles)
	if err != nil {
		log.Fatalf("[backtest] run: %v", err)
	}

	fmt.Printf("\nBacktest %s %s [%s]\n", report.Symbol, report.Timeframe, report.StrategyMode)
	fmt.Printf("  range:     %s .. %s\n", report.From.Format("2006-01-02 15:04"), report.To.Format("2006-01-02 15:04"))
	fmt.Printf("  trades:    %d (%d won / %d lost, win rate %.1f%%)\n",
		report.TotalTrades, report.WinningTrades, report.LosingTrades, report.WinRate)
	fmt.Printf("  total P&L: %.2f\n", report.TotalProfitLoss)
	fmt.Printf("  duration:  %s (report id %d)\n\n", time.Since(start).Round(time.Millisecond), report.ID)

	for _, t := range trades {
		fmt.Printf("  %s %s %.2f lots  %.2f -> %.2f  P&L %+.2f  (%s)\n",
			t.EntryTime.Format("01-02 15:04"), t.Type, t.LotSize, t.EntryPrice, t.ExitPrice, t.ProfitOrLoss, t.CloseReason)
	}
}

func parseRange(fromStr, toStr string) (from, to time.Time) {
	var err error
	if fromStr != "" {
		if from, err = time.Parse("2006-01-02", fromStr); err != nil {
			log.Fatalf("[backtest] bad --from: %v", err)
		}
	}
	if toStr != "" {
		if to, err = time.Parse("2006-01-02", toStr); err != nil {
			log.Fatalf("[backtest] bad --to: %v", err)
		}
	}
	return from, to
}
