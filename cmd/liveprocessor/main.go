// cmd/liveprocessor runs the live trading control loop: every cycle it
// processes all active bot sessions, enforcing drawdown limits and position
// sizing before orders reach the execution provider.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"trading-enginev1/config"
	"trading-enginev1/internal/execution"
	"trading-enginev1/internal/lock"
	"trading-enginev1/internal/logger"
	"trading-enginev1/internal/marketdata"
	"trading-enginev1/internal/metrics"
	"trading-enginev1/internal/notification"
	"trading-enginev1/internal/secrets"
	"trading-enginev1/internal/session"
	sqlitestore "trading-enginev1/internal/store/sqlite"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("[liveprocessor] no .env file loaded: %v", err)
	}
	once := flag.Bool("once", false, "Run a single processing pass and exit (for external schedulers)")
	flag.Parse()

	cfg := config.Load()
	slg := logger.Init("liveprocessor", slog.LevelInfo)

	store, err := sqlitestore.New(sqlitestore.Config{DBPath: cfg.SQLitePath})
	if err != nil {
		slg.Error("open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slg.Info("shutdown signal received")
		cancel()
	}()

	// Price cache and per-session locks share the Redis deployment when one
	// is configured; otherwise both stay in-process.
	var (
		cache  marketdata.PriceCache
		locker lock.Locker
	)
	if cfg.RedisAddr != "" {
		rc, err := marketdata.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, 30*time.Minute)
		if err != nil {
			slg.Error("redis cache", "error", err)
			os.Exit(1)
		}
		cache = rc
		locker = lock.NewRedisLocker(goredis.NewClient(&goredis.Options{
			Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB,
		}), "session:lock:")
	} else {
		cache = marketdata.NewMemoryCache()
		locker = lock.NewMemoryLocker()
	}

	src := marketdata.NewCachedSource(
		marketdata.NewHTTPSource(cfg.MarketDataBaseURL, cfg.MarketDataAPIKey),
		cache, cfg.PriceCacheMaxAge)

	if cfg.MarketDataWSURL != "" {
		stream := marketdata.NewStream(cfg.MarketDataWSURL, cfg.MarketDataAPIKey, []string{cfg.Symbol}, cache)
		go stream.Run(ctx)
	}

	provider, err := execution.Select(execution.Config{
		Mode:             cfg.ProviderMode,
		BridgeURL:        cfg.BridgeURL,
		BridgeAPIKey:     decrypted(slg, cfg.SecretsKeyHex, cfg.BridgeAPIKey),
		BridgeAccountRef: cfg.BridgeAccountRef,
		BridgeTOTPSecret: decrypted(slg, cfg.SecretsKeyHex, cfg.BridgeTOTPSecret),
		SimBalance:       cfg.SimBalance,
	}, store, src.LatestPrice)
	if err != nil {
		slg.Error("select provider", "error", err)
		os.Exit(1)
	}

	notifier := buildNotifier(cfg, store)

	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	health.SetProviderOK(true)
	msrv := metrics.NewServer(cfg.MetricsAddr, health)
	msrv.Start()
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		msrv.Stop(shutdownCtx)
	}()

	proc := session.New(session.Config{CandleCount: cfg.CandleCount}, store, provider, src, notifier, locker)
	proc.SetMetrics(m)

	slg.Info("live processor started", "symbol", cfg.Symbol, "timeframe", cfg.Timeframe,
		"provider", cfg.ProviderMode, "interval", cfg.CycleInterval.String())

	ticker := time.NewTicker(cfg.CycleInterval)
	defer ticker.Stop()
	for {
		cycleStart := time.Now()
		if err := proc.RunOnce(ctx); err != nil {
			slg.Error("cycle failed", "error", err)
		}
		m.CyclesTotal.Inc()
		m.CycleDur.Observe(time.Since(cycleStart).Seconds())
		health.SetLastCycleTime(time.Now())
		health.CheckSQLite(ctx, store.DB())

		if *once {
			slg.Info("single pass complete")
			return
		}
		select {
		case <-ctx.Done():
			slg.Info("live processor stopped")
			return
		case <-ticker.C:
		}
	}
}

// decrypted unwraps an encrypted credential when a secrets key is configured.
// Values that do not decrypt are passed through unchanged so plain-text
// configuration keeps working in development.
func decrypted(slg *slog.Logger, hexKey, value string) string {
	if hexKey == "" || value == "" {
		return value
	}
	c, err := secrets.New(hexKey)
	if err != nil {
		slg.Error("secrets key invalid, using raw credential", "error", err)
		return value
	}
	plain, err := c.Decrypt(value)
	if err != nil {
		slg.Warn("credential not encrypted, using raw value")
		return value
	}
	return plain
}

func buildNotifier(cfg *config.Config, store *sqlitestore.Store) notification.Notifier {
	backends := []notification.Notifier{
		notification.NewStoreNotifier(store),
		notification.NewLogNotifier(),
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		backends = append(backends, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if cfg.WebhookURL != "" {
		backends = append(backends, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	return notification.NewMulti(backends...)
}
