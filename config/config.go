// Package config loads all engine configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Instrument
	Symbol    string
	Timeframe string

	// Market data provider
	MarketDataBaseURL string
	MarketDataAPIKey  string
	MarketDataWSURL   string // optional; empty disables the live stream
	CandleCount       int
	PriceCacheMaxAge  time.Duration

	// Execution provider
	ProviderMode     string // "simulated" or "bridge"
	BridgeURL        string
	BridgeAPIKey     string
	BridgeAccountRef string
	BridgeTOTPSecret string
	SimBalance       float64

	// Backtest costs
	CommissionPerLot float64
	SlippagePoints   float64
	BacktestLot      float64

	// Infrastructure
	SQLitePath    string
	RedisAddr     string // optional; empty keeps everything in-process
	RedisPassword string
	RedisDB       int
	MetricsAddr   string

	// Live loop cadence
	CycleInterval time.Duration

	// Secrets
	SecretsKeyHex string // optional 64-char hex; empty disables encryption

	// Notifications
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Symbol:    getEnv("SYMBOL", "XAU/USD"),
		Timeframe: getEnv("TIMEFRAME", "15min"),

		MarketDataBaseURL: getEnv("MARKETDATA_BASE_URL", "https://api.twelvedata.com"),
		MarketDataAPIKey:  mustEnv("MARKETDATA_API_KEY"),
		MarketDataWSURL:   getEnv("MARKETDATA_WS_URL", ""),
		CandleCount:       getInt("CANDLE_COUNT", 200),
		PriceCacheMaxAge:  time.Duration(getInt("PRICE_CACHE_MAX_AGE_SEC", 180)) * time.Second,

		ProviderMode:     getEnv("PROVIDER_MODE", "simulated"),
		BridgeURL:        getEnv("BRIDGE_URL", ""),
		BridgeAPIKey:     getEnv("BRIDGE_API_KEY", ""),
		BridgeAccountRef: getEnv("BRIDGE_ACCOUNT_REF", ""),
		BridgeTOTPSecret: getEnv("BRIDGE_TOTP_SECRET", ""),
		SimBalance:       getFloat("SIM_BALANCE", 10000),

		CommissionPerLot: getFloat("COMMISSION_PER_LOT", 7),
		SlippagePoints:   getFloat("SLIPPAGE_POINTS", 0.3),
		BacktestLot:      getFloat("BACKTEST_LOT", 0.1),

		SQLitePath:    getEnv("SQLITE_PATH", "data/engine.db"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),

		CycleInterval: time.Duration(getInt("CYCLE_INTERVAL_SEC", 60)) * time.Second,

		SecretsKeyHex: getEnv("SECRETS_KEY_HEX", ""),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       getEnv("NOTIFY_WEBHOOK_URL", ""),
	}
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] %s=%q is not an integer, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] %s=%q is not a number, using %v", key, v, fallback)
		return fallback
	}
	return f
}
