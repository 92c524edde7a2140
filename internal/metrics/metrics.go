// Package metrics exposes Prometheus metrics and a health endpoint for the
// trading engine.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	CyclesTotal      prometheus.Counter
	CycleDur         prometheus.Histogram
	SessionsActive   prometheus.Gauge
	SessionsPaused   prometheus.Counter     // drawdown pauses
	SignalsTotal     *prometheus.CounterVec // labels: mode, action
	TradesTotal      *prometheus.CounterVec // labels: type
	ExecutionErrors  prometheus.Counter
	MarketDataErrors prometheus.Counter
	PriceCacheStale  prometheus.Counter
	BacktestRuns     prometheus.Counter
	BacktestDur      prometheus.Histogram
}

// NewMetrics registers and returns all engine metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_cycles_total",
			Help: "Total live processing cycles run",
		}),
		CycleDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_cycle_duration_seconds",
			Help:    "Wall time of one full live processing cycle",
			Buckets: prometheus.DefBuckets,
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_sessions_active",
			Help: "Active bot sessions seen in the last cycle",
		}),
		SessionsPaused: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_sessions_paused_total",
			Help: "Sessions paused by the drawdown guard",
		}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_signals_total",
			Help: "Signals produced by the strategy dispatcher",
		}, []string{"mode", "action"}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_trades_total",
			Help: "Orders accepted by the execution provider",
		}, []string{"type"}),
		ExecutionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_execution_errors_total",
			Help: "Order submissions rejected after retries",
		}),
		MarketDataErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_marketdata_errors_total",
			Help: "Market data fetches that failed after retries",
		}),
		PriceCacheStale: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_price_cache_stale_served_total",
			Help: "Price reads served from the stale cache fallback",
		}),
		BacktestRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_backtest_runs_total",
			Help: "Backtest runs completed",
		}),
		BacktestDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "engine_backtest_duration_seconds",
			Help:    "Wall time of one backtest run",
			Buckets: prometheus.DefBuckets,
		}),
	}

	prometheus.MustRegister(
		m.CyclesTotal, m.CycleDur, m.SessionsActive, m.SessionsPaused,
		m.SignalsTotal, m.TradesTotal, m.ExecutionErrors, m.MarketDataErrors,
		m.PriceCacheStale, m.BacktestRuns, m.BacktestDur,
	)
	return m
}

// HealthStatus tracks liveness of the engine's dependencies for /healthz.
type HealthStatus struct {
	mu sync.RWMutex

	StartTime     time.Time
	SQLiteOK      bool
	ProviderOK    bool
	LastCycleTime time.Time
}

// NewHealthStatus creates a health tracker.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartTime: time.Now()}
}

func (h *HealthStatus) SetProviderOK(v bool) {
	h.mu.Lock()
	h.ProviderOK = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastCycleTime(t time.Time) {
	h.mu.Lock()
	h.LastCycleTime = t
	h.mu.Unlock()
}

// CheckSQLite pings the database and records the result.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	err := db.PingContext(ctx)
	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.mu.Unlock()
}

func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overall := "healthy"
	code := http.StatusOK
	if !h.SQLiteOK || !h.ProviderOK {
		overall = "degraded"
		code = http.StatusServiceUnavailable
	}

	lastCycle := ""
	if !h.LastCycleTime.IsZero() {
		lastCycle = time.Since(h.LastCycleTime).Round(time.Millisecond).String()
	}

	status := struct {
		Status       string `json:"status"`
		Uptime       string `json:"uptime"`
		SQLiteOK     bool   `json:"sqlite_ok"`
		ProviderOK   bool   `json:"provider_ok"`
		LastCycleAge string `json:"last_cycle_age"`
	}{
		Status:       overall,
		Uptime:       time.Since(h.StartTime).Round(time.Second).String(),
		SQLiteOK:     h.SQLiteOK,
		ProviderOK:   h.ProviderOK,
		LastCycleAge: lastCycle,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}

// Server serves /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer builds the metrics HTTP server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		addr: addr,
		srv:  &http.Server{Addr: addr, Handler: mux},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) {
	if err := s.srv.Shutdown(ctx); err != nil {
		log.Printf("[metrics] shutdown: %v", err)
	}
}
