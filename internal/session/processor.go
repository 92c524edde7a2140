// Package session runs the live trading control loop: one pass over every
// active bot session per invocation. The invocation cadence is an external
// scheduling concern; each pass enforces the drawdown limit, the
// single-open-trade invariant, and equity-based position sizing before any
// order reaches the execution provider.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"trading-enginev1/internal/execution"
	"trading-enginev1/internal/lock"
	"trading-enginev1/internal/marketdata"
	"trading-enginev1/internal/markethours"
	"trading-enginev1/internal/metrics"
	"trading-enginev1/internal/model"
	"trading-enginev1/internal/notification"
	"trading-enginev1/internal/store/sqlite"
	"trading-enginev1/internal/strategy"
)

// Config tunes one processor instance.
type Config struct {
	CandleCount int           // candles fetched per evaluation, 0 = 200
	LockTTL     time.Duration // per-session lock lifetime, 0 = 2m
}

// Processor executes one evaluation cycle per RunOnce call.
type Processor struct {
	cfg      Config
	store    *sqlite.Store
	provider execution.Provider
	source   marketdata.Source
	notifier notification.Notifier
	locker   lock.Locker
	metrics  *metrics.Metrics
	now      func() time.Time
}

// New creates a processor. notifier and locker may not be nil; pass a
// LogNotifier and MemoryLocker for single-process deployments.
func New(cfg Config, store *sqlite.Store, provider execution.Provider, source marketdata.Source, notifier notification.Notifier, locker lock.Locker) *Processor {
	if cfg.CandleCount <= 0 {
		cfg.CandleCount = 200
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	return &Processor{
		cfg:      cfg,
		store:    store,
		provider: provider,
		source:   source,
		notifier: notifier,
		locker:   locker,
		now:      time.Now,
	}
}

// SetMetrics attaches Prometheus instrumentation. Optional; a nil receiver
// field disables it.
func (p *Processor) SetMetrics(m *metrics.Metrics) {
	p.metrics = m
}

// RunOnce processes every active session. Failures are isolated per session:
// one session's error is logged and recorded, never propagated to the rest.
func (p *Processor) RunOnce(ctx context.Context) error {
	if !markethours.IsMarketOpen(p.now()) {
		log.Printf("[session] market closed, next open %s, skipping cycle", markethours.NextOpen(p.now()).Format(time.RFC3339))
		return nil
	}

	sessions, err := p.store.ListActiveSessions(ctx)
	if err != nil {
		return fmt.Errorf("list active sessions: %w", err)
	}
	if p.metrics != nil {
		p.metrics.SessionsActive.Set(float64(len(sessions)))
	}

	for i := range sessions {
		sess := &sessions[i]
		if err := p.processSession(ctx, sess); err != nil {
			log.Printf("[session] session=%d user=%d cycle failed: %v", sess.ID, sess.UserID, err)
			detail, _ := json.Marshal(map[string]interface{}{"session_id": sess.ID, "user_id": sess.UserID, "error": err.Error()})
			if logErr := p.store.InsertSystemLog(ctx, "session", "error", "cycle failed", string(detail)); logErr != nil {
				log.Printf("[session] system log write failed: %v", logErr)
			}
		}
	}
	return nil
}

func (p *Processor) processSession(ctx context.Context, sess *model.BotSession) error {
	key := fmt.Sprintf("session:%d", sess.ID)
	ok, err := p.locker.TryLock(ctx, key, p.cfg.LockTTL)
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		log.Printf("[session] session=%d locked by another cycle, skipping", sess.ID)
		return nil
	}
	defer func() {
		if err := p.locker.Unlock(ctx, key); err != nil {
			log.Printf("[session] session=%d unlock: %v", sess.ID, err)
		}
	}()

	risk := model.RiskLevelFor(sess.RiskLevel)

	equity, equityKnown := p.readEquity(ctx, sess)
	if equityKnown {
		paused, err := p.enforceDrawdown(ctx, sess, risk, equity)
		if err != nil {
			return err
		}
		if paused {
			return nil
		}
	}

	open, err := p.store.GetOpenTrade(ctx, sess.ID)
	if err != nil {
		return fmt.Errorf("open trade lookup: %w", err)
	}
	if open != nil {
		log.Printf("[session] session=%d has open trade %s, skipping evaluation", sess.ID, open.TicketID)
		return nil
	}

	params := strategy.DefaultParameters()
	if sess.StrategyParamsJSON != "" {
		if err := params.ApplyJSON(sess.StrategyParamsJSON); err != nil {
			return fmt.Errorf("session parameters: %w", err)
		}
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("session parameters: %w", err)
	}

	candles, err := p.source.Candles(ctx, sess.Symbol, sess.Timeframe, p.cfg.CandleCount)
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}
	if len(candles) <= strategy.MinHistory(sess.StrategyMode, params) {
		log.Printf("[session] session=%d only %d candles, not enough lookback", sess.ID, len(candles))
		return nil
	}

	sig := strategy.Evaluate(candles, len(candles)-1, sess.StrategyMode, params)
	if p.metrics != nil {
		p.metrics.SignalsTotal.WithLabelValues(string(sess.StrategyMode), string(sig.Action)).Inc()
	}
	if sig.Action == strategy.ActionHold {
		return nil
	}

	var lot float64
	if equityKnown {
		lot = LotForRisk(equity, risk.RiskPerTrade, sig.PriceAtDecision, sig.StopLoss, risk.MaxLot)
	} else {
		// Equity read failed this cycle; this is a degraded state, not a
		// flat-risk configuration.
		log.Printf("[session] session=%d equity unavailable, falling back to flat lot %.2f", sess.ID, risk.DefaultLot)
		lot = risk.DefaultLot
	}

	return p.execute(ctx, sess, sig, lot)
}

// readEquity fetches account equity. A failed read skips only the drawdown
// check, never the whole session.
func (p *Processor) readEquity(ctx context.Context, sess *model.BotSession) (float64, bool) {
	summary, err := p.provider.GetAccountSummary(ctx, sess.AccountID)
	if err != nil {
		log.Printf("[session] session=%d equity read failed: %v, drawdown check skipped this cycle", sess.ID, err)
		return 0, false
	}
	return summary.Equity, true
}

// enforceDrawdown updates the equity watermarks and pauses the session when
// the decline from peak reaches the configured maximum.
func (p *Processor) enforceDrawdown(ctx context.Context, sess *model.BotSession, risk model.RiskLevel, equity float64) (paused bool, err error) {
	if sess.SessionInitialEquity == 0 {
		sess.SessionInitialEquity = equity
		sess.SessionPeakEquity = equity
	} else if equity > sess.SessionPeakEquity {
		sess.SessionPeakEquity = equity
	}

	drawdown := 0.0
	if sess.SessionPeakEquity > 0 {
		drawdown = (sess.SessionPeakEquity - equity) / sess.SessionPeakEquity
	}

	if drawdown >= risk.MaxDrawdown {
		sess.Status = model.SessionPausedDrawdown
		if err := p.store.UpdateSession(ctx, sess); err != nil {
			return false, fmt.Errorf("pause session: %w", err)
		}
		log.Printf("[session] session=%d paused: drawdown %.2f%% >= %.2f%% (peak %.2f, equity %.2f)",
			sess.ID, drawdown*100, risk.MaxDrawdown*100, sess.SessionPeakEquity, equity)
		if p.metrics != nil {
			p.metrics.SessionsPaused.Inc()
		}
		p.notify(ctx, notification.Alert{
			UserID: sess.UserID,
			Type:   notification.TypeDrawdownPause,
			Title:  "Session paused: drawdown limit reached",
			Message: fmt.Sprintf("Session %d paused at %.1f%% drawdown (peak %.2f, current %.2f).",
				sess.ID, drawdown*100, sess.SessionPeakEquity, equity),
		})
		return true, nil
	}

	if err := p.store.UpdateSession(ctx, sess); err != nil {
		return false, fmt.Errorf("persist equity watermarks: %w", err)
	}
	return false, nil
}

// execute submits the order. Session counters mutate only after the provider
// accepts the order, so a failed submit leaves the session untouched.
func (p *Processor) execute(ctx context.Context, sess *model.BotSession, sig strategy.Signal, lot float64) error {
	typ := model.TradeBuy
	if sig.Action == strategy.ActionSell {
		typ = model.TradeSell
	}

	res, err := p.provider.ExecuteOrder(ctx, execution.OrderParams{
		SessionID:  sess.ID,
		Symbol:     sess.Symbol,
		Type:       typ,
		LotSize:    lot,
		Price:      sig.PriceAtDecision,
		StopLoss:   sig.StopLoss,
		TakeProfit: sig.TakeProfit,
	})
	if err != nil {
		if p.metrics != nil {
			p.metrics.ExecutionErrors.Inc()
		}
		p.notify(ctx, notification.Alert{
			UserID:  sess.UserID,
			Type:    notification.TypeExecutionFailure,
			Title:   "Order execution failed",
			Message: fmt.Sprintf("Session %d: %s %s %.2f lots rejected: %v", sess.ID, typ, sess.Symbol, lot, err),
		})
		return fmt.Errorf("execute order: %w", err)
	}

	if p.metrics != nil {
		p.metrics.TradesTotal.WithLabelValues(string(typ)).Inc()
	}
	sess.TotalTrades++
	sess.LastTradeAt = p.now()
	if err := p.store.UpdateSession(ctx, sess); err != nil {
		return fmt.Errorf("record trade on session: %w", err)
	}

	log.Printf("[session] session=%d opened %s %s %.2f lots @ %.2f ticket=%s (%s)",
		sess.ID, typ, sess.Symbol, lot, sig.PriceAtDecision, res.TicketID, sig.Reason)
	p.notify(ctx, notification.Alert{
		UserID: sess.UserID,
		Type:   notification.TypeTradeOpened,
		Title:  "Trade opened",
		Message: fmt.Sprintf("%s %s %.2f lots @ %.2f, SL %.2f, TP %.2f (%s)",
			typ, sess.Symbol, lot, sig.PriceAtDecision, sig.StopLoss, sig.TakeProfit, sig.Reason),
	})
	return nil
}

// notify is fire-and-forget; delivery failures never block trading.
func (p *Processor) notify(ctx context.Context, alert notification.Alert) {
	if err := p.notifier.Send(ctx, alert); err != nil {
		log.Printf("[session] notification failed: %v", err)
	}
}
