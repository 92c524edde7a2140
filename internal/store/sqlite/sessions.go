package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"trading-enginev1/internal/model"
)

// CreateSession inserts a new bot session and returns its id.
func (s *Store) CreateSession(ctx context.Context, sess *model.BotSession) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO bot_sessions (user_id, account_id, symbol, timeframe, risk_level,
			strategy_mode, strategy_params, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, sess.UserID, sess.AccountID, sess.Symbol, sess.Timeframe, sess.RiskLevel,
		string(sess.StrategyMode), sess.StrategyParamsJSON, string(model.SessionActive))
	if err != nil {
		return 0, fmt.Errorf("sqlite create session: %w", err)
	}
	return res.LastInsertId()
}

// ListActiveSessions returns all sessions with status=active.
func (s *Store) ListActiveSessions(ctx context.Context) ([]model.BotSession, error) {
	rows, err := s.db.QueryContext(ctx, sessionSelect+` WHERE status = ? ORDER BY id ASC`,
		string(model.SessionActive))
	if err != nil {
		return nil, fmt.Errorf("sqlite query active sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.BotSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// GetSession returns a session by id, or nil if it does not exist.
func (s *Store) GetSession(ctx context.Context, id int64) (*model.BotSession, error) {
	rows, err := s.db.QueryContext(ctx, sessionSelect+` WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite query session: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	sess, err := scanSession(rows)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// UpdateSession writes back the mutable session fields (status, counters,
// equity tracking). The live session processor is its sole caller.
func (s *Store) UpdateSession(ctx context.Context, sess *model.BotSession) error {
	var lastTrade sql.NullInt64
	if !sess.LastTradeAt.IsZero() {
		lastTrade = sql.NullInt64{Int64: sess.LastTradeAt.Unix(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE bot_sessions
		SET status = ?, total_trades = ?, winning_trades = ?, losing_trades = ?,
			total_profit = ?, session_initial_equity = ?, session_peak_equity = ?,
			last_trade_at = ?, updated_at = strftime('%s','now')
		WHERE id = ?
	`, string(sess.Status), sess.TotalTrades, sess.WinningTrades, sess.LosingTrades,
		sess.TotalProfit, sess.SessionInitialEquity, sess.SessionPeakEquity, lastTrade, sess.ID)
	if err != nil {
		return fmt.Errorf("sqlite update session: %w", err)
	}
	return nil
}

const sessionSelect = `
	SELECT id, user_id, account_id, symbol, timeframe, risk_level, strategy_mode,
		strategy_params, status, total_trades, winning_trades, losing_trades,
		total_profit, session_initial_equity, session_peak_equity, last_trade_at,
		created_at, updated_at
	FROM bot_sessions`

func scanSession(rows *sql.Rows) (model.BotSession, error) {
	var sess model.BotSession
	var mode, status string
	var lastTrade sql.NullInt64
	var createdAt, updatedAt int64
	err := rows.Scan(&sess.ID, &sess.UserID, &sess.AccountID, &sess.Symbol, &sess.Timeframe,
		&sess.RiskLevel, &mode, &sess.StrategyParamsJSON, &status, &sess.TotalTrades,
		&sess.WinningTrades, &sess.LosingTrades, &sess.TotalProfit,
		&sess.SessionInitialEquity, &sess.SessionPeakEquity, &lastTrade, &createdAt, &updatedAt)
	if err != nil {
		return sess, fmt.Errorf("sqlite scan session: %w", err)
	}
	sess.StrategyMode = model.StrategyMode(mode)
	sess.Status = model.SessionStatus(status)
	if lastTrade.Valid {
		sess.LastTradeAt = time.Unix(lastTrade.Int64, 0).UTC()
	}
	sess.CreatedAt = time.Unix(createdAt, 0).UTC()
	sess.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return sess, nil
}
