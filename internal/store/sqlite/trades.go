package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"trading-enginev1/internal/model"
)

// InsertTrade persists a newly executed trade and returns its row id.
func (s *Store) InsertTrade(ctx context.Context, t *model.Trade) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (session_id, ticket_id, symbol, type, lot_size, open_price,
			stop_loss, take_profit, status, open_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.SessionID, t.TicketID, t.Symbol, string(t.Type), t.LotSize, t.OpenPrice,
		t.StopLoss, t.TakeProfit, string(model.TradeOpen), t.OpenTime.Unix())
	if err != nil {
		return 0, fmt.Errorf("sqlite insert trade: %w", err)
	}
	return res.LastInsertId()
}

// CloseTrade marks a trade closed with its close price and realized P&L.
func (s *Store) CloseTrade(ctx context.Context, ticketID string, closePrice, profitLoss float64, closedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE trades
		SET status = ?, close_price = ?, profit_loss = ?, close_time = ?
		WHERE ticket_id = ? AND status = ?
	`, string(model.TradeClosed), closePrice, profitLoss, closedAt.Unix(), ticketID, string(model.TradeOpen))
	if err != nil {
		return fmt.Errorf("sqlite close trade: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("sqlite close trade: no open trade with ticket %s", ticketID)
	}
	return nil
}

// GetOpenTrade returns the session's open trade, or nil if none exists.
// At most one open trade per session is an engine invariant.
func (s *Store) GetOpenTrade(ctx context.Context, sessionID int64) (*model.Trade, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, ticket_id, symbol, type, lot_size, open_price,
			stop_loss, take_profit, status, open_time
		FROM trades
		WHERE session_id = ? AND status = ?
		ORDER BY id DESC LIMIT 1
	`, sessionID, string(model.TradeOpen))
	return scanOpenTrade(row)
}

// GetTradeByTicket returns the open trade with the given ticket, or nil.
func (s *Store) GetTradeByTicket(ctx context.Context, ticketID string) (*model.Trade, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, ticket_id, symbol, type, lot_size, open_price,
			stop_loss, take_profit, status, open_time
		FROM trades
		WHERE ticket_id = ? AND status = ?
	`, ticketID, string(model.TradeOpen))
	return scanOpenTrade(row)
}

// ListOpenTrades returns every open trade across all sessions.
func (s *Store) ListOpenTrades(ctx context.Context) ([]model.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, ticket_id, symbol, type, lot_size, open_price,
			stop_loss, take_profit, status, open_time
		FROM trades WHERE status = ? ORDER BY id ASC
	`, string(model.TradeOpen))
	if err != nil {
		return nil, fmt.Errorf("sqlite query open trades: %w", err)
	}
	defer rows.Close()

	var trades []model.Trade
	for rows.Next() {
		var t model.Trade
		var typ, status string
		var openTS int64
		if err := rows.Scan(&t.ID, &t.SessionID, &t.TicketID, &t.Symbol, &typ, &t.LotSize,
			&t.OpenPrice, &t.StopLoss, &t.TakeProfit, &status, &openTS); err != nil {
			return nil, fmt.Errorf("sqlite scan trade: %w", err)
		}
		t.Type = model.TradeType(typ)
		t.Status = model.TradeStatus(status)
		t.OpenTime = time.Unix(openTS, 0).UTC()
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// SumClosedProfit totals realized P&L across all closed trades.
func (s *Store) SumClosedProfit(ctx context.Context) (float64, error) {
	var sum sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT SUM(profit_loss) FROM trades WHERE status = ?`, string(model.TradeClosed)).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sqlite sum closed profit: %w", err)
	}
	return sum.Float64, nil
}

func scanOpenTrade(row *sql.Row) (*model.Trade, error) {
	var t model.Trade
	var typ, status string
	var openTS int64
	err := row.Scan(&t.ID, &t.SessionID, &t.TicketID, &t.Symbol, &typ, &t.LotSize,
		&t.OpenPrice, &t.StopLoss, &t.TakeProfit, &status, &openTS)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite scan trade: %w", err)
	}
	t.Type = model.TradeType(typ)
	t.Status = model.TradeStatus(status)
	t.OpenTime = time.Unix(openTS, 0).UTC()
	return &t, nil
}
