package sqlite

import (
	"context"
	"fmt"

	"trading-enginev1/internal/model"
)

// InsertReport persists a backtest report and returns its id.
func (s *Store) InsertReport(ctx context.Context, r *model.BacktestReport) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO backtest_reports (symbol, timeframe, from_ts, to_ts, strategy_mode,
			params, total_trades, total_profit_loss, winning_trades, losing_trades, win_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.Symbol, r.Timeframe, r.From.Unix(), r.To.Unix(), string(r.StrategyMode),
		r.ParamsJSON, r.TotalTrades, r.TotalProfitLoss, r.WinningTrades, r.LosingTrades, r.WinRate)
	if err != nil {
		return 0, fmt.Errorf("sqlite insert report: %w", err)
	}
	return res.LastInsertId()
}

// InsertSimulatedTrades persists a report's trade collection in one
// transaction.
func (s *Store) InsertSimulatedTrades(ctx context.Context, reportID int64, trades []model.SimulatedTrade) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO simulated_trades (report_id, type, lot_size, entry_time, entry_price,
			exit_time, exit_price, stop_loss, take_profit, profit_or_loss, close_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, t := range trades {
		if _, err := stmt.Exec(reportID, string(t.Type), t.LotSize, t.EntryTime.Unix(),
			t.EntryPrice, t.ExitTime.Unix(), t.ExitPrice, t.StopLoss, t.TakeProfit,
			t.ProfitOrLoss, string(t.CloseReason)); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// DeleteReport removes a report and (via cascade) its simulated trades.
// Used to roll back an orphaned report when trade persistence fails.
func (s *Store) DeleteReport(ctx context.Context, reportID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM simulated_trades WHERE report_id = ?`, reportID); err != nil {
		return fmt.Errorf("sqlite delete simulated trades: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM backtest_reports WHERE id = ?`, reportID); err != nil {
		return fmt.Errorf("sqlite delete report: %w", err)
	}
	return nil
}

// CountSimulatedTrades returns the number of trades owned by a report.
func (s *Store) CountSimulatedTrades(ctx context.Context, reportID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM simulated_trades WHERE report_id = ?`, reportID).Scan(&n)
	return n, err
}
