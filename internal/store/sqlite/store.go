// Package sqlite is the persistent store for the engine: candles, trades,
// bot sessions, backtest reports, simulated trades, notifications, and
// system logs, all in a single SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"trading-enginev1/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Config configures the SQLite store.
type Config struct {
	DBPath string // path to the database file, e.g. "data/engine.db"
}

// Store wraps a SQLite database holding every relation the engine uses.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens (or creates) the database with WAL mode and the full schema.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer keeps SQLite happy under concurrent cycles.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS candles (
		symbol    TEXT    NOT NULL,
		timeframe TEXT    NOT NULL,
		ts        INTEGER NOT NULL,
		open      REAL    NOT NULL,
		high      REAL    NOT NULL,
		low       REAL    NOT NULL,
		close     REAL    NOT NULL,
		volume    REAL    NOT NULL DEFAULT 0,
		PRIMARY KEY (symbol, timeframe, ts)
	);

	CREATE TABLE IF NOT EXISTS trades (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id  INTEGER NOT NULL,
		ticket_id   TEXT    NOT NULL,
		symbol      TEXT    NOT NULL,
		type        TEXT    NOT NULL,
		lot_size    REAL    NOT NULL,
		open_price  REAL    NOT NULL,
		stop_loss   REAL    NOT NULL DEFAULT 0,
		take_profit REAL    NOT NULL DEFAULT 0,
		close_price REAL,
		profit_loss REAL,
		status      TEXT    NOT NULL DEFAULT 'open',
		open_time   INTEGER NOT NULL,
		close_time  INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_trades_session ON trades(session_id, status);
	CREATE INDEX IF NOT EXISTS idx_trades_ticket ON trades(ticket_id);

	CREATE TABLE IF NOT EXISTS bot_sessions (
		id                     INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id                INTEGER NOT NULL,
		account_id             TEXT    NOT NULL,
		symbol                 TEXT    NOT NULL,
		timeframe              TEXT    NOT NULL,
		risk_level             TEXT    NOT NULL,
		strategy_mode          TEXT    NOT NULL,
		strategy_params        TEXT    NOT NULL DEFAULT '',
		status                 TEXT    NOT NULL DEFAULT 'active',
		total_trades           INTEGER NOT NULL DEFAULT 0,
		winning_trades         INTEGER NOT NULL DEFAULT 0,
		losing_trades          INTEGER NOT NULL DEFAULT 0,
		total_profit           REAL    NOT NULL DEFAULT 0,
		session_initial_equity REAL    NOT NULL DEFAULT 0,
		session_peak_equity    REAL    NOT NULL DEFAULT 0,
		last_trade_at          INTEGER,
		created_at             INTEGER NOT NULL DEFAULT (strftime('%s','now')),
		updated_at             INTEGER NOT NULL DEFAULT (strftime('%s','now'))
	);

	CREATE TABLE IF NOT EXISTS backtest_reports (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol            TEXT    NOT NULL,
		timeframe         TEXT    NOT NULL,
		from_ts           INTEGER NOT NULL,
		to_ts             INTEGER NOT NULL,
		strategy_mode     TEXT    NOT NULL,
		params            TEXT    NOT NULL DEFAULT '',
		total_trades      INTEGER NOT NULL,
		total_profit_loss REAL    NOT NULL,
		winning_trades    INTEGER NOT NULL,
		losing_trades     INTEGER NOT NULL,
		win_rate          REAL    NOT NULL,
		created_at        INTEGER NOT NULL DEFAULT (strftime('%s','now'))
	);

	CREATE TABLE IF NOT EXISTS simulated_trades (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id      INTEGER NOT NULL REFERENCES backtest_reports(id) ON DELETE CASCADE,
		type           TEXT    NOT NULL,
		lot_size       REAL    NOT NULL,
		entry_time     INTEGER NOT NULL,
		entry_price    REAL    NOT NULL,
		exit_time      INTEGER NOT NULL,
		exit_price     REAL    NOT NULL,
		stop_loss      REAL    NOT NULL,
		take_profit    REAL    NOT NULL DEFAULT 0,
		profit_or_loss REAL    NOT NULL,
		close_reason   TEXT    NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_simtrades_report ON simulated_trades(report_id);

	CREATE TABLE IF NOT EXISTS notifications (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    INTEGER NOT NULL,
		type       TEXT    NOT NULL,
		title      TEXT    NOT NULL,
		message    TEXT    NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
	);

	CREATE TABLE IF NOT EXISTS system_logs (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		component  TEXT    NOT NULL,
		level      TEXT    NOT NULL,
		message    TEXT    NOT NULL,
		context    TEXT    NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
	);
	`)
	return err
}

// UpsertCandles inserts candles in one transaction, keyed by
// (symbol, timeframe, timestamp) so repeated fetches are idempotent.
func (s *Store) UpsertCandles(ctx context.Context, candles []model.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO candles (symbol, timeframe, ts, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, c := range candles {
		if _, err := stmt.Exec(c.Symbol, c.Timeframe, c.TS.Unix(), c.Open, c.High, c.Low, c.Close, c.Volume); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LoadCandles reads candles for a (symbol, timeframe) pair, ordered by
// timestamp ascending. Zero from/to mean unbounded.
func (s *Store) LoadCandles(ctx context.Context, symbol, timeframe string, from, to time.Time) ([]model.Candle, error) {
	fromTS := int64(0)
	toTS := int64(1<<62 - 1)
	if !from.IsZero() {
		fromTS = from.Unix()
	}
	if !to.IsZero() {
		toTS = to.Unix()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, timeframe, ts, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND timeframe = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`, symbol, timeframe, fromTS, toTS)
	if err != nil {
		return nil, fmt.Errorf("sqlite query candles: %w", err)
	}
	defer rows.Close()

	var candles []model.Candle
	for rows.Next() {
		var c model.Candle
		var ts int64
		if err := rows.Scan(&c.Symbol, &c.Timeframe, &ts, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan candle: %w", err)
		}
		c.TS = time.Unix(ts, 0).UTC()
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// InsertNotification records a fire-and-forget notification row.
func (s *Store) InsertNotification(ctx context.Context, userID int64, typ, title, message string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (user_id, type, title, message) VALUES (?, ?, ?, ?)`,
		userID, typ, title, message)
	return err
}

// InsertSystemLog records a diagnostic row for batch failures and audits.
func (s *Store) InsertSystemLog(ctx context.Context, component, level, message, contextJSON string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO system_logs (component, level, message, context) VALUES (?, ?, ?, ?)`,
		component, level, message, contextJSON)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
