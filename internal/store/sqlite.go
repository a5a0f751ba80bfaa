// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "forex-journal/internal/errors"
	"forex-journal/internal/models"
)

// SQLiteStore implements TradeStore using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a new SQLite-based trade store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:  db,
		now: time.Now,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- One row per logged trade, scoped by user
	CREATE TABLE IF NOT EXISTS trades (
		user_id TEXT NOT NULL,
		id TEXT NOT NULL,
		pair TEXT NOT NULL,
		direction TEXT NOT NULL,
		entry_price REAL,
		exit_price REAL,
		lot_size REAL,
		stop_loss REAL,
		take_profit REAL,
		profit_loss_pips REAL,
		risk_reward_ratio REAL,
		profit REAL,
		loss REAL,
		net_profit REAL NOT NULL DEFAULT 0,
		entry_time TEXT NOT NULL,
		exit_time TEXT,
		strategy TEXT,
		emotional_state TEXT,
		notes TEXT,
		confidence INTEGER NOT NULL DEFAULT 5,
		tags TEXT,
		outcome TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_trades_user_entry ON trades(user_id, entry_time);
	CREATE INDEX IF NOT EXISTS idx_trades_user_pair ON trades(user_id, pair);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Trades Methods
// ============================================================================

const sqliteTradeColumns = `id, pair, direction, entry_price, exit_price, lot_size, stop_loss, take_profit,
	profit_loss_pips, risk_reward_ratio, profit, loss, net_profit, entry_time, exit_time,
	strategy, emotional_state, notes, confidence, tags, outcome, created_at, updated_at`

// ListTrades retrieves all of a user's trades, newest first.
func (s *SQLiteStore) ListTrades(ctx context.Context, userID string) ([]models.Trade, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT "+sqliteTradeColumns+" FROM trades WHERE user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	trades := []models.Trade{}
	for rows.Next() {
		t, err := scanSQLiteTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}

	sortTrades(trades)
	return trades, nil
}

// GetTrade retrieves a single trade.
func (s *SQLiteStore) GetTrade(ctx context.Context, userID, id string) (models.Trade, error) {
	if err := checkUser(userID); err != nil {
		return models.Trade{}, err
	}

	row := s.db.QueryRowContext(ctx, "SELECT "+sqliteTradeColumns+" FROM trades WHERE user_id = ? AND id = ?", userID, id)
	t, err := scanSQLiteTrade(row)
	if err == sql.ErrNoRows {
		return models.Trade{}, apperrors.ErrTradeNotFound
	}
	return t, err
}

// CreateTrade inserts a new trade under a fresh ID.
func (s *SQLiteStore) CreateTrade(ctx context.Context, userID string, trade models.Trade) (models.Trade, error) {
	if err := checkUser(userID); err != nil {
		return models.Trade{}, err
	}

	t := trade.Clone()
	t.ID = NewID()
	t.CreatedAt = s.now()
	t.UpdatedAt = t.CreatedAt

	args, err := sqliteTradeArgs(t)
	if err != nil {
		return models.Trade{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trades (user_id, `+sqliteTradeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, append([]interface{}{userID}, args...)...)
	if err != nil {
		return models.Trade{}, fmt.Errorf("failed to insert trade: %w", err)
	}
	return t, nil
}

// UpdateTrade overwrites an existing trade.
func (s *SQLiteStore) UpdateTrade(ctx context.Context, userID string, trade models.Trade) (models.Trade, error) {
	if err := checkUser(userID); err != nil {
		return models.Trade{}, err
	}
	if err := checkTradeID(trade.ID); err != nil {
		return models.Trade{}, err
	}

	existing, err := s.GetTrade(ctx, userID, trade.ID)
	if err != nil {
		return models.Trade{}, err
	}

	t := trade.Clone()
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = s.now()

	args, err := sqliteTradeArgs(t)
	if err != nil {
		return models.Trade{}, err
	}
	// args[0] is the id; the WHERE clause takes it again
	_, err = s.db.ExecContext(ctx, `
		UPDATE trades SET
			pair = ?, direction = ?, entry_price = ?, exit_price = ?, lot_size = ?, stop_loss = ?, take_profit = ?,
			profit_loss_pips = ?, risk_reward_ratio = ?, profit = ?, loss = ?, net_profit = ?, entry_time = ?, exit_time = ?,
			strategy = ?, emotional_state = ?, notes = ?, confidence = ?, tags = ?, outcome = ?, created_at = ?, updated_at = ?
		WHERE user_id = ? AND id = ?
	`, append(args[1:], userID, t.ID)...)
	if err != nil {
		return models.Trade{}, fmt.Errorf("failed to update trade: %w", err)
	}
	return t, nil
}

// DeleteTrade removes a trade.
func (s *SQLiteStore) DeleteTrade(ctx context.Context, userID, id string) error {
	if err := checkUser(userID); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM trades WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete trade: %w", err)
	}
	if n == 0 {
		return apperrors.ErrTradeNotFound
	}
	return nil
}

// ============================================================================
// Row mapping
// ============================================================================

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func sqliteTradeArgs(t models.Trade) ([]interface{}, error) {
	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}

	var entry, exit, lot, sl, tp *float64
	if p := t.Prices; p != nil {
		entry, exit, lot, sl, tp = &p.EntryPrice, &p.ExitPrice, &p.LotSize, &p.StopLoss, &p.TakeProfit
	}

	return []interface{}{
		t.ID, t.Pair, string(t.Direction), entry, exit, lot, sl, tp,
		t.ProfitLossPips, t.RiskRewardRatio, t.Profit, t.Loss, t.NetProfit,
		formatTime(t.EntryTime), nullableTime(t.ExitTime),
		t.Strategy, t.EmotionalState, t.Notes, t.Confidence, string(tags), string(t.Outcome),
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
	}, nil
}

func scanSQLiteTrade(row rowScanner) (models.Trade, error) {
	var t models.Trade
	var direction, outcome, entryTime, createdAt, updatedAt string
	var exitTime, strategy, emotional, notes, tags sql.NullString
	var entry, exit, lot, sl, tp, pips, rr, profit, loss sql.NullFloat64

	err := row.Scan(&t.ID, &t.Pair, &direction, &entry, &exit, &lot, &sl, &tp,
		&pips, &rr, &profit, &loss, &t.NetProfit, &entryTime, &exitTime,
		&strategy, &emotional, &notes, &t.Confidence, &tags, &outcome, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return t, err
	}
	if err != nil {
		return t, fmt.Errorf("failed to scan trade: %w", err)
	}

	t.Direction = models.Direction(direction)
	t.Outcome = models.Outcome(outcome)
	t.Strategy = strategy.String
	t.EmotionalState = emotional.String
	t.Notes = notes.String

	if entry.Valid {
		t.Prices = &models.PriceLevels{
			EntryPrice: entry.Float64,
			ExitPrice:  exit.Float64,
			LotSize:    lot.Float64,
			StopLoss:   sl.Float64,
			TakeProfit: tp.Float64,
		}
	}
	t.ProfitLossPips = nullFloat(pips)
	t.RiskRewardRatio = nullFloat(rr)
	t.Profit = nullFloat(profit)
	t.Loss = nullFloat(loss)

	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &t.Tags); err != nil {
			return t, fmt.Errorf("failed to decode tags: %w", err)
		}
	}

	if t.EntryTime, err = parseTime(entryTime); err != nil {
		return t, err
	}
	if exitTime.Valid {
		if t.ExitTime, err = parseTime(exitTime.String); err != nil {
			return t, err
		}
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return t, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return t, err
	}
	return t, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

// Times are stored as RFC 3339 text so the original UTC offset, and with it
// the calendar date, survives a round trip.
func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored time %q: %w", s, err)
	}
	return t, nil
}
