package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "forex-journal/internal/errors"
	"forex-journal/internal/models"
)

// PostgresStore implements TradeStore on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// ConnectPostgres opens and verifies a pool for dsn.
func ConnectPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnIdleTime = 30 * time.Second
	cfg.MaxConnLifetime = 5 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return p, nil
}

// NewPostgresStore wraps a pool and makes sure the schema exists.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	s := &PostgresStore{pool: pool, now: pgNow}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS journal_trades (
			user_id TEXT NOT NULL,
			id TEXT NOT NULL,
			pair TEXT NOT NULL,
			direction TEXT NOT NULL,
			entry_price DOUBLE PRECISION,
			exit_price DOUBLE PRECISION,
			lot_size DOUBLE PRECISION,
			stop_loss DOUBLE PRECISION,
			take_profit DOUBLE PRECISION,
			profit_loss_pips DOUBLE PRECISION,
			risk_reward_ratio DOUBLE PRECISION,
			profit DOUBLE PRECISION,
			loss DOUBLE PRECISION,
			net_profit DOUBLE PRECISION NOT NULL DEFAULT 0,
			entry_time TIMESTAMPTZ NOT NULL,
			exit_time TIMESTAMPTZ,
			strategy TEXT NOT NULL DEFAULT '',
			emotional_state TEXT NOT NULL DEFAULT '',
			notes TEXT NOT NULL DEFAULT '',
			confidence INTEGER NOT NULL DEFAULT 5,
			tags TEXT[] NOT NULL DEFAULT '{}',
			outcome TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (user_id, id)
		);
		ALTER TABLE journal_trades ADD COLUMN IF NOT EXISTS entry_offset INTEGER;
		ALTER TABLE journal_trades ADD COLUMN IF NOT EXISTS exit_offset INTEGER;
		CREATE INDEX IF NOT EXISTS idx_journal_trades_user_entry ON journal_trades(user_id, entry_time DESC);
	`)
	return err
}

// pgNow matches the microsecond resolution of TIMESTAMPTZ.
func pgNow() time.Time {
	return time.Now().Truncate(time.Microsecond)
}

const pgTradeColumns = `id, pair, direction, entry_price, exit_price, lot_size, stop_loss, take_profit,
	profit_loss_pips, risk_reward_ratio, profit, loss, net_profit, entry_time, exit_time,
	strategy, emotional_state, notes, confidence, tags, outcome, entry_offset, exit_offset, created_at, updated_at`

// ListTrades returns the user's trades, newest first.
func (s *PostgresStore) ListTrades(ctx context.Context, userID string) ([]models.Trade, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+pgTradeColumns+` FROM journal_trades WHERE user_id = $1 ORDER BY entry_time DESC, id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	trades := []models.Trade{}
	for rows.Next() {
		t, err := scanPgTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}
	return trades, nil
}

// GetTrade returns one trade.
func (s *PostgresStore) GetTrade(ctx context.Context, userID, id string) (models.Trade, error) {
	if err := checkUser(userID); err != nil {
		return models.Trade{}, err
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+pgTradeColumns+` FROM journal_trades WHERE user_id = $1 AND id = $2`,
		userID, id)
	t, err := scanPgTrade(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Trade{}, apperrors.ErrTradeNotFound
	}
	return t, err
}

// CreateTrade inserts a trade under a fresh ID.
func (s *PostgresStore) CreateTrade(ctx context.Context, userID string, trade models.Trade) (models.Trade, error) {
	if err := checkUser(userID); err != nil {
		return models.Trade{}, err
	}

	t := trade.Clone()
	t.ID = NewID()
	t.CreatedAt = s.now()
	t.UpdatedAt = t.CreatedAt

	_, err := s.pool.Exec(ctx, `
		INSERT INTO journal_trades (user_id, `+pgTradeColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
	`, append([]any{userID}, pgTradeArgs(t)...)...)
	if err != nil {
		return models.Trade{}, fmt.Errorf("insert trade: %w", err)
	}
	return t, nil
}

// UpdateTrade overwrites an existing trade, keeping its creation time.
func (s *PostgresStore) UpdateTrade(ctx context.Context, userID string, trade models.Trade) (models.Trade, error) {
	if err := checkUser(userID); err != nil {
		return models.Trade{}, err
	}
	if err := checkTradeID(trade.ID); err != nil {
		return models.Trade{}, err
	}

	t := trade.Clone()
	t.UpdatedAt = s.now()
	args := pgTradeArgs(t)
	// every column but created_at, which the row keeps
	updateArgs := append([]any{userID}, args[:23]...)
	updateArgs = append(updateArgs, t.UpdatedAt)

	var createdAt time.Time
	err := s.pool.QueryRow(ctx, `
		UPDATE journal_trades SET
			pair = $3, direction = $4, entry_price = $5, exit_price = $6, lot_size = $7, stop_loss = $8, take_profit = $9,
			profit_loss_pips = $10, risk_reward_ratio = $11, profit = $12, loss = $13, net_profit = $14,
			entry_time = $15, exit_time = $16, strategy = $17, emotional_state = $18, notes = $19,
			confidence = $20, tags = $21, outcome = $22, entry_offset = $23, exit_offset = $24, updated_at = $25
		WHERE user_id = $1 AND id = $2
		RETURNING created_at
	`, updateArgs...).Scan(&createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Trade{}, apperrors.ErrTradeNotFound
	}
	if err != nil {
		return models.Trade{}, fmt.Errorf("update trade: %w", err)
	}
	t.CreatedAt = createdAt
	return t, nil
}

// DeleteTrade removes a trade.
func (s *PostgresStore) DeleteTrade(ctx context.Context, userID, id string) error {
	if err := checkUser(userID); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM journal_trades WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("delete trade: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTradeNotFound
	}
	return nil
}

// Ping checks the pool.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func pgTradeArgs(t models.Trade) []any {
	var entry, exit, lot, sl, tp *float64
	if p := t.Prices; p != nil {
		entry, exit, lot, sl, tp = &p.EntryPrice, &p.ExitPrice, &p.LotSize, &p.StopLoss, &p.TakeProfit
	}
	var exitTime *time.Time
	var exitOffset *int
	if !t.ExitTime.IsZero() {
		exitTime = &t.ExitTime
		off := zoneOffset(t.ExitTime)
		exitOffset = &off
	}
	entryOffset := zoneOffset(t.EntryTime)
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return []any{
		t.ID, t.Pair, string(t.Direction), entry, exit, lot, sl, tp,
		t.ProfitLossPips, t.RiskRewardRatio, t.Profit, t.Loss, t.NetProfit,
		t.EntryTime, exitTime, t.Strategy, t.EmotionalState, t.Notes, t.Confidence,
		tags, string(t.Outcome), entryOffset, exitOffset, t.CreatedAt, t.UpdatedAt,
	}
}

func scanPgTrade(row pgx.Row) (models.Trade, error) {
	var t models.Trade
	var direction, outcome string
	var entry, exit, lot, sl, tp *float64
	var exitTime *time.Time
	var entryOffset, exitOffset *int

	err := row.Scan(&t.ID, &t.Pair, &direction, &entry, &exit, &lot, &sl, &tp,
		&t.ProfitLossPips, &t.RiskRewardRatio, &t.Profit, &t.Loss, &t.NetProfit,
		&t.EntryTime, &exitTime, &t.Strategy, &t.EmotionalState, &t.Notes, &t.Confidence,
		&t.Tags, &outcome, &entryOffset, &exitOffset, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return t, err
	}
	if err != nil {
		return t, fmt.Errorf("scan trade: %w", err)
	}

	t.Direction = models.Direction(direction)
	t.Outcome = models.Outcome(outcome)
	if entry != nil {
		t.Prices = &models.PriceLevels{EntryPrice: *entry}
		if exit != nil {
			t.Prices.ExitPrice = *exit
		}
		if lot != nil {
			t.Prices.LotSize = *lot
		}
		if sl != nil {
			t.Prices.StopLoss = *sl
		}
		if tp != nil {
			t.Prices.TakeProfit = *tp
		}
	}
	// TIMESTAMPTZ drops the offset, so the entered one is kept beside it.
	t.EntryTime = withOffset(t.EntryTime, entryOffset)
	if exitTime != nil {
		t.ExitTime = withOffset(*exitTime, exitOffset)
	}
	if len(t.Tags) == 0 {
		t.Tags = nil
	}
	return t, nil
}

func zoneOffset(t time.Time) int {
	_, off := t.Zone()
	return off
}

// withOffset restores the offset a time was entered with. Rows written
// before offsets were recorded fall back to the local zone.
func withOffset(t time.Time, offset *int) time.Time {
	if offset == nil {
		return t.In(time.Local)
	}
	if _, local := t.In(time.Local).Zone(); local == *offset {
		return t.In(time.Local)
	}
	return t.In(time.FixedZone("", *offset))
}
