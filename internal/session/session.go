// Package session provides the per-user trade repository. A Repository holds
// an in-memory snapshot of one user's trades; reads are synchronous against
// that snapshot and every mutation goes through the store first.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"forex-journal/internal/analytics"
	apperrors "forex-journal/internal/errors"
	"forex-journal/internal/journal"
	"forex-journal/internal/models"
	"forex-journal/internal/store"
	"forex-journal/internal/telemetry"
)

// Repository is the trade collection of one authenticated user.
type Repository struct {
	store  store.TradeStore
	calc   *journal.Calculator
	userID string
	logger zerolog.Logger

	// writeMu serializes mutations and refreshes so the snapshot applies
	// store results in the order the store accepted them.
	writeMu sync.Mutex

	mu        sync.RWMutex
	trades    []models.Trade
	loaded    bool
	refreshed time.Time
}

// New creates a repository for userID. Call Refresh to load trades.
func New(st store.TradeStore, calc *journal.Calculator, userID string, logger zerolog.Logger) (*Repository, error) {
	if userID == "" {
		return nil, apperrors.ErrNotAuthenticated
	}
	if calc == nil {
		calc = journal.NewCalculator(1)
	}
	return &Repository{
		store:  st,
		calc:   calc,
		userID: userID,
		logger: logger.With().Str("user_id", userID).Logger(),
	}, nil
}

// UserID returns the owner of the repository.
func (r *Repository) UserID() string {
	return r.userID
}

// Loaded reports whether Refresh has succeeded at least once.
func (r *Repository) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// RefreshedAt returns the time of the last successful Refresh.
func (r *Repository) RefreshedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.refreshed
}

// Refresh replaces the snapshot with the store's current contents.
func (r *Repository) Refresh(ctx context.Context) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "session.Refresh", r.userID)
	defer func() { telemetry.EndSpan(span, err) }()

	// No mutation may land between the list and the swap.
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	trades, err := r.store.ListTrades(ctx, r.userID)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to load trades")
		return apperrors.NewStoreError("list", r.userID, err)
	}

	r.mu.Lock()
	r.trades = trades
	r.loaded = true
	r.refreshed = time.Now()
	r.mu.Unlock()

	r.logger.Debug().Int("count", len(trades)).Msg("Trades loaded")
	return nil
}

// Trades returns a copy of the snapshot, newest entry first.
func (r *Repository) Trades() []models.Trade {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Trade, len(r.trades))
	for i, t := range r.trades {
		out[i] = t.Clone()
	}
	return out
}

// Get returns a trade from the snapshot.
func (r *Repository) Get(id string) (models.Trade, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.trades {
		if t.ID == id {
			return t.Clone(), true
		}
	}
	return models.Trade{}, false
}

// Add computes derived fields, persists the trade and appends it to the
// snapshot. Validation failures never reach the store.
func (r *Repository) Add(ctx context.Context, in journal.TradeInput) (trade models.Trade, err error) {
	computed, err := r.calc.Compute(in)
	if err != nil {
		return models.Trade{}, err
	}

	ctx, span := telemetry.StartSpan(ctx, "session.Add", r.userID)
	defer func() { telemetry.EndSpan(span, err) }()

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	created, err := r.store.CreateTrade(ctx, r.userID, computed)
	if err != nil {
		r.logger.Error().Err(err).Str("pair", computed.Pair).Msg("Failed to create trade")
		return models.Trade{}, apperrors.NewStoreError("create", r.userID, err)
	}

	r.mu.Lock()
	r.trades = insertSorted(r.trades, created)
	r.mu.Unlock()

	logTrade(r.logger, "created", created)
	return created.Clone(), nil
}

// Update recomputes a trade from in and persists it under the same ID.
func (r *Repository) Update(ctx context.Context, id string, in journal.TradeInput) (trade models.Trade, err error) {
	ctx, span := telemetry.StartSpan(ctx, "session.Update", r.userID)
	defer func() { telemetry.EndSpan(span, err) }()

	existing, ok := r.Get(id)
	if !ok {
		existing, err = r.store.GetTrade(ctx, r.userID, id)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return models.Trade{}, err
			}
			return models.Trade{}, apperrors.NewStoreError("get", r.userID, err)
		}
	}

	computed, err := r.calc.Recompute(existing, in)
	if err != nil {
		return models.Trade{}, err
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	updated, err := r.store.UpdateTrade(ctx, r.userID, computed)
	if err != nil {
		r.logger.Error().Err(err).Str("trade_id", id).Msg("Failed to update trade")
		if apperrors.IsNotFound(err) {
			r.removeFromSnapshot(id)
		}
		return models.Trade{}, apperrors.NewStoreError("update", r.userID, err)
	}

	r.mu.Lock()
	r.trades = insertSorted(removeTrade(r.trades, id), updated)
	r.mu.Unlock()

	logTrade(r.logger, "updated", updated)
	return updated.Clone(), nil
}

// Delete removes a trade from the store and the snapshot.
func (r *Repository) Delete(ctx context.Context, id string) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "session.Delete", r.userID)
	defer func() { telemetry.EndSpan(span, err) }()

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if err := r.store.DeleteTrade(ctx, r.userID, id); err != nil {
		r.logger.Error().Err(err).Str("trade_id", id).Msg("Failed to delete trade")
		if apperrors.IsNotFound(err) {
			r.removeFromSnapshot(id)
		}
		return apperrors.NewStoreError("delete", r.userID, err)
	}

	r.removeFromSnapshot(id)
	r.logger.Info().Str("event", "trade").Str("action", "deleted").Str("trade_id", id).Msg("Trade deleted")
	return nil
}

func (r *Repository) removeFromSnapshot(id string) {
	r.mu.Lock()
	r.trades = removeTrade(r.trades, id)
	r.mu.Unlock()
}

// ============================================================================
// Aggregates, recomputed from the snapshot on every call
// ============================================================================

// Stats aggregates the whole snapshot.
func (r *Repository) Stats() models.TradeStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return analytics.AggregateStats(r.trades)
}

// Calendar groups the snapshot by entry date.
func (r *Repository) Calendar() map[string]models.DailySummary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return analytics.AggregateByDay(r.trades)
}

// Pairs returns per-pair performance.
func (r *Repository) Pairs() []models.PairPerformance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return analytics.AggregateByPair(r.trades)
}

// Filtered returns the trades matching f.
func (r *Repository) Filtered(f analytics.Filter) []models.Trade {
	return f.Apply(r.Trades())
}

// Series returns the win/loss chart for the window ending at now.
func (r *Repository) Series(rng analytics.TimeRange, now time.Time) []models.SeriesPoint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return analytics.WinLossSeries(r.trades, rng, now)
}

// Recent returns up to n of the newest trades.
func (r *Repository) Recent(n int) []models.Trade {
	return analytics.Recent(r.Trades(), n)
}

func insertSorted(trades []models.Trade, t models.Trade) []models.Trade {
	i := 0
	for i < len(trades) && !t.EntryTime.After(trades[i].EntryTime) {
		i++
	}
	out := make([]models.Trade, 0, len(trades)+1)
	out = append(out, trades[:i]...)
	out = append(out, t)
	return append(out, trades[i:]...)
}

func removeTrade(trades []models.Trade, id string) []models.Trade {
	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

func logTrade(logger zerolog.Logger, action string, t models.Trade) {
	logger.Info().
		Str("event", "trade").
		Str("action", action).
		Str("trade_id", t.ID).
		Str("pair", t.Pair).
		Str("direction", string(t.Direction)).
		Float64("net_profit", t.NetProfit).
		Str("outcome", string(t.Outcome)).
		Msg("Trade " + action)
}
