// Package store provides trade persistence interfaces and implementations.
package store

import (
	"context"
	"sort"

	apperrors "forex-journal/internal/errors"
	"forex-journal/internal/models"
)

// TradeStore persists trades scoped to a user identity. Every call may block
// on I/O and fail. Writes are last-write-wins.
type TradeStore interface {
	// ListTrades returns all of the user's trades, newest entry first.
	ListTrades(ctx context.Context, userID string) ([]models.Trade, error)
	GetTrade(ctx context.Context, userID, id string) (models.Trade, error)
	// CreateTrade assigns an ID and timestamps and returns the stored trade.
	CreateTrade(ctx context.Context, userID string, trade models.Trade) (models.Trade, error)
	// UpdateTrade replaces the stored trade with the same ID.
	UpdateTrade(ctx context.Context, userID string, trade models.Trade) (models.Trade, error)
	DeleteTrade(ctx context.Context, userID, id string) error

	Ping(ctx context.Context) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

func checkUser(userID string) error {
	if userID == "" {
		return apperrors.ErrNotAuthenticated
	}
	return nil
}

func checkTradeID(id string) error {
	if id == "" {
		return apperrors.NewValidationError("id", id, "required")
	}
	return nil
}

// sortTrades orders trades newest entry first, ties broken by ID.
func sortTrades(trades []models.Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		if !trades[i].EntryTime.Equal(trades[j].EntryTime) {
			return trades[i].EntryTime.After(trades[j].EntryTime)
		}
		return trades[i].ID > trades[j].ID
	})
}
