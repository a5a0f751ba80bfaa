package store

import (
	"context"
	"sync"
	"time"

	apperrors "forex-journal/internal/errors"
	"forex-journal/internal/models"
)

// MemoryStore keeps trades in process memory. Used for tests and the
// ephemeral "memory" backend.
type MemoryStore struct {
	mu     sync.RWMutex
	trades map[string]map[string]models.Trade
	now    func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trades: make(map[string]map[string]models.Trade),
		now:    time.Now,
	}
}

// ListTrades returns copies of the user's trades, newest first.
func (s *MemoryStore) ListTrades(ctx context.Context, userID string) ([]models.Trade, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Trade, 0, len(s.trades[userID]))
	for _, t := range s.trades[userID] {
		out = append(out, t.Clone())
	}
	sortTrades(out)
	return out, nil
}

// GetTrade returns one trade.
func (s *MemoryStore) GetTrade(ctx context.Context, userID, id string) (models.Trade, error) {
	if err := checkUser(userID); err != nil {
		return models.Trade{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.trades[userID][id]
	if !ok {
		return models.Trade{}, apperrors.ErrTradeNotFound
	}
	return t.Clone(), nil
}

// CreateTrade stores a new trade under a fresh ID.
func (s *MemoryStore) CreateTrade(ctx context.Context, userID string, trade models.Trade) (models.Trade, error) {
	if err := checkUser(userID); err != nil {
		return models.Trade{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.Trade{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	t := trade.Clone()
	t.ID = NewID()
	t.CreatedAt = now
	t.UpdatedAt = now

	if s.trades[userID] == nil {
		s.trades[userID] = make(map[string]models.Trade)
	}
	s.trades[userID][t.ID] = t
	return t.Clone(), nil
}

// UpdateTrade replaces an existing trade.
func (s *MemoryStore) UpdateTrade(ctx context.Context, userID string, trade models.Trade) (models.Trade, error) {
	if err := checkUser(userID); err != nil {
		return models.Trade{}, err
	}
	if err := checkTradeID(trade.ID); err != nil {
		return models.Trade{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.trades[userID][trade.ID]
	if !ok {
		return models.Trade{}, apperrors.ErrTradeNotFound
	}
	t := trade.Clone()
	t.CreatedAt = existing.CreatedAt
	t.UpdatedAt = s.now()
	s.trades[userID][t.ID] = t
	return t.Clone(), nil
}

// DeleteTrade removes a trade.
func (s *MemoryStore) DeleteTrade(ctx context.Context, userID, id string) error {
	if err := checkUser(userID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.trades[userID][id]; !ok {
		return apperrors.ErrTradeNotFound
	}
	delete(s.trades[userID], id)
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
