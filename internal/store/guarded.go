package store

import (
	"context"

	apperrors "forex-journal/internal/errors"
	"forex-journal/internal/models"
	"forex-journal/internal/resilience"
)

// GuardedStore fails fast while its backend is unreachable. Not-found,
// validation and cancellation errors never trip the breaker.
type GuardedStore struct {
	next    TradeStore
	breaker *resilience.CircuitBreaker
}

// NewGuardedStore wraps next with a circuit breaker named after the backend.
func NewGuardedStore(name string, next TradeStore, cfg resilience.CircuitBreakerConfig) *GuardedStore {
	if cfg.IsFailure == nil {
		cfg.IsFailure = isBackendFailure
	}
	return &GuardedStore{
		next:    next,
		breaker: resilience.NewCircuitBreaker(name, cfg),
	}
}

func isBackendFailure(err error) bool {
	return !apperrors.IsNotFound(err) &&
		!apperrors.IsValidation(err) &&
		!apperrors.Is(err, apperrors.ErrNotAuthenticated) &&
		!apperrors.Is(err, context.Canceled)
}

// Breaker exposes the circuit for health reporting.
func (g *GuardedStore) Breaker() *resilience.CircuitBreaker {
	return g.breaker
}

func (g *GuardedStore) ListTrades(ctx context.Context, userID string) ([]models.Trade, error) {
	return resilience.ExecuteWithResult(ctx, g.breaker, func(ctx context.Context) ([]models.Trade, error) {
		return g.next.ListTrades(ctx, userID)
	})
}

func (g *GuardedStore) GetTrade(ctx context.Context, userID, id string) (models.Trade, error) {
	return resilience.ExecuteWithResult(ctx, g.breaker, func(ctx context.Context) (models.Trade, error) {
		return g.next.GetTrade(ctx, userID, id)
	})
}

func (g *GuardedStore) CreateTrade(ctx context.Context, userID string, trade models.Trade) (models.Trade, error) {
	return resilience.ExecuteWithResult(ctx, g.breaker, func(ctx context.Context) (models.Trade, error) {
		return g.next.CreateTrade(ctx, userID, trade)
	})
}

func (g *GuardedStore) UpdateTrade(ctx context.Context, userID string, trade models.Trade) (models.Trade, error) {
	return resilience.ExecuteWithResult(ctx, g.breaker, func(ctx context.Context) (models.Trade, error) {
		return g.next.UpdateTrade(ctx, userID, trade)
	})
}

func (g *GuardedStore) DeleteTrade(ctx context.Context, userID, id string) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.next.DeleteTrade(ctx, userID, id)
	})
}

// Ping always reaches the backend so a recovered store can be observed, and
// a successful ping closes an open circuit.
func (g *GuardedStore) Ping(ctx context.Context) error {
	if err := g.next.Ping(ctx); err != nil {
		return err
	}
	if g.breaker.State() != resilience.CircuitClosed {
		g.breaker.Reset()
	}
	return nil
}

func (g *GuardedStore) Close() error {
	return g.next.Close()
}
