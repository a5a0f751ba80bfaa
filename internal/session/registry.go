package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"forex-journal/internal/journal"
	"forex-journal/internal/store"
)

// Registry hands out one Repository per user, loading it on first use.
// Snapshots older than MaxAge are refreshed on access; zero disables that.
// Repositories unused for IdleTTL are dropped; zero keeps them forever.
type Registry struct {
	store   store.TradeStore
	calc    *journal.Calculator
	logger  zerolog.Logger
	MaxAge  time.Duration
	IdleTTL time.Duration

	now       func() time.Time
	mu        sync.Mutex
	repos     map[string]*Repository
	lastUsed  map[string]time.Time
	lastSweep time.Time
}

// NewRegistry creates an empty registry over st.
func NewRegistry(st store.TradeStore, calc *journal.Calculator, logger zerolog.Logger) *Registry {
	return &Registry{
		store:    st,
		calc:     calc,
		logger:   logger,
		now:      time.Now,
		repos:    make(map[string]*Repository),
		lastUsed: make(map[string]time.Time),
	}
}

// For returns the loaded repository of userID.
func (g *Registry) For(ctx context.Context, userID string) (*Repository, error) {
	g.mu.Lock()
	now := g.now()
	if g.IdleTTL > 0 && now.Sub(g.lastSweep) >= g.IdleTTL {
		g.sweepLocked(now)
	}

	repo, ok := g.repos[userID]
	if !ok {
		var err error
		repo, err = New(g.store, g.calc, userID, g.logger)
		if err != nil {
			g.mu.Unlock()
			return nil, err
		}
		g.repos[userID] = repo
	}
	g.lastUsed[userID] = now
	g.mu.Unlock()

	stale := g.MaxAge > 0 && time.Since(repo.RefreshedAt()) > g.MaxAge
	if !repo.Loaded() || stale {
		if err := repo.Refresh(ctx); err != nil {
			return nil, err
		}
	}
	return repo, nil
}

func (g *Registry) sweepLocked(now time.Time) {
	g.lastSweep = now
	for id, used := range g.lastUsed {
		if now.Sub(used) >= g.IdleTTL {
			delete(g.repos, id)
			delete(g.lastUsed, id)
		}
	}
	g.logger.Debug().Int("sessions", len(g.repos)).Msg("Idle sessions swept")
}

// Len returns the number of cached repositories.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.repos)
}
