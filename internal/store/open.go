package store

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	apperrors "forex-journal/internal/errors"
	"forex-journal/internal/resilience"
	"forex-journal/internal/security"
	"forex-journal/pkg/utils"
)

// Options selects and configures a backend for Open.
type Options struct {
	Backend     string
	SQLitePath  string
	PostgresDSN string
	Redis       RedisOptions
	Retry       utils.RetryConfig
	// Breaker guards network backends once connected. A zero
	// FailureThreshold disables it.
	Breaker resilience.CircuitBreakerConfig
}

// Open creates the configured store. Network backends are retried with
// exponential backoff until the first successful ping, then guarded by a
// circuit breaker.
func Open(ctx context.Context, opts Options, logger zerolog.Logger) (TradeStore, error) {
	retry := opts.Retry
	if retry.MaxAttempts == 0 {
		retry = utils.DefaultRetryConfig()
	}

	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	log := logger.With().Str("backend", backend).Logger()

	switch backend {
	case BackendMemory:
		return NewMemoryStore(), nil

	case "", BackendSQLite:
		if opts.SQLitePath == "" {
			return nil, apperrors.NewConfigError("store.sqlite_path", "required for sqlite backend")
		}
		s, err := NewSQLiteStore(opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("path", opts.SQLitePath).Msg("SQLite store initialized")
		return s, nil

	case BackendPostgres:
		if opts.PostgresDSN == "" {
			return nil, apperrors.NewConfigError("credentials.postgres_dsn", "required for postgres backend")
		}
		pool, err := utils.RetryWithResult(ctx, retry, func() (*pgxpool.Pool, error) {
			p, err := ConnectPostgres(ctx, opts.PostgresDSN)
			if err != nil {
				log.Warn().Str("error", security.MaskSecrets(err.Error())).Msg("Postgres connection attempt failed")
			}
			return p, err
		})
		if err != nil {
			return nil, apperrors.Wrap(err, "connecting to postgres")
		}
		s, err := NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		log.Debug().Msg("Postgres store initialized")
		return guard(BackendPostgres, s, opts.Breaker), nil

	case BackendRedis:
		if opts.Redis.Addr == "" {
			return nil, apperrors.NewConfigError("store.redis_addr", "required for redis backend")
		}
		s, err := utils.RetryWithResult(ctx, retry, func() (*RedisStore, error) {
			s, err := NewRedisStore(ctx, opts.Redis)
			if err != nil {
				log.Warn().Str("error", security.MaskSecrets(err.Error())).Msg("Redis connection attempt failed")
			}
			return s, err
		})
		if err != nil {
			return nil, apperrors.Wrap(err, "connecting to redis")
		}
		log.Debug().Str("addr", opts.Redis.Addr).Msg("Redis store initialized")
		return guard(BackendRedis, s, opts.Breaker), nil
	}

	return nil, apperrors.Wrapf(apperrors.ErrUnknownBackend, "backend %q", opts.Backend)
}

func guard(name string, st TradeStore, cfg resilience.CircuitBreakerConfig) TradeStore {
	if cfg.FailureThreshold <= 0 {
		return st
	}
	return NewGuardedStore(name, st, cfg)
}
