package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "forex-journal/internal/errors"
	"forex-journal/internal/models"
)

// DefaultRedisKeyPrefix namespaces every key written by RedisStore.
const DefaultRedisKeyPrefix = "fxjournal"

// RedisStore keeps each user's trades in one hash, field = trade ID and
// value = JSON document, mirroring a users/{uid}/trades/{id} tree.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreWithClient(client, opts.KeyPrefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

func (s *RedisStore) userKey(userID string) string {
	return fmt.Sprintf("%s:users:%s:trades", s.prefix, userID)
}

// ListTrades returns the user's trades, newest first.
func (s *RedisStore) ListTrades(ctx context.Context, userID string) ([]models.Trade, error) {
	if err := checkUser(userID); err != nil {
		return nil, err
	}

	values, err := s.client.HGetAll(ctx, s.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}

	trades := make([]models.Trade, 0, len(values))
	for id, raw := range values {
		var t models.Trade
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, fmt.Errorf("decode trade %s: %w", id, err)
		}
		trades = append(trades, t)
	}
	sortTrades(trades)
	return trades, nil
}

// GetTrade returns one trade.
func (s *RedisStore) GetTrade(ctx context.Context, userID, id string) (models.Trade, error) {
	if err := checkUser(userID); err != nil {
		return models.Trade{}, err
	}

	raw, err := s.client.HGet(ctx, s.userKey(userID), id).Result()
	if err == redis.Nil {
		return models.Trade{}, apperrors.ErrTradeNotFound
	}
	if err != nil {
		return models.Trade{}, fmt.Errorf("redis hget: %w", err)
	}

	var t models.Trade
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return models.Trade{}, fmt.Errorf("decode trade %s: %w", id, err)
	}
	return t, nil
}

// CreateTrade stores a trade under a fresh ID.
func (s *RedisStore) CreateTrade(ctx context.Context, userID string, trade models.Trade) (models.Trade, error) {
	if err := checkUser(userID); err != nil {
		return models.Trade{}, err
	}

	t := trade.Clone()
	t.ID = NewID()
	t.CreatedAt = s.now()
	t.UpdatedAt = t.CreatedAt

	if err := s.put(ctx, userID, t); err != nil {
		return models.Trade{}, err
	}
	return t, nil
}

// UpdateTrade overwrites an existing trade.
func (s *RedisStore) UpdateTrade(ctx context.Context, userID string, trade models.Trade) (models.Trade, error) {
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
	if err := s.put(ctx, userID, t); err != nil {
		return models.Trade{}, err
	}
	return t, nil
}

// DeleteTrade removes a trade.
func (s *RedisStore) DeleteTrade(ctx context.Context, userID, id string) error {
	if err := checkUser(userID); err != nil {
		return err
	}

	n, err := s.client.HDel(ctx, s.userKey(userID), id).Result()
	if err != nil {
		return fmt.Errorf("redis hdel: %w", err)
	}
	if n == 0 {
		return apperrors.ErrTradeNotFound
	}
	return nil
}

func (s *RedisStore) put(ctx context.Context, userID string, t models.Trade) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode trade: %w", err)
	}
	if err := s.client.HSet(ctx, s.userKey(userID), t.ID, data).Err(); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
