package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/amirasaad/finboard/pkg/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient parses url and verifies the server answers.
func NewRedisClient(ctx context.Context, url string, poolSize int, dial, read, write time.Duration) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	if poolSize > 0 {
		opt.PoolSize = poolSize
	}
	opt.DialTimeout = dial
	opt.ReadTimeout = read
	opt.WriteTimeout = write
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// RedisBalanceCache keeps derived balances in Redis so every API process
// shares them.
type RedisBalanceCache struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisBalanceCache creates a new RedisBalanceCache.
func NewRedisBalanceCache(client *redis.Client, prefix string, logger *slog.Logger) *RedisBalanceCache {
	return &RedisBalanceCache{client: client, prefix: prefix, logger: logger.With("component", "balance-cache")}
}

func (r *RedisBalanceCache) key(key string) string {
	return r.prefix + key
}

func (r *RedisBalanceCache) Get(ctx context.Context, owner uuid.UUID, kind domain.Kind) (*domain.Balance, bool, error) {
	key := balanceKey(owner, kind)
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		r.logger.Debug("Redis cache miss", "key", key)
		return nil, false, nil
	}
	if err != nil {
		r.logger.Error("Redis cache get error", "key", key, "error", err)
		return nil, false, domain.NewTransportError("balance cache get", err)
	}
	var b domain.Balance
	if err := json.Unmarshal(val, &b); err != nil {
		r.logger.Error("Redis cache unmarshal error", "key", key, "error", err)
		return nil, false, err
	}
	r.logger.Debug("Redis cache hit", "key", key)
	return &b, true, nil
}

func (r *RedisBalanceCache) Set(ctx context.Context, owner uuid.UUID, kind domain.Kind, b *domain.Balance, ttl time.Duration) error {
	key := balanceKey(owner, kind)
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(key), data, ttl).Err(); err != nil {
		r.logger.Error("Redis cache set error", "key", key, "error", err)
		return domain.NewTransportError("balance cache set", err)
	}
	r.logger.Debug("Redis cache set", "key", key, "ttl", ttl)
	return nil
}

func (r *RedisBalanceCache) InvalidateOwner(ctx context.Context, owner uuid.UUID) error {
	keys := ownerBalanceKeys(owner)
	for i := range keys {
		keys[i] = r.key(keys[i])
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.logger.Error("Redis cache delete error", "owner", owner, "error", err)
		return domain.NewTransportError("balance cache invalidate", err)
	}
	r.logger.Debug("Redis cache invalidated", "owner", owner)
	return nil
}

// RedisSessionStore keeps live session ids in Redis with the token's
// lifetime as expiry.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionStore creates a new RedisSessionStore.
func NewRedisSessionStore(client *redis.Client, prefix string) *RedisSessionStore {
	return &RedisSessionStore{client: client, prefix: prefix}
}

func (s *RedisSessionStore) Save(ctx context.Context, sessionID string, userID uuid.UUID, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+sessionKey(sessionID), userID.String(), ttl).Err()
}

func (s *RedisSessionStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+sessionKey(sessionID)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.prefix+sessionKey(sessionID)).Err()
}
