package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore implements Store on a Redis instance shared by all consumers
// of a service. SetNX gives the atomic read-and-claim; KeepTTL on updates
// preserves the expiry installed by the claim.
type RedisStore struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(rdb *redis.Client, logger *zap.Logger) *RedisStore {
	return &RedisStore{rdb: rdb, logger: logger.Named("idempotency")}
}

func (s *RedisStore) Claim(ctx context.Context, key string, entry Entry, ttl time.Duration) (*Entry, bool, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, false, fmt.Errorf("idempotency: marshal entry: %w", err)
	}

	ok, err := s.rdb.SetNX(ctx, key, data, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("idempotency: claim %s: %w", key, err)
	}
	if ok {
		return nil, true, nil
	}

	existing, err := s.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		// The prior entry expired or was corrupt; take the claim by
		// overwrite rather than looping on SetNX.
		if err := s.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
			return nil, false, fmt.Errorf("idempotency: claim %s: %w", key, err)
		}
		return nil, true, nil
	}
	return existing, false, nil
}

func (s *RedisStore) Update(ctx context.Context, key string, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("idempotency: marshal entry: %w", err)
	}
	if err := s.rdb.Set(ctx, key, data, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("idempotency: update %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Entry, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("idempotency: get %s: %w", key, err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		// A corrupt entry must not wedge the key forever; log and treat
		// as absent so the claim path overwrites it.
		s.logger.Warn("corrupt idempotency entry", zap.String("key", key), zap.Error(err))
		return nil, nil
	}
	return &entry, nil
}

var _ Store = (*RedisStore)(nil)
