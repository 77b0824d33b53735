package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"secdash/internal/cache"
	apperrors "secdash/internal/errors"
)

const redisKeyPrefix = "session:"

// RedisStore keeps sessions in Redis so they survive restarts and are shared
// between instances. Expiry is delegated to Redis key TTLs.
type RedisStore struct {
	cache *cache.Client
	ttl   time.Duration
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *cache.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{cache: client, ttl: ttl}
}

func (s *RedisStore) key(id string) string {
	return redisKeyPrefix + id
}

func (s *RedisStore) Get(ctx context.Context, id string) (Data, error) {
	payload, err := s.cache.Get(ctx, s.key(id))
	if errors.Is(err, cache.ErrMiss) {
		return nil, apperrors.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("%w: decode session: %v", apperrors.ErrStoreUnavailable, err)
	}
	return data, nil
}

func (s *RedisStore) Set(ctx context.Context, id string, data Data) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.cache.Set(ctx, s.key(id), payload, s.ttl); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.cache.Delete(ctx, s.key(id)); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Touch(ctx context.Context, id string) error {
	ok, err := s.cache.Expire(ctx, s.key(id), s.ttl)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	if !ok {
		return apperrors.ErrNoSession
	}
	return nil
}
