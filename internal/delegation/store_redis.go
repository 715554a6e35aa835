package delegation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"machinelaw/internal/tracking"
)

const contextKeyPrefix = "delegation:ctx:"

// RedisContextStore caches delegation contexts in Redis so multiple instances
// share them. Keys carry a pseudonymized subject, never the raw BSN.
type RedisContextStore struct {
	client *redis.Client
	hasher *tracking.Pseudonymizer
}

// NewRedisContextStore constructs a Redis-backed context cache.
func NewRedisContextStore(client *redis.Client, hasher *tracking.Pseudonymizer) *RedisContextStore {
	return &RedisContextStore{client: client, hasher: hasher}
}

func (s *RedisContextStore) key(bsn string) string {
	return contextKeyPrefix + s.hasher.Hash(bsn)
}

func (s *RedisContextStore) Get(ctx context.Context, bsn string) (DelegationContext, bool, error) {
	raw, err := s.client.Get(ctx, s.key(bsn)).Bytes()
	if errors.Is(err, redis.Nil) {
		return DelegationContext{}, false, nil
	}
	if err != nil {
		return DelegationContext{}, false, fmt.Errorf("get delegation context: %w", err)
	}

	var dc DelegationContext
	if err := json.Unmarshal(raw, &dc); err != nil {
		return DelegationContext{}, false, fmt.Errorf("decode delegation context: %w", err)
	}
	return dc, true, nil
}

func (s *RedisContextStore) Set(ctx context.Context, bsn string, dc DelegationContext, ttl time.Duration) error {
	raw, err := json.Marshal(dc)
	if err != nil {
		return fmt.Errorf("encode delegation context: %w", err)
	}
	if err := s.client.Set(ctx, s.key(bsn), raw, ttl).Err(); err != nil {
		return fmt.Errorf("set delegation context: %w", err)
	}
	return nil
}
