package revocation

import (
	"context"
	"fmt"
	"time"

	"github.com/kbukum/codecompass/redis"
)

// RedisStore stores each revoked ID as <prefix><jti> with a TTL ending at
// the token's expiry, so Redis evicts entries on its own.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

// Revoke claims the key with SET NX, so concurrent callers race on Redis
// and exactly one wins. A token already past its expiry is never claimed.
func (s *RedisStore) Revoke(ctx context.Context, jti string, until time.Time) (bool, error) {
	ttl := until.Sub(s.now())
	if ttl <= 0 {
		return false, nil
	}
	ok, err := s.client.Unwrap().SetNX(ctx, s.prefix+jti, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("revocation: redis setnx: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Unwrap().Exists(ctx, s.prefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("revocation: redis exists: %w", err)
	}
	return n > 0, nil
}
