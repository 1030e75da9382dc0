package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/layer-3/garuda/core"
	"github.com/layer-3/garuda/ports"
)

// RedisStore is a Redis implementation of the NonceStore interface.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis nonce store.
func NewRedisStore(client *redis.Client) ports.NonceStore {
	return &RedisStore{
		client: client,
		prefix: "stellar:nonce:",
	}
}

// Put records a nonce with the bound account as value and the TTL as key
// expiry, so expired nonces vanish without a sweeper.
func (s *RedisStore) Put(ctx context.Context, nonce, account string, ttl time.Duration) error {
	key := s.prefix + nonce

	if err := s.client.Set(ctx, key, account, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store nonce: %w", err)
	}

	return nil
}

// Consume uses GETDEL so the read and the delete are one Redis command; a
// second consumer of the same nonce always misses.
func (s *RedisStore) Consume(ctx context.Context, nonce string) (string, error) {
	key := s.prefix + nonce

	account, err := s.client.GetDel(ctx, key).Result()
	if err == redis.Nil {
		return "", core.ErrNonceNotFoundOrExpired
	}
	if err != nil {
		return "", fmt.Errorf("failed to consume nonce: %w", err)
	}

	return account, nil
}
