package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store abstracts the external key-value store behind the ticket cache.
// Implementations must treat store unavailability as a miss: a failed
// Get is a miss, a failed Set or Del is a no-op. The cache never blocks
// the read or write path.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Del(ctx context.Context, keys ...string)
}

type redisStore struct {
	client *redis.Client
}

// NewRedisStore wraps a go-redis client as a Store.
func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	_ = s.client.Set(ctx, key, value, ttl).Err()
}

func (s *redisStore) Del(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	_ = s.client.Del(ctx, keys...).Err()
}
