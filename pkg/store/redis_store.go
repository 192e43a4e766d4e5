package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the production KVStore backed by Redis.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	// Sessions live until explicitly ended, so no TTL here.
	return s.client.Set(ctx, key, value, 0).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
