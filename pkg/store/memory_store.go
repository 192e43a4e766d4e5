package store

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process KVStore for local development and tests.
type MemoryStore struct {
	cache *cache.Cache
}

func NewMemoryStore() *MemoryStore {
	// Default expiration of 1 hour, purge sweep every 10 minutes
	return &MemoryStore{cache: cache.New(1*time.Hour, 10*time.Minute)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	if x, found := s.cache.Get(key); found {
		return x.([]byte), nil
	}
	return nil, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.cache.Set(key, value, cache.DefaultExpiration)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}
