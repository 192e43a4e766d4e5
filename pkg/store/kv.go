package store

import "context"

// KVStore is the session store contract: raw JSON payloads keyed by string.
// Get returns (nil, nil) when the key does not exist.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
