// internal/common/storage/kv.go
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("storage: key not found")

// KV is a small durable key-value contract. Consumers that can survive
// the store going away (draft persistence, dedup flags) treat every
// error except ErrNotFound as "store unavailable" and degrade.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
