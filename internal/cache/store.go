package cache

import (
	"context"
	"time"
)

// Store is the shared cache abstraction. Redis backs it in production; the
// primary SQL database serves as a fallback when Redis is not configured.
//
// A ttl of zero or less means the value never expires.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}
