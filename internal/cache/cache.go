// Package cache provides a small TTL byte cache for feed responses, with
// prefix-based invalidation so admin mutations can drop whole families of
// keys. The default backend is an in-process map; a Redis backend is used
// when a redis URL is configured.
package cache

import (
	"context"
	"time"
)

// Feed cache lifetimes.
const (
	ListTTL     = time.Minute
	DetailTTL   = time.Minute
	RelatedTTL  = 2 * time.Minute
	CategoryTTL = 5 * time.Minute
)

// Cache stores serialized responses under string keys for a bounded time.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	DeleteByPrefix(ctx context.Context, prefix string)
}
