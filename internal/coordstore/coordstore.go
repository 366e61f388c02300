// Package coordstore defines the shared TTL-capable key/value store used for
// all time-windowed alert state: dedup markers, storm counters, and
// suppression markers. The store is auxiliary — callers must tolerate a nil
// client and degrade instead of failing.
package coordstore

import (
	"context"
	"time"
)

// Client is the coordination store interface. Increment must be atomic and
// must not touch an existing key's TTL. SetIfNotExists must atomically create
// the key with the given TTL, reporting whether this call created it.
type Client interface {
	Exists(ctx context.Context, key string) (bool, error)
	SetWithExpiry(ctx context.Context, key string, ttl time.Duration, value string) error
	SetIfNotExists(ctx context.Context, key string, ttl time.Duration, value string) (created bool, err error)
	Increment(ctx context.Context, key string) (int64, error)
	SetExpiry(ctx context.Context, key string, ttl time.Duration) error
}
