// Package cache provides the TTL cache used in front of the dashboard report
// queries. Entries carry an explicit expiry and invalidation is an explicit
// operation on the cache, never a side effect scattered across call sites.
package cache

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/sync/singleflight"
)

// ErrCacheMiss is returned when a key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Store maps keys to opaque byte values with a per-entry TTL.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Loader wraps a Store with a singleflight group so a cold key is loaded at
// most once no matter how many requests miss concurrently.
type Loader struct {
	store Store
	ttl   time.Duration
	sfg   singleflight.Group
}

// NewLoader creates a Loader writing entries with the given TTL.
func NewLoader(store Store, ttl time.Duration) *Loader {
	return &Loader{store: store, ttl: ttl}
}

// GetOrLoad returns the cached value for key, or runs load once, caches its
// result and returns it. Cache write failures are ignored; the loaded value
// is still returned.
func (l *Loader) GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if data, err := l.store.Get(ctx, key); err == nil {
		return data, nil
	}

	v, err, _ := l.sfg.Do(key, func() (any, error) {
		// Re-check: another flight may have filled the key while we queued.
		if data, err := l.store.Get(ctx, key); err == nil {
			return data, nil
		}

		data, err := load(ctx)
		if err != nil {
			return nil, err
		}
		_ = l.store.Set(ctx, key, data, l.ttl)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Invalidate drops the key from the underlying store.
func (l *Loader) Invalidate(ctx context.Context, key string) error {
	return l.store.Invalidate(ctx, key)
}
