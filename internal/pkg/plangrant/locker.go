package plangrant

import (
	"time"

	"github.com/MarketLensHQ/MarketLens/internal/pkg/cache"
)

// CacheLocker is a Locker backed by the shared Redis client.
type CacheLocker struct{}

func (CacheLocker) AcquireLock(key string, ttl time.Duration) (bool, error) {
	return cache.AcquireLock(key, ttl)
}

func (CacheLocker) ReleaseLock(key string) error {
	return cache.ReleaseLock(key)
}
