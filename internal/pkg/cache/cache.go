package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/MarketLensHQ/MarketLens/internal/pkg/env"
	"github.com/redis/go-redis/v9"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// SetupCache initializes the connection to the Redis cache server
func SetupCache() {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       0, // use default DB
	})

	// Test the connection
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Printf("Warning: Could not connect to Redis cache: %v", err)
	} else {
		log.Printf("Successfully connected to Redis cache: %s", pong)
	}
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// Set stores a value in the cache with the given key and expiration time
func Set(key string, value interface{}, expiration time.Duration) error {
	return GetClient().Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value from the cache by key
func Get(key string) (string, error) {
	return GetClient().Get(ctx, key).Result()
}

// GetInt retrieves an integer value from the cache by key
func GetInt(key string) (int, error) {
	val, err := GetClient().Get(ctx, key).Int()
	if err != nil {
		return 0, err
	}
	return val, nil
}

// Delete removes a value from the cache by key
func Delete(key string) error {
	return GetClient().Del(ctx, key).Err()
}

// AcquireLock grabs a best-effort mutex via SET NX. Returns true when this
// caller holds the lock until TTL expiry or ReleaseLock.
func AcquireLock(key string, ttl time.Duration) (bool, error) {
	return GetClient().SetNX(ctx, "lock:"+key, 1, ttl).Result()
}

// ReleaseLock drops a lock taken with AcquireLock.
func ReleaseLock(key string) error {
	return GetClient().Del(ctx, "lock:"+key).Err()
}

const balanceKeyPrefix = "wallet:balance:"

// CacheWalletBalance stores a short-lived copy of a user's token balance.
// The ledger stays the source of truth; this only serves fast pre-checks.
func CacheWalletBalance(userID uint, balance int64, ttl time.Duration) error {
	return GetClient().Set(ctx, fmt.Sprintf("%s%d", balanceKeyPrefix, userID), balance, ttl).Err()
}

// GetCachedWalletBalance returns the cached balance; redis.Nil on a miss.
func GetCachedWalletBalance(userID uint) (int64, error) {
	return GetClient().Get(ctx, fmt.Sprintf("%s%d", balanceKeyPrefix, userID)).Int64()
}

// InvalidateWalletBalance drops the cached balance after a wallet mutation.
func InvalidateWalletBalance(userID uint) error {
	return GetClient().Del(ctx, fmt.Sprintf("%s%d", balanceKeyPrefix, userID)).Err()
}
