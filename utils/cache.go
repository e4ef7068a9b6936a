// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"subzero/config"

	"github.com/go-redis/redis/v8"
)

var (
	// CacheClient is the generic cache client. It also carries chat pub/sub traffic.
	CacheClient *redis.Client
	// AuthCacheClient is the dedicated client for authorization caching.
	AuthCacheClient *redis.Client
)

func newRedisClient(db int, name string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (%s): %v", name, err)
	}
	return client
}

// InitRedis connects every Redis client used by the server.
func InitRedis() {
	GetCacheClient()
	GetAuthCacheClient()
}

// GetCacheClient returns the generic cache client.
func GetCacheClient() *redis.Client {
	if CacheClient == nil {
		CacheClient = newRedisClient(config.AppConfig.RedisCacheDB, "Cache")
	}
	return CacheClient
}

// GetAuthCacheClient returns the Redis client for authorization caching.
func GetAuthCacheClient() *redis.Client {
	if AuthCacheClient == nil {
		AuthCacheClient = newRedisClient(config.AppConfig.RedisAuthDB, "Auth Cache")
	}
	return AuthCacheClient
}
