// Package cache keeps per-user task lists in Redis.
package cache

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to Redis at addr. It returns nil when the server
// does not answer a ping, so callers can run without a cache.
func NewRedisClient(addr, password string) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("Redis unavailable at %s: %v", addr, err)
		_ = rdb.Close()
		return nil
	}

	return rdb
}
