// Package cache defines the TTL key-value cache contract (C8) used by the
// Aggregator and the HTTP query surface, and a Redis-backed
// implementation wired in from the rest of the retrieval pack (see
// DESIGN.md) since the teacher carries no cache dependency of its own.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"gdelt-trends/internal/logger"
)

// ErrMiss is returned by Get when the key is absent.
var ErrMiss = errors.New("cache: miss")

// Cache is the opaque TTL key-value contract. Expiry is best-effort;
// implementations must never block the caller on a down cache (§7).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Del(ctx context.Context, key string) error
}

// RedisCache adapts github.com/redis/go-redis/v9's Client to the Cache
// contract.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// NewRedisClient builds a process-wide client from addr/password/db,
// matching the long-lived-handle-at-startup convention used for Mongo.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (c *RedisCache) SetWithTTL(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	return c.client.Set(ctx, key, value, time.Duration(ttlSeconds)*time.Second).Err()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// GetOrMiss wraps Get, swallowing and logging any non-miss error so that a
// cache outage degrades to a cache miss rather than failing the caller's
// request, per the cross-cutting cache-failure policy in §7.
func GetOrMiss(ctx context.Context, c Cache, key string) ([]byte, bool) {
	val, err := c.Get(ctx, key)
	if err == nil {
		return val, true
	}
	if !errors.Is(err, ErrMiss) {
		logger.WarnWithFields("cache get failed, treating as miss", logger.Fields{
			"key": key, "error": err.Error(),
		})
	}
	return nil, false
}

// SetOrLog wraps SetWithTTL, logging (never propagating) failures.
func SetOrLog(ctx context.Context, c Cache, key string, value []byte, ttlSeconds int) {
	if err := c.SetWithTTL(ctx, key, value, ttlSeconds); err != nil {
		logger.WarnWithFields("cache set failed", logger.Fields{"key": key, "error": err.Error()})
	}
}

// DelOrLog wraps Del, logging (never propagating) failures.
func DelOrLog(ctx context.Context, c Cache, key string) {
	if err := c.Del(ctx, key); err != nil {
		logger.WarnWithFields("cache del failed", logger.Fields{"key": key, "error": err.Error()})
	}
}
