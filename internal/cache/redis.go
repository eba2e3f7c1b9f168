// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pdiddy/menu-engine/pkg/types"
)

// keyPrefix namespaces menu entries in a shared Redis.
const keyPrefix = "menu:"

// Redis is a Fast cache backed by Redis string keys with native expiry.
type Redis struct {
	client *redis.Client
}

// NewRedis connects to the Redis server at url (redis://host:port/db).
func NewRedis(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	return &Redis{client: redis.NewClient(opts)}, nil
}

// Get returns the document for key or types.ErrCacheMiss.
func (r *Redis) Get(ctx context.Context, key types.CacheKey) (*types.MenuDocument, error) {
	data, err := r.client.Get(ctx, keyPrefix+string(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, types.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return decode(data)
}

// Set stores doc under key for ttl. A non-positive ttl never expires.
func (r *Redis) Set(ctx context.Context, key types.CacheKey, doc *types.MenuDocument, ttl time.Duration) error {
	data, err := encode(doc)
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, keyPrefix+string(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes key.
func (r *Redis) Delete(ctx context.Context, key types.CacheKey) error {
	if err := r.client.Del(ctx, keyPrefix+string(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
