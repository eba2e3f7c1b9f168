// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache implements the fast tier: a short-lived key → MenuDocument
// store kept in process memory or in Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pdiddy/menu-engine/pkg/types"
)

// Fast is a TTL-bounded document cache. Get reports types.ErrCacheMiss for
// absent or expired keys. Stored documents are copies; mutating a returned
// document does not affect the cache.
type Fast interface {
	Get(ctx context.Context, key types.CacheKey) (*types.MenuDocument, error)
	Set(ctx context.Context, key types.CacheKey, doc *types.MenuDocument, ttl time.Duration) error
	Delete(ctx context.Context, key types.CacheKey) error
	Close() error
}

// New returns a Redis cache when cfg.RedisURL is set and an in-memory cache
// otherwise.
func New(cfg types.CacheConfig) (Fast, error) {
	if cfg.RedisURL == "" {
		return NewMemory(), nil
	}
	return NewRedis(cfg.RedisURL)
}

func encode(doc *types.MenuDocument) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding menu document: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*types.MenuDocument, error) {
	var doc types.MenuDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding menu document: %w", err)
	}
	return &doc, nil
}
