// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/pdiddy/menu-engine/pkg/types"
)

// Memory is an in-process Fast cache. Expired entries are dropped lazily on
// access.
type Memory struct {
	mu      sync.Mutex
	entries map[types.CacheKey]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	types.CacheEntry
	data []byte
}

// NewMemory returns an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[types.CacheKey]memoryEntry), now: time.Now}
}

// Get returns the document for key or types.ErrCacheMiss.
func (m *Memory) Get(ctx context.Context, key types.CacheKey) (*types.MenuDocument, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if ok && e.Expired(m.now()) {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return nil, types.ErrCacheMiss
	}
	return decode(e.data)
}

// Set stores doc under key for ttl. A non-positive ttl never expires.
func (m *Memory) Set(ctx context.Context, key types.CacheKey, doc *types.MenuDocument, ttl time.Duration) error {
	data, err := encode(doc)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{
		CacheEntry: types.CacheEntry{Key: key, Tier: types.TierFast, InsertedAt: m.now(), TTL: ttl},
		data:       data,
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (m *Memory) Delete(ctx context.Context, key types.CacheKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
