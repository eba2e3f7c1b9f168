// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Tier names a cache level.
type Tier string

const (
	TierFast    Tier = "fast"
	TierDurable Tier = "durable"
)

// CacheEntry is a stored MenuDocument with its lifetime.
type CacheEntry struct {
	Key        CacheKey      `json:"key"`
	Payload    *MenuDocument `json:"payload"`
	Tier       Tier          `json:"tier"`
	InsertedAt time.Time     `json:"insertedAt"`
	TTL        time.Duration `json:"ttl"`
}

// ExpiresAt returns the instant the entry stops being served. A zero TTL
// never expires.
func (e CacheEntry) ExpiresAt() time.Time {
	if e.TTL <= 0 {
		return time.Time{}
	}
	return e.InsertedAt.Add(e.TTL)
}

// Expired reports whether the entry is past its TTL at now.
func (e CacheEntry) Expired(now time.Time) bool {
	exp := e.ExpiresAt()
	return !exp.IsZero() && !now.Before(exp)
}
