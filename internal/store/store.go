// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store implements the durable tier: long-lived menu documents
// keyed by cache key, with listing and explicit eviction. SQLite is the
// default; Postgres and MongoDB serve shared deployments.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pdiddy/menu-engine/pkg/types"
)

// Record summarizes one stored menu for listings.
type Record struct {
	Key        types.CacheKey          `json:"key" yaml:"key"`
	Request    types.ExtractionRequest `json:"request" yaml:"request"`
	Restaurant string                  `json:"restaurant" yaml:"restaurant"`
	ItemsCount int                     `json:"itemsCount" yaml:"items_count"`
	InsertedAt time.Time               `json:"insertedAt" yaml:"inserted_at"`
	ExpiresAt  time.Time               `json:"expiresAt" yaml:"expires_at"`
}

// Durable persists menu documents. Get reports types.ErrCacheMiss for keys
// that are absent or past their expiry. Put replaces any existing entry for
// the key.
type Durable interface {
	Get(ctx context.Context, key types.CacheKey) (types.CacheEntry, error)
	Put(ctx context.Context, entry types.CacheEntry) error
	Delete(ctx context.Context, key types.CacheKey) (bool, error)

	// List returns live records newest first and the total live count.
	List(ctx context.Context, limit, skip int) ([]Record, int, error)

	// Purge removes expired entries and reports how many were removed.
	Purge(ctx context.Context) (int, error)

	Close() error
}

// Open connects to the durable tier selected by cfg.
func Open(ctx context.Context, cfg types.CacheConfig) (Durable, error) {
	switch cfg.DurableDriver {
	case "", types.DriverSQLite:
		return OpenSQLite(cfg.DurableDSN)
	case types.DriverPostgres:
		return OpenPostgres(ctx, cfg.DurableDSN)
	case types.DriverMongo:
		return OpenMongo(ctx, cfg.DurableDSN)
	default:
		return nil, fmt.Errorf("unknown durable driver %q", cfg.DurableDriver)
	}
}

const defaultListLimit = 50

func normalizePage(limit, skip int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return limit, max(skip, 0)
}

// row is the storage-neutral shape of an entry.
type row struct {
	key        string
	name       string
	location   string
	restaurant string
	items      int
	payload    []byte
	insertedAt time.Time
	expiresAt  time.Time
}

func toRow(e types.CacheEntry) (row, error) {
	if e.Payload == nil {
		return row{}, fmt.Errorf("entry %s has no payload", e.Key)
	}
	if e.InsertedAt.IsZero() {
		e.InsertedAt = time.Now()
	}
	if e.TTL <= 0 {
		e.TTL = types.DefaultDurableTTL
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return row{}, fmt.Errorf("encoding payload: %w", err)
	}
	return row{
		key:        string(e.Key),
		name:       e.Payload.Request.RestaurantName,
		location:   e.Payload.Request.Location,
		restaurant: e.Payload.Restaurant.Name,
		items:      e.Payload.Meta.ItemsCount,
		payload:    payload,
		insertedAt: e.InsertedAt.UTC(),
		expiresAt:  e.ExpiresAt().UTC(),
	}, nil
}

func (r row) entry() (types.CacheEntry, error) {
	var doc types.MenuDocument
	if err := json.Unmarshal(r.payload, &doc); err != nil {
		return types.CacheEntry{}, fmt.Errorf("decoding payload for %s: %w", r.key, err)
	}
	return types.CacheEntry{
		Key:        types.CacheKey(r.key),
		Payload:    &doc,
		Tier:       types.TierDurable,
		InsertedAt: r.insertedAt,
		TTL:        r.expiresAt.Sub(r.insertedAt),
	}, nil
}

func (r row) record() Record {
	return Record{
		Key:        types.CacheKey(r.key),
		Request:    types.ExtractionRequest{RestaurantName: r.name, Location: r.location},
		Restaurant: r.restaurant,
		ItemsCount: r.items,
		InsertedAt: r.insertedAt,
		ExpiresAt:  r.expiresAt,
	}
}
