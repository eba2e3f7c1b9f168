// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pdiddy/menu-engine/pkg/types"
)

// Postgres stores menus in a shared PostgreSQL database with the document
// kept as JSONB.
type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// OpenPostgres connects a pool to dsn and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		return nil, errors.New("postgres durable store requires a DSN")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres DSN: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	p := &Postgres{pool: pool, now: time.Now}
	if err := p.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS menus (
			key TEXT PRIMARY KEY,
			restaurant_name TEXT NOT NULL,
			location TEXT NOT NULL,
			restaurant TEXT NOT NULL DEFAULT '',
			items_count INTEGER NOT NULL,
			payload JSONB NOT NULL,
			inserted_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_menus_expires_at ON menus(expires_at)`,
	}
	for _, stmt := range statements {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("initializing postgres schema: %w", err)
		}
	}
	return nil
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) Get(ctx context.Context, key types.CacheKey) (types.CacheEntry, error) {
	var r row
	err := p.pool.QueryRow(ctx,
		`SELECT key, payload, inserted_at, expires_at FROM menus WHERE key = $1 AND expires_at > $2`,
		string(key), p.now(),
	).Scan(&r.key, &r.payload, &r.insertedAt, &r.expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.CacheEntry{}, types.ErrCacheMiss
	}
	if err != nil {
		return types.CacheEntry{}, fmt.Errorf("querying menu: %w", err)
	}
	return r.entry()
}

func (p *Postgres) Put(ctx context.Context, entry types.CacheEntry) error {
	r, err := toRow(entry)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO menus (key, restaurant_name, location, restaurant, items_count, payload, inserted_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (key) DO UPDATE SET
			restaurant_name = EXCLUDED.restaurant_name,
			location = EXCLUDED.location,
			restaurant = EXCLUDED.restaurant,
			items_count = EXCLUDED.items_count,
			payload = EXCLUDED.payload,
			inserted_at = EXCLUDED.inserted_at,
			expires_at = EXCLUDED.expires_at`,
		r.key, r.name, r.location, r.restaurant, r.items, r.payload, r.insertedAt, r.expiresAt,
	)
	if err != nil {
		return fmt.Errorf("upserting menu %s: %w", r.key, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, key types.CacheKey) (bool, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM menus WHERE key = $1`, string(key))
	if err != nil {
		return false, fmt.Errorf("deleting menu %s: %w", key, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) List(ctx context.Context, limit, skip int) ([]Record, int, error) {
	limit, skip = normalizePage(limit, skip)
	now := p.now()

	var total int
	if err := p.pool.QueryRow(ctx, `SELECT count(*) FROM menus WHERE expires_at > $1`, now).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting menus: %w", err)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT key, restaurant_name, location, restaurant, items_count, inserted_at, expires_at
		 FROM menus WHERE expires_at > $1
		 ORDER BY inserted_at DESC, key
		 LIMIT $2 OFFSET $3`,
		now, limit, skip,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing menus: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.key, &r.name, &r.location, &r.restaurant, &r.items, &r.insertedAt, &r.expiresAt); err != nil {
			return nil, 0, fmt.Errorf("scanning menu row: %w", err)
		}
		r.insertedAt = r.insertedAt.UTC()
		r.expiresAt = r.expiresAt.UTC()
		out = append(out, r.record())
	}
	return out, total, rows.Err()
}

func (p *Postgres) Purge(ctx context.Context) (int, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM menus WHERE expires_at <= $1`, p.now())
	if err != nil {
		return 0, fmt.Errorf("purging menus: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
