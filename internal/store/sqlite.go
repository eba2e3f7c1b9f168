// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/menu-engine/pkg/types"
)

const defaultSQLitePath = "data/menus.db"

// SQLite stores menus in a single-file SQLite database. Times are kept as
// Unix milliseconds so expiry comparisons are numeric.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens or creates the database at path and creates the schema
// if it does not exist.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = defaultSQLitePath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLite{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS menus (
			key TEXT PRIMARY KEY,
			restaurant_name TEXT NOT NULL,
			location TEXT NOT NULL,
			restaurant TEXT,
			items_count INTEGER NOT NULL,
			payload TEXT NOT NULL,
			inserted_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_menus_expires_at ON menus(expires_at)`,
		`CREATE INDEX IF NOT EXISTS idx_menus_inserted_at ON menus(inserted_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Get returns the live entry for key.
func (s *SQLite) Get(ctx context.Context, key types.CacheKey) (types.CacheEntry, error) {
	var r row
	var payload string
	var inserted, expires int64
	err := s.db.QueryRowContext(ctx,
		`SELECT key, payload, inserted_at, expires_at FROM menus WHERE key = ? AND expires_at > ?`,
		string(key), s.now().UnixMilli(),
	).Scan(&r.key, &payload, &inserted, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return types.CacheEntry{}, types.ErrCacheMiss
	}
	if err != nil {
		return types.CacheEntry{}, fmt.Errorf("querying menu: %w", err)
	}
	r.payload = []byte(payload)
	r.insertedAt = time.UnixMilli(inserted).UTC()
	r.expiresAt = time.UnixMilli(expires).UTC()
	return r.entry()
}

// Put upserts entry.
func (s *SQLite) Put(ctx context.Context, entry types.CacheEntry) error {
	r, err := toRow(entry)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO menus (key, restaurant_name, location, restaurant, items_count, payload, inserted_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			restaurant_name = excluded.restaurant_name,
			location = excluded.location,
			restaurant = excluded.restaurant,
			items_count = excluded.items_count,
			payload = excluded.payload,
			inserted_at = excluded.inserted_at,
			expires_at = excluded.expires_at`,
		r.key, r.name, r.location, r.restaurant, r.items, string(r.payload),
		r.insertedAt.UnixMilli(), r.expiresAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upserting menu %s: %w", r.key, err)
	}
	return nil
}

// Delete removes key and reports whether a row existed.
func (s *SQLite) Delete(ctx context.Context, key types.CacheKey) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM menus WHERE key = ?`, string(key))
	if err != nil {
		return false, fmt.Errorf("deleting menu %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns live records newest first.
func (s *SQLite) List(ctx context.Context, limit, skip int) ([]Record, int, error) {
	limit, skip = normalizePage(limit, skip)
	now := s.now().UnixMilli()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM menus WHERE expires_at > ?`, now).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting menus: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, restaurant_name, location, COALESCE(restaurant, ''), items_count, inserted_at, expires_at
		 FROM menus WHERE expires_at > ?
		 ORDER BY inserted_at DESC, key
		 LIMIT ? OFFSET ?`,
		now, limit, skip,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing menus: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r row
		var inserted, expires int64
		if err := rows.Scan(&r.key, &r.name, &r.location, &r.restaurant, &r.items, &inserted, &expires); err != nil {
			return nil, 0, fmt.Errorf("scanning menu row: %w", err)
		}
		r.insertedAt = time.UnixMilli(inserted).UTC()
		r.expiresAt = time.UnixMilli(expires).UTC()
		out = append(out, r.record())
	}
	return out, total, rows.Err()
}

// Purge deletes expired rows.
func (s *SQLite) Purge(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM menus WHERE expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purging menus: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
