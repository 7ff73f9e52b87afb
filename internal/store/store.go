// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists normalized products, tags and API usage in
// SQLite. Product writes are idempotent upserts keyed by (source,
// product key).
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/gift-engine/pkg/types"
)

const dbFile = "gift-engine.db"

const timeFmt = time.RFC3339Nano

var (
	// ErrNotFound reports a product or tag id with no row.
	ErrNotFound = errors.New("not found")

	// ErrSystemTag reports an attempt to edit or delete a system tag.
	ErrSystemTag = errors.New("system tags cannot be modified")

	// ErrInvalidTag reports a tag with an empty name.
	ErrInvalidTag = errors.New("tag name is required")
)

// Store manages the gift-engine SQLite database.
type Store struct {
	db  *sql.DB
	dir string
	now func() time.Time
	id  func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for row timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore opens or creates the database at cfg.Dir/gift-engine.db and
// creates the schema if it does not exist.
func NewStore(cfg types.StoreConfig, opts ...Option) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:  db,
		dir: dir,
		now: time.Now,
		id:  func() string { return uuid.NewString() },
	}
	for _, o := range opts {
		o(s)
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the directory holding the database and its exports.
func (s *Store) Dir() string { return s.dir }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			product_key TEXT NOT NULL,
			external_id TEXT,
			title TEXT NOT NULL,
			description TEXT,
			image_url TEXT,
			product_url TEXT NOT NULL,
			price REAL,
			currency TEXT,
			rating REAL,
			review_count INTEGER,
			in_stock INTEGER,
			availability TEXT,
			categories TEXT,
			tags TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE(source, product_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_products_source ON products(source)`,
		`CREATE INDEX IF NOT EXISTS idx_products_updated ON products(updated_at)`,
		`CREATE TABLE IF NOT EXISTS tags (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			category TEXT,
			description TEXT,
			color TEXT,
			is_system INTEGER NOT NULL DEFAULT 0,
			usage_count INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS product_tags (
			product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			tag_id TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
			created_at TEXT NOT NULL,
			PRIMARY KEY (product_id, tag_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_product_tags_tag ON product_tags(tag_id)`,
		`CREATE TABLE IF NOT EXISTS api_usage (
			id TEXT PRIMARY KEY,
			service TEXT NOT NULL,
			endpoint TEXT,
			tokens_used INTEGER,
			cost REAL,
			response_time_ms INTEGER,
			created_at TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeFmt)
}

func parseTime(v string) time.Time {
	t, _ := time.Parse(timeFmt, v)
	return t
}
