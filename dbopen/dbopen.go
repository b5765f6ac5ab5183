// Package dbopen opens the SQLite databases of a11ywatch (audit history and
// rule settings) on the pure-Go modernc.org/sqlite driver.
//
// Pragmas are passed in the DSN so that every connection of the pool gets
// them, not only the first one:
//
//	foreign_keys = ON
//	journal_mode = WAL
//	busy_timeout = 10000
//	synchronous  = NORMAL
//
// Usage:
//
//	db, err := dbopen.Open("a11ywatch.db", dbopen.WithSchema(store.Schema))
//
// In tests:
//
//	db := dbopen.OpenMemory(t)
package dbopen

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

type config struct {
	busyTimeout int
	synchronous string
	foreignKeys bool
	mkdirAll    bool
	schemas     []string
}

func defaults() config {
	return config{
		busyTimeout: 10_000,
		synchronous: "NORMAL",
		foreignKeys: true,
	}
}

// Option customises Open behaviour.
type Option func(*config)

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds. Default: 10000.
func WithBusyTimeout(ms int) Option { return func(c *config) { c.busyTimeout = ms } }

// WithSynchronous sets PRAGMA synchronous. Default: "NORMAL".
func WithSynchronous(mode string) Option { return func(c *config) { c.synchronous = mode } }

// WithMkdirAll creates parent directories of the database path before opening.
func WithMkdirAll() Option { return func(c *config) { c.mkdirAll = true } }

// WithSchema queues SQL executed once after opening. Schemas must be
// idempotent (CREATE ... IF NOT EXISTS).
func WithSchema(s string) Option { return func(c *config) { c.schemas = append(c.schemas, s) } }

// WithoutForeignKeys disables PRAGMA foreign_keys.
func WithoutForeignKeys() Option { return func(c *config) { c.foreignKeys = false } }

// DSN builds the driver data source name for path.
func DSN(path string, opts ...Option) string {
	cfg := defaults()
	for _, o := range opts {
		o(&cfg)
	}
	return cfg.dsn(path)
}

func (c *config) dsn(path string) string {
	fk := "ON"
	if !c.foreignKeys {
		fk = "OFF"
	}
	q := url.Values{}
	q.Add("_pragma", "foreign_keys("+fk+")")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.busyTimeout))
	q.Add("_pragma", "synchronous("+c.synchronous+")")
	if path != ":memory:" {
		q.Add("_pragma", "journal_mode(WAL)")
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + q.Encode()
}

// Open opens the SQLite database at path.
func Open(path string, opts ...Option) (*sql.DB, error) {
	cfg := defaults()
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.mkdirAll && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("dbopen: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.dsn(path))
	if err != nil {
		return nil, fmt.Errorf("dbopen: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("dbopen: ping: %w", err)
	}
	for _, s := range cfg.schemas {
		if _, err := db.Exec(s); err != nil {
			db.Close()
			return nil, fmt.Errorf("dbopen: exec schema: %w", err)
		}
	}
	return db, nil
}

// OpenMemory opens an in-memory database for tests. The pool is limited to
// one connection, since every connection to ":memory:" is a separate
// database. The database is closed when the test ends.
func OpenMemory(t testing.TB, opts ...Option) *sql.DB {
	t.Helper()
	db, err := Open(":memory:", opts...)
	if err != nil {
		t.Fatalf("dbopen.OpenMemory: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}
