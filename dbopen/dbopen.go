// Package dbopen opens SQLite databases for ccmark. Pragmas travel in the
// DSN so every pooled connection gets them, not only the first one:
// WAL journaling, a busy timeout, NORMAL sync and foreign keys.
//
//	import _ "modernc.org/sqlite"
//	db, err := dbopen.Open("data/ccmark.db", dbopen.WithMkdirAll())
//
// Tests use OpenMemory, which pins the pool to one connection.
package dbopen

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"testing"
)

const memory = ":memory:"

type config struct {
	busyTimeout int
	readOnly    bool
	maxConns    int
	mkdirAll    bool
	schemas     []string
}

// Option customises Open.
type Option func(*config)

// WithBusyTimeout sets busy_timeout in milliseconds. Default: 10000.
func WithBusyTimeout(ms int) Option { return func(c *config) { c.busyTimeout = ms } }

// WithReadOnly opens the file with mode=ro. Schemas are not applied.
func WithReadOnly() Option { return func(c *config) { c.readOnly = true } }

// WithMaxConns caps the pool. Change pollers need exactly one connection
// because data_version is tracked per connection.
func WithMaxConns(n int) Option { return func(c *config) { c.maxConns = n } }

// WithMkdirAll creates the parent directory of the database file.
func WithMkdirAll() Option { return func(c *config) { c.mkdirAll = true } }

// WithSchema queues SQL to execute after opening.
func WithSchema(s string) Option { return func(c *config) { c.schemas = append(c.schemas, s) } }

// DSN builds the modernc.org/sqlite data source name for path.
func DSN(path string, opts ...Option) string {
	cfg := newConfig(opts)
	return cfg.dsn(path)
}

func newConfig(opts []Option) config {
	cfg := config{busyTimeout: 10_000}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

func (c config) dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", c.busyTimeout))
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "synchronous(NORMAL)")
	if path != memory {
		q.Add("_pragma", "journal_mode(WAL)")
	}
	if c.readOnly && path != memory {
		q.Set("mode", "ro")
		return "file:" + path + "?" + q.Encode()
	}
	return path + "?" + q.Encode()
}

// Open opens the SQLite database at path. The caller blank-imports the driver.
func Open(path string, opts ...Option) (*sql.DB, error) {
	cfg := newConfig(opts)

	if cfg.mkdirAll && path != memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("dbopen: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.dsn(path))
	if err != nil {
		return nil, fmt.Errorf("dbopen: open: %w", err)
	}
	if cfg.maxConns > 0 {
		db.SetMaxOpenConns(cfg.maxConns)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("dbopen: ping %s: %w", path, err)
	}

	if !cfg.readOnly {
		for _, s := range cfg.schemas {
			if _, err := db.Exec(s); err != nil {
				db.Close()
				return nil, fmt.Errorf("dbopen: exec schema: %w", err)
			}
		}
	}
	return db, nil
}

// OpenMemory opens an in-memory database for tests and closes it on cleanup.
// Every connection to ":memory:" is a distinct database, hence one connection.
func OpenMemory(t testing.TB, opts ...Option) *sql.DB {
	t.Helper()
	db, err := Open(memory, append(opts, WithMaxConns(1))...)
	if err != nil {
		t.Fatalf("dbopen.OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
