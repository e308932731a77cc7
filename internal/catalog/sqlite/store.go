// Package sqlite is the catalog's storage engine: a single-file SQLite
// database reached through the pure-Go, cgo-free ncruces/go-sqlite3 driver.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/dogebooch/extractvault/internal/catalog"
)

var _ catalog.Repository = (*Store)(nil)

// Store wraps the catalog's *sql.DB. SQLite allows only one writer at a
// time; the repository layer serializes access through mu and caps the pool
// at a single connection.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open creates (if needed) and opens the catalog database at path,
// applying the baseline schema. The dsn enables WAL, a busy timeout, and
// foreign-key enforcement.
func Open(path string) (*Store, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file::memory:") {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create catalog dir: %w", err)
			}
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal=WAL&_busy_timeout=5000&_foreign_keys=1", path)
	if path == ":memory:" {
		dsn = "file::memory:?cache=shared&_foreign_keys=1"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping catalog db: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init catalog schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w\nSQL: %s", err, stmt)
		}
	}
	return tx.Commit()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// DB exposes the underlying handle for callers (currently the tests) that
// need direct SQL access beyond the Repository contract.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path Open was called with.
func (s *Store) Path() string {
	return s.path
}
