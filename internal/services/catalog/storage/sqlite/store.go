// Package sqlite provides the SQLite-backed catalog query store.
package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/dawitj/gebeya/internal/platform/storage/sqlitemigrate"
	"github.com/dawitj/gebeya/internal/services/catalog/storage"
	"github.com/dawitj/gebeya/internal/services/catalog/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store reads catalog state from SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite catalog store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready() error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// checkWindow rejects non-positive limits and negative offsets before any
// SQL is assembled.
func checkWindow(limit, offset int) error {
	if limit <= 0 || offset < 0 {
		return fmt.Errorf("%w: limit=%d offset=%d", storage.ErrInvalidWindow, limit, offset)
	}
	return nil
}

// inList expands an id set into a "(?, ?, ...)" fragment plus its args.
// Empty sets are rejected explicitly instead of emitting invalid SQL.
func inList(ids []int64) (string, []any, error) {
	if len(ids) == 0 {
		return "", nil, storage.ErrEmptyIDSet
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return "(" + strings.Join(placeholders, ", ") + ")", args, nil
}

var _ storage.Store = (*Store)(nil)
