// Package sqlitekv binds the settings storage port to a SQLite database.
package sqlitekv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"pkt.systems/pslog"
)

// Store is a SQLite-backed persist.Port.
type Store struct {
	sqlDB *sql.DB
	log   pslog.Logger
}

// Open opens and migrates a key-value SQLite store.
func Open(path string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	if logger != nil {
		logger = logger.With("sqlite_path", cleanPath)
	}
	return &Store{sqlDB: sqlDB, log: logger}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Get implements persist.Port.
func (s *Store) Get(key string) ([]byte, bool, error) {
	if s == nil || s.sqlDB == nil {
		return nil, false, fmt.Errorf("storage is not configured")
	}
	var value []byte
	row := s.sqlDB.QueryRowContext(context.Background(), `SELECT value FROM kv_entries WHERE key = ?`, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		if s.log != nil {
			s.log.Warn("kv get failed", "key", key, "err", err)
		}
		return nil, false, fmt.Errorf("get kv entry: %w", err)
	}
	return value, true, nil
}

// Set implements persist.Port as a single upsert.
func (s *Store) Set(key string, value []byte) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	_, err := s.sqlDB.ExecContext(
		context.Background(),
		`INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		    value = excluded.value,
		    updated_at = excluded.updated_at`,
		key,
		value,
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		if s.log != nil {
			s.log.Warn("kv set failed", "key", key, "err", err)
		}
		return fmt.Errorf("put kv entry: %w", err)
	}
	if s.log != nil {
		s.log.Trace("kv set ok", "key", key, "bytes", len(value))
	}
	return nil
}

// Remove implements persist.Port.
func (s *Store) Remove(key string) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if _, err := s.sqlDB.ExecContext(context.Background(), `DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete kv entry: %w", err)
	}
	return nil
}
