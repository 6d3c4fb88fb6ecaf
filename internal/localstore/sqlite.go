package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure Go driver, registers "sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS items (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// SQLiteStore keeps items in a single key/value table.
type SQLiteStore struct {
	db *sql.DB

	mu     sync.RWMutex
	closed bool
}

// OpenSQLiteStore opens (or creates) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create parent directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// 单连接，保证 :memory: 数据库在所有调用之间共享。
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		schema,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetItem(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, ErrClosed
	}

	var value string
	err := s.db.QueryRowContext(context.Background(), "SELECT value FROM items WHERE key = ?", key).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, s.wrap("get", err)
	}
	return value, true, nil
}

func (s *SQLiteStore) SetItem(key, value string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	_, err := s.db.ExecContext(context.Background(),
		"INSERT INTO items (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	return s.wrap("set", err)
}

func (s *SQLiteStore) RemoveItem(key string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	_, err := s.db.ExecContext(context.Background(), "DELETE FROM items WHERE key = ?", key)
	return s.wrap("remove", err)
}

// Close 可重复调用，关闭后的读写返回 ErrClosed。
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *SQLiteStore) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("localstore: %s failed: %w", op, err)
}
