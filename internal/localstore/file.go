package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/renameio/v2"
)

// FileStore persists all items as one JSON object. Every write rewrites the
// whole file through a temp file and rename.
type FileStore struct {
	path string

	mu     sync.Mutex
	items  map[string]string
	closed bool
}

// OpenFileStore loads path if it exists. A missing file is an empty store.
func OpenFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, items: make(map[string]string)}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.items); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if s.items == nil {
		s.items = make(map[string]string)
	}
	return s, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) GetItem(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, ErrClosed
	}
	v, ok := s.items[key]
	return v, ok, nil
}

func (s *FileStore) SetItem(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	prev, had := s.items[key]
	s.items[key] = value
	if err := s.flushLocked(); err != nil {
		if had {
			s.items[key] = prev
		} else {
			delete(s.items, key)
		}
		return err
	}
	return nil
}

func (s *FileStore) RemoveItem(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	prev, had := s.items[key]
	if !had {
		return nil
	}
	delete(s.items, key)
	if err := s.flushLocked(); err != nil {
		s.items[key] = prev
		return err
	}
	return nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *FileStore) flushLocked() error {
	data, err := json.MarshalIndent(s.items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}
	if err := renameio.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return nil
}
