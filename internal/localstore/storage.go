// Package localstore keeps small string values keyed by name, the way a
// browser's local storage does, so the chat client can remember its
// session history between runs.
package localstore

import (
	"errors"
	"io"
	"sync"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("localstore: store is closed")

// Storage is a string key/value store. Writes are last-writer-wins.
type Storage interface {
	// GetItem returns the value for key and whether it was present.
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
	io.Closer
}

// MemoryStore keeps items in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	items  map[string]string
	closed bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]string)}
}

func (s *MemoryStore) GetItem(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, ErrClosed
	}
	v, ok := s.items[key]
	return v, ok, nil
}

func (s *MemoryStore) SetItem(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.items[key] = value
	return nil
}

func (s *MemoryStore) RemoveItem(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	delete(s.items, key)
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
