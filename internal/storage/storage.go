// Package storage persists small key-value records on the device, the way the
// mobile client keeps its session between launches.
package storage

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by operations on a closed storage.
var ErrClosed = errors.New("storage closed")

// KeyValue is a string key-value store whose multi-key writes are atomic.
type KeyValue interface {
	// MultiGet returns the values present for keys; absent keys are omitted.
	MultiGet(ctx context.Context, keys ...string) (map[string]string, error)
	// MultiSet writes every pair or none.
	MultiSet(ctx context.Context, pairs map[string]string) error
	// MultiRemove deletes every key or none. Missing keys are not an error.
	MultiRemove(ctx context.Context, keys ...string) error
	Close() error
}

// MemoryStorage keeps records in-process. Used in tests.
type MemoryStorage struct {
	mu     sync.RWMutex
	data   map[string]string
	closed bool
}

// NewMemoryStorage creates an empty in-memory storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string)}
}

func (m *MemoryStorage) MultiGet(_ context.Context, keys ...string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *MemoryStorage) MultiSet(_ context.Context, pairs map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for k, v := range pairs {
		m.data[k] = v
	}
	return nil
}

func (m *MemoryStorage) MultiRemove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *MemoryStorage) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
