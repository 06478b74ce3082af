package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-memory ObjectStore for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

// Download returns the stored bytes for key or ErrNotFound.
func (m *MemoryStore) Download(_ context.Context, key string) ([]byte, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	out := make([]byte, len(obj.data))
	copy(out, obj.data)
	return out, obj.contentType, nil
}

// Upload stores payload under key.
func (m *MemoryStore) Upload(_ context.Context, key, contentType string, payload []byte) error {
	data := make([]byte, len(payload))
	copy(data, payload)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{data: data, contentType: contentType}
	return nil
}

// SignedURL returns a deterministic fake URL for key.
func (m *MemoryStore) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.objects[key]; !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return fmt.Sprintf("memory://%s?expires=%ds", key, int(ttl.Seconds())), nil
}

// Has reports whether key exists. Test helper.
func (m *MemoryStore) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok
}

// Object returns the stored bytes and content type for key. Test helper.
func (m *MemoryStore) Object(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj.data, obj.contentType, ok
}
