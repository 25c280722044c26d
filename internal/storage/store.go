// Package storage abstracts the object store holding property image blobs.
package storage

import (
	"context"
	"strings"
	"sync"
)

// Store is the slice of object storage the API needs: deleting blobs it no
// longer references and resolving public URLs. Uploads happen client-side
// through signed URLs issued elsewhere.
type Store interface {
	Delete(ctx context.Context, key string) error
	URL(key string) string
	KeyFromURL(url string) (string, bool)
}

// NoopStore is used when object storage is disabled.
type NoopStore struct{}

func (NoopStore) Delete(context.Context, string) error { return nil }
func (NoopStore) URL(key string) string                { return key }
func (NoopStore) KeyFromURL(string) (string, bool)     { return "", false }

// MemoryStore keeps blobs in a map. Tests and local development use it.
type MemoryStore struct {
	BaseURL string
	// DeleteErr, when set, is returned by every Delete call.
	DeleteErr error

	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{BaseURL: strings.TrimRight(baseURL, "/"), objects: make(map[string][]byte)}
}

// Put stores data under key and returns its public URL.
func (m *MemoryStore) Put(key string, data []byte) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return m.URL(key)
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, key)
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) URL(key string) string {
	return m.BaseURL + "/" + strings.TrimLeft(key, "/")
}

func (m *MemoryStore) KeyFromURL(url string) (string, bool) {
	return trimBase(m.BaseURL, url)
}

// Exists reports whether key is currently stored.
func (m *MemoryStore) Exists(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// Deleted lists every key Delete was called with, including failed attempts.
func (m *MemoryStore) Deleted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

func trimBase(base, url string) (string, bool) {
	if base == "" {
		return "", false
	}
	prefix := strings.TrimRight(base, "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, prefix)
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	return key, key != ""
}
