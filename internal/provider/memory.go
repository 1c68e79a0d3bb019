package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/saleel/nymdrive/internal/common"
)

// MemoryStorage keeps blobs in process memory. Suitable for tests and
// throwaway deployments only.
type MemoryStorage struct {
	mu    sync.Mutex
	blobs map[string]string
}

// NewMemoryStorage returns an empty in-memory backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{blobs: make(map[string]string)}
}

func (m *MemoryStorage) Store(ctx context.Context, hash, content string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[hash] = content
	return "mem/" + hash, nil
}

func (m *MemoryStorage) Fetch(ctx context.Context, hash string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.blobs[hash]
	if !ok {
		return "", fmt.Errorf("blob %q: %w", hash, common.ErrNotFound)
	}
	return content, nil
}

func (m *MemoryStorage) Remove(ctx context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[hash]; !ok {
		return fmt.Errorf("blob %q: %w", hash, common.ErrNotFound)
	}
	delete(m.blobs, hash)
	return nil
}
