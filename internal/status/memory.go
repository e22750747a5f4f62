package status

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory Store, safe for concurrent use
type MemoryStore struct {
	mu       sync.RWMutex
	statuses map[string]Status
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{statuses: make(map[string]Status)}
}

// Create registers an email in needsReview. An email that already exists
// keeps its status.
func (m *MemoryStore) Create(ctx context.Context, emailID string) error {
	if emailID == "" {
		return fmt.Errorf("email ID is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.statuses[emailID]; !ok {
		m.statuses[emailID] = NeedsReview
	}
	return nil
}

// Status implements Store
func (m *MemoryStore) Status(ctx context.Context, emailID string) (Status, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.statuses[emailID]
	if !ok {
		return "", ErrEmailNotFound
	}
	return s, nil
}

// CompareAndSet implements Store
func (m *MemoryStore) CompareAndSet(ctx context.Context, emailID string, from, to Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.statuses[emailID]
	if !ok {
		return false, ErrEmailNotFound
	}
	if s != from {
		return false, nil
	}
	m.statuses[emailID] = to
	return true, nil
}

// List returns the ids visible under f
func (m *MemoryStore) List(f Filter) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for id, s := range m.statuses {
		if f.Includes(s) {
			ids = append(ids, id)
		}
	}
	return ids
}
