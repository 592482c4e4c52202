package policy

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryEntry struct {
	scope     Scope
	scopeID   string
	raw       []byte
	active    bool
	createdAt time.Time
}

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]memoryEntry // keyed by userID
}

// NewMemoryStore creates an empty in-memory policy store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]memoryEntry)}
}

// Put stores a policy document for the user at the given scope.
func (s *MemoryStore) Put(userID string, scope Scope, scopeID string, p Policy) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	s.PutRaw(userID, scope, scopeID, raw)
	return nil
}

// PutRaw stores an arbitrary document, useful for exercising malformed data.
func (s *MemoryStore) PutRaw(userID string, scope Scope, scopeID string, raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = append(s.entries[userID], memoryEntry{
		scope:     scope,
		scopeID:   scopeID,
		raw:       raw,
		active:    true,
		createdAt: time.Now(),
	})
}

// FindScoped implements Store.
func (s *MemoryStore) FindScoped(_ context.Context, userID string, scope Scope, scopeID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries[userID] {
		if e.active && e.scope == scope && e.scopeID == scopeID {
			return e.raw, nil
		}
	}
	return nil, ErrNotFound
}

// FindLatestGlobal implements Store.
func (s *MemoryStore) FindLatestGlobal(_ context.Context, userID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var newest *memoryEntry
	for i := range s.entries[userID] {
		e := &s.entries[userID][i]
		if !e.active || e.scope != ScopeGlobal {
			continue
		}
		if newest == nil || e.createdAt.After(newest.createdAt) {
			newest = e
		}
	}
	if newest == nil {
		return nil, ErrNotFound
	}
	return newest.raw, nil
}
