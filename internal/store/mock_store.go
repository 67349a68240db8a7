// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu         sync.RWMutex
	credits    map[string]*Credit // keyed by signer
	identities map[string]time.Time
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		credits:    make(map[string]*Credit),
		identities: make(map[string]time.Time),
	}
}

// GetCredit returns the cached credit for a signer, or ErrNotFound.
func (m *MockStore) GetCredit(ctx context.Context, signer string) (*Credit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.credits[signer]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

// PutCredit stores the credit for its signer, replacing any previous entry.
func (m *MockStore) PutCredit(ctx context.Context, credit *Credit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *credit
	m.credits[c.Signer] = &c
	return nil
}

// DeleteCredit removes the cached credit for a signer, if any.
func (m *MockStore) DeleteCredit(ctx context.Context, signer string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.credits, signer)
	return nil
}

// AddOwnedIdentity records an identity as locally controlled.
func (m *MockStore) AddOwnedIdentity(ctx context.Context, identityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.identities[identityID]; !exists {
		m.identities[identityID] = time.Now().UTC()
	}
	return nil
}

// RemoveOwnedIdentity drops the local record of a controlled identity.
func (m *MockStore) RemoveOwnedIdentity(ctx context.Context, identityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.identities[identityID]; !exists {
		return ErrNotFound
	}
	delete(m.identities, identityID)
	return nil
}

// ListOwnedIdentities returns all locally-controlled identities, oldest first.
func (m *MockStore) ListOwnedIdentities(ctx context.Context) ([]OwnedIdentity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]OwnedIdentity, 0, len(m.identities))
	for id, at := range m.identities {
		out = append(out, OwnedIdentity{IdentityID: id, AddedAt: at})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].IdentityID < out[j].IdentityID
		}
		return out[i].AddedAt.Before(out[j].AddedAt)
	})
	return out, nil
}

// Close is a no-op for the mock store.
func (m *MockStore) Close() error {
	return nil
}
