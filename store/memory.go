package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store. It backs tests and hosts that do not want
// credentials to outlive the process.
type Memory struct {
	mu   sync.RWMutex
	pair TokenPair
	user CachedUser
	has  bool // cached user present
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Save overwrites the token pair.
func (m *Memory) Save(_ context.Context, pair TokenPair) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = pair
	return nil
}

// SaveUser overwrites the cached user projection.
func (m *Memory) SaveUser(_ context.Context, user CachedUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = user
	m.has = true
	return nil
}

// Clear removes all persisted keys. Safe to call on an empty store.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pair = TokenPair{}
	m.user = CachedUser{}
	m.has = false
	return nil
}

// AccessToken returns the stored access token, or "" when absent.
func (m *Memory) AccessToken(_ context.Context) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pair.AccessToken
}

// RefreshToken returns the stored refresh token, or "" when absent.
func (m *Memory) RefreshToken(_ context.Context) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pair.RefreshToken
}

// CachedUser returns the cached user projection, if any.
func (m *Memory) CachedUser(_ context.Context) (CachedUser, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user, m.has
}
