package session

import (
	"context"
	"sync"
)

// Store defines the interface for session persistence.
// Implementations must be safe for concurrent use: multiple requests
// for the same user may race (e.g., simultaneous logout and refresh).
type Store interface {
	// Create persists a new session.
	Create(ctx context.Context, s *Session) error

	// Get retrieves a session by its cookie token.
	// Returns ErrNotFound if absent, ErrExpired if past its expiry.
	Get(ctx context.Context, token string) (*Session, error)

	// Update saves changes to an existing session.
	Update(ctx context.Context, s *Session) error

	// Delete removes a session by its ID.
	Delete(ctx context.Context, id string) error

	// DeleteByUserID removes all sessions for a user.
	// Used by the password-reset flow to invalidate every device.
	DeleteByUserID(ctx context.Context, userID int64) error
}

// MemoryStore is an in-process Store guarded by a mutex.
// Suitable for tests and single-instance deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	byToken map[string]*Session
	byID    map[string]string // id -> token
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byToken: make(map[string]*Session),
		byID:    make(map[string]string),
	}
}

func (m *MemoryStore) Create(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byToken[s.Token] = s.clone()
	m.byID[s.ID] = s.Token
	return nil
}

// Get returns a copy, never the stored session itself: two concurrent
// requests with the same cookie must not share a Values map.
func (m *MemoryStore) Get(_ context.Context, token string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.byToken[token]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	if s.IsExpired() {
		return nil, ErrExpired
	}
	return s.clone(), nil
}

func (m *MemoryStore) Update(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Token rotation leaves the old token keyed; re-key by current token.
	if old, ok := m.byID[s.ID]; ok && old != s.Token {
		delete(m.byToken, old)
	}
	m.byToken[s.Token] = s.clone()
	m.byID[s.ID] = s.Token
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token, ok := m.byID[id]; ok {
		delete(m.byToken, token)
		delete(m.byID, id)
	}
	return nil
}

func (m *MemoryStore) DeleteByUserID(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, s := range m.byToken {
		if s.UserID != nil && *s.UserID == userID {
			delete(m.byToken, token)
			delete(m.byID, s.ID)
		}
	}
	return nil
}
