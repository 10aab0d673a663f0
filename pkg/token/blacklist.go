package token

import (
	"context"
	"sync"
	"time"
)

// Entry is one revoked token in the blacklist.
type Entry struct {
	JTI       string
	UserID    int64
	TokenType string
	Reason    string
	IP        string
	UserAgent string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Blacklist stores revoked token ids and per-user revocation watermarks.
type Blacklist interface {
	// Add records an entry. It must be an atomic check-and-set: the
	// returned bool is false when the jti was already present, in which
	// case nothing is written.
	Add(ctx context.Context, e Entry) (bool, error)
	// Contains reports whether the jti has been revoked.
	Contains(ctx context.Context, jti string) (bool, error)
	// RevokeUser invalidates every token the user holds that was issued
	// before the given time.
	RevokeUser(ctx context.Context, userID int64, revokedAt time.Time) error
	// IsUserRevoked reports whether a token issued at issuedAt falls
	// under the user's revocation watermark.
	IsUserRevoked(ctx context.Context, userID int64, issuedAt time.Time) (bool, error)
	// PruneExpired removes entries whose own expiry has passed and
	// returns how many were dropped.
	PruneExpired(ctx context.Context, now time.Time) (int64, error)
}

// MemoryBlacklist is a mutex-guarded in-process Blacklist, suitable for
// tests and single-instance deployments.
type MemoryBlacklist struct {
	mu         sync.Mutex
	entries    map[string]Entry
	watermarks map[int64]time.Time
}

// NewMemoryBlacklist returns an empty in-memory blacklist.
func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{
		entries:    make(map[string]Entry),
		watermarks: make(map[int64]time.Time),
	}
}

func (b *MemoryBlacklist) Add(_ context.Context, e Entry) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.entries[e.JTI]; exists {
		return false, nil
	}
	b.entries[e.JTI] = e
	return true, nil
}

func (b *MemoryBlacklist) Contains(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, ok := b.entries[jti]
	return ok, nil
}

func (b *MemoryBlacklist) RevokeUser(_ context.Context, userID int64, revokedAt time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if current, ok := b.watermarks[userID]; !ok || revokedAt.After(current) {
		b.watermarks[userID] = revokedAt
	}
	return nil
}

func (b *MemoryBlacklist) IsUserRevoked(_ context.Context, userID int64, issuedAt time.Time) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	mark, ok := b.watermarks[userID]
	if !ok {
		return false, nil
	}
	return issuedAt.Before(mark), nil
}

func (b *MemoryBlacklist) PruneExpired(_ context.Context, now time.Time) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var dropped int64
	for jti, e := range b.entries {
		if e.ExpiresAt.Before(now) {
			delete(b.entries, jti)
			dropped++
		}
	}
	return dropped, nil
}
