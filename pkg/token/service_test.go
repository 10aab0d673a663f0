package token

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrymomot/campus/pkg/logger"
)

const testSecret = "test-secret-at-least-32-bytes-long!"

func newTestService(t *testing.T, opts ...Option) (*Service, *MemoryBlacklist) {
	t.Helper()
	bl := NewMemoryBlacklist()
	opts = append([]Option{WithLogger(logger.NewDiscard())}, opts...)
	svc, err := NewService(testSecret, bl, opts...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, bl
}

func TestNewService_RequiresSecret(t *testing.T) {
	if _, err := NewService("", NewMemoryBlacklist()); !errors.Is(err, ErrMissingSecret) {
		t.Errorf("NewService(\"\") = %v, want ErrMissingSecret", err)
	}
}

func TestIssueAndValidateAccessToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tok, err := svc.IssueAccessToken(42, "teacher")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	claims, err := svc.Validate(ctx, tok)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.UserID() != 42 {
		t.Errorf("UserID() = %d, want 42", claims.UserID())
	}
	if claims.Role != "teacher" {
		t.Errorf("Role = %q, want %q", claims.Role, "teacher")
	}
	if claims.TokenType != TypeAccess {
		t.Errorf("TokenType = %q, want %q", claims.TokenType, TypeAccess)
	}
}

func TestValidate_RejectsRefreshTokenAsAccess(t *testing.T) {
	svc, _ := newTestService(t)

	tok, err := svc.IssueRefreshToken(42, "student")
	if err != nil {
		t.Fatalf("IssueRefreshToken: %v", err)
	}
	if _, err := svc.Validate(context.Background(), tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate(refresh token) = %v, want ErrInvalidToken", err)
	}
}

func TestValidate_RejectsTamperedToken(t *testing.T) {
	svc, _ := newTestService(t)

	tok, err := svc.IssueAccessToken(42, "student")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	parts := strings.Split(tok, ".")
	tampered := parts[0] + "." + parts[1] + ".AAAA" + parts[2][4:]
	if _, err := svc.Validate(context.Background(), tampered); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate(tampered) = %v, want ErrInvalidToken", err)
	}
}

func TestValidate_RejectsExpiredToken(t *testing.T) {
	now := time.Now()
	clock := &now
	var mu sync.Mutex
	svc, _ := newTestService(t, WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return *clock
	}))

	tok, err := svc.IssueAccessToken(42, "student")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	mu.Lock()
	later := now.Add(2 * time.Hour)
	clock = &later
	mu.Unlock()

	if _, err := svc.Validate(context.Background(), tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate(expired) = %v, want ErrInvalidToken", err)
	}
}

func TestRefresh_RotatesAndBlocksReuse(t *testing.T) {
	svc, bl := newTestService(t)
	ctx := context.Background()

	pair, err := svc.IssuePair(7, "student")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	fresh, err := svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("first Refresh: %v", err)
	}
	if fresh.AccessToken == "" || fresh.RefreshToken == "" {
		t.Fatal("Refresh returned incomplete pair")
	}
	if fresh.RefreshToken == pair.RefreshToken {
		t.Error("Refresh returned the same refresh token")
	}

	// Presenting the rotated-out token again must fail.
	if _, err := svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("second Refresh = %v, want ErrInvalidToken", err)
	}

	// The old jti sits in the blacklist.
	claims, err := svc.parse(pair.RefreshToken)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	revoked, err := bl.Contains(ctx, claims.ID)
	if err != nil || !revoked {
		t.Errorf("Contains(old jti) = %v, %v; want true, nil", revoked, err)
	}
}

func TestRefresh_ConcurrentSucceedsExactlyOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	pair, err := svc.IssuePair(7, "student")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	const workers = 10
	var successes atomic.Int32
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Refresh(ctx, pair.RefreshToken); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	if n := successes.Load(); n != 1 {
		t.Errorf("concurrent Refresh successes = %d, want exactly 1", n)
	}
}

func TestRevoke_InvalidatesToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tok, err := svc.IssueAccessToken(42, "admin")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if _, err := svc.Validate(ctx, tok); err != nil {
		t.Fatalf("Validate before revoke: %v", err)
	}

	meta := ClientMeta{IP: "203.0.113.5", UserAgent: "test"}
	if err := svc.Revoke(ctx, tok, "logout", meta); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	if _, err := svc.Validate(ctx, tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate after revoke = %v, want ErrInvalidToken", err)
	}
}

func TestRevokeAllForUser(t *testing.T) {
	now := time.Now()
	current := now
	var mu sync.Mutex
	svc, _ := newTestService(t, WithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return current
	}))
	ctx := context.Background()

	tok, err := svc.IssueAccessToken(42, "student")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	// Revocation happens after issuance, so the watermark covers it.
	mu.Lock()
	current = now.Add(time.Minute)
	mu.Unlock()

	if err := svc.RevokeAllForUser(ctx, 42, "password_reset"); err != nil {
		t.Fatalf("RevokeAllForUser: %v", err)
	}
	if _, err := svc.Validate(ctx, tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate after RevokeAllForUser = %v, want ErrInvalidToken", err)
	}

	// Tokens issued after the watermark stay valid.
	mu.Lock()
	current = now.Add(2 * time.Minute)
	mu.Unlock()

	fresh, err := svc.IssueAccessToken(42, "student")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if _, err := svc.Validate(ctx, fresh); err != nil {
		t.Errorf("Validate(post-watermark token) = %v, want nil", err)
	}

	// Other users are untouched.
	other, err := svc.IssueAccessToken(43, "student")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}
	if _, err := svc.Validate(ctx, other); err != nil {
		t.Errorf("Validate(other user) = %v, want nil", err)
	}
}

func TestPasswordResetToken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tok, err := svc.IssuePasswordResetToken(42, "student@example.com")
	if err != nil {
		t.Fatalf("IssuePasswordResetToken: %v", err)
	}

	claims, err := svc.ValidatePasswordReset(ctx, tok)
	if err != nil {
		t.Fatalf("ValidatePasswordReset: %v", err)
	}
	if claims.Email != "student@example.com" {
		t.Errorf("Email = %q, want %q", claims.Email, "student@example.com")
	}

	// A reset token is not an access token.
	if _, err := svc.Validate(ctx, tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate(reset token) = %v, want ErrInvalidToken", err)
	}

	// Consuming the token revokes it.
	if err := svc.Revoke(ctx, tok, "consumed", ClientMeta{}); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := svc.ValidatePasswordReset(ctx, tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidatePasswordReset after consume = %v, want ErrInvalidToken", err)
	}
}

func TestMemoryBlacklist_PruneExpired(t *testing.T) {
	bl := NewMemoryBlacklist()
	ctx := context.Background()
	now := time.Now()

	for _, e := range []Entry{
		{JTI: "old-1", ExpiresAt: now.Add(-time.Hour)},
		{JTI: "old-2", ExpiresAt: now.Add(-time.Minute)},
		{JTI: "live", ExpiresAt: now.Add(time.Hour)},
	} {
		if added, err := bl.Add(ctx, e); !added || err != nil {
			t.Fatalf("Add(%s) = %v, %v", e.JTI, added, err)
		}
	}

	dropped, err := bl.PruneExpired(ctx, now)
	if err != nil {
		t.Fatalf("PruneExpired: %v", err)
	}
	if dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}

	if ok, _ := bl.Contains(ctx, "live"); !ok {
		t.Error("live entry was pruned")
	}
	if ok, _ := bl.Contains(ctx, "old-1"); ok {
		t.Error("expired entry survived the prune")
	}
}
