package token

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token lifetimes.
const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 24 * time.Hour
	DefaultResetTTL   = 30 * time.Minute
)

// Service mints and validates HS256 JWTs and tracks revocations through
// a Blacklist store.
type Service struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	resetTTL   time.Duration
	blacklist  Blacklist
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithIssuer sets the iss claim on minted tokens.
func WithIssuer(iss string) Option {
	return func(s *Service) { s.issuer = iss }
}

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(d time.Duration) Option {
	return func(s *Service) { s.accessTTL = d }
}

// WithRefreshTTL overrides the refresh token lifetime.
func WithRefreshTTL(d time.Duration) Option {
	return func(s *Service) { s.refreshTTL = d }
}

// WithResetTTL overrides the password reset token lifetime.
func WithResetTTL(d time.Duration) Option {
	return func(s *Service) { s.resetTTL = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a token service. The secret must be non-empty and
// the blacklist non-nil.
func NewService(secret string, blacklist Blacklist, opts ...Option) (*Service, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if blacklist == nil {
		return nil, errors.New("blacklist store is required")
	}

	s := &Service{
		secret:     []byte(secret),
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		resetTTL:   DefaultResetTTL,
		blacklist:  blacklist,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IssueAccessToken mints a short-lived access token for the user.
func (s *Service) IssueAccessToken(userID int64, role string) (string, error) {
	return s.sign(Claims{
		Role:      role,
		TokenType: TypeAccess,
	}, userID, s.accessTTL)
}

// IssueRefreshToken mints a refresh token for the user.
func (s *Service) IssueRefreshToken(userID int64, role string) (string, error) {
	return s.sign(Claims{
		Role:      role,
		TokenType: TypeRefresh,
	}, userID, s.refreshTTL)
}

// IssuePasswordResetToken mints a single-purpose reset token carrying
// the account email.
func (s *Service) IssuePasswordResetToken(userID int64, email string) (string, error) {
	return s.sign(Claims{
		Email:     email,
		TokenType: TypePasswordReset,
	}, userID, s.resetTTL)
}

// IssuePair mints a matched access and refresh token pair.
func (s *Service) IssuePair(userID int64, role string) (*Pair, error) {
	access, err := s.IssueAccessToken(userID, role)
	if err != nil {
		return nil, err
	}
	refresh, err := s.IssueRefreshToken(userID, role)
	if err != nil {
		return nil, err
	}
	return &Pair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    s.now().Add(s.accessTTL),
	}, nil
}

func (s *Service) sign(claims Claims, userID int64, ttl time.Duration) (string, error) {
	now := s.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Validate checks an access token: signature, expiry, type, blacklist
// and user revocation watermark. Every failure is ErrInvalidToken.
func (s *Service) Validate(ctx context.Context, tokenStr string) (*Claims, error) {
	return s.validate(ctx, tokenStr, TypeAccess)
}

// ValidatePasswordReset checks a password reset token.
func (s *Service) ValidatePasswordReset(ctx context.Context, tokenStr string) (*Claims, error) {
	return s.validate(ctx, tokenStr, TypePasswordReset)
}

func (s *Service) validate(ctx context.Context, tokenStr, wantType string) (*Claims, error) {
	claims, err := s.parse(tokenStr)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != wantType {
		return nil, ErrInvalidToken
	}

	revoked, err := s.blacklist.Contains(ctx, claims.ID)
	if err != nil || revoked {
		return nil, ErrInvalidToken
	}

	userRevoked, err := s.blacklist.IsUserRevoked(ctx, claims.UserID(), claims.IssuedAt.Time)
	if err != nil || userRevoked {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Refresh rotates a refresh token: the presented token's jti is
// blacklisted atomically, then a fresh pair is minted. Presenting the
// same refresh token twice fails the second time, so a stolen-and-reused
// token invalidates itself.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Pair, error) {
	claims, err := s.parse(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != TypeRefresh {
		return nil, ErrInvalidToken
	}

	userRevoked, err := s.blacklist.IsUserRevoked(ctx, claims.UserID(), claims.IssuedAt.Time)
	if err != nil || userRevoked {
		return nil, ErrInvalidToken
	}

	added, err := s.blacklist.Add(ctx, Entry{
		JTI:       claims.ID,
		UserID:    claims.UserID(),
		TokenType: TypeRefresh,
		Reason:    "rotated",
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !added {
		s.logger.Warn("refresh token reuse detected",
			slog.Int64("user_id", claims.UserID()),
			slog.String("jti", claims.ID))
		return nil, ErrInvalidToken
	}

	return s.IssuePair(claims.UserID(), claims.Role)
}

// Revoke blacklists a token regardless of type. Used on logout and
// after a reset token is consumed.
func (s *Service) Revoke(ctx context.Context, tokenStr, reason string, meta ClientMeta) error {
	claims, err := s.parse(tokenStr)
	if err != nil {
		return ErrInvalidToken
	}

	if _, err := s.blacklist.Add(ctx, Entry{
		JTI:       claims.ID,
		UserID:    claims.UserID(),
		TokenType: claims.TokenType,
		Reason:    reason,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}

	s.logger.Info("token revoked",
		slog.Int64("user_id", claims.UserID()),
		slog.String("reason", reason),
		slog.String("ip", meta.IP))
	return nil
}

// RevokeAllForUser invalidates every token the user currently holds.
// Called after a password reset.
func (s *Service) RevokeAllForUser(ctx context.Context, userID int64, reason string) error {
	if err := s.blacklist.RevokeUser(ctx, userID, s.now()); err != nil {
		return errors.Join(ErrStoreFailure, err)
	}
	s.logger.Info("all user tokens revoked",
		slog.Int64("user_id", userID),
		slog.String("reason", reason))
	return nil
}

// parse verifies signature and standard time claims. The signing method
// is pinned to HS256.
func (s *Service) parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
