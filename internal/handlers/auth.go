package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/campus/internal/repository"
	"github.com/dmitrymomot/campus/internal/router"
	"github.com/dmitrymomot/campus/pkg/csrf"
	"github.com/dmitrymomot/campus/pkg/mailer"
	"github.com/dmitrymomot/campus/pkg/session"
	"github.com/dmitrymomot/campus/pkg/token"
	"github.com/dmitrymomot/campus/pkg/validator"
)

// dummyHash keeps the compare cost flat when the account does not exist.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// authUserStore is the slice of the user repository the auth flow needs.
type authUserStore interface {
	GetByEmail(ctx context.Context, email string) (*repository.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// activityLogger records audit rows; failures are logged, never fatal.
type activityLogger interface {
	Log(ctx context.Context, userID int64, action, ip, userAgent string) error
}

// Auth handles login, logout, token refresh and the password-reset flow.
type Auth struct {
	users    authUserStore
	activity activityLogger
	tokens   *token.Service
	mail     *mailer.Mailer
	resetURL string
	resetTTL string
	logger   *slog.Logger
}

// NewAuth creates the auth handler. resetURL is the absolute URL of the
// password-reset page; the token is appended as a query parameter.
func NewAuth(users authUserStore, activity activityLogger, tokens *token.Service, mail *mailer.Mailer, resetURL, resetTTL string, logger *slog.Logger) *Auth {
	return &Auth{
		users:    users,
		activity: activity,
		tokens:   tokens,
		mail:     mail,
		resetURL: resetURL,
		resetTTL: resetTTL,
		logger:   logger,
	}
}

func (h *Auth) Routes(r *router.Router) {
	r.Group("/auth", func(g *router.Router) {
		g.POST("/login", h.Login, "auth.login")
		g.POST("/logout", h.Logout, "auth.logout")
		g.POST("/refresh", h.Refresh, "auth.refresh")
		g.POST("/forgot-password", h.ForgotPassword, "auth.forgot")
		g.POST("/reset-password", h.ResetPassword, "auth.reset")
	})
}

// Login verifies credentials and issues an access/refresh pair.
func (h *Auth) Login(c router.Context) error {
	input := c.FormValues()
	v := validator.New(input, validator.WithLogger(c.Logger()), validator.WithContext(c))
	if !v.Validate(map[string]string{
		"email":    "required|email",
		"password": "required",
	}) {
		return c.Error(http.StatusUnprocessableEntity, "Validation failed", router.WithFields(v.Errors()))
	}
	creds := v.Validated()

	u, err := h.users.GetByEmail(c, creds["email"])
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// burn a compare so missing accounts cost the same
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(creds["password"]))
			return c.Error(http.StatusUnauthorized, "Invalid credentials")
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(creds["password"])); err != nil {
		h.logger.Warn("login failed",
			slog.String("email", creds["email"]),
			slog.String("ip", c.ClientIP()),
		)
		return c.Error(http.StatusUnauthorized, "Invalid credentials")
	}

	pair, err := h.tokens.IssuePair(u.ID, u.Role)
	if err != nil {
		return err
	}

	if err := c.AuthenticateSession(u.ID); err != nil && !errors.Is(err, session.ErrNotConfigured) {
		h.logger.Error("session authenticate failed", slog.Any("error", err))
	}
	// privilege change: fresh session cookie, fresh CSRF token
	if sess, err := c.Session(); err == nil {
		csrf.Rotate(sess)
	}
	if err := h.activity.Log(c, u.ID, "login", c.ClientIP(), c.UserAgent()); err != nil {
		h.logger.Error("activity log failed", slog.Any("error", err))
	}

	return c.Success(http.StatusOK, "Logged in", map[string]any{
		"user":   u,
		"tokens": pair,
	})
}

// Logout revokes the presented access token and destroys the session.
func (h *Auth) Logout(c router.Context) error {
	raw := bearerToken(c)
	if raw == "" {
		return c.Error(http.StatusUnauthorized, invalidTokenMessage)
	}
	claims, err := h.tokens.Validate(c, raw)
	if err != nil {
		return c.Error(http.StatusUnauthorized, invalidTokenMessage)
	}
	if err := h.tokens.Revoke(c, raw, "logout", clientMeta(c)); err != nil {
		return err
	}

	if err := c.DestroySession(); err != nil && !errors.Is(err, session.ErrNotConfigured) {
		h.logger.Error("session destroy failed", slog.Any("error", err))
	}
	if err := h.activity.Log(c, claims.UserID(), "logout", c.ClientIP(), c.UserAgent()); err != nil {
		h.logger.Error("activity log failed", slog.Any("error", err))
	}

	return c.Success(http.StatusOK, "Logged out", nil)
}

// Refresh rotates a refresh token into a new pair. The presented token
// is blacklisted; reusing it fails.
func (h *Auth) Refresh(c router.Context) error {
	input := c.FormValues()
	v := validator.New(input, validator.WithLogger(c.Logger()))
	if !v.Validate(map[string]string{"refresh_token": "required"}) {
		return c.Error(http.StatusUnprocessableEntity, "Validation failed", router.WithFields(v.Errors()))
	}

	pair, err := h.tokens.Refresh(c, v.Validated()["refresh_token"])
	if err != nil {
		if errors.Is(err, token.ErrInvalidToken) {
			return c.Error(http.StatusUnauthorized, invalidTokenMessage)
		}
		return err
	}
	return c.Success(http.StatusOK, "Token refreshed", pair)
}

// ForgotPassword emails a reset link. The response never reveals
// whether the account exists.
func (h *Auth) ForgotPassword(c router.Context) error {
	const reply = "If the account exists, a reset link has been sent"

	input := c.FormValues()
	v := validator.New(input, validator.WithLogger(c.Logger()))
	if !v.Validate(map[string]string{"email": "required|email"}) {
		return c.Error(http.StatusUnprocessableEntity, "Validation failed", router.WithFields(v.Errors()))
	}

	u, err := h.users.GetByEmail(c, v.Validated()["email"])
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.Success(http.StatusOK, reply, nil)
		}
		return err
	}

	resetToken, err := h.tokens.IssuePasswordResetToken(u.ID, u.Email)
	if err != nil {
		return err
	}
	link := h.resetURL + "?token=" + url.QueryEscape(resetToken)
	if err := h.mail.SendPasswordReset(c, u.Email, link, h.resetTTL); err != nil {
		h.logger.Error("reset mail failed", slog.Any("error", err), slog.Int64("user_id", u.ID))
		return c.Error(http.StatusInternalServerError, "Could not send reset email")
	}

	if err := h.activity.Log(c, u.ID, "password_reset_requested", c.ClientIP(), c.UserAgent()); err != nil {
		h.logger.Error("activity log failed", slog.Any("error", err))
	}
	return c.Success(http.StatusOK, reply, nil)
}

// ResetPassword consumes a reset token, stores the new password hash
// and revokes every outstanding token for the user.
func (h *Auth) ResetPassword(c router.Context) error {
	input := c.FormValues()
	v := validator.New(input, validator.WithLogger(c.Logger()))
	if !v.Validate(map[string]string{
		"token":                 "required",
		"password":              "required|min:8|password|confirmed",
		"password_confirmation": "required",
	}) {
		return c.Error(http.StatusUnprocessableEntity, "Validation failed", router.WithFields(v.Errors()))
	}
	in := v.Validated()

	claims, err := h.tokens.ValidatePasswordReset(c, in["token"])
	if err != nil {
		return c.Error(http.StatusUnauthorized, invalidTokenMessage)
	}
	userID := claims.UserID()

	hash, err := bcrypt.GenerateFromPassword([]byte(in["password"]), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := h.users.UpdatePassword(c, userID, string(hash)); err != nil {
		return repoError(c, err, "User not found")
	}

	// single use: the token itself, then everything issued before now
	if err := h.tokens.Revoke(c, in["token"], "password_reset", clientMeta(c)); err != nil {
		h.logger.Error("reset token revoke failed", slog.Any("error", err))
	}
	if err := h.tokens.RevokeAllForUser(c, userID, "password_reset"); err != nil {
		return err
	}
	if sess, err := c.Session(); err == nil {
		csrf.Rotate(sess)
	}

	if err := h.activity.Log(c, userID, "password_reset", c.ClientIP(), c.UserAgent()); err != nil {
		h.logger.Error("activity log failed", slog.Any("error", err))
	}
	return c.Success(http.StatusOK, "Password updated", nil)
}
