package session

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Default session configuration.
const (
	defaultCookieName = "campus_sid"
	defaultTTL        = 30 * 24 * time.Hour
)

// Manager handles session lifecycle and cookie transport.
type Manager struct {
	store      Store
	cookieName string
	ttl        time.Duration
	secure     bool
}

// Option configures the Manager.
type Option func(*Manager)

// WithCookieName sets the session cookie name.
func WithCookieName(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.cookieName = name
		}
	}
}

// WithTTL sets the session lifetime.
func WithTTL(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.ttl = d
		}
	}
}

// WithSecureCookies sets the Secure flag on session cookies.
func WithSecureCookies(secure bool) Option {
	return func(m *Manager) {
		m.secure = secure
	}
}

// NewManager creates a session Manager backed by the given store.
func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		cookieName: defaultCookieName,
		ttl:        defaultTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the underlying store.
func (m *Manager) Store() Store { return m.store }

// Load returns the session referenced by the request cookie.
// Returns ErrNotFound when there is no cookie or no matching session.
func (m *Manager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	c, err := r.Cookie(m.cookieName)
	if err != nil || c.Value == "" {
		return nil, ErrNotFound
	}
	return m.store.Get(ctx, c.Value)
}

// LoadOrCreate returns the request's session, creating and persisting a
// fresh anonymous one when none exists. The session cookie is (re)written
// only for new sessions.
func (m *Manager) LoadOrCreate(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Session, error) {
	if s, err := m.Load(ctx, r); err == nil {
		return s, nil
	}

	s := New(uuid.NewString(), uuid.NewString(), time.Now().Add(m.ttl))
	s.IP = remoteIP(r)
	s.UserAgent = r.UserAgent()
	if err := m.store.Create(ctx, s); err != nil {
		return nil, err
	}
	s.ClearNew()
	s.ClearDirty()
	m.writeCookie(w, s.Token, int(m.ttl.Seconds()))
	return s, nil
}

// Save persists pending session changes.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	if s == nil || !s.IsDirty() {
		return nil
	}
	if err := m.store.Update(ctx, s); err != nil {
		return err
	}
	s.ClearDirty()
	return nil
}

// Authenticate associates a user with the session and rotates its cookie
// token to prevent session fixation.
func (m *Manager) Authenticate(ctx context.Context, w http.ResponseWriter, s *Session, userID int64) error {
	s.UserID = &userID
	s.Token = uuid.NewString()
	s.MarkDirty()
	if err := m.store.Update(ctx, s); err != nil {
		return err
	}
	s.ClearDirty()
	m.writeCookie(w, s.Token, int(m.ttl.Seconds()))
	return nil
}

// Destroy removes the session and clears its cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, s *Session) error {
	if s != nil {
		if err := m.store.Delete(ctx, s.ID); err != nil {
			return err
		}
	}
	m.writeCookie(w, "", -1)
	return nil
}

func (m *Manager) writeCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func remoteIP(r *http.Request) string {
	// Best effort only; audit logging uses pkg/clientip for the full
	// proxy-header resolution.
	return r.RemoteAddr
}
