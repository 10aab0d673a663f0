// Package csrf implements per-session CSRF tokens for state-changing
// requests. Tokens live server-side in the session; verification uses
// constant-time comparison so token bytes never leak through timing.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"

	"github.com/dmitrymomot/campus/pkg/session"
)

// sessionKey is the session value key holding the current CSRF token.
const sessionKey = "_csrf_token"

// FieldName is the conventional form field carrying the token.
const FieldName = "_csrf_token"

// HeaderName is the conventional header carrying the token.
const HeaderName = "X-CSRF-TOKEN"

// Issue returns the session's CSRF token, generating one if absent.
// Idempotent: repeated calls on the same session return the same token
// until Rotate is called.
func Issue(s *session.Session) string {
	if tok, err := session.Value[string](s, sessionKey); err == nil && tok != "" {
		return tok
	}
	return Rotate(s)
}

// Rotate forces a new token into the session, invalidating the previous
// one. Call after sensitive operations such as password resets.
func Rotate(s *session.Session) string {
	tok := generate()
	s.SetValue(sessionKey, tok)
	return tok
}

// Verify reports whether submitted matches the session's current token
// byte for byte. An empty session token or empty submission never verifies.
func Verify(s *session.Session, submitted string) bool {
	current, err := session.Value[string](s, sessionKey)
	if err != nil || current == "" || submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(current), []byte(submitted)) == 1
}

func generate() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failure means the process can't do anything
		// security-relevant; give up loudly.
		panic("csrf: crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(buf)
}
