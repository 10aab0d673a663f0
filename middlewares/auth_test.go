package middlewares_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrymomot/campus/internal/router"
	"github.com/dmitrymomot/campus/middlewares"
	"github.com/dmitrymomot/campus/pkg/logger"
	"github.com/dmitrymomot/campus/pkg/token"
)

func newTokenService(t *testing.T) *token.Service {
	t.Helper()
	svc, err := token.NewService("auth-mw-test-secret-0123456789abcdef",
		token.NewMemoryBlacklist(), token.WithLogger(logger.NewDiscard()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func protectedRouter(t *testing.T, svc *token.Service, mw ...router.Middleware) *router.Router {
	t.Helper()
	r := router.New()
	r.GET("/me", func(c router.Context) error {
		claims := middlewares.GetClaims(c)
		return c.Success(http.StatusOK, "ok", map[string]any{
			"user_id": claims.UserID(),
			"role":    claims.Role,
		})
	}).Use(append([]router.Middleware{middlewares.Auth(svc)}, mw...)...)
	return r
}

func get(r *router.Router, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuth_ValidToken(t *testing.T) {
	svc := newTokenService(t)
	r := protectedRouter(t, svc)

	tok, err := svc.IssueAccessToken(42, "teacher")
	if err != nil {
		t.Fatalf("IssueAccessToken: %v", err)
	}

	rec := get(r, "/me", "Bearer "+tok)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
}

func TestAuth_UniformFailures(t *testing.T) {
	svc := newTokenService(t)
	r := protectedRouter(t, svc)

	refresh, _ := svc.IssueRefreshToken(42, "teacher")

	cases := map[string]string{
		"missing header":  "",
		"wrong scheme":    "Basic dXNlcjpwYXNz",
		"garbage token":   "Bearer not.a.jwt",
		"refresh as auth": "Bearer " + refresh,
	}

	var messages []string
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			rec := get(r, "/me", header)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			var env router.Envelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("decode: %v", err)
			}
			messages = append(messages, env.Message)
		})
	}

	// Every failure mode must produce the identical message.
	for _, m := range messages {
		if m != messages[0] {
			t.Errorf("auth failure messages differ: %v", messages)
			break
		}
	}
}

func TestRequireRole(t *testing.T) {
	svc := newTokenService(t)
	r := protectedRouter(t, svc, middlewares.RequireRole("admin"))

	adminTok, _ := svc.IssueAccessToken(1, "admin")
	studentTok, _ := svc.IssueAccessToken(2, "student")

	if rec := get(r, "/me", "Bearer "+adminTok); rec.Code != http.StatusOK {
		t.Errorf("admin status = %d, want 200", rec.Code)
	}
	if rec := get(r, "/me", "Bearer "+studentTok); rec.Code != http.StatusForbidden {
		t.Errorf("student status = %d, want 403", rec.Code)
	}
}

func TestAuth_RevokedToken(t *testing.T) {
	svc := newTokenService(t)
	r := protectedRouter(t, svc)

	tok, _ := svc.IssueAccessToken(42, "teacher")
	if err := svc.Revoke(t.Context(), tok, "logout", token.ClientMeta{}); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	if rec := get(r, "/me", "Bearer "+tok); rec.Code != http.StatusUnauthorized {
		t.Errorf("revoked token status = %d, want 401", rec.Code)
	}
}
