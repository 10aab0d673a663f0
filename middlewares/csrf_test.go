package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/dmitrymomot/campus/internal/router"
	"github.com/dmitrymomot/campus/middlewares"
	"github.com/dmitrymomot/campus/pkg/csrf"
	"github.com/dmitrymomot/campus/pkg/session"
)

func csrfRouter(t *testing.T) *router.Router {
	t.Helper()
	mgr := session.NewManager(session.NewMemoryStore())
	r := router.New(router.WithSessionManager(mgr))
	r.Use(middlewares.CSRF())
	r.GET("/form", func(c router.Context) error {
		return c.NoContent(http.StatusOK)
	})
	r.POST("/submit", func(c router.Context) error {
		return c.Success(http.StatusOK, "submitted", nil)
	})
	return r
}

// establishSession performs a GET and returns the session cookie plus the
// issued CSRF token.
func establishSession(t *testing.T, r *router.Router) (*http.Cookie, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/form", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /form status = %d, want 200", rec.Code)
	}
	tok := rec.Header().Get(csrf.HeaderName)
	if tok == "" {
		t.Fatal("no CSRF token issued")
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("no session cookie issued")
	}
	return cookies[0], tok
}

func TestCSRF_TokenSources(t *testing.T) {
	r := csrfRouter(t)
	cookie, tok := establishSession(t, r)

	t.Run("form field", func(t *testing.T) {
		form := url.Values{csrf.FieldName: {tok}}
		req := httptest.NewRequest(http.MethodPost, "/submit", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("query param", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/submit?"+csrf.FieldName+"="+tok, nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/submit", nil)
		req.Header.Set(csrf.HeaderName, tok)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})
}

func TestCSRF_MissingToken(t *testing.T) {
	r := csrfRouter(t)
	cookie, _ := establishSession(t, r)

	req := httptest.NewRequest(http.MethodPost, "/submit", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want an HTML error page", ct)
	}
}

func TestCSRF_XHRGetsJSONEnvelope(t *testing.T) {
	r := csrfRouter(t)
	cookie, _ := establishSession(t, r)

	req := httptest.NewRequest(http.MethodPost, "/submit", nil)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q, want JSON for XHR", ct)
	}
}

func TestCSRF_WrongToken(t *testing.T) {
	r := csrfRouter(t)
	cookie, _ := establishSession(t, r)

	req := httptest.NewRequest(http.MethodPost, "/submit", nil)
	req.Header.Set(csrf.HeaderName, "0000000000000000000000000000000000000000000000000000000000000000")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestCSRF_SafeVerbsPass(t *testing.T) {
	r := csrfRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/form", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("GET without token status = %d, want 200", rec.Code)
	}
}
