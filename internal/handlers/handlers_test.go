package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/campus/internal/repository"
	"github.com/dmitrymomot/campus/internal/router"
	"github.com/dmitrymomot/campus/pkg/logger"
	"github.com/dmitrymomot/campus/pkg/mailer"
	"github.com/dmitrymomot/campus/pkg/token"
)

const testPassword = "Sup3r$ecret1"

// envelope mirrors the JSON response shape with a raw data payload.
type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

type fakeUsers struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*repository.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[int64]*repository.User)}
}

func (f *fakeUsers) add(name, email, password, role string) *repository.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u := &repository.User{ID: f.nextID, Name: name, Email: email, PasswordHash: string(hash), Role: role}
	f.users[u.ID] = u
	return u
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (f *fakeUsers) List(_ context.Context, limit, offset int) ([]repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]repository.User, 0, len(f.users))
	for id := int64(1); id <= f.nextID; id++ {
		if u, ok := f.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUsers) Create(_ context.Context, name, email, passwordHash, role string) (*repository.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return nil, repository.ErrDuplicate
		}
	}
	f.nextID++
	u := &repository.User{ID: f.nextID, Name: name, Email: email, PasswordHash: passwordHash, Role: role}
	f.users[u.ID] = u
	cp := *u
	return &cp, nil
}

// exists satisfies validator.UniqueChecker against the fake user table.
func (f *fakeUsers) Exists(_ context.Context, table, column, value, exceptID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if table != "users" || column != "email" {
		return false, nil
	}
	for _, u := range f.users {
		if u.Email == value {
			return true, nil
		}
	}
	return false, nil
}

type fakeActivity struct {
	mu      sync.Mutex
	actions []string
}

func (f *fakeActivity) Log(_ context.Context, _ int64, action, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return nil
}

func (f *fakeActivity) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.actions...)
}

type fakeSender struct {
	mu   sync.Mutex
	sent []mailer.Email
}

func (f *fakeSender) Send(_ context.Context, email *mailer.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, *email)
	return nil
}

func newTokenService(t *testing.T) *token.Service {
	t.Helper()
	svc, err := token.NewService("test-secret-0123456789abcdef", token.NewMemoryBlacklist(),
		token.WithLogger(logger.NewDiscard()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func postForm(r *router.Router, target string, form url.Values, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func get(r *router.Router, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
	}
	return env
}
