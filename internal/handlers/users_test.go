package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/dmitrymomot/campus/internal/repository"
	"github.com/dmitrymomot/campus/internal/router"
	"github.com/dmitrymomot/campus/pkg/logger"
)

func newUsersFixture(t *testing.T) (*router.Router, *fakeUsers, func(role string) map[string]string) {
	t.Helper()
	users := newFakeUsers()
	tokens := newTokenService(t)

	r := router.New(router.WithLogger(logger.NewDiscard()))
	NewUsers(users, users, tokens).Routes(r)

	asRole := func(role string) map[string]string {
		tok, err := tokens.IssueAccessToken(99, role)
		if err != nil {
			t.Fatalf("IssueAccessToken: %v", err)
		}
		return bearer(tok)
	}
	return r, users, asRole
}

func TestUsers_CreateValidationScenario(t *testing.T) {
	r, users, asRole := newUsersFixture(t)
	users.add("Existing", "taken@campus.test", testPassword, repository.RoleStudent)
	admin := asRole(repository.RoleAdmin)

	// invalid payload: bad email, weak password, unknown role
	rec := postForm(r, "/users", url.Values{
		"name":     {"B"},
		"email":    {"not-an-email"},
		"password": {"short"},
		"role":     {"superuser"},
	}, admin)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 (body %s)", rec.Code, rec.Body.String())
	}
	env := decode(t, rec)
	for _, field := range []string{"name", "email", "password", "role"} {
		if len(env.Errors[field]) == 0 {
			t.Errorf("errors missing %q entry: %v", field, env.Errors)
		}
	}

	// duplicate email is caught by the unique rule
	rec = postForm(r, "/users", url.Values{
		"name":     {"Bob"},
		"email":    {"taken@campus.test"},
		"password": {testPassword},
		"role":     {"student"},
	}, admin)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("duplicate status = %d, want 422", rec.Code)
	}
	if env := decode(t, rec); len(env.Errors["email"]) == 0 {
		t.Errorf("errors = %v, want email entry", env.Errors)
	}

	// corrected payload succeeds
	rec = postForm(r, "/users", url.Values{
		"name":     {"Bob"},
		"email":    {"bob@campus.test"},
		"password": {testPassword},
		"role":     {"student"},
	}, admin)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body.String())
	}
	var created repository.User
	if err := json.Unmarshal(decode(t, rec).Data, &created); err != nil {
		t.Fatalf("decode created user: %v", err)
	}
	if created.Email != "bob@campus.test" || created.Role != repository.RoleStudent {
		t.Errorf("created = %+v, want bob@campus.test student", created)
	}
	if created.ID == 0 {
		t.Error("created user has zero id")
	}
}

func TestUsers_RoleGate(t *testing.T) {
	r, _, asRole := newUsersFixture(t)

	if rec := get(r, "/users", asRole(repository.RoleStudent)); rec.Code != http.StatusForbidden {
		t.Errorf("student status = %d, want 403", rec.Code)
	}
	if rec := get(r, "/users", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", rec.Code)
	}
	if rec := get(r, "/users", asRole(repository.RoleAdmin)); rec.Code != http.StatusOK {
		t.Errorf("admin status = %d, want 200", rec.Code)
	}
}
