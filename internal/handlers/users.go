package handlers

import (
	"context"
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/campus/internal/repository"
	"github.com/dmitrymomot/campus/internal/router"
	"github.com/dmitrymomot/campus/middlewares"
	"github.com/dmitrymomot/campus/pkg/sanitizer"
	"github.com/dmitrymomot/campus/pkg/token"
	"github.com/dmitrymomot/campus/pkg/validator"
)

type adminUserStore interface {
	List(ctx context.Context, limit, offset int) ([]repository.User, error)
	Create(ctx context.Context, name, email, passwordHash, role string) (*repository.User, error)
}

// Users is the admin-only account management surface.
type Users struct {
	users  adminUserStore
	unique validator.UniqueChecker
	tokens *token.Service
}

func NewUsers(users adminUserStore, unique validator.UniqueChecker, tokens *token.Service) *Users {
	return &Users{users: users, unique: unique, tokens: tokens}
}

func (h *Users) Routes(r *router.Router) {
	auth := middlewares.Auth(h.tokens)
	admin := middlewares.RequireRole(repository.RoleAdmin)

	r.GET("/users", h.List, "users.list").Use(auth, admin)
	r.POST("/users", h.Create, "users.create").Use(auth, admin)
}

func (h *Users) List(c router.Context) error {
	limit, _ := strconv.Atoi(c.QueryDefault("limit", "50"))
	offset, _ := strconv.Atoi(c.QueryDefault("offset", "0"))

	list, err := h.users.List(c, limit, offset)
	if err != nil {
		return err
	}
	return c.Success(http.StatusOK, "Users", list)
}

func (h *Users) Create(c router.Context) error {
	input := c.FormValues()
	v := validator.New(input,
		validator.WithLogger(c.Logger()),
		validator.WithUniqueChecker(h.unique),
		validator.WithContext(c),
	)
	if !v.Validate(map[string]string{
		"name":     "required|min:2|max:120|no_script",
		"email":    "required|email|max:255|unique:users",
		"password": "required|min:8|password",
		"role":     "required|in:admin,teacher,student",
	}) {
		return c.Error(http.StatusUnprocessableEntity, "Validation failed", router.WithFields(v.Errors()))
	}
	in := v.Validated()

	hash, err := bcrypt.GenerateFromPassword([]byte(in["password"]), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u, err := h.users.Create(c, sanitizer.StripHTML(in["name"]), in["email"], string(hash), in["role"])
	if err != nil {
		return repoError(c, err, "User not found")
	}
	return c.Success(http.StatusCreated, "User created", u)
}
