package handlers

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/campus/internal/repository"
	"github.com/dmitrymomot/campus/internal/router"
	"github.com/dmitrymomot/campus/middlewares"
	"github.com/dmitrymomot/campus/pkg/token"
)

type programStore interface {
	List(ctx context.Context) ([]repository.Program, error)
	Register(ctx context.Context, programID, userID int64) (*repository.ProgramRegistration, error)
}

// Programs lists study programs and registers users onto them.
type Programs struct {
	programs programStore
	tokens   *token.Service
}

func NewPrograms(programs programStore, tokens *token.Service) *Programs {
	return &Programs{programs: programs, tokens: tokens}
}

func (h *Programs) Routes(r *router.Router) {
	auth := middlewares.Auth(h.tokens)

	r.GET("/programs", h.List, "programs.list").Use(auth)
	r.POST("/programs/{id}/register", h.Register, "programs.register").Use(auth)
}

func (h *Programs) List(c router.Context) error {
	list, err := h.programs.List(c)
	if err != nil {
		return err
	}
	return c.Success(http.StatusOK, "Programs", list)
}

func (h *Programs) Register(c router.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	reg, err := h.programs.Register(c, id, middlewares.AuthUserID(c))
	if err != nil {
		return repoError(c, err, "Program not found")
	}
	return c.Success(http.StatusCreated, "Registered", reg)
}
