package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dmitrymomot/campus/internal/repository"
	"github.com/dmitrymomot/campus/internal/router"
	"github.com/dmitrymomot/campus/middlewares"
	"github.com/dmitrymomot/campus/pkg/token"
	"github.com/dmitrymomot/campus/pkg/validator"
)

type searcher interface {
	Query(ctx context.Context, q, typeFilter string, limit int) ([]repository.SearchResult, error)
}

// Search exposes the cross-entity title search.
type Search struct {
	search searcher
	tokens *token.Service
}

func NewSearch(search searcher, tokens *token.Service) *Search {
	return &Search{search: search, tokens: tokens}
}

func (h *Search) Routes(r *router.Router) {
	r.GET("/search", h.Query, "search").Use(middlewares.Auth(h.tokens))
}

func (h *Search) Query(c router.Context) error {
	q := validator.Sanitize(c.Query("q"))
	if len(q) < 2 {
		return c.Error(http.StatusUnprocessableEntity, "Validation failed", router.WithFields(map[string][]string{
			"q": {"The q field must be at least 2 characters."},
		}))
	}
	typeFilter := c.Query("type")
	limit, _ := strconv.Atoi(c.QueryDefault("limit", "20"))

	results, err := h.search.Query(c, q, typeFilter, limit)
	if err != nil {
		return err
	}
	if results == nil {
		results = []repository.SearchResult{}
	}
	return c.Success(http.StatusOK, "Search results", results)
}
