package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrymomot/campus/internal/repository"
	"github.com/dmitrymomot/campus/internal/router"
	"github.com/dmitrymomot/campus/pkg/token"
)

// uniform message for every token failure; never hints at the cause.
const invalidTokenMessage = "Invalid or expired token"

// parsePositive parses s as a positive integer id.
func parsePositive(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, errors.New("non-positive id")
	}
	return id, nil
}

// pathID parses the named route parameter as a positive integer id.
func pathID(c router.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, c.Error(http.StatusBadRequest, "Invalid "+name)
	}
	return id, nil
}

// bearerToken extracts the raw token from the Authorization header.
func bearerToken(c router.Context) string {
	scheme, tok, ok := strings.Cut(c.Header("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}

// clientMeta captures the request origin for audit entries.
func clientMeta(c router.Context) token.ClientMeta {
	return token.ClientMeta{IP: c.ClientIP(), UserAgent: c.UserAgent()}
}

// repoError translates repository sentinels into HTTP errors; anything
// unrecognized bubbles up as a 500 via the router's error handler.
func repoError(c router.Context, err error, notFoundMsg string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.Error(http.StatusNotFound, notFoundMsg)
	case errors.Is(err, repository.ErrDuplicate):
		return c.Error(http.StatusConflict, "Already exists")
	default:
		return err
	}
}
