package handlers

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/campus/internal/repository"
	"github.com/dmitrymomot/campus/internal/router"
	"github.com/dmitrymomot/campus/middlewares"
	"github.com/dmitrymomot/campus/pkg/token"
	"github.com/dmitrymomot/campus/pkg/validator"
)

type enrollmentStore interface {
	ListByUser(ctx context.Context, userID int64) ([]repository.Enrollment, error)
	Create(ctx context.Context, userID, courseID int64) (*repository.Enrollment, error)
	Delete(ctx context.Context, id, userID int64) error
}

type courseGetter interface {
	GetByID(ctx context.Context, id int64) (*repository.Course, error)
}

// Enrollments lets the authenticated user manage their own enrollments.
type Enrollments struct {
	enrollments enrollmentStore
	courses     courseGetter
	tokens      *token.Service
}

func NewEnrollments(enrollments enrollmentStore, courses courseGetter, tokens *token.Service) *Enrollments {
	return &Enrollments{enrollments: enrollments, courses: courses, tokens: tokens}
}

func (h *Enrollments) Routes(r *router.Router) {
	auth := middlewares.Auth(h.tokens)

	r.GET("/enrollments", h.List, "enrollments.list").Use(auth)
	r.POST("/enrollments", h.Create, "enrollments.create").Use(auth)
	r.DELETE("/enrollments/{id}", h.Delete, "enrollments.delete").Use(auth)
}

func (h *Enrollments) List(c router.Context) error {
	list, err := h.enrollments.ListByUser(c, middlewares.AuthUserID(c))
	if err != nil {
		return err
	}
	return c.Success(http.StatusOK, "Enrollments", list)
}

func (h *Enrollments) Create(c router.Context) error {
	input := c.FormValues()
	v := validator.New(input, validator.WithLogger(c.Logger()))
	if !v.Validate(map[string]string{"course_id": "required|integer"}) {
		return c.Error(http.StatusUnprocessableEntity, "Validation failed", router.WithFields(v.Errors()))
	}

	courseID, err := parsePositive(v.Validated()["course_id"])
	if err != nil {
		return c.Error(http.StatusBadRequest, "Invalid course_id")
	}
	if _, err := h.courses.GetByID(c, courseID); err != nil {
		return repoError(c, err, "Course not found")
	}

	enr, err := h.enrollments.Create(c, middlewares.AuthUserID(c), courseID)
	if err != nil {
		return repoError(c, err, "Course not found")
	}
	return c.Success(http.StatusCreated, "Enrolled", enr)
}

// Delete unenrolls; the enrollment must belong to the caller.
func (h *Enrollments) Delete(c router.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.enrollments.Delete(c, id, middlewares.AuthUserID(c)); err != nil {
		return repoError(c, err, "Enrollment not found")
	}
	return c.Success(http.StatusOK, "Unenrolled", nil)
}
