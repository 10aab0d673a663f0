package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dmitrymomot/campus/internal/repository"
	"github.com/dmitrymomot/campus/internal/router"
	"github.com/dmitrymomot/campus/middlewares"
	"github.com/dmitrymomot/campus/pkg/sanitizer"
	"github.com/dmitrymomot/campus/pkg/token"
	"github.com/dmitrymomot/campus/pkg/validator"
)

type courseStore interface {
	List(ctx context.Context, limit, offset int) ([]repository.Course, error)
	Create(ctx context.Context, title, description string, teacherID int64) (*repository.Course, error)
	GetByID(ctx context.Context, id int64) (*repository.Course, error)
	Update(ctx context.Context, id int64, title, description string) (*repository.Course, error)
	Delete(ctx context.Context, id int64) error
}

type lessonStore interface {
	ListByCourse(ctx context.Context, courseID int64) ([]repository.Lesson, error)
	Create(ctx context.Context, courseID int64, title, content string) (*repository.Lesson, error)
}

// Courses handles course CRUD and per-course lessons.
type Courses struct {
	courses courseStore
	lessons lessonStore
	tokens  *token.Service
}

func NewCourses(courses courseStore, lessons lessonStore, tokens *token.Service) *Courses {
	return &Courses{courses: courses, lessons: lessons, tokens: tokens}
}

func (h *Courses) Routes(r *router.Router) {
	auth := middlewares.Auth(h.tokens)
	staff := middlewares.RequireRole(repository.RoleTeacher, repository.RoleAdmin)

	r.GET("/courses", h.List, "courses.list").Use(auth)
	r.POST("/courses", h.Create, "courses.create").Use(auth, staff)
	r.GET("/courses/{id}", h.Show, "courses.show").Use(auth)
	r.PUT("/courses/{id}", h.Update, "courses.update").Use(auth, staff)
	r.DELETE("/courses/{id}", h.Delete, "courses.delete").Use(auth, staff)

	r.GET("/courses/{id}/lessons", h.ListLessons, "courses.lessons").Use(auth)
	r.POST("/courses/{id}/lessons", h.CreateLesson, "courses.lessons.create").Use(auth, staff)
}

func (h *Courses) List(c router.Context) error {
	limit, _ := strconv.Atoi(c.QueryDefault("limit", "50"))
	offset, _ := strconv.Atoi(c.QueryDefault("offset", "0"))

	list, err := h.courses.List(c, limit, offset)
	if err != nil {
		return err
	}
	return c.Success(http.StatusOK, "Courses", list)
}

func (h *Courses) Create(c router.Context) error {
	input := c.FormValues()
	v := validator.New(input, validator.WithLogger(c.Logger()))
	if !v.Validate(map[string]string{
		"title":       "required|min:3|max:200|no_script",
		"description": "max:5000",
	}) {
		return c.Error(http.StatusUnprocessableEntity, "Validation failed", router.WithFields(v.Errors()))
	}
	in := v.Validated()

	course, err := h.courses.Create(c,
		sanitizer.StripHTML(in["title"]),
		sanitizer.SanitizeHTML(in["description"]),
		middlewares.AuthUserID(c),
	)
	if err != nil {
		return repoError(c, err, "Course not found")
	}
	return c.Success(http.StatusCreated, "Course created", course)
}

func (h *Courses) Show(c router.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	course, err := h.courses.GetByID(c, id)
	if err != nil {
		return repoError(c, err, "Course not found")
	}
	return c.Success(http.StatusOK, "Course", course)
}

func (h *Courses) Update(c router.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	input := c.FormValues()
	v := validator.New(input, validator.WithLogger(c.Logger()))
	if !v.Validate(map[string]string{
		"title":       "required|min:3|max:200|no_script",
		"description": "max:5000",
	}) {
		return c.Error(http.StatusUnprocessableEntity, "Validation failed", router.WithFields(v.Errors()))
	}
	in := v.Validated()

	course, err := h.courses.Update(c, id,
		sanitizer.StripHTML(in["title"]),
		sanitizer.SanitizeHTML(in["description"]),
	)
	if err != nil {
		return repoError(c, err, "Course not found")
	}
	return c.Success(http.StatusOK, "Course updated", course)
}

// Delete removes the course together with its lessons and enrollments.
func (h *Courses) Delete(c router.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.courses.Delete(c, id); err != nil {
		return repoError(c, err, "Course not found")
	}
	return c.Success(http.StatusOK, "Course deleted", nil)
}

func (h *Courses) ListLessons(c router.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.courses.GetByID(c, id); err != nil {
		return repoError(c, err, "Course not found")
	}
	list, err := h.lessons.ListByCourse(c, id)
	if err != nil {
		return err
	}
	return c.Success(http.StatusOK, "Lessons", list)
}

func (h *Courses) CreateLesson(c router.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.courses.GetByID(c, id); err != nil {
		return repoError(c, err, "Course not found")
	}

	input := c.FormValues()
	v := validator.New(input, validator.WithLogger(c.Logger()))
	if !v.Validate(map[string]string{
		"title":   "required|min:3|max:200|no_script",
		"content": "max:50000",
	}) {
		return c.Error(http.StatusUnprocessableEntity, "Validation failed", router.WithFields(v.Errors()))
	}
	in := v.Validated()

	lesson, err := h.lessons.Create(c, id,
		sanitizer.StripHTML(in["title"]),
		sanitizer.SanitizeHTML(in["content"]),
	)
	if err != nil {
		return repoError(c, err, "Course not found")
	}
	return c.Success(http.StatusCreated, "Lesson created", lesson)
}
