package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrymomot/campus/internal/repository"
	"github.com/dmitrymomot/campus/internal/router"
	"github.com/dmitrymomot/campus/middlewares"
	"github.com/dmitrymomot/campus/pkg/token"
)

type attendanceStore interface {
	CheckIn(ctx context.Context, userID int64) (*repository.AttendanceRecord, error)
	CheckOut(ctx context.Context, userID int64) (*repository.AttendanceRecord, error)
}

// Attendance handles daily check-in and check-out.
type Attendance struct {
	attendance attendanceStore
	tokens     *token.Service
}

func NewAttendance(attendance attendanceStore, tokens *token.Service) *Attendance {
	return &Attendance{attendance: attendance, tokens: tokens}
}

func (h *Attendance) Routes(r *router.Router) {
	auth := middlewares.Auth(h.tokens)

	r.POST("/attendance/checkin", h.CheckIn, "attendance.checkin").Use(auth)
	r.POST("/attendance/checkout", h.CheckOut, "attendance.checkout").Use(auth)
}

func (h *Attendance) CheckIn(c router.Context) error {
	rec, err := h.attendance.CheckIn(c, middlewares.AuthUserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyCheckedIn) {
			return c.Error(http.StatusConflict, "Already checked in")
		}
		return err
	}
	return c.Success(http.StatusCreated, "Checked in", rec)
}

func (h *Attendance) CheckOut(c router.Context) error {
	rec, err := h.attendance.CheckOut(c, middlewares.AuthUserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotCheckedIn) {
			return c.Error(http.StatusConflict, "Not checked in")
		}
		return err
	}
	return c.Success(http.StatusOK, "Checked out", rec)
}
