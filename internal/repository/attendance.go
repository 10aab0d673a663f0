package repository

import (
	"context"
	"errors"

	"github.com/dmitrymomot/campus/pkg/pool"
)

// ErrAlreadyCheckedIn is returned when a user checks in with an open
// attendance record; ErrNotCheckedIn when checking out without one.
var (
	ErrAlreadyCheckedIn = errors.New("repository: open attendance record exists")
	ErrNotCheckedIn     = errors.New("repository: no open attendance record")
)

// Attendance records sign-in and sign-out times.
type Attendance struct {
	base
}

// NewAttendance creates the attendance repository over a named pool.
func NewAttendance(p *pool.Manager, poolName string) *Attendance {
	return &Attendance{base: newBase(p, poolName)}
}

// CheckIn opens a record. A second check-in without an intervening
// check-out fails with ErrAlreadyCheckedIn.
func (r *Attendance) CheckIn(ctx context.Context, userID int64) (*AttendanceRecord, error) {
	var rec AttendanceRecord
	err := r.withConn(ctx, func(conn *pool.Conn) error {
		// The partial unique index on (user_id) WHERE check_out IS NULL
		// makes this race-free across instances.
		return conn.QueryRow(ctx, `
			INSERT INTO attendance (user_id)
			VALUES ($1)
			RETURNING id, user_id, check_in`,
			userID,
		).Scan(&rec.ID, &rec.UserID, &rec.CheckIn)
	})
	if err != nil {
		if errors.Is(mapError(err), ErrDuplicate) {
			return nil, ErrAlreadyCheckedIn
		}
		return nil, mapError(err)
	}
	return &rec, nil
}

// CheckOut closes the user's open record.
func (r *Attendance) CheckOut(ctx context.Context, userID int64) (*AttendanceRecord, error) {
	var rec AttendanceRecord
	err := r.withConn(ctx, func(conn *pool.Conn) error {
		return conn.QueryRow(ctx, `
			UPDATE attendance SET check_out = now()
			WHERE user_id = $1 AND check_out IS NULL
			RETURNING id, user_id, check_in, check_out`,
			userID,
		).Scan(&rec.ID, &rec.UserID, &rec.CheckIn, &rec.CheckOut)
	})
	if err != nil {
		if errors.Is(mapError(err), ErrNotFound) {
			return nil, ErrNotCheckedIn
		}
		return nil, mapError(err)
	}
	return &rec, nil
}
