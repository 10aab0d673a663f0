package repository

import (
	"context"

	"github.com/dmitrymomot/campus/pkg/pool"
)

// Enrollments links students to courses.
type Enrollments struct {
	base
}

// NewEnrollments creates the enrollments repository over a named pool.
func NewEnrollments(p *pool.Manager, poolName string) *Enrollments {
	return &Enrollments{base: newBase(p, poolName)}
}

// ListByUser returns the user's enrollments, newest first.
func (r *Enrollments) ListByUser(ctx context.Context, userID int64) ([]Enrollment, error) {
	var out []Enrollment
	err := r.withConn(ctx, func(conn *pool.Conn) error {
		rows, err := conn.Query(ctx, `
			SELECT id, user_id, course_id, enrolled_at
			FROM enrollments WHERE user_id = $1 ORDER BY enrolled_at DESC`,
			userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var e Enrollment
			if err := rows.Scan(&e.ID, &e.UserID, &e.CourseID, &e.EnrolledAt); err != nil {
				return err
			}
			out = append(out, e)
		}
		return rows.Err()
	})
	return out, mapError(err)
}

// Create enrolls a student. Enrolling twice in the same course yields
// ErrDuplicate through the unique constraint.
func (r *Enrollments) Create(ctx context.Context, userID, courseID int64) (*Enrollment, error) {
	var e Enrollment
	err := r.withConn(ctx, func(conn *pool.Conn) error {
		return conn.QueryRow(ctx, `
			INSERT INTO enrollments (user_id, course_id)
			VALUES ($1, $2)
			RETURNING id, user_id, course_id, enrolled_at`,
			userID, courseID,
		).Scan(&e.ID, &e.UserID, &e.CourseID, &e.EnrolledAt)
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &e, nil
}

// Delete drops an enrollment owned by the given user.
func (r *Enrollments) Delete(ctx context.Context, id, userID int64) error {
	return r.withConn(ctx, func(conn *pool.Conn) error {
		tag, err := conn.Exec(ctx,
			`DELETE FROM enrollments WHERE id = $1 AND user_id = $2`, id, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}
