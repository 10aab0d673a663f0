package repository

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/campus/pkg/pool"
)

// Courses reads and writes courses and owns the cascade delete.
type Courses struct {
	base
}

// NewCourses creates the courses repository over a named pool.
func NewCourses(p *pool.Manager, poolName string) *Courses {
	return &Courses{base: newBase(p, poolName)}
}

const courseColumns = `id, title, description, teacher_id, created_at`

// Create inserts a course.
func (r *Courses) Create(ctx context.Context, title, description string, teacherID int64) (*Course, error) {
	var c Course
	err := r.withConn(ctx, func(conn *pool.Conn) error {
		return conn.QueryRow(ctx, `
			INSERT INTO courses (title, description, teacher_id)
			VALUES ($1, $2, $3)
			RETURNING `+courseColumns,
			title, description, teacherID,
		).Scan(&c.ID, &c.Title, &c.Description, &c.TeacherID, &c.CreatedAt)
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

// GetByID returns one course or ErrNotFound.
func (r *Courses) GetByID(ctx context.Context, id int64) (*Course, error) {
	var c Course
	err := r.withConn(ctx, func(conn *pool.Conn) error {
		return conn.QueryRow(ctx,
			`SELECT `+courseColumns+` FROM courses WHERE id = $1`, id,
		).Scan(&c.ID, &c.Title, &c.Description, &c.TeacherID, &c.CreatedAt)
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

// List returns all courses, newest first.
func (r *Courses) List(ctx context.Context, limit, offset int) ([]Course, error) {
	var courses []Course
	err := r.withConn(ctx, func(conn *pool.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+courseColumns+` FROM courses ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
			limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var c Course
			if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.TeacherID, &c.CreatedAt); err != nil {
				return err
			}
			courses = append(courses, c)
		}
		return rows.Err()
	})
	return courses, mapError(err)
}

// Update rewrites title and description.
func (r *Courses) Update(ctx context.Context, id int64, title, description string) (*Course, error) {
	var c Course
	err := r.withConn(ctx, func(conn *pool.Conn) error {
		return conn.QueryRow(ctx, `
			UPDATE courses SET title = $1, description = $2
			WHERE id = $3
			RETURNING `+courseColumns,
			title, description, id,
		).Scan(&c.ID, &c.Title, &c.Description, &c.TeacherID, &c.CreatedAt)
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

// Delete removes a course together with its lessons and enrollments in
// one transaction, so a failed delete leaves everything in place.
func (r *Courses) Delete(ctx context.Context, id int64) error {
	return r.withConn(ctx, func(conn *pool.Conn) error {
		tx, err := conn.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin course delete: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if _, err := tx.Exec(ctx, `DELETE FROM enrollments WHERE course_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM lessons WHERE course_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return tx.Commit(ctx)
	})
}
