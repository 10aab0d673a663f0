package repository

import (
	"context"

	"github.com/dmitrymomot/campus/pkg/pool"
)

// Lessons reads and writes lesson rows.
type Lessons struct {
	base
}

// NewLessons creates the lessons repository over a named pool.
func NewLessons(p *pool.Manager, poolName string) *Lessons {
	return &Lessons{base: newBase(p, poolName)}
}

const lessonColumns = `id, course_id, title, content, position, created_at`

// ListByCourse returns a course's lessons in position order.
func (r *Lessons) ListByCourse(ctx context.Context, courseID int64) ([]Lesson, error) {
	var lessons []Lesson
	err := r.withConn(ctx, func(conn *pool.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+lessonColumns+` FROM lessons WHERE course_id = $1 ORDER BY position, id`,
			courseID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var l Lesson
			if err := rows.Scan(&l.ID, &l.CourseID, &l.Title, &l.Content, &l.Position, &l.CreatedAt); err != nil {
				return err
			}
			lessons = append(lessons, l)
		}
		return rows.Err()
	})
	return lessons, mapError(err)
}

// Create appends a lesson at the end of the course. Position is assigned
// inside the insert so concurrent creates don't race a separate count.
func (r *Lessons) Create(ctx context.Context, courseID int64, title, content string) (*Lesson, error) {
	var l Lesson
	err := r.withConn(ctx, func(conn *pool.Conn) error {
		return conn.QueryRow(ctx, `
			INSERT INTO lessons (course_id, title, content, position)
			VALUES ($1, $2, $3,
				(SELECT COALESCE(MAX(position), 0) + 1 FROM lessons WHERE course_id = $1))
			RETURNING `+lessonColumns,
			courseID, title, content,
		).Scan(&l.ID, &l.CourseID, &l.Title, &l.Content, &l.Position, &l.CreatedAt)
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &l, nil
}
