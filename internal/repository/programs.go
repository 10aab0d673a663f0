package repository

import (
	"context"

	"github.com/dmitrymomot/campus/pkg/pool"
)

// Programs reads program offerings and their registrations.
type Programs struct {
	base
}

// NewPrograms creates the programs repository over a named pool.
func NewPrograms(p *pool.Manager, poolName string) *Programs {
	return &Programs{base: newBase(p, poolName)}
}

// List returns programs ordered by start date.
func (r *Programs) List(ctx context.Context) ([]Program, error) {
	var out []Program
	err := r.withConn(ctx, func(conn *pool.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT id, title, description, starts_at FROM programs ORDER BY starts_at`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var p Program
			if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.StartsAt); err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	return out, mapError(err)
}

// Register signs a user up for a program. Double registration yields
// ErrDuplicate; an unknown program yields ErrNotFound via the FK.
func (r *Programs) Register(ctx context.Context, programID, userID int64) (*ProgramRegistration, error) {
	var reg ProgramRegistration
	err := r.withConn(ctx, func(conn *pool.Conn) error {
		return conn.QueryRow(ctx, `
			INSERT INTO program_registrations (program_id, user_id)
			VALUES ($1, $2)
			RETURNING id, program_id, user_id, registered_at`,
			programID, userID,
		).Scan(&reg.ID, &reg.ProgramID, &reg.UserID, &reg.RegisteredAt)
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &reg, nil
}
