package repository

import (
	"context"

	"github.com/dmitrymomot/campus/pkg/pool"
)

// Users reads and writes account rows.
type Users struct {
	base
}

// NewUsers creates the users repository over a named pool.
func NewUsers(p *pool.Manager, poolName string) *Users {
	return &Users{base: newBase(p, poolName)}
}

const userColumns = `id, name, email, password_hash, role, created_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

// Create inserts a user and returns it with the assigned id.
func (r *Users) Create(ctx context.Context, name, email, passwordHash, role string) (*User, error) {
	var u *User
	err := r.withConn(ctx, func(conn *pool.Conn) error {
		row := conn.QueryRow(ctx, `
			INSERT INTO users (name, email, password_hash, role)
			VALUES ($1, $2, $3, $4)
			RETURNING `+userColumns,
			name, email, passwordHash, role)
		var err error
		u, err = scanUser(row)
		return err
	})
	return u, mapError(err)
}

// GetByID returns one user or ErrNotFound.
func (r *Users) GetByID(ctx context.Context, id int64) (*User, error) {
	var u *User
	err := r.withConn(ctx, func(conn *pool.Conn) error {
		var err error
		u, err = scanUser(conn.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return err
	})
	return u, err
}

// GetByEmail returns one user or ErrNotFound.
func (r *Users) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u *User
	err := r.withConn(ctx, func(conn *pool.Conn) error {
		var err error
		u, err = scanUser(conn.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1`, email))
		return err
	})
	return u, err
}

// List returns users ordered by creation, newest first.
func (r *Users) List(ctx context.Context, limit, offset int) ([]User, error) {
	var users []User
	err := r.withConn(ctx, func(conn *pool.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
			limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var u User
			if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt); err != nil {
				return err
			}
			users = append(users, u)
		}
		return rows.Err()
	})
	return users, mapError(err)
}

// UpdatePassword replaces the stored hash.
func (r *Users) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return r.withConn(ctx, func(conn *pool.Conn) error {
		tag, err := conn.Exec(ctx,
			`UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}
