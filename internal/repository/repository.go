// Package repository holds the data access layer. Every repository
// borrows a connection from a named pool per operation and returns it
// when done; none of them hold connections across calls.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/campus/pkg/pool"
)

// DefaultPool is the pool name the repositories use unless configured
// otherwise.
const DefaultPool = "default"

// base carries the shared pool plumbing for all repositories.
type base struct {
	pool     *pool.Manager
	poolName string
}

func newBase(p *pool.Manager, poolName string) base {
	if poolName == "" {
		poolName = DefaultPool
	}
	return base{pool: p, poolName: poolName}
}

func (b base) withConn(ctx context.Context, fn func(*pool.Conn) error) error {
	conn, err := b.pool.Acquire(ctx, b.poolName)
	if err != nil {
		return err
	}
	defer b.pool.Release(ctx, conn)
	return fn(conn)
}

// mapError converts driver-level errors to repository sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}
