package token

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/campus/pkg/pool"
)

// PostgresBlacklist persists revocations in the token_blacklist and
// user_token_revocations tables, borrowing connections from a named
// pool per operation.
type PostgresBlacklist struct {
	pool     *pool.Manager
	poolName string
}

// NewPostgresBlacklist wires the blacklist to a named connection pool.
func NewPostgresBlacklist(p *pool.Manager, poolName string) *PostgresBlacklist {
	return &PostgresBlacklist{pool: p, poolName: poolName}
}

func (b *PostgresBlacklist) withConn(ctx context.Context, fn func(*pool.Conn) error) error {
	conn, err := b.pool.Acquire(ctx, b.poolName)
	if err != nil {
		return err
	}
	defer b.pool.Release(ctx, conn)
	return fn(conn)
}

func (b *PostgresBlacklist) Add(ctx context.Context, e Entry) (bool, error) {
	var added bool
	err := b.withConn(ctx, func(conn *pool.Conn) error {
		tag, err := conn.Exec(ctx, `
			INSERT INTO token_blacklist (jti, user_id, token_type, reason, ip, user_agent, issued_at, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (jti) DO NOTHING`,
			e.JTI, e.UserID, e.TokenType, e.Reason, e.IP, e.UserAgent, e.IssuedAt, e.ExpiresAt)
		if err != nil {
			return err
		}
		added = tag.RowsAffected() == 1
		return nil
	})
	return added, err
}

func (b *PostgresBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	var exists bool
	err := b.withConn(ctx, func(conn *pool.Conn) error {
		return conn.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM token_blacklist WHERE jti = $1)`, jti,
		).Scan(&exists)
	})
	return exists, err
}

func (b *PostgresBlacklist) RevokeUser(ctx context.Context, userID int64, revokedAt time.Time) error {
	return b.withConn(ctx, func(conn *pool.Conn) error {
		_, err := conn.Exec(ctx, `
			INSERT INTO user_token_revocations (user_id, revoked_at)
			VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE
			SET revoked_at = GREATEST(user_token_revocations.revoked_at, EXCLUDED.revoked_at)`,
			userID, revokedAt)
		return err
	})
}

func (b *PostgresBlacklist) IsUserRevoked(ctx context.Context, userID int64, issuedAt time.Time) (bool, error) {
	var revokedAt time.Time
	err := b.withConn(ctx, func(conn *pool.Conn) error {
		return conn.QueryRow(ctx,
			`SELECT revoked_at FROM user_token_revocations WHERE user_id = $1`, userID,
		).Scan(&revokedAt)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return issuedAt.Before(revokedAt), nil
}

func (b *PostgresBlacklist) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	var dropped int64
	err := b.withConn(ctx, func(conn *pool.Conn) error {
		tag, err := conn.Exec(ctx,
			`DELETE FROM token_blacklist WHERE expires_at < $1`, now)
		if err != nil {
			return err
		}
		dropped = tag.RowsAffected()
		return nil
	})
	return dropped, err
}
