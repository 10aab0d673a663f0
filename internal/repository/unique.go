package repository

import (
	"context"
	"regexp"

	"github.com/dmitrymomot/campus/pkg/pool"
)

// identifierRe is the allowlist for table and column names arriving from
// validation rule strings. Anything else is rejected before it gets near
// the SQL text.
var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// UniqueChecker answers the validator's unique: rule against the
// database. It satisfies validator.UniqueChecker.
type UniqueChecker struct {
	base
}

// NewUniqueChecker creates a checker over a named pool.
func NewUniqueChecker(p *pool.Manager, poolName string) *UniqueChecker {
	return &UniqueChecker{base: newBase(p, poolName)}
}

// Exists reports whether value is already present in table.column,
// optionally excluding the row with the given id.
func (r *UniqueChecker) Exists(ctx context.Context, table, column, value, exceptID string) (bool, error) {
	if !identifierRe.MatchString(table) || !identifierRe.MatchString(column) {
		return false, ErrInvalidIdentifier
	}

	// Identifiers pass the allowlist above; the value and id stay
	// parameterized.
	query := `SELECT EXISTS (SELECT 1 FROM ` + table + ` WHERE ` + column + ` = $1`
	args := []any{value}
	if exceptID != "" {
		query += ` AND id <> $2`
		args = append(args, exceptID)
	}
	query += `)`

	var exists bool
	err := r.withConn(ctx, func(conn *pool.Conn) error {
		return conn.QueryRow(ctx, query, args...).Scan(&exists)
	})
	return exists, err
}
