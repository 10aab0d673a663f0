package pool

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgConn is the subset of *pgx.Conn the pool manages. Tests substitute
// fakes through the manager's dial function.
type PgConn interface {
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// statementPreviewLen caps how much SQL lands in slow-query log entries.
const statementPreviewLen = 500

// Conn wraps a managed connection with per-connection query statistics
// and slow-query logging. Return it to the manager with Release when done.
type Conn struct {
	raw  PgConn
	name string

	openedAt     time.Time
	queryCount   int64
	totalLatency time.Duration

	slowThreshold time.Duration
	logger        *slog.Logger
}

// Name returns the pool name this connection belongs to.
func (c *Conn) Name() string { return c.name }

// Exec runs a statement, recording latency.
func (c *Conn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	start := time.Now()
	tag, err := c.raw.Exec(ctx, sql, args...)
	c.observe(sql, time.Since(start), err)
	return tag, err
}

// Query runs a query, recording latency.
func (c *Conn) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	start := time.Now()
	rows, err := c.raw.Query(ctx, sql, args...)
	c.observe(sql, time.Since(start), err)
	return rows, err
}

// QueryRow runs a single-row query, recording latency up to row delivery.
func (c *Conn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	start := time.Now()
	row := c.raw.QueryRow(ctx, sql, args...)
	c.observe(sql, time.Since(start), nil)
	return row
}

// Begin starts a transaction on the underlying connection.
func (c *Conn) Begin(ctx context.Context) (pgx.Tx, error) {
	return c.raw.Begin(ctx)
}

// Ping verifies the underlying connection is alive.
func (c *Conn) Ping(ctx context.Context) error {
	return c.raw.Ping(ctx)
}

// Stats reports this connection's cumulative query statistics.
func (c *Conn) Stats() ConnStats {
	return ConnStats{
		OpenSince:    c.openedAt,
		QueryCount:   c.queryCount,
		TotalLatency: c.totalLatency,
	}
}

// ConnStats is a snapshot of one managed connection's usage.
type ConnStats struct {
	OpenSince    time.Time
	QueryCount   int64
	TotalLatency time.Duration
}

func (c *Conn) observe(sql string, d time.Duration, err error) {
	c.queryCount++
	c.totalLatency += d

	if err != nil {
		c.logger.Error("query error",
			slog.String("connection", c.name),
			slog.String("query", preview(sql)),
			slog.Any("error", err))
		return
	}

	if c.slowThreshold > 0 && d > c.slowThreshold {
		c.logger.Warn("slow query detected",
			slog.String("connection", c.name),
			slog.Duration("duration", d),
			slog.String("query", preview(sql)))
	}
}

func preview(sql string) string {
	if len(sql) > statementPreviewLen {
		return sql[:statementPreviewLen]
	}
	return sql
}
