// Package pool provides a bounded, named PostgreSQL connection pool.
// Each named target has a hard cap on simultaneously open connections and
// a small idle list; acquire past the cap fails fast instead of queuing.
package pool

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
)

// Defaults mirror the configuration surface in config.DBConfig.
const (
	defaultMaxConns      = 10
	defaultMaxIdle       = 5
	defaultRetryAttempts = 3
	defaultRetryInterval = time.Second
	defaultSlowThreshold = time.Second
)

// DialFunc opens one raw connection to a DSN.
type DialFunc func(ctx context.Context, dsn string) (PgConn, error)

// Manager owns every named pool. Safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	targets map[string]string // name -> dsn
	idle    map[string][]*Conn
	active  map[string]int // open connections per name, idle included
	closed  bool

	dial          DialFunc
	logger        *slog.Logger
	maxConns      int
	maxIdle       int
	retryAttempts int
	retryInterval time.Duration
	slowThreshold time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxConns sets the per-name cap on open connections.
func WithMaxConns(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxConns = n
		}
	}
}

// WithMaxIdle sets how many idle connections each named pool retains.
func WithMaxIdle(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.maxIdle = n
		}
	}
}

// WithRetry configures dial retry behavior.
func WithRetry(attempts int, interval time.Duration) Option {
	return func(m *Manager) {
		if attempts > 0 {
			m.retryAttempts = attempts
		}
		if interval > 0 {
			m.retryInterval = interval
		}
	}
}

// WithSlowQueryThreshold sets the latency above which queries are logged.
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(m *Manager) { m.slowThreshold = d }
}

// WithDialFunc replaces the pgx dialer. Used in tests.
func WithDialFunc(dial DialFunc) Option {
	return func(m *Manager) { m.dial = dial }
}

// WithLogger sets the manager's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a Manager for the given named targets.
func NewManager(targets map[string]string, opts ...Option) *Manager {
	m := &Manager{
		targets:       targets,
		idle:          make(map[string][]*Conn),
		active:        make(map[string]int),
		maxConns:      defaultMaxConns,
		maxIdle:       defaultMaxIdle,
		retryAttempts: defaultRetryAttempts,
		retryInterval: defaultRetryInterval,
		slowThreshold: defaultSlowThreshold,
		logger:        slog.Default(),
		dial:          pgxDial,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func pgxDial(ctx context.Context, dsn string) (PgConn, error) {
	return pgx.Connect(ctx, dsn)
}

// Acquire returns a connection for the named target. Idle connections are
// liveness-checked before reuse; dead ones are discarded. When all idle
// connections are gone and the name is under its cap, a new connection is
// dialed with bounded, context-aware retries. At the cap, Acquire fails
// immediately with ErrPoolExhausted.
func (m *Manager) Acquire(ctx context.Context, name string) (*Conn, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	dsn, ok := m.targets[name]
	if !ok {
		m.mu.Unlock()
		return nil, ErrUnknownPool
	}

	// Idle first. Ping runs outside the lock so a stalled connection
	// doesn't block the whole manager.
	for len(m.idle[name]) > 0 {
		conn := m.idle[name][0]
		m.idle[name] = m.idle[name][1:]
		m.mu.Unlock()

		if err := conn.Ping(ctx); err == nil {
			return conn, nil
		}
		_ = conn.raw.Close(ctx)

		m.mu.Lock()
		m.active[name]--
	}

	if m.active[name] >= m.maxConns {
		m.mu.Unlock()
		return nil, ErrPoolExhausted
	}
	m.active[name]++ // reserve the slot before dialing
	m.mu.Unlock()

	raw, err := m.dialWithRetry(ctx, dsn)
	if err != nil {
		m.mu.Lock()
		m.active[name]--
		m.mu.Unlock()
		return nil, errors.Join(ErrConnectFailed, err)
	}

	m.logger.Info("database connection created",
		slog.String("connection", name),
		slog.Int("total_connections", m.activeCount(name)))

	return &Conn{
		raw:           raw,
		name:          name,
		openedAt:      time.Now(),
		slowThreshold: m.slowThreshold,
		logger:        m.logger,
	}, nil
}

// Release returns a connection to its named pool. When the pool already
// holds maxIdle connections the connection is closed instead and the
// open count decremented.
func (m *Manager) Release(ctx context.Context, conn *Conn) {
	if conn == nil {
		return
	}

	m.mu.Lock()
	if !m.closed && len(m.idle[conn.name]) < m.maxIdle {
		m.idle[conn.name] = append(m.idle[conn.name], conn)
		m.mu.Unlock()
		return
	}
	m.active[conn.name]--
	m.mu.Unlock()

	m.closeConn(ctx, conn)
}

// dialWithRetry attempts the dial up to retryAttempts times with a fixed,
// context-aware backoff between attempts.
func (m *Manager) dialWithRetry(ctx context.Context, dsn string) (PgConn, error) {
	var lastErr error
	for attempt := 1; attempt <= m.retryAttempts; attempt++ {
		raw, err := m.dial(ctx, dsn)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		m.logger.Warn("database connection attempt failed",
			slog.Int("attempt", attempt), slog.Any("error", err))

		if attempt == m.retryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.retryInterval):
		}
	}
	return nil, lastErr
}

// Stats reports pool-wide connection counts.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		MaxConns: m.maxConns,
		PerName:  make(map[string]NameStats, len(m.targets)),
	}
	for name := range m.targets {
		s.PerName[name] = NameStats{
			Active: m.active[name],
			Idle:   len(m.idle[name]),
		}
		s.Active += m.active[name]
		s.Idle += len(m.idle[name])
	}
	return s
}

// Stats summarizes manager state.
type Stats struct {
	PerName  map[string]NameStats
	Active   int
	Idle     int
	MaxConns int
}

// NameStats summarizes one named pool.
type NameStats struct {
	Active int
	Idle   int
}

// HealthStatus reports the outcome of one named target's health probe.
type HealthStatus struct {
	CheckedAt time.Time
	Latency   time.Duration
	Error     string
	Healthy   bool
}

// HealthCheck probes every configured target with a trivial query and
// reports per-name status. It never returns an error itself.
func (m *Manager) HealthCheck(ctx context.Context) map[string]HealthStatus {
	m.mu.Lock()
	names := make([]string, 0, len(m.targets))
	for name := range m.targets {
		names = append(names, name)
	}
	m.mu.Unlock()

	results := make(map[string]HealthStatus, len(names))
	for _, name := range names {
		start := time.Now()
		status := HealthStatus{CheckedAt: start}

		conn, err := m.Acquire(ctx, name)
		if err == nil {
			_, err = conn.Exec(ctx, "SELECT 1")
			m.Release(ctx, conn)
		}
		status.Latency = time.Since(start)
		if err != nil {
			status.Error = err.Error()
		} else {
			status.Healthy = true
		}
		results[name] = status
	}
	return results
}

// CloseAll closes every idle connection and marks the manager closed.
// Connections currently in use are closed when released.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	m.closed = true
	var conns []*Conn
	for name, list := range m.idle {
		conns = append(conns, list...)
		m.active[name] -= len(list)
		m.idle[name] = nil
	}
	m.mu.Unlock()

	for _, conn := range conns {
		m.closeConn(ctx, conn)
	}
	m.logger.Info("all database connections closed")
}

func (m *Manager) closeConn(ctx context.Context, conn *Conn) {
	stats := conn.Stats()
	m.logger.Info("database connection closed",
		slog.String("connection", conn.name),
		slog.Int64("query_count", stats.QueryCount),
		slog.Duration("total_time", stats.TotalLatency))
	_ = conn.raw.Close(ctx)
}

func (m *Manager) activeCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[name]
}
