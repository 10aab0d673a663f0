package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

var (
	// ErrAlreadyStarted is returned when Schedule is called after Start.
	ErrAlreadyStarted = errors.New("job: manager already started")

	// ErrInvalidSchedule is returned for an unparsable cron expression.
	ErrInvalidSchedule = errors.New("job: invalid schedule")
)

// HandlerFunc is one scheduled task. The context carries the per-run
// timeout; long tasks should honor it.
type HandlerFunc func(ctx context.Context) error

// Manager schedules recurring tasks. Safe for concurrent use.
type Manager struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	started bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the structured logger for task outcomes.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithTaskTimeout bounds each task run. Default is one minute.
func WithTaskTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// NewManager creates a scheduler. Nothing runs until Start.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		logger:  slog.Default(),
		timeout: time.Minute,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	return m
}

// Schedule registers a named task. Standard five-field cron expressions
// and descriptors like "@every 1h" are accepted.
func (m *Manager) Schedule(name, spec string, fn HandlerFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return ErrAlreadyStarted
	}

	_, err := m.cron.AddFunc(spec, m.wrap(name, fn))
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, spec, err)
	}
	return nil
}

func (m *Manager) wrap(name string, fn HandlerFunc) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		defer func() {
			if rec := recover(); rec != nil {
				m.logger.Error("scheduled task panicked",
					slog.String("task", name), slog.Any("panic", rec))
			}
		}()

		start := time.Now()
		if err := fn(ctx); err != nil {
			m.logger.Error("scheduled task failed",
				slog.String("task", name),
				slog.Duration("elapsed", time.Since(start)),
				slog.Any("error", err))
			return
		}
		m.logger.Info("scheduled task completed",
			slog.String("task", name),
			slog.Duration("elapsed", time.Since(start)))
	}
}

// Start launches the scheduler. Idempotent.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true
	m.cron.Start()
}

// Stop halts scheduling and waits for running tasks until ctx expires.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = false
	m.mu.Unlock()

	done := m.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Healthcheck reports whether the scheduler is running.
func (m *Manager) Healthcheck() func(context.Context) error {
	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if !m.started {
			return errors.New("job: scheduler not running")
		}
		return nil
	}
}
