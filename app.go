package campus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/campus/config"
	"github.com/dmitrymomot/campus/internal/handlers"
	"github.com/dmitrymomot/campus/internal/repository"
	"github.com/dmitrymomot/campus/internal/router"
	"github.com/dmitrymomot/campus/middlewares"
	"github.com/dmitrymomot/campus/migrations"
	"github.com/dmitrymomot/campus/pkg/job"
	"github.com/dmitrymomot/campus/pkg/logger"
	"github.com/dmitrymomot/campus/pkg/mailer"
	"github.com/dmitrymomot/campus/pkg/mailer/resend"
	"github.com/dmitrymomot/campus/pkg/pool"
	"github.com/dmitrymomot/campus/pkg/redis"
	"github.com/dmitrymomot/campus/pkg/session"
	"github.com/dmitrymomot/campus/pkg/token"
)

// Default server timeouts.
const (
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultMaxHeaderBytes    = 1 << 20 // 1MB
)

// blacklistSweepSchedule prunes expired blacklist rows hourly; entries
// carry their own expiry so the cadence only bounds table growth.
const blacklistSweepSchedule = "@hourly"

// App owns every long-lived component and the server lifecycle.
// Immutable after New.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	server   *http.Server
	router   *router.Router
	listener net.Listener

	pool  *pool.Manager
	redis goredis.UniversalClient
	jobs  *job.Manager

	shutdownTimeout time.Duration
	shutdownHooks   []func(ctx context.Context) error
	done            chan struct{}
	stopOnce        sync.Once
	baseCtx         context.Context
}

// Option adjusts App construction.
type Option func(*App)

// WithBaseContext sets the context the server lifecycle derives from.
func WithBaseContext(ctx context.Context) Option {
	return func(a *App) { a.baseCtx = ctx }
}

// WithShutdownHook registers a cleanup function run during shutdown,
// in registration order, after the HTTP server has stopped.
func WithShutdownHook(fn func(ctx context.Context) error) Option {
	return func(a *App) {
		if fn != nil {
			a.shutdownHooks = append(a.shutdownHooks, fn)
		}
	}
}

// New builds the application: applies migrations, connects Postgres and
// Redis, and wires services, middleware and handlers.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	log := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		File:        cfg.Log.File,
		MaxSizeMB:   cfg.Log.MaxSizeMB,
		MaxBackups:  cfg.Log.MaxBackups,
		MaxAgeDays:  cfg.Log.MaxAgeDays,
		SentryDSN:   cfg.Log.SentryDSN,
		Environment: cfg.App.Env,
	}, middlewares.RequestIDExtractor())

	if err := pool.Migrate(ctx, cfg.DB.ConnectionString, migrations.FS, cfg.DB.MigrationsTable, log); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	pm := pool.NewManager(
		map[string]string{repository.DefaultPool: cfg.DB.ConnectionString},
		pool.WithMaxConns(cfg.DB.MaxConns),
		pool.WithMaxIdle(cfg.DB.MaxIdle),
		pool.WithRetry(cfg.DB.RetryAttempts, cfg.DB.RetryInterval),
		pool.WithSlowQueryThreshold(cfg.DB.SlowQueryThreshold),
		pool.WithLogger(log),
	)

	rdb, err := redis.Open(ctx, cfg.Redis.URL)
	if err != nil {
		pm.CloseAll(ctx)
		return nil, fmt.Errorf("redis: %w", err)
	}

	sessions := session.NewManager(session.NewRedisStore(rdb),
		session.WithCookieName(cfg.Security.SessionCookieName),
		session.WithTTL(cfg.Security.SessionTTL),
		session.WithSecureCookies(cfg.Security.SecureCookies),
	)

	blacklist := token.NewPostgresBlacklist(pm, repository.DefaultPool)
	tokens, err := token.NewService(cfg.JWT.Secret, blacklist,
		token.WithIssuer(cfg.JWT.Issuer),
		token.WithAccessTTL(cfg.JWT.AccessTTL),
		token.WithRefreshTTL(cfg.JWT.RefreshTTL),
		token.WithResetTTL(cfg.JWT.ResetTTL),
		token.WithLogger(log),
	)
	if err != nil {
		pm.CloseAll(ctx)
		return nil, fmt.Errorf("token service: %w", err)
	}

	mail := mailer.New(resend.New(resend.Config{
		APIKey:      cfg.Mail.APIKey,
		SenderEmail: cfg.Mail.SenderEmail,
		SenderName:  cfg.Mail.SenderName,
	}), mailer.WithAppName(cfg.Mail.SenderName), mailer.WithLogger(log))

	users := repository.NewUsers(pm, repository.DefaultPool)
	courses := repository.NewCourses(pm, repository.DefaultPool)
	lessons := repository.NewLessons(pm, repository.DefaultPool)
	enrollments := repository.NewEnrollments(pm, repository.DefaultPool)
	programs := repository.NewPrograms(pm, repository.DefaultPool)
	attendance := repository.NewAttendance(pm, repository.DefaultPool)
	activity := repository.NewActivity(pm, repository.DefaultPool)
	search := repository.NewSearch(pm, repository.DefaultPool)
	unique := repository.NewUniqueChecker(pm, repository.DefaultPool)

	r := router.New(
		router.WithLogger(log),
		router.WithBasePath(cfg.App.BasePath),
		router.WithSessionManager(sessions),
	)
	r.Use(
		middlewares.CORS(middlewares.WithAllowCredentials()),
		middlewares.RequestID(),
		middlewares.Recover(),
		middlewares.Timeout(defaultWriteTimeout),
		middlewares.CSRF(),
	)

	for _, h := range []router.Handler{
		handlers.NewAuth(users, activity, tokens, mail, cfg.Mail.ResetBaseURL, formatTTL(cfg.JWT.ResetTTL), log),
		handlers.NewCourses(courses, lessons, tokens),
		handlers.NewEnrollments(enrollments, courses, tokens),
		handlers.NewPrograms(programs, tokens),
		handlers.NewAttendance(attendance, tokens),
		handlers.NewSearch(search, tokens),
		handlers.NewUsers(users, unique, tokens),
	} {
		h.Routes(r)
	}

	// probes live beside the versioned API: no base path, no CSRF,
	// no session lookup standing between the orchestrator and an answer
	probes := handlers.NewHealth(pm, rdb, log)
	mux := http.NewServeMux()
	mux.Handle("/healthz", probes.Liveness())
	mux.Handle("/readyz", probes.Readiness())
	mux.Handle("/", r)

	jobs := job.NewManager(job.WithLogger(log))
	if err := jobs.Schedule("token-blacklist-prune", blacklistSweepSchedule, func(ctx context.Context) error {
		pruned, err := blacklist.PruneExpired(ctx, time.Now())
		if err != nil {
			return err
		}
		if pruned > 0 {
			log.Info("pruned expired blacklist entries", slog.Int64("count", pruned))
		}
		return nil
	}); err != nil {
		pm.CloseAll(ctx)
		return nil, err
	}

	a := &App{
		cfg:    cfg,
		logger: log,
		router: r,
		pool:   pm,
		redis:  rdb,
		jobs:   jobs,
		server: &http.Server{
			Addr:              cfg.App.Addr,
			Handler:           mux,
			ReadTimeout:       defaultReadTimeout,
			WriteTimeout:      defaultWriteTimeout,
			IdleTimeout:       defaultIdleTimeout,
			ReadHeaderTimeout: defaultReadHeaderTimeout,
			MaxHeaderBytes:    defaultMaxHeaderBytes,
			ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelError),
		},
		shutdownTimeout: cfg.App.ShutdownTimeout,
		done:            make(chan struct{}),
		baseCtx:         context.Background(),
	}
	a.shutdownHooks = append(a.shutdownHooks,
		jobs.Stop,
		redis.Shutdown(rdb),
		func(ctx context.Context) error {
			pm.CloseAll(ctx)
			return nil
		},
	)
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Router exposes the configured router, mainly for tests.
func (a *App) Router() *router.Router { return a.router }

// Addr returns the bound listen address once Run has started.
func (a *App) Addr() string {
	if a.listener == nil {
		return a.cfg.App.Addr
	}
	return a.listener.Addr().String()
}

// formatTTL renders a duration for human-facing mail copy.
func formatTTL(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	m := int(d / time.Minute)
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}

var errAlreadyStopped = errors.New("campus: app already stopped")
