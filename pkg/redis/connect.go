package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrEmptyConnectionURL = errors.New("redis: empty connection URL")
	ErrFailedToParseURL   = errors.New("redis: failed to parse connection URL")
	ErrConnectionFailed   = errors.New("redis: failed to establish connection")
	ErrHealthcheckFailed  = errors.New("redis: healthcheck failed")
)

type config struct {
	poolSize      int
	minIdleConns  int
	maxIdleTime   time.Duration
	maxActiveTime time.Duration
	retryAttempts int
	retryInterval time.Duration
	readTimeout   time.Duration
	writeTimeout  time.Duration
	dialTimeout   time.Duration
}

func defaults() *config {
	return &config{
		poolSize:      10,
		minIdleConns:  5,
		maxIdleTime:   10 * time.Minute,
		maxActiveTime: 30 * time.Minute,
		retryAttempts: 3,
		retryInterval: 5 * time.Second,
		readTimeout:   3 * time.Second,
		writeTimeout:  3 * time.Second,
		dialTimeout:   5 * time.Second,
	}
}

// Option configures the Redis connection.
type Option func(*config)

// WithPoolSize caps the connection pool. Default 10.
func WithPoolSize(n int) Option {
	return func(c *config) { c.poolSize = n }
}

// WithMinIdleConns keeps at least n idle connections open. Default 5.
func WithMinIdleConns(n int) Option {
	return func(c *config) { c.minIdleConns = n }
}

// WithMaxIdleTime closes connections idle longer than d. Default 10m.
func WithMaxIdleTime(d time.Duration) Option {
	return func(c *config) { c.maxIdleTime = d }
}

// WithMaxActiveTime bounds a connection's total lifetime. Default 30m.
func WithMaxActiveTime(d time.Duration) Option {
	return func(c *config) { c.maxActiveTime = d }
}

// WithRetry sets startup retry attempts and the backoff base interval.
// Default 3 attempts, 5s.
func WithRetry(attempts int, interval time.Duration) Option {
	return func(c *config) {
		c.retryAttempts = attempts
		c.retryInterval = interval
	}
}

// WithReadTimeout sets the per-command read timeout. Default 3s.
func WithReadTimeout(d time.Duration) Option {
	return func(c *config) { c.readTimeout = d }
}

// WithWriteTimeout sets the per-command write timeout. Default 3s.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *config) { c.writeTimeout = d }
}

// WithDialTimeout sets the connection dial timeout. Default 5s.
func WithDialTimeout(d time.Duration) Option {
	return func(c *config) { c.dialTimeout = d }
}

// Open connects to Redis by URL (redis:// or rediss://), retrying with
// linear backoff, and verifies the connection with a ping.
func Open(ctx context.Context, url string, opts ...Option) (redis.UniversalClient, error) {
	if url == "" {
		return nil, ErrEmptyConnectionURL
	}
	if !strings.HasPrefix(url, "redis://") && !strings.HasPrefix(url, "rediss://") {
		return nil, ErrFailedToParseURL
	}

	cfg := defaults()
	for _, opt := range opts {
		opt(cfg)
	}

	clientOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseURL, err)
	}
	clientOpts.PoolSize = cfg.poolSize
	clientOpts.MinIdleConns = cfg.minIdleConns
	clientOpts.ConnMaxIdleTime = cfg.maxIdleTime
	clientOpts.ConnMaxLifetime = cfg.maxActiveTime
	clientOpts.ReadTimeout = cfg.readTimeout
	clientOpts.WriteTimeout = cfg.writeTimeout
	clientOpts.DialTimeout = cfg.dialTimeout

	attempts := max(cfg.retryAttempts, 1)
	for i := range attempts {
		client := redis.NewClient(clientOpts)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		if err := wait(ctx, time.Duration(i+1)*cfg.retryInterval); err != nil {
			return nil, errors.Join(ErrConnectionFailed, err)
		}
	}
	return nil, ErrConnectionFailed
}

// Healthcheck returns a readiness probe over the client.
func Healthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if client == nil {
			return ErrHealthcheckFailed
		}
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

func wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
