package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/campus/pkg/health"
	"github.com/dmitrymomot/campus/pkg/pool"
)

// Health exposes liveness and readiness probes. Probes are plain
// http.Handlers mounted beside the API router, outside its base path
// and middleware: readiness must not depend on a working session store.
type Health struct {
	pool   *pool.Manager
	redis  redis.UniversalClient
	logger *slog.Logger
}

func NewHealth(p *pool.Manager, rdb redis.UniversalClient, logger *slog.Logger) *Health {
	return &Health{pool: p, redis: rdb, logger: logger}
}

// Liveness always reports healthy while the process serves requests.
func (h *Health) Liveness() http.Handler {
	return health.LivenessHandler()
}

// Readiness checks the database pools and Redis.
func (h *Health) Readiness() http.Handler {
	return health.ReadinessHandler(h.checks(), health.WithLogger(h.logger))
}

func (h *Health) checks() health.Checks {
	checks := health.Checks{}
	if h.pool != nil {
		checks["postgres"] = func(ctx context.Context) error {
			for name, status := range h.pool.HealthCheck(ctx) {
				if !status.Healthy {
					return fmt.Errorf("pool %s: %s", name, status.Error)
				}
			}
			return nil
		}
	}
	if h.redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return h.redis.Ping(ctx).Err()
		}
	}
	return checks
}
