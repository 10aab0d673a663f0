// Package redis opens and supervises the application's Redis client.
//
// It wraps [github.com/redis/go-redis/v9] with startup retry, pooled
// connection defaults, a health check closure, and a shutdown hook.
// The client backs the session store and the token-blacklist cache.
//
// # Usage
//
//	client, err := redis.Open(ctx, os.Getenv("REDIS_URL"),
//		redis.WithPoolSize(20),
//		redis.WithMinIdleConns(5),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
// [Healthcheck] returns a closure for readiness probes; [Shutdown]
// returns a hook for graceful teardown:
//
//	campus.WithShutdownHook(redis.Shutdown(client))
//
// # Error Handling
//
// Sentinel errors for common failure modes:
//
//   - [ErrEmptyConnectionURL] - Empty connection URL provided
//   - [ErrFailedToParseURL] - Invalid connection URL format or scheme
//   - [ErrConnectionFailed] - Connection failed after all retry attempts
//   - [ErrHealthcheckFailed] - Redis ping failed
//
// Errors are wrapped using [errors.Join] to preserve the original error context.
package redis
