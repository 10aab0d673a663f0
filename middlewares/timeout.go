package middlewares

import (
	"context"
	"runtime"
	"time"

	"github.com/dmitrymomot/campus/internal/router"
)

// DefaultTimeout is the default request timeout.
const DefaultTimeout = 30 * time.Second

// timeoutContextKey is used to store the timeout context.
type timeoutContextKey struct{}

// Timeout returns middleware that enforces a request timeout.
// If the handler does not complete within the timeout, a TimeoutError is
// returned to be handled by the router's error handler.
//
// Note: The handler goroutine continues running after timeout. Use
// context.Done() in long-running operations to detect cancellation.
func Timeout(timeout time.Duration) router.Middleware {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			ctx, cancel := context.WithTimeout(c.Context(), timeout)
			defer cancel()

			c.Set(timeoutContextKey{}, ctx)

			// next runs in its own goroutine, so a deferred recover in
			// outer middleware never sees panics raised here. Recover
			// locally and surface them as errors on the channel.
			done := make(chan error, 1)
			go func() {
				defer func() {
					if r := recover(); r != nil {
						stack := make([]byte, DefaultStackSize)
						n := runtime.Stack(stack, false)
						stack = stack[:n]
						c.LogError("panic recovered", "panic", r, "stack", string(stack))
						done <- &PanicError{Value: r, Stack: stack}
					}
				}()
				done <- next(c)
			}()

			select {
			case err := <-done:
				return err
			case <-ctx.Done():
				if ctx.Err() == context.DeadlineExceeded {
					c.LogWarn("request timeout", "timeout", timeout.String())
					return &TimeoutError{Duration: timeout}
				}
				return ctx.Err()
			}
		}
	}
}

// GetTimeoutContext retrieves the timeout context if available.
// This allows handlers to check for cancellation via ctx.Done().
func GetTimeoutContext(c router.Context) context.Context {
	if v, ok := c.Get(timeoutContextKey{}).(context.Context); ok {
		return v
	}
	return c.Context()
}
