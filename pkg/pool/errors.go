package pool

import "errors"

var (
	// ErrPoolExhausted is returned by Acquire when the named pool is at
	// its connection cap. Callers get this immediately; there is no queue.
	ErrPoolExhausted = errors.New("pool: connection limit reached")

	// ErrUnknownPool is returned when the connection name is not configured.
	ErrUnknownPool = errors.New("pool: unknown connection name")

	// ErrConnectFailed is returned after all dial retries are spent.
	ErrConnectFailed = errors.New("pool: failed to open connection")

	// ErrClosed is returned when the manager has been shut down.
	ErrClosed = errors.New("pool: manager closed")
)
