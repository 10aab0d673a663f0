package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/campus/pkg/logger"
)

// fakeConn implements PgConn for pool tests.
type fakeConn struct {
	pingErr error
	execDur time.Duration
	closed  atomic.Bool
}

func (f *fakeConn) Ping(context.Context) error { return f.pingErr }

func (f *fakeConn) Close(context.Context) error {
	f.closed.Store(true)
	return nil
}

func (f *fakeConn) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	if f.execDur > 0 {
		time.Sleep(f.execDur)
	}
	return pgconn.CommandTag{}, nil
}

func (f *fakeConn) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeConn) QueryRow(context.Context, string, ...any) pgx.Row {
	return fakeRow{}
}

func (f *fakeConn) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("not implemented")
}

type fakeRow struct{}

func (fakeRow) Scan(...any) error { return nil }

func newTestManager(t *testing.T, dial DialFunc, opts ...Option) *Manager {
	t.Helper()
	targets := map[string]string{"default": "postgres://test"}
	opts = append([]Option{
		WithDialFunc(dial),
		WithLogger(logger.NewDiscard()),
		WithRetry(1, time.Millisecond),
	}, opts...)
	return NewManager(targets, opts...)
}

func TestAcquire_UnknownPool(t *testing.T) {
	m := newTestManager(t, func(context.Context, string) (PgConn, error) {
		return &fakeConn{}, nil
	})

	if _, err := m.Acquire(context.Background(), "nope"); !errors.Is(err, ErrUnknownPool) {
		t.Errorf("Acquire(unknown) = %v, want ErrUnknownPool", err)
	}
}

func TestAcquire_CapacityExhausted(t *testing.T) {
	m := newTestManager(t, func(context.Context, string) (PgConn, error) {
		return &fakeConn{}, nil
	}, WithMaxConns(2))

	ctx := context.Background()

	var mu sync.Mutex
	var ok, exhausted int
	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Acquire(ctx, "default")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrPoolExhausted):
				exhausted++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 2 || exhausted != 1 {
		t.Errorf("got %d successes, %d exhausted; want 2 and 1", ok, exhausted)
	}
}

func TestReleaseAndReuse(t *testing.T) {
	var dials int32
	m := newTestManager(t, func(context.Context, string) (PgConn, error) {
		atomic.AddInt32(&dials, 1)
		return &fakeConn{}, nil
	})

	ctx := context.Background()
	conn, err := m.Acquire(ctx, "default")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	m.Release(ctx, conn)

	again, err := m.Acquire(ctx, "default")
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	if again != conn {
		t.Error("idle connection was not reused")
	}
	if n := atomic.LoadInt32(&dials); n != 1 {
		t.Errorf("dials = %d, want 1", n)
	}
}

func TestAcquire_DiscardsDeadIdleConn(t *testing.T) {
	dead := &fakeConn{}
	conns := []PgConn{dead, &fakeConn{}}
	var i int
	m := newTestManager(t, func(context.Context, string) (PgConn, error) {
		c := conns[i]
		i++
		return c, nil
	})

	ctx := context.Background()
	conn, err := m.Acquire(ctx, "default")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	m.Release(ctx, conn)

	// Kill the pooled connection; the next Acquire must discard it
	// and dial a fresh one.
	dead.pingErr = errors.New("gone away")

	fresh, err := m.Acquire(ctx, "default")
	if err != nil {
		t.Fatalf("Acquire after dead idle: %v", err)
	}
	if fresh == conn {
		t.Error("dead idle connection was reused")
	}
	if !dead.closed.Load() {
		t.Error("dead idle connection was not closed")
	}

	stats := m.Stats()
	if stats.Active != 1 {
		t.Errorf("active = %d, want 1", stats.Active)
	}
}

func TestRelease_ClosesBeyondIdleCap(t *testing.T) {
	m := newTestManager(t, func(context.Context, string) (PgConn, error) {
		return &fakeConn{}, nil
	}, WithMaxConns(10), WithMaxIdle(1))

	ctx := context.Background()
	a, _ := m.Acquire(ctx, "default")
	b, _ := m.Acquire(ctx, "default")

	m.Release(ctx, a)
	m.Release(ctx, b) // idle cap is 1, so b must be closed

	if !b.raw.(*fakeConn).closed.Load() {
		t.Error("connection beyond idle cap was not closed")
	}

	stats := m.Stats()
	if stats.Idle != 1 || stats.Active != 1 {
		t.Errorf("stats = %+v, want 1 idle / 1 active", stats)
	}
}

func TestDialRetry(t *testing.T) {
	var attempts int32
	m := newTestManager(t, func(context.Context, string) (PgConn, error) {
		atomic.AddInt32(&attempts, 1)
		return nil, errors.New("refused")
	}, WithRetry(3, time.Millisecond))

	_, err := m.Acquire(context.Background(), "default")
	if !errors.Is(err, ErrConnectFailed) {
		t.Fatalf("Acquire = %v, want ErrConnectFailed", err)
	}
	if n := atomic.LoadInt32(&attempts); n != 3 {
		t.Errorf("dial attempts = %d, want 3", n)
	}

	// The reserved slot must be returned on failure.
	if stats := m.Stats(); stats.Active != 0 {
		t.Errorf("active after failed dial = %d, want 0", stats.Active)
	}
}

func TestHealthCheck(t *testing.T) {
	m := newTestManager(t, func(context.Context, string) (PgConn, error) {
		return &fakeConn{}, nil
	})

	results := m.HealthCheck(context.Background())
	status, ok := results["default"]
	if !ok {
		t.Fatal("no status for default pool")
	}
	if !status.Healthy {
		t.Errorf("status = %+v, want healthy", status)
	}
}

func TestCloseAll(t *testing.T) {
	m := newTestManager(t, func(context.Context, string) (PgConn, error) {
		return &fakeConn{}, nil
	})

	ctx := context.Background()
	conn, _ := m.Acquire(ctx, "default")
	m.Release(ctx, conn)

	m.CloseAll(ctx)

	if !conn.raw.(*fakeConn).closed.Load() {
		t.Error("idle connection not closed by CloseAll")
	}
	if _, err := m.Acquire(ctx, "default"); !errors.Is(err, ErrClosed) {
		t.Errorf("Acquire after CloseAll = %v, want ErrClosed", err)
	}
}
