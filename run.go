package campus

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// Run starts the background scheduler and the HTTP server, then blocks
// until SIGINT/SIGTERM, Stop, or a server error. Shutdown stops the
// server first, then runs the registered hooks in order.
func (a *App) Run() error {
	ctx, cancel := signal.NotifyContext(a.baseCtx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ln, err := net.Listen("tcp", a.server.Addr)
	if err != nil {
		return err
	}
	a.listener = ln

	a.jobs.Start()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("server starting",
			slog.String("address", ln.Addr().String()),
			slog.String("base_path", a.cfg.App.BasePath),
			slog.String("env", a.cfg.App.Env),
		)
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-a.done:
		}

		a.logger.Info("shutting down server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer shutdownCancel()
		return a.server.Shutdown(shutdownCtx)
	})

	errs := []error{g.Wait()}

	hookCtx, hookCancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer hookCancel()
	for _, hook := range a.shutdownHooks {
		if err := hook(hookCtx); err != nil {
			errs = append(errs, err)
			a.logger.Error("shutdown hook failed", slog.Any("error", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		a.logger.Error("shutdown completed with errors")
		return err
	}
	a.logger.Info("shutdown completed")
	return nil
}

// Stop triggers graceful shutdown programmatically. Safe to call more
// than once; later calls return errAlreadyStopped.
func (a *App) Stop() error {
	stopped := false
	a.stopOnce.Do(func() {
		close(a.done)
		stopped = true
	})
	if !stopped {
		return errAlreadyStopped
	}
	return nil
}
