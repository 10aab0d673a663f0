package pool

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

var (
	// ErrSetDialect is returned when goose rejects the postgres dialect.
	ErrSetDialect = errors.New("pool: migrator failed to set dialect")

	// ErrApplyMigrations is returned when applying migrations fails.
	ErrApplyMigrations = errors.New("pool: failed to apply migrations")
)

// Migrate applies embedded goose migrations against the given DSN,
// recording applied migrations in table. Runs on a dedicated
// database/sql handle outside the pool so a busy pool cannot starve
// schema setup.
func Migrate(ctx context.Context, dsn string, migrations embed.FS, table string, log *slog.Logger) error {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return errors.Join(ErrApplyMigrations, err)
	}

	db := stdlib.OpenDB(*cfg)
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(migrations)
	goose.SetLogger(&gooseLogger{log})
	goose.SetTableName(table)

	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrSetDialect, err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return errors.Join(ErrApplyMigrations, err)
	}
	return nil
}

type gooseLogger struct {
	log *slog.Logger
}

func (g *gooseLogger) Printf(format string, args ...any) {
	g.log.Info(fmt.Sprintf(format, args...))
}

func (g *gooseLogger) Fatalf(format string, args ...any) {
	// Error level only; goose propagates the failure as a return value
	// and os.Exit here would skip shutdown hooks.
	g.log.Error(fmt.Sprintf(format, args...))
}
