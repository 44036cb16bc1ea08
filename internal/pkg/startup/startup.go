// Package startup holds the boot sequence shared by the service
// binaries: waiting for the database, applying migrations and seeding
// development data.
package startup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect retries fn with bounded exponential backoff until it yields a
// value or the attempts run out. Used at boot for dependencies that may
// come up after the service does.
func Connect[T any](ctx context.Context, log *slog.Logger, what string, fn func(context.Context) (T, error)) (T, error) {
	return retry.DoWithData(
		func() (T, error) {
			attemptCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return fn(attemptCtx)
		},
		retry.Context(ctx),
		retry.Attempts(10),
		retry.Delay(500*time.Millisecond),
		retry.MaxDelay(5*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Warn(what+" not ready, retrying",
				slog.Uint64("attempt", uint64(n+1)),
				slog.String("error", err.Error()),
			)
		}),
	)
}

// RunMigrations applies all pending migrations from path. Migration
// failure is fatal for the caller: a service must never run against a
// schema it does not understand.
func RunMigrations(dsn, path string, log *slog.Logger) error {
	m, err := migrate.New("file://"+path, dsn)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			log.Warn("close migration source", slog.String("error", srcErr.Error()))
		}
		if dbErr != nil {
			log.Warn("close migration database", slog.String("error", dbErr.Error()))
		}
	}()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("migrations up to date")
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}
	log.Info("migrations applied")
	return nil
}

// Seed runs the given statements, logging and swallowing failures. Seed
// data is a convenience, never a correctness requirement.
func Seed(ctx context.Context, pool *pgxpool.Pool, statements []string, log *slog.Logger) {
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			log.Warn("seed statement failed", slog.String("error", err.Error()))
		}
	}
}
