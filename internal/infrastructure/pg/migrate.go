package pg

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	pgdriver "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"ratehub/internal/infrastructure/logx"
)

//go:embed migrations/*.sql
var fs embed.FS

// RunMigrations applies the embedded schema. The database may still be
// starting, so the initial ping is retried for up to 15s.
func RunMigrations(ctx context.Context, db *DB) error {
	log := logx.L().With(zap.String("component", "pg.migrate"))
	src, err := iofs.New(fs, "migrations")
	if err != nil {
		return fmt.Errorf("migrate src: %w", err)
	}
	sqldb, err := sql.Open("pgx", db.Pool.Config().ConnString())
	if err != nil {
		return fmt.Errorf("open sql db: %w", err)
	}
	defer sqldb.Close()

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 250 * time.Millisecond
	exp.MaxInterval = 2 * time.Second
	exp.MaxElapsedTime = 15 * time.Second
	ping := func() error { return sqldb.PingContext(ctx) }
	notify := func(err error, wait time.Duration) {
		log.Info("migrate.ping_retry", zap.Duration("wait", wait), zap.Error(err))
	}
	if err := backoff.RetryNotify(ping, backoff.WithContext(exp, ctx), notify); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}

	driver, err := pgdriver.WithInstance(sqldb, &pgdriver.Config{})
	if err != nil {
		return fmt.Errorf("migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	version, dirty, _ := m.Version()
	log.Info("migrate.done", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}
