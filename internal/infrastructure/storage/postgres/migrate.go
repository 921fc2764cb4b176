package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/stdlib"

	"stockbi/pkg/logger"
)

//go:embed migrations/operational/*.sql migrations/analytics/*.sql
var migrationsFS embed.FS

// Schema selects one of the embedded migration sets.
type Schema string

const (
	SchemaOperational Schema = "operational"
	SchemaAnalytics   Schema = "analytics"
)

// Migrate applies the embedded migrations of schema. Each schema keeps its
// own version table so both can share one database.
func Migrate(ctx context.Context, pool *Pool, schema Schema) error {
	src, err := iofs.New(migrationsFS, "migrations/"+string(schema))
	if err != nil {
		return fmt.Errorf("open %s migrations: %w", schema, err)
	}

	db := stdlib.OpenDBFromPool(pool.Pool)
	defer db.Close()

	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{
		MigrationsTable: "schema_migrations_" + string(schema),
	})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply %s migrations: %w", schema, err)
	}

	version, dirty, _ := m.Version()
	logger.Info(ctx, "database migrations applied", "schema", schema, "version", version, "dirty", dirty)
	return nil
}
