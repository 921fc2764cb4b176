// Package sqlite keeps aggregation rows in a local SQLite file, for
// deployments that do not run a separate analytical PostgreSQL.
package sqlite

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"stockbi/internal/core/period"
	"stockbi/internal/core/types"
	"stockbi/internal/domain/aggregation"
	"stockbi/pkg/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const tableName = "aggregation_rows"

var _ aggregation.Store = (*Store)(nil)

// Store implements aggregation.Store on SQLite.
type Store struct {
	db *sqlx.DB
}

// Open connects to dsn and applies the embedded migrations.
// Example dsn: "file:analytics.db?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate".
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer at a time; readers share the connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := migrateUp(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrateUp(ctx context.Context, db *sqlx.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	logger.Info(ctx, "sqlite migrations applied")
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// record is the column layout; dates and metrics are stored as text.
type record struct {
	Class       string `db:"entity_class"`
	PeriodKind  string `db:"period_kind"`
	PeriodKey   string `db:"period_key"`
	EntityKey   string `db:"entity_key"`
	PeriodStart string `db:"period_start"`
	PeriodEnd   string `db:"period_end"`
	Metrics     string `db:"metrics"`
}

func toRecord(r aggregation.Row) record {
	return record{
		Class:       string(r.Class),
		PeriodKind:  string(r.PeriodKind),
		PeriodKey:   r.PeriodKey,
		EntityKey:   r.EntityKey,
		PeriodStart: r.PeriodStart.Format(types.DateLayout),
		PeriodEnd:   r.PeriodEnd.Format(types.DateLayout),
		Metrics:     string(r.Metrics),
	}
}

func (rec record) row() (aggregation.Row, error) {
	start, err := types.ParseDate(rec.PeriodStart)
	if err != nil {
		return aggregation.Row{}, err
	}
	end, err := types.ParseDate(rec.PeriodEnd)
	if err != nil {
		return aggregation.Row{}, err
	}
	return aggregation.Row{
		Class:       aggregation.Class(rec.Class),
		PeriodKind:  period.Kind(rec.PeriodKind),
		PeriodKey:   rec.PeriodKey,
		EntityKey:   rec.EntityKey,
		PeriodStart: start,
		PeriodEnd:   end,
		Metrics:     json.RawMessage(rec.Metrics),
	}, nil
}

const upsertSQL = `
	INSERT INTO aggregation_rows (
		entity_class, period_kind, period_key, entity_key, period_start, period_end, metrics
	) VALUES (
		:entity_class, :period_kind, :period_key, :entity_key, :period_start, :period_end, :metrics
	)
	ON CONFLICT(entity_class, period_kind, period_key, entity_key) DO UPDATE SET
		period_start = excluded.period_start,
		period_end = excluded.period_end,
		metrics = excluded.metrics,
		computed_at = CURRENT_TIMESTAMP
`

// ReplacePeriod implements aggregation.Store.
func (s *Store) ReplacePeriod(ctx context.Context, class aggregation.Class, p period.Period, rows []aggregation.Row) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if len(rows) > 0 {
		recs := make([]record, len(rows))
		for i, r := range rows {
			recs[i] = toRecord(r)
		}
		if _, err = tx.NamedExecContext(ctx, upsertSQL, recs); err != nil {
			return fmt.Errorf("upsert rows: %w", err)
		}
	}

	sql, args, err := pruneQuery(class, p, rows).ToSql()
	if err != nil {
		return fmt.Errorf("build prune: %w", err)
	}
	if _, err = tx.ExecContext(ctx, sql, args...); err != nil {
		return fmt.Errorf("prune rows: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func pruneQuery(class aggregation.Class, p period.Period, rows []aggregation.Row) squirrel.DeleteBuilder {
	q := squirrel.Delete(tableName).
		Where(squirrel.Eq{
			"entity_class": string(class),
			"period_kind":  string(p.Kind),
			"period_key":   p.Key(),
		})
	if len(rows) > 0 {
		keep := make([]string, len(rows))
		for i, r := range rows {
			keep[i] = r.EntityKey
		}
		q = q.Where(squirrel.NotEq{"entity_key": keep})
	}
	return q
}

// List implements aggregation.Store.
func (s *Store) List(ctx context.Context, filter aggregation.RowFilter) ([]aggregation.Row, error) {
	sql, args, err := listQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var recs []record
	if err := s.db.SelectContext(ctx, &recs, sql, args...); err != nil {
		return nil, fmt.Errorf("list aggregation rows: %w", err)
	}

	out := make([]aggregation.Row, 0, len(recs))
	for _, rec := range recs {
		r, err := rec.row()
		if err != nil {
			return nil, fmt.Errorf("decode row %s/%s: %w", rec.Class, rec.PeriodKey, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func listQuery(filter aggregation.RowFilter) squirrel.SelectBuilder {
	q := squirrel.Select(
		"entity_class", "period_kind", "period_key", "entity_key",
		"period_start", "period_end", "metrics",
	).From(tableName)

	if filter.Class != "" {
		q = q.Where(squirrel.Eq{"entity_class": string(filter.Class)})
	}
	if filter.PeriodKind != "" {
		q = q.Where(squirrel.Eq{"period_kind": string(filter.PeriodKind)})
	}
	if filter.PeriodKey != "" {
		q = q.Where(squirrel.Eq{"period_key": filter.PeriodKey})
	}
	if filter.EntityKey != "" {
		q = q.Where(squirrel.Eq{"entity_key": filter.EntityKey})
	}
	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"period_start": dateString(*filter.From)})
	}
	if filter.To != nil {
		q = q.Where(squirrel.LtOrEq{"period_start": dateString(*filter.To)})
	}

	q = q.OrderBy("entity_class", "period_start", "period_kind", "entity_key")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	return q
}

func dateString(t time.Time) string {
	return types.DateOf(t).Format(types.DateLayout)
}
