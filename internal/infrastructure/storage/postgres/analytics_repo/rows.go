// Package analytics_repo persists aggregation rows in PostgreSQL.
package analytics_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockbi/internal/core/period"
	"stockbi/internal/domain/aggregation"
	"stockbi/internal/infrastructure/storage/postgres"
)

const tableName = "aggregation_rows"

var columns = []string{
	"entity_class", "period_kind", "period_key", "entity_key",
	"period_start", "period_end", "metrics",
}

var _ aggregation.Store = (*RowStore)(nil)

// RowStore implements aggregation.Store. It runs on its own pool so the
// analytical database can live apart from the operational one.
type RowStore struct {
	txManager *postgres.TxManager
	batch     *postgres.BatchExecutor
}

// NewRowStore creates a new row store.
func NewRowStore(txManager *postgres.TxManager) *RowStore {
	return &RowStore{
		txManager: txManager,
		batch:     postgres.NewBatchExecutor(txManager),
	}
}

// ReplacePeriod upserts rows and prunes stale entity keys in one
// transaction, serialized with other writers of the same (class, period)
// through a transaction-scoped advisory lock.
func (s *RowStore) ReplacePeriod(ctx context.Context, class aggregation.Class, p period.Period, rows []aggregation.Row) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		lockKey := string(class) + ":" + p.String()
		if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", lockKey); err != nil {
			return fmt.Errorf("advisory lock %s: %w", lockKey, err)
		}

		queries := make([]postgres.BatchQuery, 0, len(rows)+1)
		for _, r := range rows {
			sql, args, err := upsertQuery(r).ToSql()
			if err != nil {
				return fmt.Errorf("build upsert: %w", err)
			}
			queries = append(queries, postgres.BatchQuery{SQL: sql, Args: args})
		}

		sql, args, err := pruneQuery(class, p, rows).ToSql()
		if err != nil {
			return fmt.Errorf("build prune: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: sql, Args: args})

		if _, err := s.batch.ExecuteBatch(ctx, queries); err != nil {
			return fmt.Errorf("replace %s %s: %w", class, p, err)
		}
		return nil
	})
}

func upsertQuery(r aggregation.Row) squirrel.InsertBuilder {
	return postgres.Builder().
		Insert(tableName).
		Columns(columns...).
		Values(r.Class, r.PeriodKind, r.PeriodKey, r.EntityKey, r.PeriodStart, r.PeriodEnd, string(r.Metrics)).
		Suffix("ON CONFLICT (entity_class, period_kind, period_key, entity_key) DO UPDATE SET " +
			"period_start = EXCLUDED.period_start, period_end = EXCLUDED.period_end, " +
			"metrics = EXCLUDED.metrics, computed_at = now()")
}

func pruneQuery(class aggregation.Class, p period.Period, rows []aggregation.Row) squirrel.DeleteBuilder {
	q := postgres.Builder().
		Delete(tableName).
		Where(squirrel.Eq{
			"entity_class": class,
			"period_kind":  p.Kind,
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
func (s *RowStore) List(ctx context.Context, filter aggregation.RowFilter) ([]aggregation.Row, error) {
	sql, args, err := listQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []aggregation.Row
	if err := pgxscan.Select(ctx, s.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list aggregation rows: %w", err)
	}
	return out, nil
}

func listQuery(filter aggregation.RowFilter) squirrel.SelectBuilder {
	q := postgres.Builder().
		Select(columns...).
		From(tableName)

	if filter.Class != "" {
		q = q.Where(squirrel.Eq{"entity_class": filter.Class})
	}
	if filter.PeriodKind != "" {
		q = q.Where(squirrel.Eq{"period_kind": filter.PeriodKind})
	}
	if filter.PeriodKey != "" {
		q = q.Where(squirrel.Eq{"period_key": filter.PeriodKey})
	}
	if filter.EntityKey != "" {
		q = q.Where(squirrel.Eq{"entity_key": filter.EntityKey})
	}
	if filter.From != nil {
		q = q.Where(squirrel.GtOrEq{"period_start": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(squirrel.LtOrEq{"period_start": *filter.To})
	}

	q = q.OrderBy("entity_class", "period_start", "period_kind", "entity_key")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	return q
}
