// Package ledger_repo provides the PostgreSQL store of sales and orders.
package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockbi/internal/core/apperror"
	"stockbi/internal/core/id"
	"stockbi/internal/domain/ledger"
	"stockbi/internal/infrastructure/storage/postgres"
)

const tableName = "ledger_transactions"

var columns = postgres.ExtractDBColumns[ledger.Transaction]()

var _ ledger.Repository = (*TransactionRepo)(nil)

// TransactionRepo implements ledger.Repository on PostgreSQL.
type TransactionRepo struct {
	txManager *postgres.TxManager
}

// NewTransactionRepo creates a new transaction repository.
func NewTransactionRepo(txManager *postgres.TxManager) *TransactionRepo {
	return &TransactionRepo{txManager: txManager}
}

func (r *TransactionRepo) Create(ctx context.Context, t *ledger.Transaction) error {
	sql, args, err := postgres.Builder().
		Insert(tableName).
		Columns(columns...).
		Values(postgres.Pick(postgres.StructToMap(t), columns)...).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate(string(t.Kind), "id", t.ID.String()).WithCause(err)
		}
		return fmt.Errorf("insert %s: %w", t.Kind, err)
	}
	return nil
}

func (r *TransactionRepo) Update(ctx context.Context, t *ledger.Transaction) error {
	sql, args, err := updateQuery(t).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapLockConflict(fmt.Errorf("update %s: %w", t.Kind, err), string(t.Kind), t.ID)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(string(t.Kind), t.ID)
	}
	return nil
}

// updateQuery writes every mutable column, guarded by the previous version.
func updateQuery(t *ledger.Transaction) squirrel.UpdateBuilder {
	data := postgres.StructToMap(t)
	q := postgres.Builder().Update(tableName)
	for _, col := range columns {
		switch col {
		case "id", "kind", "created_at":
			continue
		}
		q = q.Set(col, data[col])
	}
	return q.
		Where(squirrel.Eq{"id": t.ID}).
		Where(squirrel.Eq{"version": t.Version - 1})
}

func (r *TransactionRepo) GetByID(ctx context.Context, txID id.ID) (*ledger.Transaction, error) {
	return r.get(ctx, txID, selectByID(txID, false))
}

func (r *TransactionRepo) GetForUpdate(ctx context.Context, txID id.ID) (*ledger.Transaction, error) {
	t, err := r.get(ctx, txID, selectByID(txID, true))
	if err != nil {
		return nil, postgres.MapLockConflict(err, "transaction", txID)
	}
	return t, nil
}

func selectByID(txID id.ID, forUpdate bool) squirrel.SelectBuilder {
	q := postgres.Builder().
		Select(columns...).
		From(tableName).
		Where(squirrel.Eq{"id": txID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	return q
}

func (r *TransactionRepo) get(ctx context.Context, txID id.ID, q squirrel.SelectBuilder) (*ledger.Transaction, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var t ledger.Transaction
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &t, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("transaction", txID)
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &t, nil
}

func (r *TransactionRepo) List(ctx context.Context, filter ledger.ListFilter) ([]*ledger.Transaction, error) {
	sql, args, err := listQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*ledger.Transaction
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

func listQuery(filter ledger.ListFilter) squirrel.SelectBuilder {
	q := postgres.Builder().
		Select(columns...).
		From(tableName)

	if filter.Kind != "" {
		q = q.Where(squirrel.Eq{"kind": filter.Kind})
	}
	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.ActiveFrom != nil && filter.ActiveTo != nil {
		from, to := *filter.ActiveFrom, *filter.ActiveTo
		q = q.Where(squirrel.Or{
			squirrel.Expr("sale_date BETWEEN ? AND ?", from, to),
			squirrel.Expr("delivery_date BETWEEN ? AND ?", from, to),
			squirrel.Expr("payment_date BETWEEN ? AND ?", from, to),
			squirrel.And{
				squirrel.Eq{"sale_date": nil},
				squirrel.GtOrEq{"created_at": from},
				squirrel.Lt{"created_at": to.AddDate(0, 0, 1)},
			},
		})
	}

	// UUIDv7 ids sort by creation time.
	q = q.OrderBy("id")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q
}
