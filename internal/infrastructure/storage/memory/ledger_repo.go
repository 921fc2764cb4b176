package memory

import (
	"context"
	"sort"

	"stockbi/internal/core/apperror"
	"stockbi/internal/core/id"
	"stockbi/internal/domain/ledger"
)

var _ ledger.Repository = (*LedgerRepo)(nil)

// LedgerRepo implements ledger.Repository.
type LedgerRepo struct {
	db *DB
}

// NewLedgerRepo creates a ledger repository.
func NewLedgerRepo(db *DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

func (r *LedgerRepo) Create(ctx context.Context, t *ledger.Transaction) error {
	return r.db.write(ctx, func() error {
		if _, ok := r.db.transactions[t.ID]; ok {
			return apperror.NewDuplicate(string(t.Kind), "id", t.ID.String())
		}
		r.db.transactions[t.ID] = *t
		return nil
	})
}

func (r *LedgerRepo) Update(ctx context.Context, t *ledger.Transaction) error {
	return r.db.write(ctx, func() error {
		stored, ok := r.db.transactions[t.ID]
		if !ok {
			return apperror.NewNotFound(string(t.Kind), t.ID)
		}
		if stored.Version != t.Version-1 {
			return apperror.NewConcurrentModification(string(t.Kind), t.ID)
		}
		r.db.transactions[t.ID] = *t
		return nil
	})
}

func (r *LedgerRepo) GetByID(ctx context.Context, txID id.ID) (*ledger.Transaction, error) {
	var (
		t  ledger.Transaction
		ok bool
	)
	r.db.read(ctx, func() {
		t, ok = r.db.transactions[txID]
	})
	if !ok {
		return nil, apperror.NewNotFound("transaction", txID)
	}
	return &t, nil
}

// GetForUpdate is GetByID: the transaction already holds the write lock.
func (r *LedgerRepo) GetForUpdate(ctx context.Context, txID id.ID) (*ledger.Transaction, error) {
	return r.GetByID(ctx, txID)
}

func (r *LedgerRepo) List(ctx context.Context, filter ledger.ListFilter) ([]*ledger.Transaction, error) {
	var out []*ledger.Transaction
	r.db.read(ctx, func() {
		for _, t := range r.db.transactions {
			if filter.Kind != "" && t.Kind != filter.Kind {
				continue
			}
			if filter.ProductID != nil && t.ProductID != *filter.ProductID {
				continue
			}
			if filter.Status != "" && t.Status != filter.Status {
				continue
			}
			if !filter.Touches(&t) {
				continue
			}
			t := t
			out = append(out, &t)
		}
	})

	// UUIDv7 ids sort by creation time.
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.String() < out[j].ID.String()
	})
	return paginate(out, filter.Offset, filter.Limit), nil
}
