package aggregation

import (
	"context"
	"fmt"

	"stockbi/internal/core/period"
	"stockbi/internal/core/tx"
	"stockbi/internal/domain/catalog/product"
	"stockbi/internal/domain/ledger"
)

// Source loads the operational data a run needs.
type Source interface {
	Load(ctx context.Context, class Class, p period.Period) (*Dataset, error)
}

// RepositorySource reads products, categories and the transactions active
// in the period inside one read-only transaction of the operational store.
type RepositorySource struct {
	products  product.Repository
	ledger    ledger.Repository
	txManager tx.ReadOnlyManager
}

// NewRepositorySource creates a new source over the operational repositories.
func NewRepositorySource(products product.Repository, txs ledger.Repository, txManager tx.ReadOnlyManager) *RepositorySource {
	return &RepositorySource{products: products, ledger: txs, txManager: txManager}
}

// Load implements Source.
func (s *RepositorySource) Load(ctx context.Context, class Class, p period.Period) (*Dataset, error) {
	ds := &Dataset{}
	err := s.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		if ds.Products, err = s.products.List(ctx, product.ListFilter{}); err != nil {
			return fmt.Errorf("list products: %w", err)
		}
		if class == ClassInventory {
			if ds.Categories, err = s.products.ListCategories(ctx); err != nil {
				return fmt.Errorf("list categories: %w", err)
			}
		}

		filter := ledger.ListFilter{ActiveFrom: &p.Start, ActiveTo: &p.End}
		switch class {
		case ClassSales:
			filter.Kind = ledger.KindSale
		case ClassOrders:
			filter.Kind = ledger.KindOrder
		}
		if ds.Transactions, err = s.ledger.List(ctx, filter); err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ds, nil
}
