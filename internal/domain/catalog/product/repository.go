package product

import (
	"context"

	"stockbi/internal/core/id"
	"stockbi/internal/core/types"
)

// ListFilter narrows product listings. A zero Limit means no limit.
type ListFilter struct {
	Search      string
	CategoryID  *id.ID
	Kind        Kind
	InStockOnly bool

	Limit  int
	Offset int
}

// Repository defines product and category persistence.
// Implementations join the transaction carried by ctx when there is one.
type Repository interface {
	// Create inserts a product. A clash on internal_code returns a Duplicate AppError.
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, productID id.ID) (*Product, error)

	// GetForUpdate reads the product and locks its row until the transaction ends.
	GetForUpdate(ctx context.Context, productID id.ID) (*Product, error)

	// Update writes catalog details (never quantity, cost or code).
	Update(ctx context.Context, p *Product) error

	// UpdateValuation writes stock quantity and average cost.
	UpdateValuation(ctx context.Context, productID id.ID, quantity int64, averageCost types.Money) error

	List(ctx context.Context, filter ListFilter) ([]*Product, error)

	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, categoryID id.ID) (*Category, error)
	ListCategories(ctx context.Context) ([]*Category, error)
}
