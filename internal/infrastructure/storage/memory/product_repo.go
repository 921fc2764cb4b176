package memory

import (
	"context"
	"sort"
	"strings"

	"stockbi/internal/core/apperror"
	"stockbi/internal/core/id"
	"stockbi/internal/core/types"
	"stockbi/internal/domain/catalog/product"
)

var _ product.Repository = (*ProductRepo)(nil)

// ProductRepo implements product.Repository.
type ProductRepo struct {
	db *DB
}

// NewProductRepo creates a product repository.
func NewProductRepo(db *DB) *ProductRepo {
	return &ProductRepo{db: db}
}

func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	return r.db.write(ctx, func() error {
		if _, ok := r.db.codes[p.InternalCode]; ok {
			return apperror.NewDuplicate("product", "internal_code", p.InternalCode)
		}
		if _, ok := r.db.products[p.ID]; ok {
			return apperror.NewDuplicate("product", "id", p.ID.String())
		}
		r.db.products[p.ID] = *p
		r.db.codes[p.InternalCode] = p.ID
		return nil
	})
}

func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	var (
		p  product.Product
		ok bool
	)
	r.db.read(ctx, func() {
		p, ok = r.db.products[productID]
	})
	if !ok {
		return nil, apperror.NewNotFound("product", productID)
	}
	return &p, nil
}

// GetForUpdate is GetByID: the transaction already holds the write lock.
func (r *ProductRepo) GetForUpdate(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.GetByID(ctx, productID)
}

func (r *ProductRepo) Update(ctx context.Context, p *product.Product) error {
	return r.db.write(ctx, func() error {
		stored, ok := r.db.products[p.ID]
		if !ok {
			return apperror.NewNotFound("product", p.ID)
		}
		next := *p
		next.InternalCode = stored.InternalCode
		next.StockQuantity = stored.StockQuantity
		next.AveragePurchasePrice = stored.AveragePurchasePrice
		r.db.products[p.ID] = next
		return nil
	})
}

func (r *ProductRepo) UpdateValuation(ctx context.Context, productID id.ID, quantity int64, averageCost types.Money) error {
	return r.db.write(ctx, func() error {
		stored, ok := r.db.products[productID]
		if !ok {
			return apperror.NewNotFound("product", productID)
		}
		stored.StockQuantity = quantity
		stored.AveragePurchasePrice = averageCost
		stored.Touch()
		r.db.products[productID] = stored
		return nil
	})
}

func (r *ProductRepo) List(ctx context.Context, filter product.ListFilter) ([]*product.Product, error) {
	search := strings.ToLower(filter.Search)

	var out []*product.Product
	r.db.read(ctx, func() {
		for _, p := range r.db.products {
			if search != "" &&
				!strings.Contains(strings.ToLower(p.Name), search) &&
				!strings.Contains(strings.ToLower(p.InternalCode), search) {
				continue
			}
			if filter.CategoryID != nil && (p.CategoryID == nil || *p.CategoryID != *filter.CategoryID) {
				continue
			}
			if filter.Kind != "" && p.Kind != filter.Kind {
				continue
			}
			if filter.InStockOnly && p.StockQuantity <= 0 {
				continue
			}
			p := p
			out = append(out, &p)
		}
	})

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return paginate(out, filter.Offset, filter.Limit), nil
}

func (r *ProductRepo) CreateCategory(ctx context.Context, c *product.Category) error {
	return r.db.write(ctx, func() error {
		if _, ok := r.db.categories[c.ID]; ok {
			return apperror.NewDuplicate("category", "id", c.ID.String())
		}
		r.db.categories[c.ID] = *c
		return nil
	})
}

func (r *ProductRepo) GetCategory(ctx context.Context, categoryID id.ID) (*product.Category, error) {
	var (
		c  product.Category
		ok bool
	)
	r.db.read(ctx, func() {
		c, ok = r.db.categories[categoryID]
	})
	if !ok {
		return nil, apperror.NewNotFound("category", categoryID)
	}
	return &c, nil
}

func (r *ProductRepo) ListCategories(ctx context.Context) ([]*product.Category, error) {
	var out []*product.Category
	r.db.read(ctx, func() {
		for _, c := range r.db.categories {
			c := c
			out = append(out, &c)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
