// Package catalog_repo provides the PostgreSQL product and category store.
package catalog_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockbi/internal/core/apperror"
	"stockbi/internal/core/id"
	"stockbi/internal/core/types"
	"stockbi/internal/domain/catalog/product"
	"stockbi/internal/infrastructure/storage/postgres"
)

const (
	productsTable   = "products"
	categoriesTable = "categories"
)

var (
	productColumns  = postgres.ExtractDBColumns[product.Product]()
	categoryColumns = postgres.ExtractDBColumns[product.Category]()
)

var _ product.Repository = (*ProductRepo)(nil)

// ProductRepo implements product.Repository on PostgreSQL.
type ProductRepo struct {
	txManager *postgres.TxManager
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txManager *postgres.TxManager) *ProductRepo {
	return &ProductRepo{txManager: txManager}
}

func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	sql, args, err := insertProductQuery(p).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate("product", "internal_code", p.InternalCode).WithCause(err)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func insertProductQuery(p *product.Product) squirrel.InsertBuilder {
	return postgres.Builder().
		Insert(productsTable).
		Columns(productColumns...).
		Values(postgres.Pick(postgres.StructToMap(p), productColumns)...)
}

func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.get(ctx, productID, selectProduct(productID, false))
}

// GetForUpdate takes a row lock held until the surrounding transaction ends.
func (r *ProductRepo) GetForUpdate(ctx context.Context, productID id.ID) (*product.Product, error) {
	p, err := r.get(ctx, productID, selectProduct(productID, true))
	if err != nil {
		return nil, postgres.MapLockConflict(err, "product", productID)
	}
	return p, nil
}

func selectProduct(productID id.ID, forUpdate bool) squirrel.SelectBuilder {
	q := postgres.Builder().
		Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"id": productID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	return q
}

func (r *ProductRepo) get(ctx context.Context, productID id.ID, q squirrel.SelectBuilder) (*product.Product, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p product.Product
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", productID)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// Update writes catalog details only; code and valuation columns are never touched.
func (r *ProductRepo) Update(ctx context.Context, p *product.Product) error {
	sql, args, err := updateProductQuery(p).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("product", p.ID)
	}
	return nil
}

func updateProductQuery(p *product.Product) squirrel.UpdateBuilder {
	return postgres.Builder().
		Update(productsTable).
		SetMap(map[string]any{
			"name":        p.Name,
			"category_id": p.CategoryID,
			"kind":        p.Kind,
			"unit_price":  p.UnitPrice,
			"is_visible":  p.IsVisible,
			"description": p.Description,
			"image_url":   p.ImageURL,
			"version":     p.Version,
			"updated_at":  p.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": p.ID})
}

func (r *ProductRepo) UpdateValuation(ctx context.Context, productID id.ID, quantity int64, averageCost types.Money) error {
	sql, args, err := updateValuationQuery(productID, quantity, averageCost, time.Now().UTC()).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return postgres.MapLockConflict(fmt.Errorf("update valuation: %w", err), "product", productID)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("product", productID)
	}
	return nil
}

func updateValuationQuery(productID id.ID, quantity int64, averageCost types.Money, now time.Time) squirrel.UpdateBuilder {
	return postgres.Builder().
		Update(productsTable).
		Set("stock_quantity", quantity).
		Set("average_purchase_price", averageCost).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", now).
		Where(squirrel.Eq{"id": productID})
}

func (r *ProductRepo) List(ctx context.Context, filter product.ListFilter) ([]*product.Product, error) {
	sql, args, err := listProductsQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*product.Product
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

func listProductsQuery(filter product.ListFilter) squirrel.SelectBuilder {
	q := postgres.Builder().
		Select(productColumns...).
		From(productsTable)

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"internal_code": pattern},
		})
	}
	if filter.CategoryID != nil {
		q = q.Where(squirrel.Eq{"category_id": *filter.CategoryID})
	}
	if filter.Kind != "" {
		q = q.Where(squirrel.Eq{"kind": filter.Kind})
	}
	if filter.InStockOnly {
		q = q.Where(squirrel.Gt{"stock_quantity": 0})
	}

	q = q.OrderBy("name", "id")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q
}

func (r *ProductRepo) CreateCategory(ctx context.Context, c *product.Category) error {
	sql, args, err := postgres.Builder().
		Insert(categoriesTable).
		Columns(categoryColumns...).
		Values(postgres.Pick(postgres.StructToMap(c), categoryColumns)...).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate("category", "id", c.ID.String()).WithCause(err)
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *ProductRepo) GetCategory(ctx context.Context, categoryID id.ID) (*product.Category, error) {
	sql, args, err := postgres.Builder().
		Select(categoryColumns...).
		From(categoriesTable).
		Where(squirrel.Eq{"id": categoryID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var c product.Category
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &c, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("category", categoryID)
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

func (r *ProductRepo) ListCategories(ctx context.Context) ([]*product.Category, error) {
	sql, args, err := postgres.Builder().
		Select(categoryColumns...).
		From(categoriesTable).
		OrderBy("name", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var out []*product.Category
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}
