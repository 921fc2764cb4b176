// Package product provides the product catalog and its valuation store:
// stock quantity on hand and weighted-average purchase cost.
package product

import (
	"context"
	"strings"
	"time"

	"stockbi/internal/core/apperror"
	"stockbi/internal/core/entity"
	"stockbi/internal/core/id"
	"stockbi/internal/core/types"
)

// Kind distinguishes what a product row represents. Orders may purchase
// either kind; only goods can be sold.
type Kind string

const (
	KindGoods      Kind = "goods"
	KindIngredient Kind = "ingredient"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindGoods || k == KindIngredient
}

// Sellable reports whether sales may reference products of this kind.
func (k Kind) Sellable() bool {
	return k == KindGoods
}

// Product is a catalog item together with its current valuation.
type Product struct {
	entity.BaseEntity

	// InternalCode is generated once at creation and never changes.
	InternalCode string `db:"internal_code" json:"internalCode"`

	Name       string `db:"name" json:"name"`
	CategoryID *id.ID `db:"category_id" json:"categoryId,omitempty"`
	Kind       Kind   `db:"kind" json:"kind"`

	// StockQuantity is never negative.
	StockQuantity int64 `db:"stock_quantity" json:"stockQuantity"`

	// AveragePurchasePrice is zero whenever StockQuantity is zero.
	AveragePurchasePrice types.Money `db:"average_purchase_price" json:"averagePurchasePrice"`

	// UnitPrice is the list (sales) price.
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`

	IsVisible   bool    `db:"is_visible" json:"isVisible"`
	Description *string `db:"description" json:"description,omitempty"`
	ImageURL    *string `db:"image_url" json:"imageUrl,omitempty"`
}

// NewProduct creates a product with an empty valuation.
func NewProduct(name string, kind Kind) *Product {
	if kind == "" {
		kind = KindGoods
	}
	return &Product{
		BaseEntity:           entity.NewBaseEntity(),
		InternalCode:         GenerateInternalCode(),
		Name:                 strings.TrimSpace(name),
		Kind:                 kind,
		AveragePurchasePrice: types.Zero(),
		UnitPrice:            types.Zero(),
	}
}

// Validate checks catalog invariants.
func (p *Product) Validate(_ context.Context) error {
	if strings.TrimSpace(p.Name) == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if !p.Kind.Valid() {
		return apperror.NewValidation("unknown product kind").WithDetail("kind", string(p.Kind))
	}
	if p.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit price cannot be negative").WithDetail("field", "unitPrice")
	}
	if p.IsVisible && (!p.HasDescription() || !p.HasImage()) {
		return apperror.NewValidation("a visible product needs a description and an image").
			WithDetail("field", "isVisible")
	}
	return nil
}

// HasImage reports whether an image is attached.
func (p *Product) HasImage() bool {
	return p.ImageURL != nil && strings.TrimSpace(*p.ImageURL) != ""
}

// HasDescription reports whether a non-blank description is set.
func (p *Product) HasDescription() bool {
	return p.Description != nil && strings.TrimSpace(*p.Description) != ""
}

// StockValue is quantity on hand valued at average purchase cost.
func (p *Product) StockValue() types.Money {
	return types.FromQuantity(p.StockQuantity).Mul(p.AveragePurchasePrice)
}

// RetailValue is quantity on hand valued at list price.
func (p *Product) RetailValue() types.Money {
	return types.FromQuantity(p.StockQuantity).Mul(p.UnitPrice)
}

// Valuation is the point-in-time stock state of one product.
type Valuation struct {
	ProductID   id.ID       `json:"productId"`
	Quantity    int64       `json:"quantity"`
	AverageCost types.Money `json:"averageCost"`
}

// Category groups products; categories form a tree through ParentID.
type Category struct {
	ID        id.ID     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	ParentID  *id.ID    `db:"parent_id" json:"parentId,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewCategory creates a category.
func NewCategory(name string, parentID *id.ID) *Category {
	return &Category{
		ID:        id.New(),
		Name:      strings.TrimSpace(name),
		ParentID:  parentID,
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks category invariants.
func (c *Category) Validate(_ context.Context) error {
	if c.Name == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if c.ParentID != nil && *c.ParentID == c.ID {
		return apperror.NewValidation("category cannot be its own parent").WithDetail("field", "parentId")
	}
	return nil
}
