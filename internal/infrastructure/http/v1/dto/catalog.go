package dto

import (
	"time"

	"stockbi/internal/core/id"
	"stockbi/internal/core/types"
	"stockbi/internal/domain/catalog/product"
)

// --- Categories ---

// CreateCategoryRequest represents a request to create a category.
type CreateCategoryRequest struct {
	Name     string  `json:"name" binding:"required"`
	ParentID *string `json:"parentId,omitempty"`
}

// ParentUUID parses the optional parent id.
func (r *CreateCategoryRequest) ParentUUID() (*id.ID, error) {
	return parseOptionalID("parentId", r.ParentID)
}

// CategoryResponse represents a category.
type CategoryResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parentId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// FromCategory maps a domain category.
func FromCategory(c *product.Category) CategoryResponse {
	resp := CategoryResponse{ID: c.ID.String(), Name: c.Name, CreatedAt: c.CreatedAt}
	if c.ParentID != nil {
		s := c.ParentID.String()
		resp.ParentID = &s
	}
	return resp
}

// --- Products ---

// CreateProductRequest represents a request to create a product.
type CreateProductRequest struct {
	Name        string      `json:"name" binding:"required"`
	CategoryID  *string     `json:"categoryId,omitempty"`
	Kind        string      `json:"kind,omitempty"`
	UnitPrice   types.Money `json:"unitPrice"`
	IsVisible   bool        `json:"isVisible"`
	Description *string     `json:"description,omitempty"`
	ImageURL    *string     `json:"imageUrl,omitempty"`
}

// ToInput converts the request to service input.
func (r *CreateProductRequest) ToInput() (product.CreateInput, error) {
	categoryID, err := parseOptionalID("categoryId", r.CategoryID)
	if err != nil {
		return product.CreateInput{}, err
	}
	return product.CreateInput{
		Name:        r.Name,
		CategoryID:  categoryID,
		Kind:        product.Kind(r.Kind),
		UnitPrice:   r.UnitPrice,
		IsVisible:   r.IsVisible,
		Description: r.Description,
		ImageURL:    r.ImageURL,
	}, nil
}

// UpdateProductRequest carries editable details; absent fields stay unchanged.
type UpdateProductRequest struct {
	Name        *string      `json:"name,omitempty"`
	CategoryID  *string      `json:"categoryId,omitempty"`
	UnitPrice   *types.Money `json:"unitPrice,omitempty"`
	IsVisible   *bool        `json:"isVisible,omitempty"`
	Description *string      `json:"description,omitempty"`
	ImageURL    *string      `json:"imageUrl,omitempty"`
}

// ToInput converts the request to service input.
func (r *UpdateProductRequest) ToInput() (product.UpdateInput, error) {
	categoryID, err := parseOptionalID("categoryId", r.CategoryID)
	if err != nil {
		return product.UpdateInput{}, err
	}
	return product.UpdateInput{
		Name:        r.Name,
		CategoryID:  categoryID,
		UnitPrice:   r.UnitPrice,
		IsVisible:   r.IsVisible,
		Description: r.Description,
		ImageURL:    r.ImageURL,
	}, nil
}

// ProductListQuery holds product list filters.
type ProductListQuery struct {
	PageQuery
	Search      string `form:"search"`
	CategoryID  string `form:"categoryId"`
	Kind        string `form:"kind"`
	InStockOnly bool   `form:"inStock"`
}

// ToFilter converts the query to a repository filter.
func (q *ProductListQuery) ToFilter() (product.ListFilter, error) {
	q.Defaults()
	categoryID, err := parseOptionalID("categoryId", &q.CategoryID)
	if err != nil {
		return product.ListFilter{}, err
	}
	return product.ListFilter{
		Search:      q.Search,
		CategoryID:  categoryID,
		Kind:        product.Kind(q.Kind),
		InStockOnly: q.InStockOnly,
		Limit:       q.Limit,
		Offset:      q.Offset,
	}, nil
}

// ProductResponse represents a product with its valuation.
type ProductResponse struct {
	ID                   string      `json:"id"`
	InternalCode         string      `json:"internalCode"`
	Name                 string      `json:"name"`
	CategoryID           *string     `json:"categoryId,omitempty"`
	Kind                 string      `json:"kind"`
	StockQuantity        int64       `json:"stockQuantity"`
	AveragePurchasePrice types.Money `json:"averagePurchasePrice"`
	UnitPrice            types.Money `json:"unitPrice"`
	IsVisible            bool        `json:"isVisible"`
	Description          *string     `json:"description,omitempty"`
	ImageURL             *string     `json:"imageUrl,omitempty"`
	Version              int         `json:"version"`
	CreatedAt            time.Time   `json:"createdAt"`
	UpdatedAt            time.Time   `json:"updatedAt"`
}

// FromProduct maps a domain product.
func FromProduct(p *product.Product) ProductResponse {
	resp := ProductResponse{
		ID:                   p.ID.String(),
		InternalCode:         p.InternalCode,
		Name:                 p.Name,
		Kind:                 string(p.Kind),
		StockQuantity:        p.StockQuantity,
		AveragePurchasePrice: p.AveragePurchasePrice,
		UnitPrice:            p.UnitPrice,
		IsVisible:            p.IsVisible,
		Description:          p.Description,
		ImageURL:             p.ImageURL,
		Version:              p.Version,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
	if p.CategoryID != nil {
		s := p.CategoryID.String()
		resp.CategoryID = &s
	}
	return resp
}

// ValuationResponse is the current stock state of a product.
type ValuationResponse struct {
	ProductID   string      `json:"productId"`
	Quantity    int64       `json:"quantity"`
	AverageCost types.Money `json:"averageCost"`
}

// FromValuation maps a domain valuation.
func FromValuation(v product.Valuation) ValuationResponse {
	return ValuationResponse{
		ProductID:   v.ProductID.String(),
		Quantity:    v.Quantity,
		AverageCost: v.AverageCost,
	}
}
