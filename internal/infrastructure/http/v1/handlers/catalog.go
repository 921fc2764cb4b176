package handlers

import (
	"github.com/gin-gonic/gin"

	"stockbi/internal/domain/catalog/product"
	"stockbi/internal/infrastructure/http/v1/dto"
)

// CatalogHandler serves categories, products and valuations.
type CatalogHandler struct {
	*BaseHandler
	service *product.Service
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(base *BaseHandler, service *product.Service) *CatalogHandler {
	return &CatalogHandler{BaseHandler: base, service: service}
}

// CreateCategory handles POST /categories.
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req dto.CreateCategoryRequest
	if !h.BindJSON(c, &req) {
		return
	}
	parentID, err := req.ParentUUID()
	if err != nil {
		h.Error(c, err)
		return
	}

	cat, err := h.service.CreateCategory(c.Request.Context(), req.Name, parentID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromCategory(cat))
}

// ListCategories handles GET /categories.
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	cats, err := h.service.ListCategories(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	items := make([]dto.CategoryResponse, len(cats))
	for i, cat := range cats {
		items[i] = dto.FromCategory(cat)
	}
	h.OK(c, dto.NewListResponse(items, len(items), 0))
}

// CreateProduct handles POST /products.
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req dto.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	p, err := h.service.Create(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromProduct(p))
}

// ListProducts handles GET /products.
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	var q dto.ProductListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	products, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	items := make([]dto.ProductResponse, len(products))
	for i, p := range products {
		items[i] = dto.FromProduct(p)
	}
	h.OK(c, dto.NewListResponse(items, filter.Limit, filter.Offset))
}

// GetProduct handles GET /products/:id.
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	productID, ok := h.PathID(c)
	if !ok {
		return
	}
	p, err := h.service.Get(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromProduct(p))
}

// UpdateProduct handles PATCH /products/:id. Stock quantity, cost and the
// internal code are not editable here.
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	productID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.UpdateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	p, err := h.service.UpdateDetails(c.Request.Context(), productID, in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromProduct(p))
}

// GetValuation handles GET /products/:id/valuation.
func (h *CatalogHandler) GetValuation(c *gin.Context) {
	productID, ok := h.PathID(c)
	if !ok {
		return
	}
	v, err := h.service.GetCurrentValuation(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromValuation(v))
}
