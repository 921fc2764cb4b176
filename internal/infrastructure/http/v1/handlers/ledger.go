package handlers

import (
	"github.com/gin-gonic/gin"

	"stockbi/internal/domain/ledger"
	"stockbi/internal/infrastructure/http/v1/dto"
)

// LedgerHandler serves one transaction kind (sales or orders).
type LedgerHandler struct {
	*BaseHandler
	service *ledger.Service
	kind    ledger.Kind
}

// NewLedgerHandler creates a handler bound to kind.
func NewLedgerHandler(base *BaseHandler, service *ledger.Service, kind ledger.Kind) *LedgerHandler {
	return &LedgerHandler{BaseHandler: base, service: service, kind: kind}
}

// Create handles POST /{sales|orders}.
func (h *LedgerHandler) Create(c *gin.Context) {
	var req dto.SaveTransactionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput(h.kind, nil)
	if err != nil {
		h.Error(c, err)
		return
	}

	t, err := h.service.Save(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromTransaction(t))
}

// Update handles PUT /{sales|orders}/:id. The body replaces every field.
func (h *LedgerHandler) Update(c *gin.Context) {
	txID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.SaveTransactionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput(h.kind, &txID)
	if err != nil {
		h.Error(c, err)
		return
	}

	t, err := h.service.Save(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromTransaction(t))
}

// Get handles GET /{sales|orders}/:id.
func (h *LedgerHandler) Get(c *gin.Context) {
	txID, ok := h.PathID(c)
	if !ok {
		return
	}
	t, err := h.service.Get(c.Request.Context(), h.kind, txID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromTransaction(t))
}

// List handles GET /{sales|orders}.
func (h *LedgerHandler) List(c *gin.Context) {
	var q dto.TransactionListQuery
	if !h.BindQuery(c, &q) {
		return
	}
	filter, err := q.ToFilter(h.kind)
	if err != nil {
		h.Error(c, err)
		return
	}

	txs, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	items := make([]dto.TransactionResponse, len(txs))
	for i, t := range txs {
		items[i] = dto.FromTransaction(t)
	}
	h.OK(c, dto.NewListResponse(items, filter.Limit, filter.Offset))
}
