package dto

import (
	"time"

	"stockbi/internal/core/id"
	"stockbi/internal/core/types"
	"stockbi/internal/domain/ledger"
)

// SaveTransactionRequest creates a sale/order or replaces its fields.
// Dates use YYYY-MM-DD.
type SaveTransactionRequest struct {
	ProductID           string      `json:"productId" binding:"required"`
	CounterpartyID      *string     `json:"counterpartyId,omitempty"`
	SupplierProductCode *string     `json:"supplierProductCode,omitempty"`
	SaleDate            *string     `json:"saleDate,omitempty"`
	DeliveryDate        *string     `json:"deliveryDate,omitempty"`
	PaymentDate         *string     `json:"paymentDate,omitempty"`
	Quantity            int64       `json:"quantity"`
	UnitPrice           types.Money `json:"unitPrice"`
	Cancel              bool        `json:"cancel,omitempty"`

	// Version, when set on update, must match the stored version.
	Version int `json:"version,omitempty"`
}

// ToInput converts the request; txID is nil on create.
func (r *SaveTransactionRequest) ToInput(kind ledger.Kind, txID *id.ID) (ledger.SaveInput, error) {
	productID, err := parseID("productId", r.ProductID)
	if err != nil {
		return ledger.SaveInput{}, err
	}
	counterpartyID, err := parseOptionalID("counterpartyId", r.CounterpartyID)
	if err != nil {
		return ledger.SaveInput{}, err
	}
	saleDate, err := parseDate("saleDate", r.SaleDate)
	if err != nil {
		return ledger.SaveInput{}, err
	}
	deliveryDate, err := parseDate("deliveryDate", r.DeliveryDate)
	if err != nil {
		return ledger.SaveInput{}, err
	}
	paymentDate, err := parseDate("paymentDate", r.PaymentDate)
	if err != nil {
		return ledger.SaveInput{}, err
	}

	return ledger.SaveInput{
		ID:                  txID,
		ExpectedVersion:     r.Version,
		Kind:                kind,
		ProductID:           productID,
		CounterpartyID:      counterpartyID,
		SupplierProductCode: r.SupplierProductCode,
		SaleDate:            saleDate,
		DeliveryDate:        deliveryDate,
		PaymentDate:         paymentDate,
		Quantity:            r.Quantity,
		UnitPrice:           r.UnitPrice,
		Cancel:              r.Cancel,
	}, nil
}

// TransactionListQuery holds ledger list filters.
type TransactionListQuery struct {
	PageQuery
	ProductID string `form:"productId"`
	Status    string `form:"status"`
	From      string `form:"from"`
	To        string `form:"to"`
}

// ToFilter converts the query to a repository filter for kind.
func (q *TransactionListQuery) ToFilter(kind ledger.Kind) (ledger.ListFilter, error) {
	q.Defaults()
	productID, err := parseOptionalID("productId", &q.ProductID)
	if err != nil {
		return ledger.ListFilter{}, err
	}
	from, err := parseDate("from", &q.From)
	if err != nil {
		return ledger.ListFilter{}, err
	}
	to, err := parseDate("to", &q.To)
	if err != nil {
		return ledger.ListFilter{}, err
	}
	if (from == nil) != (to == nil) {
		from, to = openRange(from, to)
	}

	return ledger.ListFilter{
		Kind:       kind,
		ProductID:  productID,
		Status:     ledger.Status(q.Status),
		ActiveFrom: from,
		ActiveTo:   to,
		Limit:      q.Limit,
		Offset:     q.Offset,
	}, nil
}

// openRange closes a half-open window so the activity filter applies.
func openRange(from, to *time.Time) (*time.Time, *time.Time) {
	if from == nil {
		start := time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
		return &start, to
	}
	end := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	return from, &end
}

// TransactionResponse represents a sale or order.
type TransactionResponse struct {
	ID                  string      `json:"id"`
	Kind                string      `json:"kind"`
	ProductID           string      `json:"productId"`
	CounterpartyID      *string     `json:"counterpartyId,omitempty"`
	SupplierProductCode *string     `json:"supplierProductCode,omitempty"`
	SaleDate            *string     `json:"saleDate,omitempty"`
	DeliveryDate        *string     `json:"deliveryDate,omitempty"`
	PaymentDate         *string     `json:"paymentDate,omitempty"`
	Quantity            int64       `json:"quantity"`
	UnitPrice           types.Money `json:"unitPrice"`
	Total               types.Money `json:"total"`
	Status              string      `json:"status"`
	StockApplied        bool        `json:"stockApplied"`
	Version             int         `json:"version"`
	CreatedAt           time.Time   `json:"createdAt"`
	UpdatedAt           time.Time   `json:"updatedAt"`
}

// FromTransaction maps a domain transaction.
func FromTransaction(t *ledger.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:                  t.ID.String(),
		Kind:                string(t.Kind),
		ProductID:           t.ProductID.String(),
		SupplierProductCode: t.SupplierProductCode,
		SaleDate:            types.FormatDatePtr(t.SaleDate),
		DeliveryDate:        types.FormatDatePtr(t.DeliveryDate),
		PaymentDate:         types.FormatDatePtr(t.PaymentDate),
		Quantity:            t.Quantity,
		UnitPrice:           t.UnitPrice,
		Total:               t.Total(),
		Status:              string(t.Status),
		StockApplied:        t.StockApplied,
		Version:             t.Version,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
	if t.CounterpartyID != nil {
		s := t.CounterpartyID.String()
		resp.CounterpartyID = &s
	}
	return resp
}
