// Package ledger records sales and purchase orders and keeps product
// valuations in step with their status transitions.
package ledger

import (
	"context"
	"time"

	"stockbi/internal/core/apperror"
	"stockbi/internal/core/entity"
	"stockbi/internal/core/id"
	"stockbi/internal/core/types"
)

// Kind discriminates the two transaction shapes.
type Kind string

const (
	KindSale  Kind = "sale"
	KindOrder Kind = "order"
)

// Valid reports whether k is known.
func (k Kind) Valid() bool {
	return k == KindSale || k == KindOrder
}

// Dates groups the lifecycle dates that drive status inference.
type Dates struct {
	SaleDate     *time.Time
	DeliveryDate *time.Time
	PaymentDate  *time.Time
}

// Validate checks date ordering: sale <= delivery and payment >= sale.
func (d Dates) Validate() error {
	if d.SaleDate != nil && d.DeliveryDate != nil && d.SaleDate.After(*d.DeliveryDate) {
		return apperror.NewValidation("sale date cannot be after delivery date").
			WithDetail("field", "deliveryDate")
	}
	if d.SaleDate != nil && d.PaymentDate != nil && d.PaymentDate.Before(*d.SaleDate) {
		return apperror.NewValidation("payment date cannot be before sale date").
			WithDetail("field", "paymentDate")
	}
	return nil
}

// Transaction is a sale (stock leaves) or a purchase order (stock arrives).
type Transaction struct {
	entity.BaseEntity

	Kind      Kind  `db:"kind" json:"kind"`
	ProductID id.ID `db:"product_id" json:"productId"`

	// CounterpartyID is the customer of a sale or the supplier of an order.
	CounterpartyID *id.ID `db:"counterparty_id" json:"counterpartyId,omitempty"`

	// SupplierProductCode is the supplier's own code for the product (orders only).
	SupplierProductCode *string `db:"supplier_product_code" json:"supplierProductCode,omitempty"`

	SaleDate     *time.Time `db:"sale_date" json:"saleDate,omitempty"`
	DeliveryDate *time.Time `db:"delivery_date" json:"deliveryDate,omitempty"`
	PaymentDate  *time.Time `db:"payment_date" json:"paymentDate,omitempty"`

	Quantity  int64       `db:"quantity" json:"quantity"`
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`
	Status    Status      `db:"status" json:"status"`

	// StockApplied records whether this transaction's stock effect is
	// currently reflected in the product valuation.
	StockApplied bool `db:"stock_applied" json:"stockApplied"`
}

// Dates returns the lifecycle dates.
func (t *Transaction) Dates() Dates {
	return Dates{SaleDate: t.SaleDate, DeliveryDate: t.DeliveryDate, PaymentDate: t.PaymentDate}
}

// Total is quantity times unit price.
func (t *Transaction) Total() types.Money {
	return types.FromQuantity(t.Quantity).Mul(t.UnitPrice)
}

// IsCancelled reports whether the transaction is cancelled.
func (t *Transaction) IsCancelled() bool {
	return t.Status == StatusCancelled
}

// AnchorDate is the date a transaction is bucketed by in period rollups:
// the sale date, or the creation date while no sale date is set.
func (t *Transaction) AnchorDate() time.Time {
	if t.SaleDate != nil {
		return types.DateOf(*t.SaleDate)
	}
	return types.DateOf(t.CreatedAt)
}

// Validate checks record-level invariants.
func (t *Transaction) Validate(_ context.Context) error {
	if !t.Kind.Valid() {
		return apperror.NewValidation("unknown transaction kind").WithDetail("kind", string(t.Kind))
	}
	if t.Quantity <= 0 {
		return apperror.NewValidation("quantity must be positive").WithDetail("field", "quantity")
	}
	if t.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit price cannot be negative").WithDetail("field", "unitPrice")
	}
	if t.Kind == KindSale && t.SupplierProductCode != nil {
		return apperror.NewValidation("supplier product code applies to orders only").
			WithDetail("field", "supplierProductCode")
	}
	return t.Dates().Validate()
}

// DateField names a lifecycle date column.
type DateField string

const (
	DateFieldSale     DateField = "sale_date"
	DateFieldDelivery DateField = "delivery_date"
	DateFieldPayment  DateField = "payment_date"
)

// ListFilter narrows transaction listings. A zero Limit means no limit.
type ListFilter struct {
	Kind      Kind
	ProductID *id.ID
	Status    Status

	// ActiveFrom/ActiveTo select transactions touching the inclusive
	// window: any lifecycle date inside it, or an undated transaction
	// created inside it.
	ActiveFrom *time.Time
	ActiveTo   *time.Time

	Limit  int
	Offset int
}

// Touches reports whether t matches the activity window of f.
func (f ListFilter) Touches(t *Transaction) bool {
	if f.ActiveFrom == nil || f.ActiveTo == nil {
		return true
	}
	from, to := *f.ActiveFrom, *f.ActiveTo
	if t.SaleDate == nil && types.InRange(&t.CreatedAt, from, to) {
		return true
	}
	return types.InRange(t.SaleDate, from, to) ||
		types.InRange(t.DeliveryDate, from, to) ||
		types.InRange(t.PaymentDate, from, to)
}
