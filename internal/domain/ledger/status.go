package ledger

// Status is derived from the populated lifecycle dates, except for
// cancelled which is set explicitly and never reverts.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSold      Status = "sold"
	StatusDelivered Status = "delivered"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every status.
var Statuses = []Status{StatusPending, StatusSold, StatusDelivered, StatusPaid, StatusCancelled}

// Valid reports whether s is known.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSold, StatusDelivered, StatusPaid, StatusCancelled:
		return true
	}
	return false
}

// InferStatus derives the status from the dates. The latest populated
// milestone wins; cancellation short-circuits everything.
func InferStatus(d Dates, explicitCancelled bool) Status {
	switch {
	case explicitCancelled:
		return StatusCancelled
	case d.PaymentDate != nil:
		return StatusPaid
	case d.DeliveryDate != nil:
		return StatusDelivered
	case d.SaleDate != nil:
		return StatusSold
	default:
		return StatusPending
	}
}
