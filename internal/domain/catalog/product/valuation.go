package product

import (
	"strings"

	"github.com/google/uuid"

	"stockbi/internal/core/apperror"
	"stockbi/internal/core/id"
	"stockbi/internal/core/types"
)

// InternalCodePrefix starts every generated product code.
const InternalCodePrefix = "PROD-"

// GenerateInternalCode returns PROD- followed by 8 uppercase hex digits.
// The digits come from a random (v4) UUID.
func GenerateInternalCode() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return InternalCodePrefix + strings.ToUpper(hex[:8])
}

// ApplyDelta computes the valuation after adding delta units without a cost.
// A result of zero units resets the average cost.
func ApplyDelta(productID id.ID, qty int64, avg types.Money, delta int64) (int64, types.Money, error) {
	next := qty + delta
	if next < 0 {
		return qty, avg, apperror.NewInsufficientStock(productID.String(), -delta, qty)
	}
	if next == 0 {
		return 0, types.Zero(), nil
	}
	return next, avg, nil
}

// WeightedAverage folds a purchase of quantity units at unitCost into the
// running average: (avg*qty + cost*q) / (qty+q), rounded to CostScale.
func WeightedAverage(productID id.ID, qty int64, avg types.Money, unitCost types.Money, quantity int64) (int64, types.Money, error) {
	if unitCost.IsNegative() {
		return qty, avg, apperror.NewValidation("unit cost cannot be negative").WithDetail("field", "unitCost")
	}

	next := qty + quantity
	if next < 0 {
		return qty, avg, apperror.NewInsufficientStock(productID.String(), -quantity, qty)
	}
	if next == 0 {
		return 0, types.Zero(), nil
	}

	total := avg.Mul(types.FromQuantity(qty)).Add(unitCost.Mul(types.FromQuantity(quantity)))
	if total.IsNegative() {
		// Only a withdrawal (quantity < 0) priced above the stock value gets here.
		return qty, avg, apperror.NewValidation("correction exceeds the stock value").
			WithDetail("field", "unitCost").
			WithDetail("stockValue", avg.Mul(types.FromQuantity(qty)).String())
	}
	return next, types.RoundCost(total.Div(types.FromQuantity(next))), nil
}
