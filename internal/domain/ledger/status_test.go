package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInferStatus(t *testing.T) {
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		dates     Dates
		cancelled bool
		want      Status
	}{
		{"no dates", Dates{}, false, StatusPending},
		{"sale only", Dates{SaleDate: &d}, false, StatusSold},
		{"sale and delivery", Dates{SaleDate: &d, DeliveryDate: &d}, false, StatusDelivered},
		{"payment wins", Dates{SaleDate: &d, DeliveryDate: &d, PaymentDate: &d}, false, StatusPaid},
		{"payment without delivery", Dates{SaleDate: &d, PaymentDate: &d}, false, StatusPaid},
		{"delivery without sale", Dates{DeliveryDate: &d}, false, StatusDelivered},
		{"cancelled short-circuits", Dates{SaleDate: &d, PaymentDate: &d}, true, StatusCancelled},
		{"cancelled pending", Dates{}, true, StatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferStatus(tt.dates, tt.cancelled))
		})
	}
}

func TestDates_Validate(t *testing.T) {
	mar1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	mar5 := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	assert.NoError(t, Dates{SaleDate: &mar1, DeliveryDate: &mar5, PaymentDate: &mar5}.Validate())
	assert.NoError(t, Dates{SaleDate: &mar1, DeliveryDate: &mar1, PaymentDate: &mar1}.Validate())
	assert.Error(t, Dates{SaleDate: &mar5, DeliveryDate: &mar1}.Validate())
	assert.Error(t, Dates{SaleDate: &mar5, PaymentDate: &mar1}.Validate())
	assert.NoError(t, Dates{DeliveryDate: &mar1, PaymentDate: &mar1}.Validate())
}

func TestListFilter_Touches(t *testing.T) {
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	f := ListFilter{ActiveFrom: &from, ActiveTo: &to}

	feb := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	soldInFeb := &Transaction{SaleDate: &feb}
	soldFebPaidMar := &Transaction{SaleDate: &feb, PaymentDate: &mar}
	undatedCreatedMar := &Transaction{}
	undatedCreatedMar.CreatedAt = mar.Add(5 * time.Hour)

	assert.False(t, f.Touches(soldInFeb))
	assert.True(t, f.Touches(soldFebPaidMar))
	assert.True(t, f.Touches(undatedCreatedMar))
	assert.True(t, ListFilter{}.Touches(soldInFeb))
}
