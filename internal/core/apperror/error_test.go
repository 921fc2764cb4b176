package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsAppError_Wrapped(t *testing.T) {
	base := NewInsufficientStock("p-1", 5, 2)
	wrapped := fmt.Errorf("adjust stock: %w", base)

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeInsufficientStock, appErr.Code)
	assert.Equal(t, int64(5), appErr.Details["requested"])
	assert.Equal(t, int64(2), appErr.Details["available"])
	assert.True(t, IsInsufficientStock(wrapped))
	assert.False(t, IsValidation(wrapped))
}

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewValidation("bad"), http.StatusBadRequest},
		{"not found", NewNotFound("product", "x"), http.StatusNotFound},
		{"stock", NewInsufficientStock("x", 1, 0), http.StatusUnprocessableEntity},
		{"conflict", NewConcurrentModification("product", "x"), http.StatusConflict},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPStatus(tt.err))
		})
	}
}

func TestNewAggregationCompute_UnwrapsCause(t *testing.T) {
	cause := errors.New("db down")
	err := NewAggregationCompute("sales", "month", "2024-03", cause)

	assert.True(t, IsAggregationCompute(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "sales month:2024-03")
}
