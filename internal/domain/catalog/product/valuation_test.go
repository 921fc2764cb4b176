package product

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbi/internal/core/apperror"
	"stockbi/internal/core/id"
	"stockbi/internal/core/types"
)

func TestGenerateInternalCode_Format(t *testing.T) {
	re := regexp.MustCompile(`^PROD-[0-9A-F]{8}$`)
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		code := GenerateInternalCode()
		assert.Regexp(t, re, code)
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 90)
}

func TestWeightedAverage(t *testing.T) {
	pid := id.New()

	tests := []struct {
		name     string
		qty      int64
		avg      string
		cost     string
		quantity int64
		wantQty  int64
		wantAvg  string
	}{
		{"first purchase", 0, "0", "5", 10, 10, "5"},
		{"second purchase", 10, "5", "8", 5, 15, "6"},
		{"rounded to four places", 3, "1", "2", 4, 7, "1.5714"},
		{"free goods dilute cost", 10, "4", "0", 10, 20, "2"},
		{"withdrawal to zero resets", 5, "3", "3", -5, 0, "0"},
		{"withdrawal at cost keeps average", 10, "2", "2", -4, 6, "2"},
		{"withdrawal exactly at stock value", 10, "1", "2", -5, 5, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qty, avg, err := WeightedAverage(pid, tt.qty, types.MustMoney(tt.avg), types.MustMoney(tt.cost), tt.quantity)
			require.NoError(t, err)
			assert.Equal(t, tt.wantQty, qty)
			assert.Equal(t, tt.wantAvg, avg.String())
		})
	}
}

func TestWeightedAverage_Rejects(t *testing.T) {
	pid := id.New()

	_, _, err := WeightedAverage(pid, 2, types.MustMoney("1"), types.MustMoney("1"), -3)
	assert.True(t, apperror.IsInsufficientStock(err))

	_, _, err = WeightedAverage(pid, 2, types.MustMoney("1"), types.MustMoney("-1"), 3)
	assert.True(t, apperror.IsValidation(err))

	qty, avg, err := WeightedAverage(pid, 10, types.MustMoney("1"), types.MustMoney("5"), -8)
	assert.True(t, apperror.IsValidation(err), "got %v", err)
	assert.Equal(t, int64(10), qty)
	assert.Equal(t, "1", avg.String())
}

func TestApplyDelta(t *testing.T) {
	pid := id.New()

	qty, avg, err := ApplyDelta(pid, 10, types.MustMoney("6"), -4)
	require.NoError(t, err)
	assert.Equal(t, int64(6), qty)
	assert.Equal(t, "6", avg.String())

	qty, avg, err = ApplyDelta(pid, 6, types.MustMoney("6"), -6)
	require.NoError(t, err)
	assert.Equal(t, int64(0), qty)
	assert.True(t, avg.IsZero())

	qty, avg, err = ApplyDelta(pid, 3, types.MustMoney("6"), -5)
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Equal(t, int64(3), qty)
	assert.Equal(t, "6", avg.String())
}

func TestProduct_Validate(t *testing.T) {
	desc := "A fine widget"
	img := "https://img.example/w.png"

	tests := []struct {
		name    string
		mutate  func(p *Product)
		wantErr bool
	}{
		{"valid", func(p *Product) {}, false},
		{"blank name", func(p *Product) { p.Name = " " }, true},
		{"bad kind", func(p *Product) { p.Kind = "service" }, true},
		{"negative price", func(p *Product) { p.UnitPrice = types.MustMoney("-1") }, true},
		{"visible without image", func(p *Product) { p.IsVisible = true; p.Description = &desc }, true},
		{"visible with content", func(p *Product) { p.IsVisible = true; p.Description = &desc; p.ImageURL = &img }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProduct("Widget", KindGoods)
			tt.mutate(p)
			err := p.Validate(context.Background())
			if tt.wantErr {
				assert.True(t, apperror.IsValidation(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
