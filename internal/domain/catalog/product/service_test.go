package product_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbi/internal/core/apperror"
	"stockbi/internal/core/id"
	"stockbi/internal/core/types"
	"stockbi/internal/domain/catalog/product"
	"stockbi/internal/infrastructure/storage/memory"
)

func newService(t *testing.T) *product.Service {
	t.Helper()
	db := memory.NewDB()
	return product.NewService(memory.NewProductRepo(db), memory.NewTxManager(db))
}

func TestService_RecordPurchaseThenAdjust(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	p, err := svc.Create(ctx, product.CreateInput{Name: "Widget", Kind: product.KindGoods})
	require.NoError(t, err)

	require.NoError(t, svc.RecordPurchase(ctx, p.ID, types.MustMoney("5"), 10))
	require.NoError(t, svc.RecordPurchase(ctx, p.ID, types.MustMoney("8"), 5))

	v, err := svc.GetCurrentValuation(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(15), v.Quantity)
	assert.Equal(t, "6", v.AverageCost.String())

	require.NoError(t, svc.AdjustStock(ctx, p.ID, -15))
	v, err = svc.GetCurrentValuation(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v.Quantity)
	assert.True(t, v.AverageCost.IsZero())
}

func TestService_AdjustStock_Oversell(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	p, err := svc.Create(ctx, product.CreateInput{Name: "Widget"})
	require.NoError(t, err)
	require.NoError(t, svc.RecordPurchase(ctx, p.ID, types.MustMoney("2"), 3))

	err = svc.AdjustStock(ctx, p.ID, -5)
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	v, err := svc.GetCurrentValuation(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v.Quantity)
	assert.Equal(t, "2", v.AverageCost.String())
}

func TestService_AdjustStock_UnknownProduct(t *testing.T) {
	svc := newService(t)
	err := svc.AdjustStock(context.Background(), id.New(), 1)
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_ConcurrentDecrementsNeverOversell(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	p, err := svc.Create(ctx, product.CreateInput{Name: "Widget"})
	require.NoError(t, err)
	require.NoError(t, svc.RecordPurchase(ctx, p.ID, types.MustMoney("1"), 50))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 80; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.AdjustStock(ctx, p.ID, -1); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	v, err := svc.GetCurrentValuation(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, accepted)
	assert.Equal(t, int64(0), v.Quantity)
}

func TestService_UpdateDetailsKeepsValuation(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	p, err := svc.Create(ctx, product.CreateInput{Name: "Widget"})
	require.NoError(t, err)
	require.NoError(t, svc.RecordPurchase(ctx, p.ID, types.MustMoney("4"), 2))

	name := "Widget Pro"
	price := types.MustMoney("9.90")
	updated, err := svc.UpdateDetails(ctx, p.ID, product.UpdateInput{Name: &name, UnitPrice: &price})
	require.NoError(t, err)
	assert.Equal(t, "Widget Pro", updated.Name)
	assert.Equal(t, p.InternalCode, updated.InternalCode)

	v, err := svc.GetCurrentValuation(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.Quantity)
	assert.Equal(t, "4", v.AverageCost.String())
}

func TestService_CreateWithUnknownCategory(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	c, err := svc.CreateCategory(ctx, "Tools", nil)
	require.NoError(t, err)

	_, err = svc.Create(ctx, product.CreateInput{Name: "Hammer", CategoryID: &c.ID})
	require.NoError(t, err)

	missing := id.New()
	_, err = svc.Create(ctx, product.CreateInput{Name: "Saw", CategoryID: &missing})
	assert.True(t, apperror.IsNotFound(err))
}
