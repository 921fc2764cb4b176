package aggregation_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbi/internal/core/apperror"
	"stockbi/internal/core/period"
	"stockbi/internal/core/types"
	"stockbi/internal/domain/aggregation"
	"stockbi/internal/domain/catalog/product"
	"stockbi/internal/domain/ledger"
	"stockbi/internal/infrastructure/storage/memory"
	"stockbi/pkg/logger"
)

var today = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

type fixture struct {
	products *product.Service
	ledger   *ledger.Service
	store    *memory.AnalyticsStore
	engine   *aggregation.Engine
}

func newFixture(t *testing.T, opts ...aggregation.Option) *fixture {
	t.Helper()
	db := memory.NewDB()
	txm := memory.NewTxManager(db)
	productRepo := memory.NewProductRepo(db)
	ledgerRepo := memory.NewLedgerRepo(db)

	products := product.NewService(productRepo, txm)
	svc := ledger.NewService(ledgerRepo, products, txm)
	svc.SetClock(func() time.Time { return today })

	store := memory.NewAnalyticsStore()
	source := aggregation.NewRepositorySource(productRepo, ledgerRepo, txm)
	return &fixture{
		products: products,
		ledger:   svc,
		store:    store,
		engine:   aggregation.NewEngine(source, store, opts...),
	}
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	p, err := f.products.Create(ctx, product.CreateInput{Name: "Widget", UnitPrice: types.MustMoney("12")})
	require.NoError(t, err)
	require.NoError(t, f.products.RecordPurchase(ctx, p.ID, types.MustMoney("6"), 10))

	saleDate := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	for _, qty := range []int64{1, 2} {
		_, err := f.ledger.Save(ctx, ledger.SaveInput{
			Kind: ledger.KindSale, ProductID: p.ID, Quantity: qty,
			UnitPrice: types.MustMoney("10"), SaleDate: &saleDate,
		})
		require.NoError(t, err)
	}
}

func (f *fixture) rows(t *testing.T, filter aggregation.RowFilter) []aggregation.Row {
	t.Helper()
	rows, err := f.store.List(context.Background(), filter)
	require.NoError(t, err)
	return rows
}

func TestEngine_SalesMonthEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)

	require.NoError(t, f.engine.RunAggregation(ctx, "month", "2024-03", "sales"))

	rows := f.rows(t, aggregation.RowFilter{Class: aggregation.ClassSales})
	require.Len(t, rows, 1)
	assert.Equal(t, aggregation.GlobalKey, rows[0].EntityKey)
	assert.Equal(t, period.Month, rows[0].PeriodKind)

	var m aggregation.FlowMetrics
	require.NoError(t, json.Unmarshal(rows[0].Metrics, &m))
	assert.Equal(t, int64(2), m.TransactionsCount)
	assert.Equal(t, int64(3), m.Units)
	assert.True(t, types.MustMoney("30").Equal(m.TotalValue))
	assert.True(t, types.MustMoney("4").Equal(m.GrossMargin))
	assert.Equal(t, int64(2), m.Status.Sold)
}

func TestEngine_RerunIsByteIdentical(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)

	jobs := aggregation.JobsFor(aggregation.DefaultMatrix(), today)
	require.NoError(t, f.engine.RunAll(ctx, jobs))
	first := f.rows(t, aggregation.RowFilter{})

	require.NoError(t, f.engine.RunAll(ctx, jobs))
	second := f.rows(t, aggregation.RowFilter{})

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].EntityKey, second[i].EntityKey)
		assert.Equal(t, string(first[i].Metrics), string(second[i].Metrics))
	}
}

func TestEngine_ConcurrentRunsOfSameJob(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.engine.RunAggregation(ctx, "week", "2024-W10", "inventory")
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Len(t, f.rows(t, aggregation.RowFilter{Class: aggregation.ClassInventory}), 1)
}

func TestEngine_RejectsBadIdentifiers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.True(t, apperror.IsValidation(f.engine.RunAggregation(ctx, "month", "2024-3", "sales")))
	assert.True(t, apperror.IsValidation(f.engine.RunAggregation(ctx, "fortnight", "2024-03", "sales")))
	assert.True(t, apperror.IsValidation(f.engine.RunAggregation(ctx, "month", "2024-03", "customers")))
}

// stubSource serves a fixed dataset or fails for selected classes.
type stubSource struct {
	mu   sync.Mutex
	ds   *aggregation.Dataset
	fail map[aggregation.Class]bool
}

func (s *stubSource) Load(_ context.Context, class aggregation.Class, _ period.Period) (*aggregation.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[class] {
		return nil, errors.New("operational store unavailable")
	}
	return s.ds, nil
}

func TestEngine_PrunesStaleEntityRows(t *testing.T) {
	ctx := context.Background()
	a := product.NewProduct("A", product.KindGoods)
	b := product.NewProduct("B", product.KindGoods)
	src := &stubSource{ds: &aggregation.Dataset{Products: []*product.Product{a, b}}}
	store := memory.NewAnalyticsStore()
	engine := aggregation.NewEngine(src, store)

	require.NoError(t, engine.RunAggregation(ctx, "quarter", "2024-Q1", "product"))
	rows, err := store.List(ctx, aggregation.RowFilter{Class: aggregation.ClassProduct})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	src.ds = &aggregation.Dataset{Products: []*product.Product{b}}
	require.NoError(t, engine.RunAggregation(ctx, "quarter", "2024-Q1", "product"))

	rows, err = store.List(ctx, aggregation.RowFilter{Class: aggregation.ClassProduct})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, b.ID.String(), rows[0].EntityKey)
}

func TestEngine_FailureKeepsPreviousRows(t *testing.T) {
	ctx := context.Background()
	src := &stubSource{ds: &aggregation.Dataset{}, fail: map[aggregation.Class]bool{}}
	store := memory.NewAnalyticsStore()
	engine := aggregation.NewEngine(src, store)

	require.NoError(t, engine.RunAggregation(ctx, "day", "2024-03-15", "quality"))
	before, err := store.List(ctx, aggregation.RowFilter{})
	require.NoError(t, err)

	src.fail[aggregation.ClassQuality] = true
	err = engine.RunAggregation(ctx, "day", "2024-03-15", "quality")
	require.Error(t, err)
	assert.True(t, apperror.IsAggregationCompute(err))

	after, err := store.List(ctx, aggregation.RowFilter{})
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestEngine_RunAllCollectsFailures(t *testing.T) {
	ctx := context.Background()
	src := &stubSource{
		ds:   &aggregation.Dataset{},
		fail: map[aggregation.Class]bool{aggregation.ClassOrders: true},
	}
	store := memory.NewAnalyticsStore()
	engine := aggregation.NewEngine(src, store, aggregation.WithConcurrency(2))

	err := engine.RunAll(ctx, aggregation.Backfill(
		[]aggregation.Class{aggregation.ClassSales, aggregation.ClassOrders},
		period.Month,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
	))
	require.Error(t, err)
	assert.True(t, apperror.IsAggregationCompute(err))

	sales, lerr := store.List(ctx, aggregation.RowFilter{Class: aggregation.ClassSales})
	require.NoError(t, lerr)
	assert.Len(t, sales, 3)
	orders, lerr := store.List(ctx, aggregation.RowFilter{Class: aggregation.ClassOrders})
	require.NoError(t, lerr)
	assert.Empty(t, orders)
}

func TestScheduler_Jobs(t *testing.T) {
	f := newFixture(t)
	matrix := map[aggregation.Class][]period.Kind{
		aggregation.ClassSales:     {period.Day, period.Month},
		aggregation.ClassInventory: {period.Year},
	}

	s, err := aggregation.NewScheduler(f.engine, aggregation.SchedulerConfig{
		Spec: "0 */5 * * * *", Matrix: matrix, ClosePrevious: true,
	}, logger.Nop())
	require.NoError(t, err)

	jobs := s.Jobs(today)
	require.Len(t, jobs, 6)

	keys := make([]string, 0, len(jobs))
	for _, j := range jobs {
		keys = append(keys, j.String())
	}
	assert.ElementsMatch(t, []string{
		"inventory:year:2024", "sales:day:2024-03-15", "sales:month:2024-03",
		"inventory:year:2023", "sales:day:2024-03-14", "sales:month:2024-02",
	}, keys)
}

func TestScheduler_InvalidSpec(t *testing.T) {
	f := newFixture(t)
	_, err := aggregation.NewScheduler(f.engine, aggregation.SchedulerConfig{Spec: "every tuesday"}, nil)
	assert.Error(t, err)
}
