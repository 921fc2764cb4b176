package reports_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbi/internal/core/apperror"
	"stockbi/internal/core/period"
	"stockbi/internal/domain/aggregation"
	"stockbi/internal/domain/reports"
	"stockbi/internal/infrastructure/storage/memory"
)

type mapCache struct {
	gen     int64
	entries map[string][]byte
	gets    int
	hits    int
	failGet bool
}

func newMapCache() *mapCache { return &mapCache{entries: map[string][]byte{}} }

func slot(gen int64, key string) string { return fmt.Sprintf("%d:%s", gen, key) }

func (c *mapCache) Get(_ context.Context, key string, dest any) (int64, bool, error) {
	c.gets++
	if c.failGet {
		return 0, false, errors.New("cache down")
	}
	raw, ok := c.entries[slot(c.gen, key)]
	if !ok {
		return c.gen, false, nil
	}
	c.hits++
	return c.gen, true, json.Unmarshal(raw, dest)
}

func (c *mapCache) Set(_ context.Context, gen int64, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[slot(gen, key)] = raw
	return nil
}

func (c *mapCache) Invalidate(context.Context) error {
	c.gen++
	return nil
}

// racingStore runs afterList once, after the rows have been read, the way
// an aggregation run completing mid-read would.
type racingStore struct {
	aggregation.Store
	afterList func()
}

func (s *racingStore) List(ctx context.Context, f aggregation.RowFilter) ([]aggregation.Row, error) {
	rows, err := s.Store.List(ctx, f)
	if s.afterList != nil {
		fn := s.afterList
		s.afterList = nil
		fn()
	}
	return rows, err
}

var march = period.Containing(period.Month, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

func seed(t *testing.T, store aggregation.Store, metrics string) {
	t.Helper()
	require.NoError(t, store.ReplacePeriod(context.Background(), aggregation.ClassSales, march, []aggregation.Row{{
		Class:       aggregation.ClassSales,
		PeriodKind:  march.Kind,
		PeriodKey:   march.Key(),
		EntityKey:   aggregation.GlobalKey,
		PeriodStart: march.Start,
		PeriodEnd:   march.End,
		Metrics:     json.RawMessage(metrics),
	}}))
}

func TestRows_CachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	store := memory.NewAnalyticsStore()
	cache := newMapCache()
	svc := reports.NewService(store, cache, time.Minute)

	seed(t, store, `{"units":1}`)
	q := reports.Query{Class: aggregation.ClassSales, PeriodKind: period.Month, PeriodKey: "2024-03"}

	first, err := svc.Rows(ctx, q)
	require.NoError(t, err)
	require.Equal(t, 1, first.Count)

	seed(t, store, `{"units":2}`)
	second, err := svc.Rows(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.JSONEq(t, `{"units":1}`, string(second.Rows[0].Metrics))

	svc.Invalidate(ctx, aggregation.Job{Class: aggregation.ClassSales, Period: march})
	third, err := svc.Rows(ctx, q)
	require.NoError(t, err)
	assert.JSONEq(t, `{"units":2}`, string(third.Rows[0].Metrics))
}

func TestRows_RunFinishingDuringReadIsNotCachedAsCurrent(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewAnalyticsStore()
	store := &racingStore{Store: inner}
	cache := newMapCache()
	svc := reports.NewService(store, cache, time.Minute)
	q := reports.Query{Class: aggregation.ClassSales, PeriodKind: period.Month, PeriodKey: "2024-03"}

	seed(t, inner, `{"units":1}`)
	store.afterList = func() {
		seed(t, inner, `{"units":2}`)
		svc.Invalidate(ctx, aggregation.Job{Class: aggregation.ClassSales, Period: march})
	}

	stale, err := svc.Rows(ctx, q)
	require.NoError(t, err)
	assert.JSONEq(t, `{"units":1}`, string(stale.Rows[0].Metrics))

	fresh, err := svc.Rows(ctx, q)
	require.NoError(t, err)
	assert.Zero(t, cache.hits)
	assert.JSONEq(t, `{"units":2}`, string(fresh.Rows[0].Metrics))
}

func TestRows_CacheFailureFallsBackToStore(t *testing.T) {
	store := memory.NewAnalyticsStore()
	cache := newMapCache()
	cache.failGet = true
	svc := reports.NewService(store, cache, time.Minute)
	seed(t, store, `{"units":1}`)

	r, err := svc.Rows(context.Background(), reports.Query{Class: aggregation.ClassSales})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Count)
	assert.Empty(t, cache.entries)
}

func TestRows_EmptyResultIsNotNil(t *testing.T) {
	svc := reports.NewService(memory.NewAnalyticsStore(), nil, 0)

	r, err := svc.Rows(context.Background(), reports.Query{})
	require.NoError(t, err)
	assert.NotNil(t, r.Rows)
	assert.Zero(t, r.Count)
}

func TestRows_Validation(t *testing.T) {
	svc := reports.NewService(memory.NewAnalyticsStore(), nil, 0)
	from := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		q    reports.Query
	}{
		{"unknown class", reports.Query{Class: "customers"}},
		{"unknown kind", reports.Query{PeriodKind: "decade"}},
		{"key without kind", reports.Query{PeriodKey: "2024-03"}},
		{"malformed key", reports.Query{PeriodKind: period.Month, PeriodKey: "2024-3"}},
		{"inverted range", reports.Query{From: &from, To: &to}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Rows(context.Background(), tt.q)
			assert.True(t, apperror.IsValidation(err), "got %v", err)
		})
	}
}

func TestPeriod(t *testing.T) {
	store := memory.NewAnalyticsStore()
	seed(t, store, `{}`)
	svc := reports.NewService(store, reports.NoopCache{}, 0)

	r, err := svc.Period(context.Background(), aggregation.ClassSales, march)
	require.NoError(t, err)
	require.Len(t, r.Rows, 1)
	assert.Equal(t, aggregation.GlobalKey, r.Rows[0].EntityKey)

	r, err = svc.Period(context.Background(), aggregation.ClassOrders, march)
	require.NoError(t, err)
	assert.Empty(t, r.Rows)
}
