package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbi/internal/config"
	"stockbi/internal/domain/aggregation"
	"stockbi/internal/domain/reports"
	"stockbi/pkg/logger"
)

func memoryConfig() *config.Config {
	cfg := &config.Config{}
	cfg.App.Name = "stockbi"
	cfg.AnalyticsDB.Driver = config.DriverPostgres
	cfg.Aggregation.Schedule = "0 */15 * * * *"
	cfg.Aggregation.Concurrency = 2
	cfg.Aggregation.ClosePrevious = true
	return cfg
}

func TestNew_InMemory(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.NotNil(t, a.Products)
	assert.NotNil(t, a.Ledger)
	assert.NotNil(t, a.Engine)
	assert.NotNil(t, a.Reports)
	assert.Empty(t, a.Checks)

	s, err := a.Scheduler()
	require.NoError(t, err)
	assert.NotEmpty(t, s.Jobs(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)))
}

func TestNew_SQLiteAnalytics(t *testing.T) {
	cfg := memoryConfig()
	cfg.AnalyticsDB.Driver = config.DriverSQLite
	cfg.AnalyticsDB.SQLiteDSN = "file:" + filepath.Join(t.TempDir(), "a.db") + "?_txlock=immediate"

	a, err := New(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.Contains(t, a.Checks, "analytics_db")
	assert.NoError(t, a.Checks["analytics_db"](context.Background()))

	require.NoError(t, a.Engine.RunAggregation(context.Background(), "month", "2024-03", "quality"))
	rows, err := a.Reports.Rows(context.Background(), reports.Query{Class: aggregation.ClassQuality})
	require.NoError(t, err)
	assert.Equal(t, 1, rows.Count)
}

func TestClose_ReverseOrderAndErrors(t *testing.T) {
	a := &App{}
	var order []string
	a.onClose("first", func() error { order = append(order, "first"); return nil })
	a.onClose("second", func() error { order = append(order, "second"); return errors.New("boom") })

	err := a.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close second")
	assert.Equal(t, []string{"second", "first"}, order)
	assert.NoError(t, a.Close())
}
