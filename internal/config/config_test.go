package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbi/internal/domain/aggregation"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("AGGREGATION_MATRIX", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.True(t, cfg.InMemory())
	assert.Equal(t, DriverPostgres, cfg.AnalyticsDB.Driver)
	assert.Equal(t, aggregation.MarginWeighted, cfg.MarginMode())
	assert.Equal(t, aggregation.DefaultMatrix(), cfg.Matrix())
	assert.True(t, cfg.Aggregation.ClosePrevious)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://app@db/stock")
	t.Setenv("ANALYTICS_DRIVER", "sqlite")
	t.Setenv("AGGREGATION_MARGIN_MODE", "running")
	t.Setenv("AGGREGATION_MATRIX", "sales:month")
	t.Setenv("AGGREGATION_CONCURRENCY", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.InMemory())
	assert.Equal(t, "postgres://app@db/stock", cfg.AnalyticsURL())
	assert.Equal(t, DriverSQLite, cfg.AnalyticsDB.Driver)
	assert.Equal(t, aggregation.MarginRunning, cfg.MarginMode())
	assert.Len(t, cfg.Matrix(), 1)
	assert.Equal(t, 2, cfg.Aggregation.Concurrency)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"ANALYTICS_DRIVER":        "mysql",
		"AGGREGATION_MARGIN_MODE": "fifo",
		"AGGREGATION_MATRIX":      "sales:fortnight",
		"AGGREGATION_CONCURRENCY": "0",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
