package analytics_repo

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbi/internal/core/period"
	"stockbi/internal/domain/aggregation"
)

var q1 = period.Containing(period.Quarter, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))

func row(entity string) aggregation.Row {
	return aggregation.Row{
		Class:       aggregation.ClassProduct,
		PeriodKind:  q1.Kind,
		PeriodKey:   q1.Key(),
		EntityKey:   entity,
		PeriodStart: q1.Start,
		PeriodEnd:   q1.End,
		Metrics:     json.RawMessage(`{"units_sold":3}`),
	}
}

func TestUpsertQuery(t *testing.T) {
	sql, args, err := upsertQuery(row("p-1")).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql,
		"INSERT INTO aggregation_rows (entity_class,period_kind,period_key,entity_key,period_start,period_end,metrics) "+
			"VALUES ($1,$2,$3,$4,$5,$6,$7) ON CONFLICT (entity_class, period_kind, period_key, entity_key) DO UPDATE SET"), sql)
	assert.Contains(t, sql, "metrics = EXCLUDED.metrics")
	require.Len(t, args, 7)
	assert.Equal(t, "2024-Q1", args[2])
	assert.Equal(t, `{"units_sold":3}`, args[6])
}

func TestPruneQuery(t *testing.T) {
	sql, args, err := pruneQuery(aggregation.ClassProduct, q1, []aggregation.Row{row("a"), row("b")}).ToSql()
	require.NoError(t, err)
	assert.Equal(t,
		"DELETE FROM aggregation_rows WHERE (entity_class = $1 AND period_key = $2 AND period_kind = $3) AND entity_key NOT IN ($4,$5)",
		sql)
	assert.Equal(t, []any{aggregation.ClassProduct, "2024-Q1", period.Quarter, "a", "b"}, args)
}

func TestPruneQuery_NoRowsClearsPeriod(t *testing.T) {
	sql, args, err := pruneQuery(aggregation.ClassQuality, q1, nil).ToSql()
	require.NoError(t, err)
	assert.NotContains(t, sql, "entity_key")
	assert.Len(t, args, 3)
}

func TestListQuery(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	sql, args, err := listQuery(aggregation.RowFilter{
		Class:      aggregation.ClassSales,
		PeriodKind: period.Month,
		From:       &from,
		Limit:      12,
	}).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(sql,
		"FROM aggregation_rows WHERE entity_class = $1 AND period_kind = $2 AND period_start >= $3 "+
			"ORDER BY entity_class, period_start, period_kind, entity_key LIMIT 12"), sql)
	assert.Equal(t, []any{aggregation.ClassSales, period.Month, from}, args)
}
