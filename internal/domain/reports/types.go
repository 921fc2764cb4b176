// Package reports serves stored aggregation rows to readers, with an
// optional shared cache in front of the analytical store.
package reports

import (
	"context"
	"strconv"
	"strings"
	"time"

	"stockbi/internal/core/period"
	"stockbi/internal/core/types"
	"stockbi/internal/domain/aggregation"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Query selects aggregation rows.
type Query struct {
	Class      aggregation.Class
	PeriodKind period.Kind
	PeriodKey  string
	EntityKey  string
	From       *time.Time
	To         *time.Time
	Limit      int
}

// Report is the answer to a Query.
type Report struct {
	Rows  []aggregation.Row `json:"rows"`
	Count int               `json:"count"`
}

// cacheKey is stable for equal queries.
func (q Query) cacheKey() string {
	parts := []string{
		string(q.Class),
		string(q.PeriodKind),
		q.PeriodKey,
		q.EntityKey,
		datePart(q.From),
		datePart(q.To),
		strconv.Itoa(q.Limit),
	}
	return "rows:" + strings.Join(parts, "|")
}

func (q Query) filter() aggregation.RowFilter {
	return aggregation.RowFilter{
		Class:      q.Class,
		PeriodKind: q.PeriodKind,
		PeriodKey:  q.PeriodKey,
		EntityKey:  q.EntityKey,
		From:       q.From,
		To:         q.To,
		Limit:      q.Limit,
	}
}

func datePart(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(types.DateLayout)
}

// Cache stores serialized reports in generations. Get reports the
// generation it read and Set writes into that generation only, so a report
// loaded before an Invalidate is never stored as current.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (gen int64, hit bool, err error)
	Set(ctx context.Context, gen int64, key string, value any, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// NoopCache never hits.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string, any) (int64, bool, error) { return 0, false, nil }

func (NoopCache) Set(context.Context, int64, string, any, time.Duration) error { return nil }

func (NoopCache) Invalidate(context.Context) error { return nil }

var _ Cache = NoopCache{}
