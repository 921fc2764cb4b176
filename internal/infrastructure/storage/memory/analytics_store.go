package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"stockbi/internal/core/period"
	"stockbi/internal/domain/aggregation"
)

var _ aggregation.Store = (*AnalyticsStore)(nil)

type rowKey struct {
	class  aggregation.Class
	kind   period.Kind
	key    string
	entity string
}

// AnalyticsStore keeps aggregation rows in memory.
type AnalyticsStore struct {
	mu   sync.RWMutex
	rows map[rowKey]aggregation.Row
}

// NewAnalyticsStore creates an empty analytics store.
func NewAnalyticsStore() *AnalyticsStore {
	return &AnalyticsStore{rows: make(map[rowKey]aggregation.Row)}
}

// ReplacePeriod implements aggregation.Store.
func (s *AnalyticsStore) ReplacePeriod(ctx context.Context, class aggregation.Class, p period.Period, rows []aggregation.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	keep := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		keep[r.EntityKey] = struct{}{}
		r.Metrics = append(json.RawMessage(nil), r.Metrics...)
		s.rows[rowKey{class, p.Kind, p.Key(), r.EntityKey}] = r
	}
	for k := range s.rows {
		if k.class != class || k.kind != p.Kind || k.key != p.Key() {
			continue
		}
		if _, ok := keep[k.entity]; !ok {
			delete(s.rows, k)
		}
	}
	return nil
}

// List implements aggregation.Store.
func (s *AnalyticsStore) List(_ context.Context, f aggregation.RowFilter) ([]aggregation.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]aggregation.Row, 0)
	for _, r := range s.rows {
		if f.Class != "" && r.Class != f.Class {
			continue
		}
		if f.PeriodKind != "" && r.PeriodKind != f.PeriodKind {
			continue
		}
		if f.PeriodKey != "" && r.PeriodKey != f.PeriodKey {
			continue
		}
		if f.EntityKey != "" && r.EntityKey != f.EntityKey {
			continue
		}
		if f.From != nil && r.PeriodStart.Before(*f.From) {
			continue
		}
		if f.To != nil && r.PeriodStart.After(*f.To) {
			continue
		}
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		if !a.PeriodStart.Equal(b.PeriodStart) {
			return a.PeriodStart.Before(b.PeriodStart)
		}
		if a.PeriodKind != b.PeriodKind {
			return a.PeriodKind < b.PeriodKind
		}
		return a.EntityKey < b.EntityKey
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
