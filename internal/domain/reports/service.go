package reports

import (
	"context"
	"fmt"
	"time"

	"stockbi/internal/core/apperror"
	"stockbi/internal/core/period"
	"stockbi/internal/domain/aggregation"
	"stockbi/pkg/logger"
)

// Service provides read access to aggregation results.
type Service struct {
	store aggregation.Store
	cache Cache
	ttl   time.Duration
}

// NewService creates a new reports service. A nil cache disables caching.
func NewService(store aggregation.Store, cache Cache, ttl time.Duration) *Service {
	if cache == nil {
		cache = NoopCache{}
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{store: store, cache: cache, ttl: ttl}
}

// Rows returns the rows matching q. Identical queries are answered from the
// cache until the next invalidation. The result is cached under the
// generation seen before the store was read.
func (s *Service) Rows(ctx context.Context, q Query) (*Report, error) {
	if err := normalize(&q); err != nil {
		return nil, err
	}

	key := q.cacheKey()
	var cached Report
	gen, hit, cacheErr := s.cache.Get(ctx, key, &cached)
	if cacheErr != nil {
		logger.Warn(ctx, "report cache read failed", "key", key, "error", cacheErr)
	} else if hit {
		return &cached, nil
	}

	rows, err := s.store.List(ctx, q.filter())
	if err != nil {
		return nil, fmt.Errorf("list aggregation rows: %w", err)
	}
	if rows == nil {
		rows = []aggregation.Row{}
	}
	report := &Report{Rows: rows, Count: len(rows)}

	// Without a generation the write could land in a newer one.
	if cacheErr == nil {
		if err := s.cache.Set(ctx, gen, key, report, s.ttl); err != nil {
			logger.Warn(ctx, "report cache write failed", "key", key, "error", err)
		}
	}
	return report, nil
}

// Period returns every row of one (class, period).
func (s *Service) Period(ctx context.Context, class aggregation.Class, p period.Period) (*Report, error) {
	return s.Rows(ctx, Query{
		Class:      class,
		PeriodKind: p.Kind,
		PeriodKey:  p.Key(),
		Limit:      maxLimit,
	})
}

// Invalidate drops cached reports. It is registered as an engine hook so
// readers never see rows older than the last completed run.
func (s *Service) Invalidate(ctx context.Context, job aggregation.Job) {
	if err := s.cache.Invalidate(ctx); err != nil {
		logger.Warn(ctx, "report cache invalidation failed", "job", job.String(), "error", err)
	}
}

func normalize(q *Query) error {
	if q.Class != "" && !q.Class.Valid() {
		return apperror.NewValidation("unknown entity class").WithDetail("class", string(q.Class))
	}
	if q.PeriodKind != "" && !q.PeriodKind.Valid() {
		return apperror.NewValidation("unknown period kind").WithDetail("kind", string(q.PeriodKind))
	}
	if q.PeriodKey != "" {
		if q.PeriodKind == "" {
			return apperror.NewValidation("period key requires a period kind")
		}
		if _, err := period.Parse(q.PeriodKind, q.PeriodKey); err != nil {
			return err
		}
	}
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return apperror.NewValidation("from must not be after to")
	}

	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	return nil
}
