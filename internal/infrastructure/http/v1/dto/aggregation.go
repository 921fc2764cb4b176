package dto

import (
	"encoding/json"

	"stockbi/internal/core/apperror"
	"stockbi/internal/core/period"
	"stockbi/internal/core/types"
	"stockbi/internal/domain/aggregation"
	"stockbi/internal/domain/reports"
)

// RunAggregationRequest triggers one job (kind + key) or a backfill
// (kind + from/to). An empty class runs every class.
type RunAggregationRequest struct {
	Class string  `json:"class,omitempty"`
	Kind  string  `json:"kind" binding:"required"`
	Key   string  `json:"key,omitempty"`
	From  *string `json:"from,omitempty"`
	To    *string `json:"to,omitempty"`
}

// Jobs resolves the request into jobs.
func (r *RunAggregationRequest) Jobs() ([]aggregation.Job, error) {
	kind, err := period.ParseKind(r.Kind)
	if err != nil {
		return nil, err
	}

	classes := aggregation.Classes
	if r.Class != "" {
		c, err := aggregation.ParseClass(r.Class)
		if err != nil {
			return nil, err
		}
		classes = []aggregation.Class{c}
	}

	if r.Key != "" {
		p, err := period.Parse(kind, r.Key)
		if err != nil {
			return nil, err
		}
		jobs := make([]aggregation.Job, 0, len(classes))
		for _, c := range classes {
			jobs = append(jobs, aggregation.Job{Class: c, Period: p})
		}
		return jobs, nil
	}

	from, err := parseDate("from", r.From)
	if err != nil {
		return nil, err
	}
	to, err := parseDate("to", r.To)
	if err != nil {
		return nil, err
	}
	if from == nil || to == nil {
		return nil, apperror.NewValidation("either key or from and to are required")
	}
	if from.After(*to) {
		return nil, apperror.NewValidation("from must not be after to").WithDetail("field", "from")
	}
	return aggregation.Backfill(classes, kind, *from, *to), nil
}

// RunAggregationResponse lists the jobs that ran.
type RunAggregationResponse struct {
	Jobs []string `json:"jobs"`
}

// AggregationQuery holds aggregation row filters.
type AggregationQuery struct {
	Class  string `form:"class"`
	Kind   string `form:"kind"`
	Key    string `form:"key"`
	Entity string `form:"entity"`
	From   string `form:"from"`
	To     string `form:"to"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// ToQuery converts to a reports query; the service validates the rest.
func (q *AggregationQuery) ToQuery() (reports.Query, error) {
	from, err := parseDate("from", &q.From)
	if err != nil {
		return reports.Query{}, err
	}
	to, err := parseDate("to", &q.To)
	if err != nil {
		return reports.Query{}, err
	}
	return reports.Query{
		Class:      aggregation.Class(q.Class),
		PeriodKind: period.Kind(q.Kind),
		PeriodKey:  q.Key,
		EntityKey:  q.Entity,
		From:       from,
		To:         to,
		Limit:      q.Limit,
	}, nil
}

// AggregationRowResponse is one stored rollup.
type AggregationRowResponse struct {
	Class       string          `json:"class"`
	PeriodKind  string          `json:"periodKind"`
	PeriodKey   string          `json:"periodKey"`
	EntityKey   string          `json:"entityKey"`
	PeriodStart string          `json:"periodStart"`
	PeriodEnd   string          `json:"periodEnd"`
	Metrics     json.RawMessage `json:"metrics"`
}

// FromRows maps stored rows.
func FromRows(rows []aggregation.Row) []AggregationRowResponse {
	out := make([]AggregationRowResponse, len(rows))
	for i, r := range rows {
		out[i] = AggregationRowResponse{
			Class:       string(r.Class),
			PeriodKind:  string(r.PeriodKind),
			PeriodKey:   r.PeriodKey,
			EntityKey:   r.EntityKey,
			PeriodStart: r.PeriodStart.Format(types.DateLayout),
			PeriodEnd:   r.PeriodEnd.Format(types.DateLayout),
			Metrics:     r.Metrics,
		}
	}
	return out
}
