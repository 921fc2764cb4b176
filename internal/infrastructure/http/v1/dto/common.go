// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"time"

	"stockbi/internal/core/apperror"
	"stockbi/internal/core/id"
	"stockbi/internal/core/types"
)

// IDResponse is returned by create endpoints.
type IDResponse struct {
	ID string `json:"id"`
}

// SuccessResponse acknowledges an action without a payload.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ListResponse wraps list results with paging parameters.
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Count  int `json:"count"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// NewListResponse builds a list response; items is never null in JSON.
func NewListResponse[T any](items []T, limit, offset int) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Count: len(items), Limit: limit, Offset: offset}
}

// PageQuery carries limit/offset query parameters.
type PageQuery struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// Defaults fills an unset limit.
func (p *PageQuery) Defaults() {
	if p.Limit == 0 {
		p.Limit = 50
	}
}

func parseID(field, s string) (id.ID, error) {
	v, err := id.Parse(s)
	if err != nil {
		return id.ID{}, apperror.NewValidation("invalid id format").WithDetail("field", field)
	}
	return v, nil
}

func parseOptionalID(field string, s *string) (*id.ID, error) {
	if s == nil {
		return nil, nil
	}
	v, err := id.ParseOptional(*s)
	if err != nil {
		return nil, apperror.NewValidation("invalid id format").WithDetail("field", field)
	}
	return v, nil
}

func parseDate(field string, s *string) (*time.Time, error) {
	d, err := types.ParseDatePtr(s)
	if err != nil {
		return nil, apperror.NewValidation("invalid date, expected YYYY-MM-DD").WithDetail("field", field)
	}
	return d, nil
}
