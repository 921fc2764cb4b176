package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockbi/internal/domain/aggregation"
)

func TestOptionsJobs_SinglePeriod(t *testing.T) {
	jobs, err := options{class: "sales", kind: "month", key: "2024-03"}.jobs()
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "sales:month:2024-03", jobs[0].String())
}

func TestOptionsJobs_AllClasses(t *testing.T) {
	jobs, err := options{kind: "year", key: "2024"}.jobs()
	require.NoError(t, err)
	assert.Len(t, jobs, len(aggregation.Classes))
}

func TestOptionsJobs_Backfill(t *testing.T) {
	jobs, err := options{class: "product", kind: "month", from: "2024-01-15", to: "2024-03-02"}.jobs()
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "2024-01", jobs[0].Period.Key())
	assert.Equal(t, "2024-03", jobs[2].Period.Key())
}

func TestOptionsJobs_Errors(t *testing.T) {
	tests := map[string]options{
		"no kind":        {key: "2024"},
		"bad class":      {class: "people", kind: "year", key: "2024"},
		"key and range":  {kind: "day", key: "2024-03-01", from: "2024-03-01", to: "2024-03-02"},
		"nothing":        {kind: "day"},
		"inverted range": {kind: "day", from: "2024-03-02", to: "2024-03-01"},
		"bad key":        {kind: "week", key: "2024-W60"},
	}
	for name, o := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := o.jobs()
			assert.Error(t, err)
		})
	}
}
