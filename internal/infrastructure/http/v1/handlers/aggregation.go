package handlers

import (
	"github.com/gin-gonic/gin"

	"stockbi/internal/core/apperror"
	"stockbi/internal/domain/aggregation"
	"stockbi/internal/domain/reports"
	"stockbi/internal/infrastructure/http/v1/dto"
)

// maxJobsPerRequest bounds synchronous backfills; larger ranges go through
// the aggregate command.
const maxJobsPerRequest = 500

// AggregationHandler triggers runs and serves stored rows.
type AggregationHandler struct {
	*BaseHandler
	engine  *aggregation.Engine
	reports *reports.Service
}

// NewAggregationHandler creates a new aggregation handler.
func NewAggregationHandler(base *BaseHandler, engine *aggregation.Engine, reports *reports.Service) *AggregationHandler {
	return &AggregationHandler{BaseHandler: base, engine: engine, reports: reports}
}

// Run handles POST /aggregations/run. It returns once every job finished;
// failed jobs do not stop the others.
func (h *AggregationHandler) Run(c *gin.Context) {
	var req dto.RunAggregationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	jobs, err := req.Jobs()
	if err != nil {
		h.Error(c, err)
		return
	}
	if len(jobs) > maxJobsPerRequest {
		h.Error(c, apperror.NewValidation("too many jobs for one request").
			WithDetail("jobs", len(jobs)).
			WithDetail("max", maxJobsPerRequest))
		return
	}

	if err := h.engine.RunAll(c.Request.Context(), jobs); err != nil {
		h.Error(c, err)
		return
	}

	names := make([]string, len(jobs))
	for i, j := range jobs {
		names[i] = j.String()
	}
	h.OK(c, dto.RunAggregationResponse{Jobs: names})
}

// List handles GET /aggregations.
func (h *AggregationHandler) List(c *gin.Context) {
	var q dto.AggregationQuery
	if !h.BindQuery(c, &q) {
		return
	}
	query, err := q.ToQuery()
	if err != nil {
		h.Error(c, err)
		return
	}

	report, err := h.reports.Rows(c.Request.Context(), query)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(dto.FromRows(report.Rows), query.Limit, 0))
}
