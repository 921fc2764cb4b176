package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "stockbi/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

// Trace reads or generates request and trace ids and echoes them back.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		trace := appctx.NewTraceContext()
		if v := c.GetHeader(HeaderRequestID); v != "" {
			trace.RequestID = v
		}
		if v := c.GetHeader(HeaderTraceID); v != "" {
			trace.TraceID = v
		}

		c.Request = c.Request.WithContext(appctx.WithTrace(c.Request.Context(), trace))
		c.Set("trace_id", trace.TraceID)
		c.Set("request_id", trace.RequestID)

		c.Header(HeaderRequestID, trace.RequestID)
		c.Header(HeaderTraceID, trace.TraceID)

		c.Next()
	}
}
