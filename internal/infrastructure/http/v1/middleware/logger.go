package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"stockbi/pkg/logger"
)

// Logger logs one entry per request and puts the request-scoped logger
// into the context so domain code logs with the same trace fields.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx := logger.WithLogger(c.Request.Context(), log)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		entry := log.WithContext(c.Request.Context()).With(
			"method", c.Request.Method,
			"path", c.FullPath(),
			"query", c.Request.URL.RawQuery,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if len(c.Errors) > 0 {
			entry = entry.With("error", c.Errors.String())
		}

		switch {
		case status >= 500:
			entry.Errorw("http request")
		case status >= 400:
			entry.Warnw("http request")
		default:
			entry.Infow("http request")
		}
	}
}
