// Package middleware provides HTTP middleware components.
package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"stockbi/internal/core/apperror"
	"stockbi/pkg/logger"
)

// Recovery converts a panic into an internal error handled by ErrorHandler.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(c.Request.Context(), "panic recovered",
					"error", r,
					"stack", string(debug.Stack()),
				)
				_ = c.Error(apperror.NewInternal(fmt.Errorf("panic: %v", r)).
					WithDetail("request_id", c.GetString("request_id")))
				c.Abort()
			}
		}()
		c.Next()
	}
}
