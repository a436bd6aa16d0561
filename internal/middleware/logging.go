package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/messagely/internal/logging"
)

// RequestLogger logs one line per request. Bodies are never logged, so
// passwords and tokens stay out of the logs.
func RequestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		}
		if principal, ok := Principal(c); ok {
			args = append(args, "principal", principal)
		}

		switch {
		case c.Writer.Status() >= 500:
			log.Error(c.Request.Context(), "request", args...)
		case c.Writer.Status() >= 400:
			log.Warn(c.Request.Context(), "request", args...)
		default:
			log.Info(c.Request.Context(), "request", args...)
		}
	}
}
