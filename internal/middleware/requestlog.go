package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spooldock/spooldock/internal/logger"
)

// RequestLog emits one structured line per request.
func RequestLog(log *logger.Logger) gin.HandlerFunc {
	reqLog := log.With("Middleware", "RequestLog")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		reqLog.Info("Request handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}
