package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/content-analyzer/pkg/logger"
)

// RequestLogger logs one line per request after it completes
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("latency", time.Since(start)),
			logger.String("clientIp", c.ClientIP()),
		}
		if c.Writer.Status() >= 500 {
			log.Error("Request failed", fields...)
			return
		}
		log.Info("Request handled", fields...)
	}
}
