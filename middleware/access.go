package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"PRelay/logger"
)

// AccessLog logs one line per HTTP request. For websocket upgrades the
// line is written when the connection finally drops, so the latency field
// doubles as session duration.
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Infof("[http] %s %s status=%d latency=%s ip=%s",
			c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start), c.ClientIP())
	}
}
