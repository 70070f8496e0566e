package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/customeros/rfpstack/internal/metrics"
)

// MetricsMiddleware records request latency per route template.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.CollectHttpRequest(c.Request.Method, route, c.Writer.Status(), start)
	}
}
