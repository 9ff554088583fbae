package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/flowershop/internal/metrics"
)

// Metrics records request count and latency per route.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequest(route, c.Writer.Status(), time.Since(start))
	}
}
