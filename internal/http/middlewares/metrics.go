package middlewares

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hxuan190/snipe-engine/internal/metrics"
)

// MetricsMiddleware records per-route request counts and latency. Requests
// that matched no route all share the "unmatched" path label, keeping series
// cardinality bounded under path scanning. The /metrics and /health endpoints
// are not recorded.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		switch path {
		case "":
			path = "unmatched"
		case "/metrics", "/health":
			return
		}

		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, path, status).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
