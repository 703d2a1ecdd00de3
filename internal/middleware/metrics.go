package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/omsorg/care-api/pkg/metrics"
)

// Metrics records per-route request counts and latency. The route template
// is used as the path label so IDs never explode the cardinality.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
		).Inc()
		m.HTTPDuration.WithLabelValues(c.Request.Method, path).
			Observe(time.Since(start).Seconds())
	}
}
