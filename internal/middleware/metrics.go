package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classforge/school-api/internal/service"
)

// Metrics records one observation per request, labelled by the route
// template rather than the raw URL so tenant and record IDs do not
// explode label cardinality. Requests that match no route are bucketed
// together.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
