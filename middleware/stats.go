package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/seo-optimizer/tag-inspector/metrics"
	"github.com/seo-optimizer/tag-inspector/stats"
)

// StatsMiddleware tracks visitors and counts requests per route
func StatsMiddleware(visitors *stats.Visitors) gin.HandlerFunc {
	return func(c *gin.Context) {
		if visitors != nil {
			visitors.TrackVisitor(c.ClientIP())
		}

		c.Next()

		// Unmatched paths share one label to keep cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
