package metrics

import (
	"time"

	"github.com/gin-gonic/gin"
)

// GinMiddleware records latency per matched route. Scrapes of /metrics are not observed and
// unmatched paths share one label so probes cannot blow up cardinality.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
