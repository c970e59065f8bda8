package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sentinel-ops/sentinel-backend-go/internal/core/metrics"
)

// MetricsMiddleware creates middleware for collecting HTTP metrics
func MetricsMiddleware(recorder metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		duration := time.Since(start)
		if recorder != nil {
			recorder.RecordHTTPRequest(c.Request.Method, path, c.Writer.Status(), duration)
		}
	}
}
