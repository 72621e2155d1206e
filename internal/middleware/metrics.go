package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/compliance-docs-api/internal/service"
	appErrors "github.com/noah-isme/compliance-docs-api/pkg/errors"
)

// Metrics records request latency and counts backend failures by operation.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), duration)

		for _, ginErr := range c.Errors {
			appErr := appErrors.FromError(ginErr.Err)
			if appErr.Code == appErrors.ErrBackendUnavailable.Code {
				metricsSvc.RecordBackendError(appErr.Message)
			}
		}
	}
}
