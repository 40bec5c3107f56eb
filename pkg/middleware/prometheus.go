package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/khaznati/chunkvault/pkg/metrics"
)

// PrometheusMiddleware 记录 HTTP 请求指标.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		method := c.Request.Method

		c.Next()

		// 未命中任何路由时 FullPath 为空，避免高基数标签
		if path == "" {
			path = "unmatched"
		}

		metrics.RequestCounter.WithLabelValues(method, path).Inc()

		duration := time.Since(start).Seconds()
		metrics.RequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}
