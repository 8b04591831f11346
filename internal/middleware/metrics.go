package middleware

import (
	"strconv"
	"time"

	"social-feed-go/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics 记录每个请求的耗时，path 使用路由模板以控制标签基数。
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
