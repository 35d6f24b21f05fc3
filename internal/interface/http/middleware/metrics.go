package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/supplestore/pkg/metrics"
)

// Metrics HTTP请求指标，path使用路由模板（/orders/:id）避免标签基数膨胀
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.HTTPRequestsInProgress.Inc()
		start := time.Now()

		c.Next()

		metrics.HTTPRequestsInProgress.Dec()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.IncCounterVec(metrics.HTTPRequestsTotal, c.Request.Method, path, strconv.Itoa(c.Writer.Status()))
		metrics.ObserveHistogramVec(metrics.HTTPRequestDuration, time.Since(start).Seconds(), c.Request.Method, path)
	}
}
