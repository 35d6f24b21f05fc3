package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xiebiao/supplestore/pkg/logger"
)

// HeaderRequestID 请求ID响应头（调用方传入时沿用）
const HeaderRequestID = "X-Request-ID"

// SlowRequestThreshold 超过该耗时记warn
const SlowRequestThreshold = 3 * time.Second

// Logger 请求日志中间件
// 生成请求ID并把带request_id的logger放进request context，
// 下游通过logger.FromContext(ctx)取得；不记录请求体与Token
func Logger(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header(HeaderRequestID, requestID)

		log := base.With(zap.String("request_id", requestID))
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), log))

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= 500:
			log.Error("http request", fields...)
		case latency > SlowRequestThreshold:
			log.Warn("slow request", fields...)
		default:
			log.Info("http request", fields...)
		}
	}
}
