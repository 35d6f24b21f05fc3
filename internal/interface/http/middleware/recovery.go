package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/xiebiao/supplestore/pkg/errors"
	"github.com/xiebiao/supplestore/pkg/logger"
	"github.com/xiebiao/supplestore/pkg/response"
)

// Recovery panic转为500响应，堆栈只进日志
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.FromContext(c.Request.Context()).Error("panic recovered",
					zap.Any("panic", r),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"),
				)
				response.Error(c, apperrors.Wrap(fmt.Errorf("panic: %v", r), "系统内部错误"))
				c.Abort()
			}
		}()
		c.Next()
	}
}
