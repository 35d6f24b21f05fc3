package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"github.com/xiebiao/supplestore/pkg/tracing"
)

// HeaderTraceID 响应头中的TraceID，便于与日志关联
const HeaderTraceID = "X-Trace-ID"

// Tracing 每个请求一个根Span，上游传入traceparent时作为子Span
func Tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("%s %s", c.Request.Method, route),
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
		)
		if traceID := tracing.ExtractTraceID(ctx); traceID != "" {
			c.Header(HeaderTraceID, traceID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		var err error
		if status >= 500 {
			err = fmt.Errorf("http status %d", status)
		}
		tracing.EndSpan(span, err)
	}
}
