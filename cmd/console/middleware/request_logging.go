package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"sw360-console/logger"
	"sw360-console/trace"
)

// RequestLoggingMiddleware 는 JSON API 호출마다 리소스, 상태, 소요 시간을 남긴다.
// 브라우저 화면 요청은 RequestTrace 로그로 충분하다.
func RequestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := logger.Fields{
			"request_id":  trace.RequestIDFromContext(c.Request.Context()),
			"method":      c.Request.Method,
			"resource":    c.Param("resource"),
			"query":       c.Request.URL.RawQuery,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}
		logger.InfoWithFields("console_api_request", fields)
	}
}
