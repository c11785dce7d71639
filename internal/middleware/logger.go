package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aman-churiwal/quota-gateway/internal/logging"
)

// Logger puts a request-scoped logger into the request context and writes one access log
// entry per request. It must run after RequestID.
func Logger(log logging.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		reqLog := log.With(logging.String("request_id", c.GetString(ContextKeyRequestID)))
		c.Request = c.Request.WithContext(logging.NewContext(c.Request.Context(), reqLog))

		c.Next()

		statusCode := c.Writer.Status()
		fields := []logging.Field{
			logging.String("method", method),
			logging.String("path", path),
			logging.Int("status", statusCode),
			logging.Duration("latency", time.Since(start)),
			logging.String("client_ip", c.ClientIP()),
		}
		if keyID, ok := c.Get(ContextKeyAPIKeyID); ok {
			fields = append(fields, logging.Any("api_key_id", keyID))
		}

		if statusCode >= 500 {
			reqLog.Error("request completed", fields...)
			return
		}
		reqLog.Info("request completed", fields...)
	}
}
