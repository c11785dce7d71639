package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/aman-churiwal/quota-gateway/internal/logging"
)

// Keys set on the gin context
const (
	ContextKeyRequestID = "request_id"
	ContextKeyAPIKeyID  = "api_key_id"
	ContextKeyPlanID    = "plan_id"
)

func abortWithDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

// Returns the request-scoped logger installed by Logger
func requestLogger(c *gin.Context) logging.FieldLogger {
	return logging.FromContext(c.Request.Context())
}
