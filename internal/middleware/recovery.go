package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aman-churiwal/quota-gateway/internal/logging"
)

func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				requestLogger(c).Error("panic recovered",
					logging.Any("panic", err),
					logging.String("path", c.Request.URL.Path),
				)

				abortWithDetail(c, http.StatusInternalServerError, "Internal Server Error")
			}
		}()
		c.Next()
	}
}
