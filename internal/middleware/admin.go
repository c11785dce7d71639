package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AdminAuthenticator is implemented by service.AdminAuthService.
type AdminAuthenticator interface {
	Authenticate(token string) error
}

// Requires "Authorization: Bearer <admin token>". A missing or malformed header is 401,
// a token that is not accepted is 403.
func RequireAdmin(auth AdminAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		scheme, token, ok := strings.Cut(authHeader, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			c.Header("WWW-Authenticate", "Bearer")
			abortWithDetail(c, http.StatusUnauthorized, "Not authenticated")
			return
		}

		if err := auth.Authenticate(token); err != nil {
			abortWithDetail(c, http.StatusForbidden, "Invalid admin token")
			return
		}

		c.Next()
	}
}
