package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/linksight/gateway/internal/model"
	"github.com/linksight/gateway/internal/service"
)

// ClaimsKey is the gin context key the authenticated claims are stored
// under.
const ClaimsKey = "authClaims"

// Auth enforces the bearer credential on protected routes. A missing
// token is 401; a present but malformed, mis-signed or expired token is
// 403.
func Auth(auth service.AuthServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if header == "" || len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{
				Error: http.StatusText(http.StatusUnauthorized),
			})
			return
		}

		claims, err := auth.ParseToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, model.ErrorResponse{
				Error: http.StatusText(http.StatusForbidden),
			})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// CurrentUser returns the authenticated claims set by Auth.
func CurrentUser(c *gin.Context) *service.UserClaims {
	return c.MustGet(ClaimsKey).(*service.UserClaims)
}
