package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"trading-journal-go/internal/auth"
)

const userIDKey = "user_id"

// RequireAuth verifies the Bearer session token and stores the
// authenticated user id on the request context.
func RequireAuth(authSvc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		tokenString := strings.TrimPrefix(header, "Bearer ")
		userID, err := authSvc.ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// currentUserID returns the user id stored by RequireAuth.
func currentUserID(c *gin.Context) uint {
	return c.GetUint(userIDKey)
}
