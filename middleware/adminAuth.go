package middleware

import (
	"errors"
	"net/http"

	userRepo "subzero/database/repository/user"

	"github.com/gin-gonic/gin"
)

// RequireAdmin admits only admin and owner accounts. It must run after
// JWTAuthUserMiddleware.
func RequireAdmin(repo userRepo.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		usr, err := CurrentUser(c, repo)
		if err != nil {
			status := http.StatusUnauthorized
			if errors.Is(err, errBanned) {
				status = http.StatusForbidden
			}
			c.AbortWithStatusJSON(status, gin.H{"error": "Unauthorized admin access"})
			return
		}
		if !usr.HasAdminRights() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin rights required"})
			return
		}
		c.Set("isAdmin", true)
		c.Next()
	}
}
