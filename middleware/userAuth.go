package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	userRepo "subzero/database/repository/user"
	"subzero/models"
	"subzero/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

const (
	ctxUserID = "userID"
	ctxUser   = "user"
)

var sessionProjection = bson.M{"id": 1, "username": 1, "email": 1, "role": 1, "isAdmin": 1, "isBanned": 1, "tokenHash": 1}

// bearerToken reads the session token from the Authorization header, or from
// the token query parameter for websocket upgrades.
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return c.Query("token")
}

// JWTAuthUserMiddleware authenticates the caller. The token hash is checked
// against the auth cache first and the user record on a miss.
func JWTAuthUserMiddleware(repo userRepo.UserRepository, authCache *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		logger := zap.L()

		tokenString := bearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Insufficient authorization"})
			return
		}
		userID, err := utils.ExtractIDFromToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Insufficient authorization"})
			return
		}
		computedHash := utils.HashToken(tokenString)
		cacheKey := utils.AuthCachePrefix + userID

		if authCache != nil {
			cachedHash, err := authCache.Get(ctx, cacheKey).Result()
			switch {
			case err == nil && cachedHash == computedHash:
				_ = authCache.Expire(ctx, cacheKey, utils.AuthCacheTTL).Err()
				c.Set(ctxUserID, userID)
				c.Next()
				return
			case err == nil:
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token mismatch"})
				return
			case !errors.Is(err, redis.Nil):
				logger.Warn("auth cache lookup failed, falling back to database", zap.Error(err))
			}
		}

		usr, err := repo.GetByIDWithProjection(ctx, userID, sessionProjection)
		if err != nil || usr == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication error"})
			return
		}
		if usr.TokenHash == "" || usr.TokenHash != computedHash {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token mismatch"})
			return
		}
		if usr.IsBanned {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Account is banned"})
			return
		}

		if authCache != nil {
			_ = authCache.Set(ctx, cacheKey, computedHash, utils.AuthCacheTTL).Err()
		}
		c.Set(ctxUserID, userID)
		c.Set(ctxUser, usr)
		c.Next()
	}
}

// CurrentUser returns the authenticated user, loading it when the request was
// authorized from the cache alone.
func CurrentUser(c *gin.Context, repo userRepo.UserRepository) (*models.User, error) {
	if v, ok := c.Get(ctxUser); ok {
		if usr, ok := v.(*models.User); ok {
			return usr, nil
		}
	}
	userID := c.GetString(ctxUserID)
	if userID == "" {
		return nil, userRepo.ErrUserNotFound
	}
	usr, err := repo.GetByIDWithProjection(context.WithoutCancel(c.Request.Context()), userID, sessionProjection)
	if err != nil {
		return nil, err
	}
	if usr.IsBanned {
		return nil, errBanned
	}
	c.Set(ctxUser, usr)
	return usr, nil
}

var errBanned = errors.New("account is banned")
