package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"mesa-system/internal/engine"
	"mesa-system/internal/utils"
)

const actorContextKey = "actor"

// JWTAuth validates the bearer token and stores the resolved actor in the
// request context for handlers to pick up.
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authorization header required",
			})
			c.Abort()
			return
		}

		tokenStr := strings.TrimPrefix(header, "Bearer ")
		claims, err := utils.ParseToken(tokenStr)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		c.Set(actorContextKey, engine.Actor{ID: claims.UserId, Role: claims.Role})
		c.Next()
	}
}

// RequireRole gates a route group to the given roles. Runs after JWTAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFromContext(c)
		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"message": "Insufficient permissions",
		})
		c.Abort()
	}
}

// ActorFromContext returns the actor JWTAuth stored, or a zero actor on
// unauthenticated routes.
func ActorFromContext(c *gin.Context) engine.Actor {
	if v, ok := c.Get(actorContextKey); ok {
		if actor, ok := v.(engine.Actor); ok {
			return actor
		}
	}
	return engine.Actor{}
}
