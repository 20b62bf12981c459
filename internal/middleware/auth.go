package middleware

import (
	"exam_eval_backend/internal/config"
	"exam_eval_backend/internal/model"
	"exam_eval_backend/internal/util"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates the bearer token issued at login and attaches the
// parsed claims to the request context. Identity always comes from the token,
// never from client-supplied fields. The config is loaded per request so a
// live reload can rotate the JWT secret.
func AuthMiddleware(store *config.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			util.Unauthorized(c, "missing token")
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, store.Load().JWT.Secret)
		if err != nil {
			util.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}

		c.Set("user", claims)
		c.Next()
	}
}

func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c, "missing token")
			c.Abort()
			return
		}

		hasRole := false
		for _, role := range roles {
			if user.Role == role {
				hasRole = true
				break
			}
		}

		if !hasRole {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
