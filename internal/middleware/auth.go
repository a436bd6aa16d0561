package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thereayou/messagely/internal/services"
	"github.com/thereayou/messagely/pkg/auth"
)

// PrincipalKey holds the authenticated username in the gin context.
const PrincipalKey = "principal"

// AuthMiddleware проверяет JWT токен и сохраняет username в контексте
func AuthMiddleware(guard *services.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractTokenFromHeader(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}

		principal, err := guard.RequireAuthenticated(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(PrincipalKey, principal)
		c.Next()
	}
}

// WSAuthMiddleware специальный middleware для WebSocket. Браузер не может
// передать заголовки при handshake, поэтому принимаем и ?token=.
func WSAuthMiddleware(guard *services.Guard) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			if t, err := auth.ExtractTokenFromHeader(c.Request); err == nil {
				token = t
			}
		}

		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		principal, err := guard.RequireAuthenticated(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(PrincipalKey, principal)
		c.Next()
	}
}

// EnsureCorrectUser пропускает запрос, только если principal совпадает с
// пользователем из параметра пути param. Ставится после AuthMiddleware.
func EnsureCorrectUser(guard *services.Guard, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := Principal(c)
		if err := guard.RequireSelf(principal, c.Param(param)); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

// Principal возвращает username, сохранённый AuthMiddleware
func Principal(c *gin.Context) (string, bool) {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return "", false
	}
	principal, ok := v.(string)
	return principal, ok && principal != ""
}
