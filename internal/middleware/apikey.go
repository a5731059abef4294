package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"mailmask/backend/internal/service"
)

// ApiKeyAuth API Key 认证中间件
type ApiKeyAuth struct {
	keys *service.ApiKeyService
}

// NewApiKeyAuth 创建 API Key 认证中间件
func NewApiKeyAuth(keys *service.ApiKeyService) *ApiKeyAuth {
	return &ApiKeyAuth{keys: keys}
}

// RequireApiKey 要求 Authentication 头里带有效的 API Key
func (m *ApiKeyAuth) RequireApiKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.GetHeader("Authentication")
		if code == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "missing API key",
			})
			c.Abort()
			return
		}

		user, err := m.keys.Authenticate(code)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "invalid API key",
			})
			c.Abort()
			return
		}

		c.Set("userID", user.ID)
		c.Set("user", user)

		c.Next()
	}
}
