package middleware

import (
	"errors"
	"strings"

	"CipherChat/config"
	"CipherChat/consts"
	"CipherChat/internal/utils"
	"CipherChat/pkg/result"

	"github.com/gin-gonic/gin"
)

// JWTAuthMiddleware JWT 认证中间件
// 从请求头中提取 Token 并验证，验证通过后将 user_uuid 存入 Context
func JWTAuthMiddleware(cfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			// 客户端请求错误，属于正常业务流程，不记录日志
			result.Fail(c, consts.CodeUnauthorized)
			c.Abort()
			return
		}

		// 格式: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			result.Fail(c, consts.CodeUnauthorized)
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(cfg, parts[1])
		if err != nil {
			if errors.Is(err, utils.ErrTokenExpired) {
				result.Fail(c, consts.CodeTokenExpired)
			} else {
				result.Fail(c, consts.CodeInvalidToken)
			}
			c.Abort()
			return
		}

		c.Set("user_uuid", claims.UserUUID)
		c.Next()
	}
}

// GetUserUUID 从 Context 中获取当前登录用户的 UUID
func GetUserUUID(c *gin.Context) (string, bool) {
	userUUID, exists := c.Get("user_uuid")
	if !exists {
		return "", false
	}
	uuid, ok := userUUID.(string)
	return uuid, ok
}
