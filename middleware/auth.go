package middleware

import (
	"strings"

	"secondcycle_go/config"
	"secondcycle_go/utils"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware JWT认证中间件
// 验证通过后把 user_id/role 写入 context，供后续处理器使用；
// WebSocket 握手无法带 Authorization 头，支持 token 查询参数兜底
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			utils.Unauthorized(c, "缺少认证令牌")
			c.Abort()
			return
		}

		claims, err := config.GetJWTService().ValidateToken(tokenString)
		if err != nil {
			utils.Unauthorized(c, "认证令牌无效或已过期")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("full_name", claims.FullName)
		c.Set("email", claims.Email)
		c.Set("role", claims.Role)

		c.Next()
	}
}

// RequireRoles 角色校验中间件，需在 AuthMiddleware 之后使用
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		utils.Forbidden(c, "")
		c.Abort()
	}
}

// extractToken 从请求中提取token
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}

	return c.Query("token")
}
