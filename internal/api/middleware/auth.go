package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"phias/backend/pkg/jwt"
	"phias/backend/pkg/response"
)

// maxSubjectLen 审计列 created_by / updated_by 的宽度
const maxSubjectLen = 64

// JWTAuth 校验身份服务签发的 Access Token
// 从 Authorization: Bearer <token> 中提取，成功后注入 user_id 与 role
func JWTAuth(jwtMgr *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}

		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(token)
		if err != nil {
			response.Unauthorized(c, 10002, "Token 无效或已过期")
			c.Abort()
			return
		}

		if claims.TokenType != "access" {
			response.Unauthorized(c, 10002, "Token 类型无效")
			c.Abort()
			return
		}

		// user_id 由外部身份服务决定格式，只限制长度
		if claims.UserID == "" || len(claims.UserID) > maxSubjectLen {
			response.Unauthorized(c, 10002, "Token 主体无效")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)

		c.Next()
	}
}

// RoleAuth 角色权限中间件，allowedRoles 为空时不做限制
func RoleAuth(allowedRoles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		if len(allowed) == 0 {
			c.Next()
			return
		}

		role, ok := c.Get("role")
		if !ok {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		if r, _ := role.(string); !allowed[r] {
			response.Forbidden(c, 10003, "无权限修改排课数据")
			c.Abort()
			return
		}

		c.Next()
	}
}
