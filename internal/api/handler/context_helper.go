package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"phias/backend/internal/service"
	"phias/backend/pkg/response"
)

// MustGetUserID 从 Gin 上下文中安全提取 user_id。
// 如果 JWT 中间件未正确注入 user_id，返回 false 并写入 401 响应。
// 调用方应在 ok=false 时直接 return。
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "未认证")
		return "", false
	}
	return s, true
}

// callerContext 请求 ctx 附带操作人，写操作据此记录 created_by / updated_by
func callerContext(c *gin.Context) (context.Context, bool) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return nil, false
	}
	return service.WithCaller(c.Request.Context(), userID), true
}
