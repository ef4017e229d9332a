package api

import (
	"accounts/internal/entity"

	"github.com/gin-gonic/gin"
)

const (
	currentUserContextKey = "current-user"
)

// Protect JWT 认证中间件，解析出的用户保存在请求上下文中
func (h *HTTPHandler) Protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := h.requestContext(c)
		user, err := h.authService.Protect(ctx, c.GetHeader("Authorization"))
		cancel()
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(currentUserContextKey, user)
		c.Next()
	}
}

// RestrictTo 角色权限守卫中间件，必须在 Protect 之后使用
func (h *HTTPHandler) RestrictTo(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := h.authService.RestrictTo(CurrentUser(c), roles...); err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUser 从上下文获取当前认证用户
func CurrentUser(c *gin.Context) *entity.User {
	value, exists := c.Get(currentUserContextKey)
	if !exists {
		return nil
	}
	user, ok := value.(*entity.User)
	if !ok {
		return nil
	}
	return user
}
