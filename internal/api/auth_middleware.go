package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"inkside/internal/entity"
	"inkside/internal/ledger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	currentUserContextKey = "current-user"

	// guestKeyHeader 携带访客的匿名标识，由客户端生成并保持稳定。
	guestKeyHeader = "X-Guest-Key"
)

// RequestUser 存储请求上下文中的认证用户信息
type RequestUser struct {
	ID          uint
	Email       string
	DisplayName string
	Role        string
}

// IsSuperAdmin 判断用户是否为超级管理员
func (u *RequestUser) IsSuperAdmin() bool {
	if u == nil {
		return false
	}
	return u.Role == entity.UserRoleSuperAdmin
}

// AuthMiddleware JWT 认证中间件
func (h *HTTPHandler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, errCode, status, message := h.resolveBearerUser(c)
		if user == nil {
			c.AbortWithStatusJSON(status, APIError{Code: errCode, Message: message})
			return
		}
		c.Set(currentUserContextKey, user)
		c.Next()
	}
}

// OptionalAuthMiddleware 可选认证中间件：携带有效 Token 时解析用户，
// 否则按访客继续，不拒绝请求。
func (h *HTTPHandler) OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.TrimSpace(c.GetHeader("Authorization")) != "" {
			user, errCode, status, message := h.resolveBearerUser(c)
			if user == nil {
				c.AbortWithStatusJSON(status, APIError{Code: errCode, Message: message})
				return
			}
			c.Set(currentUserContextKey, user)
		}
		c.Next()
	}
}

// resolveBearerUser 解析并校验 Bearer Token，返回数据库中的用户。
func (h *HTTPHandler) resolveBearerUser(c *gin.Context) (*RequestUser, string, int, string) {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader == "" {
		return nil, ErrCodeUnauthorized, http.StatusUnauthorized, "缺少授权头"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, ErrCodeUnauthorized, http.StatusUnauthorized, "无效的授权头格式"
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return nil, ErrCodeUnauthorized, http.StatusUnauthorized, "缺少 Bearer Token"
	}

	claims, err := h.authManager.ParseToken(tokenString)
	if err != nil {
		logrus.WithError(err).Warn("failed to parse jwt token")
		return nil, ErrCodeSessionExpired, http.StatusUnauthorized, "Token 无效或已过期"
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	user, err := h.repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeUserNotFound, http.StatusUnauthorized, "用户不存在"
		}
		logrus.WithError(err).WithField("user_id", claims.UserID).Error("failed to load user")
		return nil, ErrCodeInternalError, http.StatusInternalServerError, "验证用户失败"
	}

	if !user.IsActive {
		return nil, ErrCodeUserDisabled, http.StatusForbidden, "账户已被禁用"
	}

	return &RequestUser{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
	}, "", 0, ""
}

// CurrentUser 从上下文获取当前认证用户
func CurrentUser(c *gin.Context) *RequestUser {
	value, exists := c.Get(currentUserContextKey)
	if !exists {
		return nil
	}
	user, ok := value.(*RequestUser)
	if !ok {
		return nil
	}
	return user
}

// requestIdentity 解析请求的记账身份：已登录用户优先，否则取访客标识头。
func requestIdentity(c *gin.Context) ledger.Identity {
	if user := CurrentUser(c); user != nil {
		return ledger.Identity{UserID: user.ID}
	}
	return ledger.Identity{GuestKey: strings.TrimSpace(c.GetHeader(guestKeyHeader))}
}
