package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/supplestore/internal/domain/user"
	apperrors "github.com/xiebiao/supplestore/pkg/errors"
	"github.com/xiebiao/supplestore/pkg/jwt"
	"github.com/xiebiao/supplestore/pkg/response"
)

// Context键
const (
	ctxUserID = "user_id"
	ctxEmail  = "email"
	ctxRole   = "role"
	ctxToken  = "access_token"
)

// TokenBlacklist 已登出Token查询（Redis实现）
type TokenBlacklist interface {
	IsInBlacklist(ctx context.Context, token string) (bool, error)
}

// AuthMiddleware JWT认证中间件
// 1. 从Header提取Token
// 2. 检查Token黑名单
// 3. 验证Token并将用户信息注入Context
type AuthMiddleware struct {
	jwtManager *jwt.Manager
	blacklist  TokenBlacklist
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(jwtManager *jwt.Manager, blacklist TokenBlacklist) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager, blacklist: blacklist}
}

// RequireAuth 要求登录
//
//	authorized := r.Group("/api/v1")
//	authorized.Use(authMiddleware.RequireAuth())
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.ErrorWithCode(c, apperrors.ErrCodeUnauthorized, "请先登录")
			c.Abort()
			return
		}

		blacklisted, err := m.blacklist.IsInBlacklist(c.Request.Context(), token)
		if err != nil {
			response.Error(c, apperrors.Wrap(err, "验证Token失败"))
			c.Abort()
			return
		}
		if blacklisted {
			response.Error(c, apperrors.ErrInvalidToken.WithMessage("Token已失效，请重新登录"))
			c.Abort()
			return
		}

		claims, err := m.jwtManager.ParseAccessToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxEmail, claims.Email)
		c.Set(ctxRole, claims.Role)
		c.Set(ctxToken, token)
		c.Next()
	}
}

// RequireAdmin 要求管理员角色，必须放在RequireAuth之后
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetRole(c) != string(user.RoleAdmin) {
			response.ErrorWithCode(c, apperrors.ErrCodeForbidden, "需要管理员权限")
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// GetUserID 当前登录用户ID，未登录为0
func GetUserID(c *gin.Context) uint {
	return c.GetUint(ctxUserID)
}

// GetEmail 当前登录用户邮箱
func GetEmail(c *gin.Context) string {
	return c.GetString(ctxEmail)
}

// GetRole 当前登录用户角色
func GetRole(c *gin.Context) string {
	return c.GetString(ctxRole)
}

// GetToken 当前请求的Access Token（登出时加入黑名单）
func GetToken(c *gin.Context) string {
	return c.GetString(ctxToken)
}

// Actor 审计日志中的操作人
func Actor(c *gin.Context) string {
	if email := GetEmail(c); email != "" {
		return email
	}
	return "anonymous"
}
