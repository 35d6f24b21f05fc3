// Package user 账户用例：注册、登录、登出、刷新Token、一次性令牌、收货地址
package user

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/supplestore/internal/domain/user"
	"github.com/xiebiao/supplestore/pkg/jwt"
	"github.com/xiebiao/supplestore/pkg/logger"
)

// SessionStore 会话与Token黑名单（由redis.SessionStore实现）
type SessionStore interface {
	SaveSession(ctx context.Context, userID uint, sessionData map[string]interface{}, ttl time.Duration) error
	DeleteSession(ctx context.Context, userID uint) error
	AddToBlacklist(ctx context.Context, token string, ttl time.Duration) error
	IsInBlacklist(ctx context.Context, token string) (bool, error)
}

// UserInfo 用户信息（不含密码）
type UserInfo struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func toUserInfo(u *user.User) UserInfo {
	return UserInfo{ID: u.ID, Email: u.Email, Name: u.Name, Role: string(u.Role)}
}

// =========================================
// 注册
// =========================================

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email    string
	Password string
	Name     string
}

// RegisterUseCase 用户注册
// 邮箱在管理员名单内的账户注册后授予admin角色
type RegisterUseCase struct {
	userService user.Service
	userRepo    user.Repository
	adminEmails map[string]struct{}
}

// NewRegisterUseCase 创建注册用例
func NewRegisterUseCase(userService user.Service, userRepo user.Repository, adminEmails []string) *RegisterUseCase {
	admins := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		admins[user.NormalizeEmail(e)] = struct{}{}
	}
	return &RegisterUseCase{userService: userService, userRepo: userRepo, adminEmails: admins}
}

// Execute 执行注册
func (uc *RegisterUseCase) Execute(ctx context.Context, req RegisterRequest) (*UserInfo, error) {
	u, err := uc.userService.Register(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		return nil, err
	}

	if _, ok := uc.adminEmails[u.Email]; ok {
		u.Role = user.RoleAdmin
		u.UpdatedAt = time.Now()
		if err := uc.userRepo.Update(ctx, u); err != nil {
			return nil, err
		}
		logger.FromContext(ctx).Info("管理员账户已注册", zap.Uint("user_id", u.ID))
	}

	info := toUserInfo(u)
	return &info, nil
}

// =========================================
// 登录 / 登出 / 刷新
// =========================================

// LoginResponse 登录响应
type LoginResponse struct {
	User         UserInfo `json:"user"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int64    `json:"expires_in"` // Access Token过期时间（秒）
}

// LoginUseCase 用户登录
// 1. 验证邮箱密码
// 2. 生成Token对，角色写入Access Token
// 3. 保存会话到Redis（失败只记录日志）
type LoginUseCase struct {
	userService  user.Service
	jwtManager   *jwt.Manager
	sessionStore SessionStore
	sessionTTL   time.Duration
}

// NewLoginUseCase 创建登录用例，会话有效期与Refresh Token一致
func NewLoginUseCase(userService user.Service, jwtManager *jwt.Manager, sessionStore SessionStore, sessionTTL time.Duration) *LoginUseCase {
	return &LoginUseCase{
		userService:  userService,
		jwtManager:   jwtManager,
		sessionStore: sessionStore,
		sessionTTL:   sessionTTL,
	}
}

// Execute 执行登录
func (uc *LoginUseCase) Execute(ctx context.Context, email, password, clientIP string) (*LoginResponse, error) {
	u, err := uc.userService.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	pair, err := uc.jwtManager.GenerateToken(u.ID, u.Email, string(u.Role))
	if err != nil {
		return nil, err
	}

	session := map[string]interface{}{
		"user_id":  u.ID,
		"email":    u.Email,
		"role":     string(u.Role),
		"login_at": time.Now().Unix(),
		"ip":       clientIP,
	}
	if err := uc.sessionStore.SaveSession(ctx, u.ID, session, uc.sessionTTL); err != nil {
		logger.FromContext(ctx).Warn("保存会话失败", zap.Uint("user_id", u.ID), zap.Error(err))
	}

	return &LoginResponse{
		User:         toUserInfo(u),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

// LogoutUseCase 用户登出
type LogoutUseCase struct {
	jwtManager   *jwt.Manager
	sessionStore SessionStore
}

// NewLogoutUseCase 创建登出用例
func NewLogoutUseCase(jwtManager *jwt.Manager, sessionStore SessionStore) *LogoutUseCase {
	return &LogoutUseCase{jwtManager: jwtManager, sessionStore: sessionStore}
}

// Execute Access Token加入黑名单（有效期为剩余时间），删除会话
func (uc *LogoutUseCase) Execute(ctx context.Context, accessToken string) error {
	claims, err := uc.jwtManager.ParseAccessToken(accessToken)
	if err != nil {
		return err
	}

	if err := uc.sessionStore.AddToBlacklist(ctx, accessToken, claims.RemainingTTL(time.Now())); err != nil {
		return err
	}
	return uc.sessionStore.DeleteSession(ctx, claims.UserID)
}

// RefreshTokenUseCase 用Refresh Token换取新的Access Token
// 邮箱与角色以数据库当前数据为准
type RefreshTokenUseCase struct {
	jwtManager *jwt.Manager
	userRepo   user.Repository
}

// NewRefreshTokenUseCase 创建刷新用例
func NewRefreshTokenUseCase(jwtManager *jwt.Manager, userRepo user.Repository) *RefreshTokenUseCase {
	return &RefreshTokenUseCase{jwtManager: jwtManager, userRepo: userRepo}
}

// Execute 返回新的Access Token
func (uc *RefreshTokenUseCase) Execute(ctx context.Context, refreshToken string) (string, error) {
	userID, err := uc.jwtManager.UserIDFromRefreshToken(refreshToken)
	if err != nil {
		return "", err
	}
	u, err := uc.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return uc.jwtManager.RefreshAccessToken(refreshToken, u.Email, string(u.Role))
}
