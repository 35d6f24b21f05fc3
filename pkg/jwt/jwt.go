package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/xiebiao/supplestore/pkg/errors"
)

const issuer = "supplestore"

// TokenType 区分Access与Refresh，防止用Refresh Token访问接口
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Manager JWT管理器
// 1. Access Token（短期）用于访问接口，Refresh Token（长期）用于刷新
// 2. 使用HS256签名
type Manager struct {
	secret             []byte
	accessTokenExpire  time.Duration
	refreshTokenExpire time.Duration
}

// NewManager 创建JWT管理器
func NewManager(secret string, accessTokenExpire, refreshTokenExpire time.Duration) *Manager {
	return &Manager{
		secret:             []byte(secret),
		accessTokenExpire:  accessTokenExpire,
		refreshTokenExpire: refreshTokenExpire,
	}
}

// Claims 自定义声明
type Claims struct {
	UserID uint      `json:"user_id"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
	Type   TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair Token对
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // Access Token有效期（秒）
}

// GenerateToken 生成Token对
func (m *Manager) GenerateToken(userID uint, email, role string) (*TokenPair, error) {
	now := time.Now()

	access, err := m.sign(userID, email, role, TokenAccess, now, m.accessTokenExpire)
	if err != nil {
		return nil, apperrors.Wrap(err, "生成Access Token失败")
	}
	refresh, err := m.sign(userID, "", "", TokenRefresh, now, m.refreshTokenExpire)
	if err != nil {
		return nil, apperrors.Wrap(err, "生成Refresh Token失败")
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(m.accessTokenExpire.Seconds()),
	}, nil
}

func (m *Manager) sign(userID uint, email, role string, typ TokenType, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   fmt.Sprintf("%d", userID),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// ParseToken 解析并校验Token
// 过期返回ErrTokenExpired，其他问题统一返回ErrInvalidToken
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("非法的签名算法: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, apperrors.ErrInvalidToken
}

// ParseAccessToken 只接受Access Token
func (m *Manager) ParseAccessToken(tokenString string) (*Claims, error) {
	claims, err := m.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenAccess {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}

// RefreshAccessToken 用Refresh Token换取新的Access Token
// 角色与邮箱以当前用户数据为准，由调用方传入
func (m *Manager) RefreshAccessToken(refreshToken, email, role string) (string, error) {
	claims, err := m.ParseToken(refreshToken)
	if err != nil {
		return "", err
	}
	if claims.Type != TokenRefresh {
		return "", apperrors.ErrInvalidToken
	}

	token, err := m.sign(claims.UserID, email, role, TokenAccess, time.Now(), m.accessTokenExpire)
	if err != nil {
		return "", apperrors.Wrap(err, "刷新Token失败")
	}
	return token, nil
}

// UserIDFromRefreshToken 校验Refresh Token并返回用户ID
func (m *Manager) UserIDFromRefreshToken(refreshToken string) (uint, error) {
	claims, err := m.ParseToken(refreshToken)
	if err != nil {
		return 0, err
	}
	if claims.Type != TokenRefresh {
		return 0, apperrors.ErrInvalidToken
	}
	return claims.UserID, nil
}

// RemainingTTL Token剩余有效期（用于黑名单过期时间）
func (c *Claims) RemainingTTL(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}
