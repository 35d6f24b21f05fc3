package user

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Role 用户角色
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// User 用户实体（聚合根）
// 密码已加密存储（bcrypt），不对外暴露
type User struct {
	ID            uint
	Email         string
	Password      string // bcrypt哈希值
	Name          string
	Role          Role
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewUser 创建新用户（工厂方法）
// hashedPassword必须是bcrypt加密后的密码
func NewUser(email, hashedPassword, name string) *User {
	now := time.Now()
	return &User{
		Email:     email,
		Password:  hashedPassword,
		Name:      name,
		Role:      RoleCustomer,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsAdmin 是否管理员
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ChangePassword 更新密码哈希
func (u *User) ChangePassword(hashedPassword string) {
	u.Password = hashedPassword
	u.UpdatedAt = time.Now()
}

// Address 收货地址
type Address struct {
	ID         uint
	UserID     uint
	FullName   string
	Phone      string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
	IsDefault  bool
	CreatedAt  time.Time
}

// BelongsTo 地址是否属于该用户
func (a *Address) BelongsTo(userID uint) bool {
	return a.UserID == userID
}

// Purpose 一次性令牌用途
// 不同用途的令牌互不通用（不再通过值前缀区分用途）
type Purpose string

const (
	PurposeEmailVerification Purpose = "email_verification"
	PurposePasswordReset     Purpose = "password_reset"
	PurposeAccountDeletion   Purpose = "account_deletion"
)

// PurposeToken 一次性令牌，只保存哈希
type PurposeToken struct {
	ID         uint
	UserID     uint
	Purpose    Purpose
	TokenHash  string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// NewPurposeToken 生成令牌，返回明文（只发给用户一次）与待持久化实体
func NewPurposeToken(userID uint, purpose Purpose, ttl time.Duration, now time.Time) (string, *PurposeToken, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, err
	}
	plain := hex.EncodeToString(buf)
	return plain, &PurposeToken{
		UserID:    userID,
		Purpose:   purpose,
		TokenHash: HashToken(plain),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}, nil
}

// HashToken 令牌哈希（SHA-256）
func HashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// Usable 未过期且未使用
func (t *PurposeToken) Usable(now time.Time) bool {
	return t.ConsumedAt == nil && now.Before(t.ExpiresAt)
}

// Consume 标记已使用
func (t *PurposeToken) Consume(now time.Time) {
	t.ConsumedAt = &now
}
