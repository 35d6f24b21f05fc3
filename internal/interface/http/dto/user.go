package dto

import (
	"time"

	"github.com/xiebiao/supplestore/internal/domain/user"
)

// RegisterRequest HTTP层注册请求
// 说明：HTTP层的DTO，包含参数验证tag；密码强度由领域服务校验
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=64"`
	Name     string `json:"name" binding:"required,min=2,max=100"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest 刷新Access Token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshResponse 刷新结果
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

// PasswordResetRequest 申请重置密码
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// PasswordResetConfirmRequest 使用邮件中的token设置新密码
type PasswordResetConfirmRequest struct {
	Token       string `json:"token" binding:"required,len=64,hexadecimal"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=64"`
}

// VerifyEmailRequest 邮箱验证
type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required,len=64,hexadecimal"`
}

// AddressRequest 新增收货地址
type AddressRequest struct {
	FullName   string `json:"full_name" binding:"required,max=100"`
	Phone      string `json:"phone" binding:"omitempty,max=20"`
	Line1      string `json:"line1" binding:"required,max=255"`
	Line2      string `json:"line2" binding:"omitempty,max=255"`
	City       string `json:"city" binding:"required,max=100"`
	State      string `json:"state" binding:"omitempty,max=100"`
	PostalCode string `json:"postal_code" binding:"required,max=20"`
	Country    string `json:"country" binding:"omitempty,len=2"`
	IsDefault  bool   `json:"is_default"`
}

// AddressResponse 收货地址
type AddressResponse struct {
	ID         uint      `json:"id"`
	FullName   string    `json:"full_name"`
	Phone      string    `json:"phone,omitempty"`
	Line1      string    `json:"line1"`
	Line2      string    `json:"line2,omitempty"`
	City       string    `json:"city"`
	State      string    `json:"state,omitempty"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
}

// ToAddressResponse 领域实体 → 响应
func ToAddressResponse(a *user.Address) AddressResponse {
	return AddressResponse{
		ID:         a.ID,
		FullName:   a.FullName,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		IsDefault:  a.IsDefault,
		CreatedAt:  a.CreatedAt,
	}
}

// ToAddressList 批量转换
func ToAddressList(list []*user.Address) []AddressResponse {
	out := make([]AddressResponse, 0, len(list))
	for _, a := range list {
		out = append(out, ToAddressResponse(a))
	}
	return out
}
