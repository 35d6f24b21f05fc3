package user

import (
	"context"
	"strings"
	"time"

	"github.com/xiebiao/supplestore/internal/domain/user"
	apperrors "github.com/xiebiao/supplestore/pkg/errors"
)

// AddressRequest 新增收货地址
type AddressRequest struct {
	FullName   string
	Phone      string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
	IsDefault  bool
}

// AddressUseCase 收货地址
type AddressUseCase struct {
	repo user.AddressRepository
}

// NewAddressUseCase 创建地址用例
func NewAddressUseCase(repo user.AddressRepository) *AddressUseCase {
	return &AddressUseCase{repo: repo}
}

// Create 新增地址，设为默认时其他地址取消默认
func (uc *AddressUseCase) Create(ctx context.Context, userID uint, req AddressRequest) (*user.Address, error) {
	a := &user.Address{
		UserID:     userID,
		FullName:   strings.TrimSpace(req.FullName),
		Phone:      strings.TrimSpace(req.Phone),
		Line1:      strings.TrimSpace(req.Line1),
		Line2:      strings.TrimSpace(req.Line2),
		City:       strings.TrimSpace(req.City),
		State:      strings.TrimSpace(req.State),
		PostalCode: strings.TrimSpace(req.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(req.Country)),
		IsDefault:  req.IsDefault,
		CreatedAt:  time.Now(),
	}
	if a.Country == "" {
		a.Country = "IN"
	}
	if a.FullName == "" || a.Line1 == "" || a.City == "" || a.PostalCode == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "收件人、地址、城市、邮编不能为空")
	}

	if err := uc.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// List 当前用户的地址，默认地址在前
func (uc *AddressUseCase) List(ctx context.Context, userID uint) ([]*user.Address, error) {
	return uc.repo.ListByUser(ctx, userID)
}
