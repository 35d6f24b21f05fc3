package user

import (
	"context"
)

// Repository 用户仓储接口
// 接口定义在domain层，具体实现在infrastructure/persistence/mysql
type Repository interface {
	// Create 创建用户，邮箱已存在时返回errors.ErrEmailDuplicate
	Create(ctx context.Context, user *User) error

	// FindByID 根据ID查找用户，不存在返回errors.ErrUserNotFound
	FindByID(ctx context.Context, id uint) (*User, error)

	// FindByEmail 根据邮箱查找用户，不存在返回errors.ErrUserNotFound
	FindByEmail(ctx context.Context, email string) (*User, error)

	// Update 更新用户信息
	Update(ctx context.Context, user *User) error
}

// AddressRepository 收货地址仓储
type AddressRepository interface {
	Create(ctx context.Context, a *Address) error
	FindByID(ctx context.Context, id uint) (*Address, error)
	ListByUser(ctx context.Context, userID uint) ([]*Address, error)
}

// TokenRepository 一次性令牌仓储
type TokenRepository interface {
	Create(ctx context.Context, t *PurposeToken) error
	// FindByHash 按用途与哈希查找，用途不匹配视为不存在
	FindByHash(ctx context.Context, purpose Purpose, hash string) (*PurposeToken, error)
	MarkConsumed(ctx context.Context, t *PurposeToken) error
}
