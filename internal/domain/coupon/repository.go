package coupon

import (
	"context"

	"github.com/xiebiao/supplestore/internal/domain/shared"
)

// Repository 优惠券仓储接口
type Repository interface {
	// Create 优惠码重复返回ErrCodeDuplicate
	Create(ctx context.Context, c *Coupon) error
	FindByID(ctx context.Context, id uint) (*Coupon, error)
	// FindActiveByCode 只查询已启用的优惠券，未找到返回ErrInvalidCouponCode
	FindActiveByCode(ctx context.Context, code string) (*Coupon, error)
	Update(ctx context.Context, c *Coupon) error
	List(ctx context.Context, page shared.Page) ([]*Coupon, int64, error)
	// IncrementUsage 原子递增使用次数（带max_uses保护），已达上限返回ErrUsageExceeded
	IncrementUsage(ctx context.Context, id uint) error
}
