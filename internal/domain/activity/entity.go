package activity

import (
	"context"
	"fmt"
	"time"
)

// 审计对象类型
const (
	EntityOrder     = "order"
	EntityVariant   = "product_variant"
	EntityProduct   = "product"
	EntityCoupon    = "coupon"
	EntityInventory = "inventory"
)

// ActivityLog 后台操作审计日志（只追加）
type ActivityLog struct {
	ID          uint
	Actor       string
	Action      string
	EntityType  string
	EntityID    uint
	Description string
	CreatedAt   time.Time
}

// New 创建审计日志
func New(actor, action, entityType string, entityID uint, format string, args ...interface{}) *ActivityLog {
	return &ActivityLog{
		Actor:       actor,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Description: fmt.Sprintf(format, args...),
		CreatedAt:   time.Now(),
	}
}

// Repository 审计日志仓储
type Repository interface {
	Create(ctx context.Context, log *ActivityLog) error
	ListByEntity(ctx context.Context, entityType string, entityID uint) ([]*ActivityLog, error)
}
