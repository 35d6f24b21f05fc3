package order

import (
	"context"
	"time"

	"github.com/xiebiao/supplestore/internal/domain/shared"
)

// ListParams 后台订单列表查询参数
type ListParams struct {
	shared.Page
	Status  OrderStatus // 为空表示全部
	UserID  uint        // 为0表示全部
	Keyword string      // 订单号、客户邮箱或姓名模糊匹配
	From    *time.Time  // created_at >= From
	To      *time.Time  // created_at < To
	SortBy  SortField   // 为空按created_at
	Asc     bool        // 默认倒序
}

// SortField 订单列表允许的排序列
type SortField string

const (
	SortByCreatedAt   SortField = "created_at"
	SortByTotal       SortField = "total"
	SortByStatus      SortField = "status"
	SortByOrderNumber SortField = "order_number"
)

// Valid 只有白名单内的列可用于排序
func (f SortField) Valid() bool {
	switch f {
	case SortByCreatedAt, SortByTotal, SortByStatus, SortByOrderNumber:
		return true
	}
	return false
}

// Repository 订单仓储接口
// 订单、明细、物流、支付属于同一聚合，统一由该仓储持久化
type Repository interface {
	// Create 创建订单（包含明细），回填ID
	Create(ctx context.Context, o *Order) error
	// FindByID 查询订单（包含明细、物流及节点、支付及退款）
	FindByID(ctx context.Context, id uint) (*Order, error)
	// LockByID SELECT ... FOR UPDATE，必须在事务内调用；返回完整聚合
	LockByID(ctx context.Context, id uint) (*Order, error)
	// Update 更新状态、备注、取消信息
	Update(ctx context.Context, o *Order) error
	List(ctx context.Context, params ListParams) ([]*Order, int64, error)
	// ListCreatedBetween 查询[from, to)内创建的订单（包含明细），用于统计
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]*Order, error)
	// CountItemsByVariantIDs 引用这些规格的订单明细数量
	CountItemsByVariantIDs(ctx context.Context, variantIDs []uint) (int64, error)
	// DeleteItemsByVariantIDs 物理删除引用这些规格的订单明细（强制删除商品时使用），
	// 返回受影响的订单ID与删除的明细数
	DeleteItemsByVariantIDs(ctx context.Context, variantIDs []uint) ([]uint, int64, error)

	// SaveTracking 创建或更新物流主记录（不含节点），回填ID
	SaveTracking(ctx context.Context, t *Tracking) error
	// AddTrackingUpdate 追加物流节点
	AddTrackingUpdate(ctx context.Context, u *TrackingUpdate) error

	// SavePayment 创建或更新支付记录（不含退款），回填ID
	SavePayment(ctx context.Context, p *Payment) error
	// FindPaymentByGatewayOrderID 按网关订单号查找支付记录（含退款）
	FindPaymentByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*Payment, error)
	CreateRefund(ctx context.Context, r *Refund) error
	// UpdateRefund 更新网关退款号、金额、状态与备注
	UpdateRefund(ctx context.Context, r *Refund) error
}

// Cache 订单详情缓存（cache-aside）
type Cache interface {
	GetOrder(ctx context.Context, id uint) (*Order, bool, error)
	SetOrder(ctx context.Context, o *Order) error
	DeleteOrder(ctx context.Context, id uint) error
}

// StatsCache 统计结果短期缓存，过期前可能返回稍旧的数据
type StatsCache interface {
	GetStats(ctx context.Context, period Period) (*Stats, bool, error)
	SetStats(ctx context.Context, s *Stats) error
}
