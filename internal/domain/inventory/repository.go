package inventory

import (
	"context"

	"github.com/xiebiao/supplestore/internal/domain/shared"
)

// Repository 库存流水仓储（只有追加与查询）
type Repository interface {
	Create(ctx context.Context, log *InventoryLog) error
	// ListByVariant 分页查询，按时间倒序
	ListByVariant(ctx context.Context, variantID uint, page shared.Page) ([]*InventoryLog, int64, error)
	// ListAllByVariant 全量查询，按ID正序（用于重放）
	ListAllByVariant(ctx context.Context, variantID uint) ([]*InventoryLog, error)
	ListByReference(ctx context.Context, referenceID uint, reason Reason) ([]*InventoryLog, error)
}
