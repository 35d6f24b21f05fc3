// Package inventory 库存账本用例
package inventory

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"github.com/xiebiao/supplestore/internal/domain/catalog"
	"github.com/xiebiao/supplestore/internal/domain/inventory"
	"github.com/xiebiao/supplestore/pkg/metrics"
	"github.com/xiebiao/supplestore/pkg/tracing"
)

// Ledger 库存账本
// 所有库存变动（下单扣减、取消退回、后台调整）都经过Apply：
// 锁定规格行 → 校验结果不为负 → 更新库存 → 追加流水
// Apply本身不开事务，必须在调用方的事务内执行
type Ledger struct {
	catalogRepo   catalog.Repository
	inventoryRepo inventory.Repository
}

// NewLedger 创建库存账本
func NewLedger(catalogRepo catalog.Repository, inventoryRepo inventory.Repository) *Ledger {
	return &Ledger{catalogRepo: catalogRepo, inventoryRepo: inventoryRepo}
}

// Change 一次库存变动
type Change struct {
	VariantID   uint
	Delta       int
	Reason      inventory.Reason
	ReferenceID *uint
	Notes       string
	Actor       string
}

// Apply 执行库存变动并返回流水
// 库存不足返回catalog.ErrInsufficientStock（附带商品名与当前库存）
func (l *Ledger) Apply(ctx context.Context, c Change) (*inventory.InventoryLog, error) {
	ctx, span := tracing.StartSpan(ctx, "inventory.apply",
		attribute.Int64("variant.id", int64(c.VariantID)),
		attribute.Int("inventory.delta", c.Delta),
		attribute.String("inventory.reason", string(c.Reason)),
	)
	var err error
	defer func() { tracing.EndSpan(span, err) }()

	// SELECT ... FOR UPDATE，同一规格的并发变动在此排队
	v, err := l.catalogRepo.LockVariantByID(ctx, c.VariantID)
	if err != nil {
		return nil, err
	}

	log, err := inventory.NewLog(v.ID, v.Quantity, c.Delta, c.Reason, c.ReferenceID, c.Notes, c.Actor)
	if err != nil {
		if errors.Is(err, inventory.ErrNegativeStock) {
			err = InsufficientStock(v, -c.Delta)
		}
		return nil, err
	}

	// 条件更新兜底：quantity + delta >= 0
	if err = l.catalogRepo.UpdateVariantQuantity(ctx, v.ID, c.Delta); err != nil {
		if errors.Is(err, catalog.ErrInsufficientStock) {
			err = InsufficientStock(v, -c.Delta)
		}
		return nil, err
	}
	if err = l.inventoryRepo.Create(ctx, log); err != nil {
		return nil, err
	}

	metrics.IncCounterVec(metrics.InventoryChangesTotal, string(c.Reason))
	return log, nil
}

// InsufficientStock 库存不足错误，消息中包含商品名、SKU与当前库存
func InsufficientStock(v *catalog.ProductVariant, requested int) error {
	return catalog.ErrInsufficientStock.WithMessage("insufficient stock: %s (%s) 当前库存%d，需要%d",
		v.ProductName, v.SKU, v.Quantity, requested)
}
