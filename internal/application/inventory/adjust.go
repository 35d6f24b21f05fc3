package inventory

import (
	"context"

	"github.com/xiebiao/supplestore/internal/domain/activity"
	"github.com/xiebiao/supplestore/internal/domain/inventory"
	"github.com/xiebiao/supplestore/internal/domain/shared"
)

// AdjustStockUseCase 后台调整库存
type AdjustStockUseCase struct {
	txManager    shared.TxManager
	ledger       *Ledger
	activityRepo activity.Repository
}

// NewAdjustStockUseCase 创建调整库存用例
func NewAdjustStockUseCase(txManager shared.TxManager, ledger *Ledger, activityRepo activity.Repository) *AdjustStockUseCase {
	return &AdjustStockUseCase{txManager: txManager, ledger: ledger, activityRepo: activityRepo}
}

// AdjustRequest 调整请求
// Reason为空时按adjustment处理
type AdjustRequest struct {
	VariantID   uint
	Delta       int
	Reason      inventory.Reason
	ReferenceID *uint
	Notes       string
	Actor       string
}

// Execute 调整库存与流水、审计日志在同一事务
func (uc *AdjustStockUseCase) Execute(ctx context.Context, req AdjustRequest) (*inventory.InventoryLog, error) {
	if req.Reason == "" {
		req.Reason = inventory.ReasonAdjustment
	}

	var log *inventory.InventoryLog
	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		var err error
		log, err = uc.ledger.Apply(txCtx, Change{
			VariantID:   req.VariantID,
			Delta:       req.Delta,
			Reason:      req.Reason,
			ReferenceID: req.ReferenceID,
			Notes:       req.Notes,
			Actor:       req.Actor,
		})
		if err != nil {
			return err
		}

		return uc.activityRepo.Create(txCtx, activity.New(req.Actor, "inventory_adjusted", activity.EntityVariant, req.VariantID,
			"stock %+d (%s): %d -> %d", req.Delta, req.Reason, log.PreviousQuantity, log.NewQuantity))
	})
	if err != nil {
		return nil, err
	}
	return log, nil
}
