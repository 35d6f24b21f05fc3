package inventory

import (
	"context"

	"github.com/xiebiao/supplestore/internal/domain/catalog"
	"github.com/xiebiao/supplestore/internal/domain/inventory"
	"github.com/xiebiao/supplestore/internal/domain/shared"
)

// ListLogsUseCase 查询规格的库存流水
type ListLogsUseCase struct {
	catalogRepo   catalog.Repository
	inventoryRepo inventory.Repository
}

// NewListLogsUseCase 创建流水查询用例
func NewListLogsUseCase(catalogRepo catalog.Repository, inventoryRepo inventory.Repository) *ListLogsUseCase {
	return &ListLogsUseCase{catalogRepo: catalogRepo, inventoryRepo: inventoryRepo}
}

// Execute 按时间倒序分页
func (uc *ListLogsUseCase) Execute(ctx context.Context, variantID uint, page shared.Page) ([]*inventory.InventoryLog, int64, error) {
	if _, err := uc.catalogRepo.FindVariantByID(ctx, variantID); err != nil {
		return nil, 0, err
	}
	return uc.inventoryRepo.ListByVariant(ctx, variantID, page.Normalize())
}

// ReconcileUseCase 重放流水核对库存
type ReconcileUseCase struct {
	catalogRepo   catalog.Repository
	inventoryRepo inventory.Repository
}

// NewReconcileUseCase 创建核对用例
func NewReconcileUseCase(catalogRepo catalog.Repository, inventoryRepo inventory.Repository) *ReconcileUseCase {
	return &ReconcileUseCase{catalogRepo: catalogRepo, inventoryRepo: inventoryRepo}
}

// ReconcileResult 核对结果
type ReconcileResult struct {
	VariantID uint   `json:"variant_id"`
	SKU       string `json:"sku"`
	inventory.ReplayResult
}

// Execute 从0开始重放全部流水，与当前库存比对
func (uc *ReconcileUseCase) Execute(ctx context.Context, variantID uint) (*ReconcileResult, error) {
	v, err := uc.catalogRepo.FindVariantByID(ctx, variantID)
	if err != nil {
		return nil, err
	}
	logs, err := uc.inventoryRepo.ListAllByVariant(ctx, variantID)
	if err != nil {
		return nil, err
	}
	return &ReconcileResult{
		VariantID:    v.ID,
		SKU:          v.SKU,
		ReplayResult: inventory.Replay(logs, v.Quantity),
	}, nil
}
