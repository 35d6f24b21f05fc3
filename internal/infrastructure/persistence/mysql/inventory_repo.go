package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/xiebiao/supplestore/internal/domain/inventory"
	"github.com/xiebiao/supplestore/internal/domain/shared"
	apperrors "github.com/xiebiao/supplestore/pkg/errors"
)

// inventoryRepository 库存流水仓储（只有INSERT与SELECT）
type inventoryRepository struct {
	db *gorm.DB
}

// NewInventoryRepository 创建库存流水仓储
func NewInventoryRepository(db *gorm.DB) inventory.Repository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) Create(ctx context.Context, l *inventory.InventoryLog) error {
	model := &InventoryLogModel{
		VariantID:        l.VariantID,
		QuantityChange:   l.QuantityChange,
		Reason:           string(l.Reason),
		PreviousQuantity: l.PreviousQuantity,
		NewQuantity:      l.NewQuantity,
		ReferenceID:      l.ReferenceID,
		Notes:            l.Notes,
		CreatedBy:        l.CreatedBy,
		CreatedAt:        l.CreatedAt,
	}
	if err := dbFromContext(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "写入库存流水失败")
	}
	l.ID = model.ID
	return nil
}

func (r *inventoryRepository) ListByVariant(ctx context.Context, variantID uint, page shared.Page) ([]*inventory.InventoryLog, int64, error) {
	var (
		models []InventoryLogModel
		total  int64
	)
	query := dbFromContext(ctx, r.db).Model(&InventoryLogModel{}).Where("variant_id = ?", variantID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询库存流水总数失败")
	}
	if err := query.Order("id DESC").Scopes(paginate(page)).Find(&models).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询库存流水失败")
	}
	return toInventoryLogs(models), total, nil
}

// ListAllByVariant 按ID正序返回全部流水（用于重放）
func (r *inventoryRepository) ListAllByVariant(ctx context.Context, variantID uint) ([]*inventory.InventoryLog, error) {
	var models []InventoryLogModel
	if err := dbFromContext(ctx, r.db).
		Where("variant_id = ?", variantID).
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "查询库存流水失败")
	}
	return toInventoryLogs(models), nil
}

func (r *inventoryRepository) ListByReference(ctx context.Context, referenceID uint, reason inventory.Reason) ([]*inventory.InventoryLog, error) {
	var models []InventoryLogModel
	if err := dbFromContext(ctx, r.db).
		Where("reference_id = ? AND reason = ?", referenceID, string(reason)).
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, apperrors.Wrap(err, "查询库存流水失败")
	}
	return toInventoryLogs(models), nil
}

func toInventoryLogs(models []InventoryLogModel) []*inventory.InventoryLog {
	out := make([]*inventory.InventoryLog, len(models))
	for i, m := range models {
		out[i] = &inventory.InventoryLog{
			ID:               m.ID,
			VariantID:        m.VariantID,
			QuantityChange:   m.QuantityChange,
			Reason:           inventory.Reason(m.Reason),
			PreviousQuantity: m.PreviousQuantity,
			NewQuantity:      m.NewQuantity,
			ReferenceID:      m.ReferenceID,
			Notes:            m.Notes,
			CreatedBy:        m.CreatedBy,
			CreatedAt:        m.CreatedAt,
		}
	}
	return out
}
