package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xiebiao/supplestore/internal/domain/coupon"
	"github.com/xiebiao/supplestore/internal/domain/shared"
	apperrors "github.com/xiebiao/supplestore/pkg/errors"
)

// couponRepository 优惠券仓储实现
type couponRepository struct {
	db *gorm.DB
}

// NewCouponRepository 创建优惠券仓储
func NewCouponRepository(db *gorm.DB) coupon.Repository {
	return &couponRepository{db: db}
}

func (r *couponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	model := toCouponModel(c)
	if err := dbFromContext(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return coupon.ErrCodeDuplicate
		}
		return apperrors.Wrap(err, "创建优惠券失败")
	}
	c.ID = model.ID
	c.CreatedAt = model.CreatedAt
	c.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *couponRepository) FindByID(ctx context.Context, id uint) (*coupon.Coupon, error) {
	var model CouponModel
	if err := dbFromContext(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, coupon.ErrCouponNotFound
		}
		return nil, apperrors.Wrap(err, "查询优惠券失败")
	}
	return toCouponEntity(&model), nil
}

// FindActiveByCode 优惠码统一大写存储
func (r *couponRepository) FindActiveByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	var model CouponModel
	err := dbFromContext(ctx, r.db).
		Where("code = ? AND is_active = ?", coupon.NormalizeCode(code), true).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, coupon.ErrInvalidCouponCode
		}
		return nil, apperrors.Wrap(err, "查询优惠券失败")
	}
	return toCouponEntity(&model), nil
}

// Update 更新配置字段（不含used_count）
func (r *couponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	result := dbFromContext(ctx, r.db).Model(&CouponModel{}).Where("id = ?", c.ID).Updates(map[string]interface{}{
		"description":      c.Description,
		"discount_type":    string(c.DiscountType),
		"discount_value":   c.DiscountValue,
		"min_order_amount": c.MinOrderAmount,
		"max_uses":         c.MaxUses,
		"start_date":       c.StartDate,
		"end_date":         c.EndDate,
		"is_active":        c.IsActive,
		"updated_at":       c.UpdatedAt,
	})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新优惠券失败")
	}
	if result.RowsAffected == 0 {
		return coupon.ErrCouponNotFound
	}
	return nil
}

func (r *couponRepository) List(ctx context.Context, page shared.Page) ([]*coupon.Coupon, int64, error) {
	var (
		models []CouponModel
		total  int64
	)
	query := dbFromContext(ctx, r.db).Model(&CouponModel{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询优惠券总数失败")
	}
	if err := query.Order("id DESC").Scopes(paginate(page)).Find(&models).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询优惠券列表失败")
	}
	out := make([]*coupon.Coupon, len(models))
	for i := range models {
		out[i] = toCouponEntity(&models[i])
	}
	return out, total, nil
}

// IncrementUsage 原子递增使用次数
// UPDATE coupons SET used_count = used_count + 1 WHERE id = ? AND (max_uses IS NULL OR used_count < max_uses)
func (r *couponRepository) IncrementUsage(ctx context.Context, id uint) error {
	db := dbFromContext(ctx, r.db)
	result := db.Model(&CouponModel{}).
		Where("id = ?", id).
		Where("max_uses IS NULL OR used_count < max_uses").
		Update("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新优惠券使用次数失败")
	}
	if result.RowsAffected == 0 {
		var model CouponModel
		if err := db.Select("id").First(&model, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return coupon.ErrCouponNotFound
			}
			return apperrors.Wrap(err, "查询优惠券失败")
		}
		return coupon.ErrUsageExceeded
	}
	return nil
}

func toCouponModel(c *coupon.Coupon) *CouponModel {
	return &CouponModel{
		ID:             c.ID,
		Code:           c.Code,
		Description:    c.Description,
		DiscountType:   string(c.DiscountType),
		DiscountValue:  c.DiscountValue,
		MinOrderAmount: c.MinOrderAmount,
		MaxUses:        c.MaxUses,
		UsedCount:      c.UsedCount,
		StartDate:      c.StartDate,
		EndDate:        c.EndDate,
		IsActive:       c.IsActive,
	}
}

func toCouponEntity(m *CouponModel) *coupon.Coupon {
	return &coupon.Coupon{
		ID:             m.ID,
		Code:           m.Code,
		Description:    m.Description,
		DiscountType:   coupon.DiscountType(m.DiscountType),
		DiscountValue:  m.DiscountValue,
		MinOrderAmount: m.MinOrderAmount,
		MaxUses:        m.MaxUses,
		UsedCount:      m.UsedCount,
		StartDate:      m.StartDate,
		EndDate:        m.EndDate,
		IsActive:       m.IsActive,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
