package coupon

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xiebiao/supplestore/internal/domain/activity"
	"github.com/xiebiao/supplestore/internal/domain/coupon"
	"github.com/xiebiao/supplestore/internal/domain/shared"
)

// CreateCouponRequest 创建优惠券
type CreateCouponRequest struct {
	Code           string
	Description    string
	DiscountType   coupon.DiscountType
	DiscountValue  decimal.Decimal
	MinOrderAmount *decimal.Decimal
	MaxUses        *int
	StartDate      *time.Time
	EndDate        *time.Time
	IsActive       bool
	Actor          string
}

// CreateCouponUseCase 后台创建优惠券
type CreateCouponUseCase struct {
	txManager    shared.TxManager
	repo         coupon.Repository
	activityRepo activity.Repository
}

func NewCreateCouponUseCase(txManager shared.TxManager, repo coupon.Repository, activityRepo activity.Repository) *CreateCouponUseCase {
	return &CreateCouponUseCase{txManager: txManager, repo: repo, activityRepo: activityRepo}
}

// Execute 优惠码重复返回ErrCodeDuplicate
func (uc *CreateCouponUseCase) Execute(ctx context.Context, req CreateCouponRequest) (*coupon.Coupon, error) {
	now := time.Now()
	c := &coupon.Coupon{
		Code:           coupon.NormalizeCode(req.Code),
		Description:    req.Description,
		DiscountType:   req.DiscountType,
		DiscountValue:  req.DiscountValue,
		MinOrderAmount: req.MinOrderAmount,
		MaxUses:        req.MaxUses,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		IsActive:       req.IsActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		if err := uc.repo.Create(txCtx, c); err != nil {
			return err
		}
		return uc.activityRepo.Create(txCtx, activity.New(req.Actor, "coupon_created", activity.EntityCoupon, c.ID,
			"coupon %s created (%s %s)", c.Code, c.DiscountType, c.DiscountValue.String()))
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateCouponRequest 修改优惠券，nil字段保持不变
type UpdateCouponRequest struct {
	ID             uint
	Description    *string
	DiscountType   *coupon.DiscountType
	DiscountValue  *decimal.Decimal
	MinOrderAmount *decimal.Decimal
	MaxUses        *int
	StartDate      *time.Time
	EndDate        *time.Time
	IsActive       *bool
	Actor          string
}

// UpdateCouponUseCase 后台修改优惠券（含停用）
type UpdateCouponUseCase struct {
	txManager    shared.TxManager
	repo         coupon.Repository
	activityRepo activity.Repository
}

func NewUpdateCouponUseCase(txManager shared.TxManager, repo coupon.Repository, activityRepo activity.Repository) *UpdateCouponUseCase {
	return &UpdateCouponUseCase{txManager: txManager, repo: repo, activityRepo: activityRepo}
}

// Execute 读-改-写在同一事务内完成
func (uc *UpdateCouponUseCase) Execute(ctx context.Context, req UpdateCouponRequest) (*coupon.Coupon, error) {
	var out *coupon.Coupon
	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		c, err := uc.repo.FindByID(txCtx, req.ID)
		if err != nil {
			return err
		}

		if req.Description != nil {
			c.Description = *req.Description
		}
		if req.DiscountType != nil {
			c.DiscountType = *req.DiscountType
		}
		if req.DiscountValue != nil {
			c.DiscountValue = *req.DiscountValue
		}
		if req.MinOrderAmount != nil {
			c.MinOrderAmount = req.MinOrderAmount
		}
		if req.MaxUses != nil {
			c.MaxUses = req.MaxUses
		}
		if req.StartDate != nil {
			c.StartDate = req.StartDate
		}
		if req.EndDate != nil {
			c.EndDate = req.EndDate
		}
		if req.IsActive != nil {
			c.IsActive = *req.IsActive
		}
		if err := c.Validate(); err != nil {
			return err
		}
		c.UpdatedAt = time.Now()

		if err := uc.repo.Update(txCtx, c); err != nil {
			return err
		}
		out = c
		return uc.activityRepo.Create(txCtx, activity.New(req.Actor, "coupon_updated", activity.EntityCoupon, c.ID,
			"coupon %s updated (active=%t)", c.Code, c.IsActive))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListCouponsUseCase 后台优惠券列表
type ListCouponsUseCase struct {
	repo coupon.Repository
}

func NewListCouponsUseCase(repo coupon.Repository) *ListCouponsUseCase {
	return &ListCouponsUseCase{repo: repo}
}

func (uc *ListCouponsUseCase) Execute(ctx context.Context, page shared.Page) ([]*coupon.Coupon, int64, error) {
	return uc.repo.List(ctx, page.Normalize())
}
