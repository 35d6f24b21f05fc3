package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xiebiao/supplestore/internal/domain/coupon"
)

// VerifyCouponRequest 按给定小计试算优惠券（不消耗次数）
type VerifyCouponRequest struct {
	Code     string          `json:"code" binding:"required,max=50"`
	Subtotal decimal.Decimal `json:"subtotal" swaggertype:"string" example:"1000.00"`
}

// ApplyCouponRequest 按当前购物车试算优惠券
type ApplyCouponRequest struct {
	Code string `json:"code" binding:"required,max=50"`
}

// CouponRequest 创建优惠券
type CouponRequest struct {
	Code           string           `json:"code" binding:"required,max=50"`
	Description    string           `json:"description" binding:"omitempty,max=255"`
	DiscountType   string           `json:"discount_type" binding:"required,oneof=PERCENTAGE FIXED_AMOUNT"`
	DiscountValue  decimal.Decimal  `json:"discount_value" swaggertype:"string" example:"10"`
	MinOrderAmount *decimal.Decimal `json:"min_order_amount" swaggertype:"string"`
	MaxUses        *int             `json:"max_uses" binding:"omitempty,gt=0"`
	StartDate      *time.Time       `json:"start_date"`
	EndDate        *time.Time       `json:"end_date"`
	IsActive       *bool            `json:"is_active"`
}

// UpdateCouponRequest 修改优惠券，未传字段保持不变
type UpdateCouponRequest struct {
	Description    *string          `json:"description" binding:"omitempty,max=255"`
	DiscountType   *string          `json:"discount_type" binding:"omitempty,oneof=PERCENTAGE FIXED_AMOUNT"`
	DiscountValue  *decimal.Decimal `json:"discount_value" swaggertype:"string"`
	MinOrderAmount *decimal.Decimal `json:"min_order_amount" swaggertype:"string"`
	MaxUses        *int             `json:"max_uses" binding:"omitempty,gt=0"`
	StartDate      *time.Time       `json:"start_date"`
	EndDate        *time.Time       `json:"end_date"`
	IsActive       *bool            `json:"is_active"`
}

// PageQuery 通用分页参数
type PageQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// CouponResponse 优惠券
type CouponResponse struct {
	ID             uint             `json:"id"`
	Code           string           `json:"code"`
	Description    string           `json:"description,omitempty"`
	DiscountType   string           `json:"discount_type"`
	DiscountValue  decimal.Decimal  `json:"discount_value" swaggertype:"string"`
	MinOrderAmount *decimal.Decimal `json:"min_order_amount,omitempty" swaggertype:"string"`
	MaxUses        *int             `json:"max_uses,omitempty"`
	UsedCount      int              `json:"used_count"`
	StartDate      *time.Time       `json:"start_date,omitempty"`
	EndDate        *time.Time       `json:"end_date,omitempty"`
	IsActive       bool             `json:"is_active"`
	CreatedAt      time.Time        `json:"created_at"`
}

func ToCouponResponse(c *coupon.Coupon) *CouponResponse {
	return &CouponResponse{
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
		CreatedAt:      c.CreatedAt,
	}
}

func ToCouponList(list []*coupon.Coupon) []*CouponResponse {
	out := make([]*CouponResponse, 0, len(list))
	for _, c := range list {
		out = append(out, ToCouponResponse(c))
	}
	return out
}
