package coupon

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType 折扣类型
type DiscountType string

const (
	DiscountPercentage  DiscountType = "PERCENTAGE"
	DiscountFixedAmount DiscountType = "FIXED_AMOUNT"
)

// Valid 是否为合法类型
func (t DiscountType) Valid() bool {
	return t == DiscountPercentage || t == DiscountFixedAmount
}

// 任何优惠券的折扣都不超过购物车小计的90%
var (
	MaxDiscountRate    = decimal.NewFromFloat(0.9)
	MaxDiscountPercent = decimal.NewFromInt(90)
	hundred            = decimal.NewFromInt(100)
)

// Coupon 优惠券
type Coupon struct {
	ID             uint
	Code           string // 唯一，统一大写
	Description    string
	DiscountType   DiscountType
	DiscountValue  decimal.Decimal
	MinOrderAmount *decimal.Decimal
	MaxUses        *int
	UsedCount      int
	StartDate      *time.Time
	EndDate        *time.Time
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NormalizeCode 去空格并转大写
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate 后台创建/修改优惠券时的规则校验
func (c *Coupon) Validate() error {
	if c.Code == "" {
		return ErrInvalidCouponCode
	}
	if !c.DiscountType.Valid() {
		return ErrInvalidDiscountType
	}
	if !c.DiscountValue.IsPositive() {
		return ErrInvalidDiscountValue
	}
	if c.DiscountType == DiscountPercentage && c.DiscountValue.GreaterThan(hundred) {
		return ErrInvalidDiscountValue
	}
	if c.MinOrderAmount != nil && c.MinOrderAmount.IsNegative() {
		return ErrInvalidMinOrder
	}
	if c.MaxUses != nil && *c.MaxUses <= 0 {
		return ErrInvalidMaxUses
	}
	if c.StartDate != nil && c.EndDate != nil && !c.EndDate.After(*c.StartDate) {
		return ErrInvalidWindow
	}
	return nil
}

// Exhausted 使用次数是否已达上限
func (c *Coupon) Exhausted() bool {
	return c.MaxUses != nil && c.UsedCount >= *c.MaxUses
}

// Evaluation 优惠券试算结果
type Evaluation struct {
	CouponID   uint            `json:"coupon_id"`
	Code       string          `json:"code"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Discount   decimal.Decimal `json:"discount"`
	FinalTotal decimal.Decimal `json:"final_total"`
}

// Evaluate 计算优惠金额（纯函数，不修改优惠券）
// 规则：
// 1. 未启用视为无效码；不在有效期内拒绝
// 2. 小计低于最低消费拒绝；使用次数达上限拒绝
// 3. 百分比折扣的比例先截断到90%，固定金额按面值
// 4. 最终折扣不超过小计的90%，折扣与应付金额四舍五入到2位小数
func Evaluate(c *Coupon, subtotal decimal.Decimal, now time.Time) (*Evaluation, error) {
	if c == nil || !c.IsActive {
		return nil, ErrInvalidCouponCode
	}
	if c.StartDate != nil && now.Before(*c.StartDate) {
		return nil, ErrCouponNotStarted
	}
	if c.EndDate != nil && now.After(*c.EndDate) {
		return nil, ErrCouponExpired
	}
	if c.MinOrderAmount != nil && subtotal.LessThan(*c.MinOrderAmount) {
		return nil, ErrMinOrderNotMet.WithMessage("订单金额未达到优惠券最低消费 %s", c.MinOrderAmount.StringFixed(2))
	}
	if c.Exhausted() {
		return nil, ErrUsageExceeded
	}

	var raw decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		pct := decimal.Min(c.DiscountValue, MaxDiscountPercent)
		raw = subtotal.Mul(pct).Div(hundred)
	case DiscountFixedAmount:
		raw = c.DiscountValue
	default:
		return nil, ErrInvalidDiscountType
	}

	discount := decimal.Min(raw, subtotal.Mul(MaxDiscountRate))
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	discount = discount.Round(2)

	return &Evaluation{
		CouponID:   c.ID,
		Code:       c.Code,
		Subtotal:   subtotal.Round(2),
		Discount:   discount,
		FinalTotal: subtotal.Sub(discount).Round(2),
	}, nil
}
