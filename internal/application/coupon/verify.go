// Package coupon 优惠券用例
package coupon

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/xiebiao/supplestore/internal/domain/coupon"
	apperrors "github.com/xiebiao/supplestore/pkg/errors"
	"github.com/xiebiao/supplestore/pkg/metrics"
	"github.com/xiebiao/supplestore/pkg/tracing"
)

// VerifyCouponUseCase 优惠券试算（不修改使用次数）
type VerifyCouponUseCase struct {
	repo coupon.Repository
	now  func() time.Time
}

// NewVerifyCouponUseCase 创建试算用例
func NewVerifyCouponUseCase(repo coupon.Repository) *VerifyCouponUseCase {
	return &VerifyCouponUseCase{repo: repo, now: time.Now}
}

// Execute 按优惠码试算
func (uc *VerifyCouponUseCase) Execute(ctx context.Context, code string, subtotal decimal.Decimal) (*coupon.Evaluation, error) {
	ctx, span := tracing.StartSpan(ctx, "coupon.verify", attribute.String("coupon.code", coupon.NormalizeCode(code)))
	eval, err := uc.evaluate(ctx, code, subtotal)
	tracing.EndSpan(span, err)

	result := "accepted"
	if err != nil {
		result = "rejected"
	}
	metrics.IncCounterVec(metrics.CouponEvaluationsTotal, result)
	return eval, err
}

func (uc *VerifyCouponUseCase) evaluate(ctx context.Context, code string, subtotal decimal.Decimal) (*coupon.Evaluation, error) {
	if subtotal.IsNegative() {
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "订单金额不能为负数")
	}
	code = coupon.NormalizeCode(code)
	if code == "" {
		return nil, coupon.ErrInvalidCouponCode
	}

	c, err := uc.repo.FindActiveByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return coupon.Evaluate(c, subtotal, uc.now())
}

// CartSubtotaler 当前用户购物车小计（由cart.Service实现）
type CartSubtotaler interface {
	Subtotal(ctx context.Context, userID uint) (decimal.Decimal, error)
}

// ApplyCouponUseCase 对当前购物车试算，结账时再正式使用
type ApplyCouponUseCase struct {
	verify *VerifyCouponUseCase
	cart   CartSubtotaler
}

// NewApplyCouponUseCase 创建购物车试算用例
func NewApplyCouponUseCase(verify *VerifyCouponUseCase, cart CartSubtotaler) *ApplyCouponUseCase {
	return &ApplyCouponUseCase{verify: verify, cart: cart}
}

// Execute 购物车为空时返回cart.ErrCartEmpty
func (uc *ApplyCouponUseCase) Execute(ctx context.Context, userID uint, code string) (*coupon.Evaluation, error) {
	subtotal, err := uc.cart.Subtotal(ctx, userID)
	if err != nil {
		return nil, err
	}
	return uc.verify.Execute(ctx, code, subtotal)
}
