package coupon

import (
	apperrors "github.com/xiebiao/supplestore/pkg/errors"
)

var (
	ErrCouponNotFound = apperrors.New(apperrors.ErrCodeCouponNotFound, "优惠券不存在")
	ErrCodeDuplicate  = apperrors.New(apperrors.ErrCodeCouponDuplicate, "优惠码已存在")

	// 试算/使用时的拒绝原因
	ErrInvalidCouponCode = apperrors.New(apperrors.ErrCodeInvalidCoupon, "invalid code: 优惠码无效")
	ErrCouponNotStarted  = apperrors.New(apperrors.ErrCodeInvalidCoupon, "优惠券尚未生效")
	ErrCouponExpired     = apperrors.New(apperrors.ErrCodeInvalidCoupon, "优惠券已过期")
	ErrMinOrderNotMet    = apperrors.New(apperrors.ErrCodeInvalidCoupon, "订单金额未达到优惠券最低消费")
	ErrUsageExceeded     = apperrors.New(apperrors.ErrCodeInvalidCoupon, "优惠券使用次数已达上限")

	// 后台配置校验
	ErrInvalidDiscountType  = apperrors.New(apperrors.ErrCodeInvalidParams, "折扣类型不合法")
	ErrInvalidDiscountValue = apperrors.New(apperrors.ErrCodeInvalidParams, "折扣值必须大于0，百分比不能超过100")
	ErrInvalidMinOrder      = apperrors.New(apperrors.ErrCodeInvalidParams, "最低消费不能为负数")
	ErrInvalidMaxUses       = apperrors.New(apperrors.ErrCodeInvalidParams, "最大使用次数必须大于0")
	ErrInvalidWindow        = apperrors.New(apperrors.ErrCodeInvalidParams, "结束时间必须晚于开始时间")
)
