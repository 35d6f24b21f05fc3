package order

import (
	apperrors "github.com/xiebiao/supplestore/pkg/errors"
)

// 订单领域错误定义
var (
	ErrOrderNotFound    = apperrors.New(apperrors.ErrCodeOrderNotFound, "订单不存在")
	ErrPaymentNotFound  = apperrors.New(apperrors.ErrCodeNotFound, "支付记录不存在")
	ErrAddressNotFound  = apperrors.New(apperrors.ErrCodeAddressNotFound, "收货地址不存在")
	ErrTrackingNotFound = apperrors.New(apperrors.ErrCodeNotFound, "物流信息不存在")

	// ErrInvalidStatusTransition 非法的状态转换（WithMessage附带当前/目标状态）
	ErrInvalidStatusTransition = apperrors.New(apperrors.ErrCodeInvalidOrderStatus, "订单状态不允许此操作")
	ErrUnknownStatus           = apperrors.New(apperrors.ErrCodeInvalidParams, "未知的订单状态")

	ErrInvalidOrderItems = apperrors.New(apperrors.ErrCodeInvalidParams, "订单明细不能为空")
	ErrInvalidQuantity   = apperrors.New(apperrors.ErrCodeInvalidParams, "购买数量必须大于0")
	ErrInvalidDiscount   = apperrors.New(apperrors.ErrCodeInvalidParams, "折扣金额必须在0到订单小计之间")
	ErrInvalidPeriod     = apperrors.New(apperrors.ErrCodeInvalidParams, "统计周期必须为day/week/month/year")
	ErrInvalidSortField  = apperrors.New(apperrors.ErrCodeInvalidParams, "不支持的排序字段")
	ErrInvalidDateRange  = apperrors.New(apperrors.ErrCodeInvalidParams, "开始日期必须早于结束日期")

	ErrInvalidSignature = apperrors.New(apperrors.ErrCodeInvalidSignature, "支付签名校验失败")
	ErrPaymentMismatch  = apperrors.New(apperrors.ErrCodeInvalidParams, "支付单与订单不匹配")

	// ErrRefundInDoubt 存在未完成的网关退款记录，需先到网关核对，不能再次发起
	ErrRefundInDoubt = apperrors.New(apperrors.ErrCodeRefundInDoubt, "上一次退款结果未知，请先在支付网关核对")
)
