// Package payment 支付网关契约
// 具体实现（Razorpay、Stripe）在infrastructure/payment
package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrGatewayUnavailable 网关未配置或熔断打开
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// RemoteOrder 网关侧订单
type RemoteOrder struct {
	ID       string          `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Receipt  string          `json:"receipt"`
	Provider string          `json:"provider"`
	// KeyID 前端拉起收银台需要的公钥（Stripe为client secret）
	KeyID string `json:"key_id,omitempty"`
}

// RefundResult 退款结果
type RefundResult struct {
	RefundID string
	Amount   decimal.Decimal
	Status   string
}

// Gateway 支付网关
type Gateway interface {
	// Provider 网关名称（razorpay/stripe）
	Provider() string
	CreateRemoteOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (*RemoteOrder, error)
	// VerifyPaymentSignature 返回false表示签名不匹配；error表示网关不可用
	VerifyPaymentSignature(ctx context.Context, gatewayOrderID, gatewayPaymentID, signature string) (bool, error)
	Refund(ctx context.Context, gatewayPaymentID string, amount decimal.Decimal, notes string) (*RefundResult, error)
}
