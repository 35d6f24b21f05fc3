// Package payment 支付网关实现（Razorpay、Stripe）
package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domainpayment "github.com/xiebiao/supplestore/internal/domain/payment"
	"github.com/xiebiao/supplestore/internal/infrastructure/config"
)

// ProviderNone 未配置网关
const ProviderNone = "none"

// New 按配置创建网关，返回值已经过GuardedGateway包装
// provider为none时返回DisabledGateway：线上支付不可用，手工订单与退款降级仍可工作
func New(cfg config.PaymentConfig, log *zap.Logger) (domainpayment.Gateway, error) {
	var (
		gw  domainpayment.Gateway
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderRazorpay, "":
		gw, err = NewRazorpayGateway(RazorpayConfig{
			KeyID:     cfg.Razorpay.KeyID,
			KeySecret: cfg.Razorpay.KeySecret,
		})
	case ProviderStripe:
		gw, err = NewStripeGateway(StripeConfig{
			APIKey:    cfg.Stripe.APIKey,
			AccountID: cfg.Stripe.AccountID,
		})
	case ProviderNone:
		return DisabledGateway{}, nil
	default:
		return nil, fmt.Errorf("unsupported payment provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return NewGuardedGateway(gw, GuardConfig{
		Timeout:             cfg.Timeout,
		MaxRequests:         cfg.Breaker.MaxRequests,
		Interval:            cfg.Breaker.Interval,
		OpenTimeout:         cfg.Breaker.Timeout,
		ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
	}, log), nil
}

// DisabledGateway 所有调用返回ErrGatewayUnavailable
type DisabledGateway struct{}

var _ domainpayment.Gateway = DisabledGateway{}

func (DisabledGateway) Provider() string { return ProviderNone }

func (DisabledGateway) CreateRemoteOrder(context.Context, decimal.Decimal, string, string) (*domainpayment.RemoteOrder, error) {
	return nil, domainpayment.ErrGatewayUnavailable
}

func (DisabledGateway) VerifyPaymentSignature(context.Context, string, string, string) (bool, error) {
	return false, domainpayment.ErrGatewayUnavailable
}

func (DisabledGateway) Refund(context.Context, string, decimal.Decimal, string) (*domainpayment.RefundResult, error) {
	return nil, domainpayment.ErrGatewayUnavailable
}
