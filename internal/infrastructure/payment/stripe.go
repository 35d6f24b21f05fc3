package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	domainpayment "github.com/xiebiao/supplestore/internal/domain/payment"
)

// ProviderStripe 网关名称
const ProviderStripe = "stripe"

type stripePaymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeRefundAPI interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

// StripeConfig Stripe配置
type StripeConfig struct {
	APIKey    string
	AccountID string
	Backends  *stripe.Backends

	intents stripePaymentIntentAPI
	refunds stripeRefundAPI
}

// StripeGateway 基于PaymentIntent的Stripe网关
// 远端订单即PaymentIntent，KeyID返回client_secret供前端确认支付；
// Stripe没有回调签名，校验时查询PaymentIntent状态是否为succeeded
type StripeGateway struct {
	intents stripePaymentIntentAPI
	refunds stripeRefundAPI
	account string
}

var _ domainpayment.Gateway = (*StripeGateway)(nil)

// NewStripeGateway 创建Stripe网关
func NewStripeGateway(cfg StripeConfig) (*StripeGateway, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && (cfg.intents == nil || cfg.refunds == nil) {
		return nil, errors.New("stripe: api key is required")
	}

	g := &StripeGateway{
		intents: cfg.intents,
		refunds: cfg.refunds,
		account: strings.TrimSpace(cfg.AccountID),
	}
	if g.intents == nil || g.refunds == nil {
		sc := client.New(apiKey, cfg.Backends)
		g.intents = sc.PaymentIntents
		g.refunds = sc.Refunds
	}
	return g, nil
}

func (g *StripeGateway) Provider() string {
	return ProviderStripe
}

func (g *StripeGateway) CreateRemoteOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (*domainpayment.RemoteOrder, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toMinorUnits(amount)),
		Currency: stripe.String(strings.ToLower(currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.Metadata = map[string]string{"receipt": receipt}
	params.SetIdempotencyKey("pi_" + receipt)
	if g.account != "" {
		params.SetStripeAccount(g.account)
	}

	intent, err := g.intents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}

	return &domainpayment.RemoteOrder{
		ID:       intent.ID,
		Amount:   amount,
		Currency: strings.ToUpper(currency),
		Receipt:  receipt,
		Provider: ProviderStripe,
		KeyID:    intent.ClientSecret,
	}, nil
}

// VerifyPaymentSignature 忽略signature，以PaymentIntent状态为准
// gatewayPaymentID可以是PaymentIntent ID或其最新Charge ID
func (g *StripeGateway) VerifyPaymentSignature(ctx context.Context, gatewayOrderID, gatewayPaymentID, _ string) (bool, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	if g.account != "" {
		params.SetStripeAccount(g.account)
	}

	intent, err := g.intents.Get(gatewayOrderID, params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.HTTPStatusCode == 404 {
			return false, nil
		}
		return false, fmt.Errorf("stripe: get payment intent: %w", err)
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return false, nil
	}
	if gatewayPaymentID == "" || gatewayPaymentID == intent.ID {
		return true, nil
	}
	return intent.LatestCharge != nil && intent.LatestCharge.ID == gatewayPaymentID, nil
}

func (g *StripeGateway) Refund(ctx context.Context, gatewayPaymentID string, amount decimal.Decimal, notes string) (*domainpayment.RefundResult, error) {
	params := &stripe.RefundParams{
		Amount: stripe.Int64(toMinorUnits(amount)),
		Reason: stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	if strings.HasPrefix(gatewayPaymentID, "ch_") {
		params.Charge = stripe.String(gatewayPaymentID)
	} else {
		params.PaymentIntent = stripe.String(gatewayPaymentID)
	}
	params.Context = ctx
	if notes != "" {
		params.Metadata = map[string]string{"notes": notes}
	}
	if g.account != "" {
		params.SetStripeAccount(g.account)
	}

	refund, err := g.refunds.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: refund %s: %w", gatewayPaymentID, err)
	}

	return &domainpayment.RefundResult{
		RefundID: refund.ID,
		Amount:   fromMinorUnits(refund.Amount),
		Status:   string(refund.Status),
	}, nil
}
