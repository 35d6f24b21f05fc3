package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"

	domainpayment "github.com/xiebiao/supplestore/internal/domain/payment"
)

// ProviderRazorpay 网关名称
const ProviderRazorpay = "razorpay"

// razorpay-go的资源客户端没有接口定义，这里只声明用到的方法，便于测试替换
type razorpayOrderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type razorpayPaymentAPI interface {
	Refund(paymentID string, amount int, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayConfig Razorpay配置
type RazorpayConfig struct {
	KeyID     string
	KeySecret string

	// 测试注入，为nil时使用razorpay.NewClient
	orders   razorpayOrderAPI
	payments razorpayPaymentAPI
}

// RazorpayGateway Razorpay支付网关
// 下单：Orders API创建远端订单，前端用key_id拉起收银台
// 校验：HMAC-SHA256(order_id|payment_id, key_secret)的十六进制与回调签名比对
type RazorpayGateway struct {
	keyID     string
	keySecret string
	orders    razorpayOrderAPI
	payments  razorpayPaymentAPI
}

var _ domainpayment.Gateway = (*RazorpayGateway)(nil)

// NewRazorpayGateway 创建Razorpay网关
func NewRazorpayGateway(cfg RazorpayConfig) (*RazorpayGateway, error) {
	keyID := strings.TrimSpace(cfg.KeyID)
	secret := strings.TrimSpace(cfg.KeySecret)
	if secret == "" {
		return nil, errors.New("razorpay: key secret is required")
	}

	g := &RazorpayGateway{
		keyID:     keyID,
		keySecret: secret,
		orders:    cfg.orders,
		payments:  cfg.payments,
	}
	if g.orders == nil || g.payments == nil {
		client := razorpay.NewClient(keyID, secret)
		g.orders = client.Order
		g.payments = client.Payment
	}
	return g, nil
}

func (g *RazorpayGateway) Provider() string {
	return ProviderRazorpay
}

// CreateRemoteOrder 创建Razorpay订单，amount按最小货币单位提交
func (g *RazorpayGateway) CreateRemoteOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (*domainpayment.RemoteOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"amount":   toMinorUnits(amount),
		"currency": currency,
		"receipt":  receipt,
	}
	resp, err := g.orders.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay: create order: %w", err)
	}

	id, _ := resp["id"].(string)
	if id == "" {
		return nil, errors.New("razorpay: create order: empty order id")
	}

	return &domainpayment.RemoteOrder{
		ID:       id,
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Provider: ProviderRazorpay,
		KeyID:    g.keyID,
	}, nil
}

// VerifyPaymentSignature 本地HMAC校验，不访问网络
func (g *RazorpayGateway) VerifyPaymentSignature(ctx context.Context, gatewayOrderID, gatewayPaymentID, signature string) (bool, error) {
	expected := Sign(g.keySecret, gatewayOrderID, gatewayPaymentID)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature)))), nil
}

// Refund 全额或部分退款
func (g *RazorpayGateway) Refund(ctx context.Context, gatewayPaymentID string, amount decimal.Decimal, notes string) (*domainpayment.RefundResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := map[string]interface{}{}
	if notes != "" {
		data["notes"] = map[string]interface{}{"reason": notes}
	}
	resp, err := g.payments.Refund(gatewayPaymentID, int(toMinorUnits(amount)), data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay: refund %s: %w", gatewayPaymentID, err)
	}

	result := &domainpayment.RefundResult{Amount: amount, Status: "processed"}
	if id, ok := resp["id"].(string); ok {
		result.RefundID = id
	}
	if status, ok := resp["status"].(string); ok && status != "" {
		result.Status = status
	}
	if minor, ok := resp["amount"].(float64); ok {
		result.Amount = fromMinorUnits(int64(minor))
	}
	return result, nil
}

// Sign 计算Razorpay回调签名（十六进制小写）
func Sign(secret, gatewayOrderID, gatewayPaymentID string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(h.Sum(nil))
}
