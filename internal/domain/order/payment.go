package order

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus 支付状态
type PaymentStatus string

const (
	PaymentCreated  PaymentStatus = "CREATED"
	PaymentCaptured PaymentStatus = "CAPTURED"
	PaymentRefunded PaymentStatus = "REFUNDED"
	PaymentFailed   PaymentStatus = "FAILED"
)

// ProviderManual 后台手工收款
const ProviderManual = "manual"

// Payment 支付记录（与订单一对一）
type Payment struct {
	ID               uint
	OrderID          uint
	Amount           decimal.Decimal
	Currency         string
	Provider         string
	GatewayOrderID   string
	GatewayPaymentID string
	Status           PaymentStatus
	PaymentMethod    string
	FailureReason    string
	Refunds          []Refund
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// 退款记录状态；网关返回的状态（如processed）原样保存
const (
	RefundPending = "pending"
	RefundFailed  = "failed"
)

// Refund 退款记录
// 调用网关前先以pending落库，网关返回后改为网关状态或failed；
// 长期停留在pending表示网关结果未知
type Refund struct {
	ID              uint
	PaymentID       uint
	GatewayRefundID string
	Amount          decimal.Decimal
	Status          string
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewPendingRefund 调用网关前的退款记录
func NewPendingRefund(paymentID uint, amount decimal.Decimal, notes string, at time.Time) *Refund {
	return &Refund{
		PaymentID: paymentID,
		Amount:    amount,
		Status:    RefundPending,
		Notes:     notes,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// Complete 网关退款成功
func (r *Refund) Complete(gatewayRefundID, status string, amount decimal.Decimal, at time.Time) {
	r.GatewayRefundID = gatewayRefundID
	if status == "" || status == RefundPending {
		status = "processed"
	}
	r.Status = status
	if !amount.IsZero() {
		r.Amount = amount
	}
	r.UpdatedAt = at
}

// Fail 网关明确拒绝或不可用
func (r *Refund) Fail(reason string, at time.Time) {
	r.Status = RefundFailed
	switch {
	case reason == "":
	case strings.TrimSpace(r.Notes) == "":
		r.Notes = reason
	default:
		r.Notes = strings.TrimSpace(r.Notes) + " | " + reason
	}
	r.UpdatedAt = at
}

// InDoubt 仍为pending：网关可能已退款但本地未确认
func (r Refund) InDoubt() bool {
	return r.Status == RefundPending
}

// NewPayment 创建支付记录（CREATED）
func NewPayment(orderID uint, amount decimal.Decimal, currency, provider, gatewayOrderID string) *Payment {
	now := time.Now()
	return &Payment{
		OrderID:        orderID,
		Amount:         amount,
		Currency:       currency,
		Provider:       provider,
		GatewayOrderID: gatewayOrderID,
		Status:         PaymentCreated,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NewManualPayment 后台标记已收款的订单使用
func NewManualPayment(orderID uint, amount decimal.Decimal, currency string) *Payment {
	p := NewPayment(orderID, amount, currency, ProviderManual, "")
	p.Status = PaymentCaptured
	p.PaymentMethod = ProviderManual
	return p
}

// Capture 支付成功
func (p *Payment) Capture(gatewayPaymentID string) {
	if gatewayPaymentID != "" {
		p.GatewayPaymentID = gatewayPaymentID
	}
	p.Status = PaymentCaptured
	p.FailureReason = ""
	p.UpdatedAt = time.Now()
}

// Fail 支付失败（签名校验失败等）
func (p *Payment) Fail(reason string) {
	p.Status = PaymentFailed
	p.FailureReason = reason
	p.UpdatedAt = time.Now()
}

// MarkRefunded 退款成功
func (p *Payment) MarkRefunded() {
	p.Status = PaymentRefunded
	p.UpdatedAt = time.Now()
}

// RefundInDoubt 是否存在结果未知的退款
func (p *Payment) RefundInDoubt() bool {
	if p == nil {
		return false
	}
	for _, r := range p.Refunds {
		if r.InDoubt() {
			return true
		}
	}
	return false
}

// Refundable 是否需要经过网关退款
func (p *Payment) Refundable() bool {
	return p != nil && p.GatewayPaymentID != "" && p.Provider != ProviderManual && p.Status != PaymentRefunded
}
