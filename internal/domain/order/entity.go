package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus 订单状态
// 使用字符串存储，数据库和API中直接可读
type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"    // 待处理
	StatusProcessing OrderStatus = "PROCESSING" // 处理中
	StatusPaid       OrderStatus = "PAID"       // 已支付
	StatusShipped    OrderStatus = "SHIPPED"    // 已发货
	StatusDelivered  OrderStatus = "DELIVERED"  // 已送达
	StatusCancelled  OrderStatus = "CANCELLED"  // 已取消
	StatusRefunded   OrderStatus = "REFUNDED"   // 已退款

	// StatusRefundPending 网关退款失败时的中间态，只由引擎内部进入，调用方不能直接请求
	StatusRefundPending OrderStatus = "REFUND_PENDING"
)

// transitions 合法的状态转换（唯一的规则来源）
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:       {StatusProcessing, StatusPaid, StatusCancelled},
	StatusProcessing:    {StatusPaid, StatusCancelled, StatusShipped},
	StatusPaid:          {StatusProcessing, StatusShipped, StatusCancelled, StatusRefunded},
	StatusShipped:       {StatusDelivered, StatusCancelled, StatusProcessing},
	StatusDelivered:     {StatusRefunded},
	StatusCancelled:     {StatusRefunded},
	StatusRefunded:      {},
	StatusRefundPending: {StatusRefunded},
}

// AllStatuses 全部状态（含内部状态），用于统计
func AllStatuses() []OrderStatus {
	return []OrderStatus{
		StatusPending, StatusProcessing, StatusPaid, StatusShipped,
		StatusDelivered, StatusCancelled, StatusRefunded, StatusRefundPending,
	}
}

// ParseFilterStatus 解析列表筛选状态（大小写不敏感），接受包括REFUND_PENDING在内的全部状态
func ParseFilterStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Known() {
		return "", ErrUnknownStatus.WithMessage("未知的订单状态: %s", s)
	}
	return st, nil
}

// ParseStatus 解析调用方请求的状态（大小写不敏感）
// REFUND_PENDING不能被请求
func ParseStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Requestable() {
		return "", ErrUnknownStatus.WithMessage("未知的订单状态: %s", s)
	}
	return st, nil
}

// Known 是否为已定义状态
func (s OrderStatus) Known() bool {
	_, ok := transitions[s]
	return ok
}

// Requestable 调用方是否可以请求转换到该状态
func (s OrderStatus) Requestable() bool {
	return s.Known() && s != StatusRefundPending
}

// CanTransition 检查from → to是否合法
func CanTransition(from, to OrderStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CountsAsRevenue 是否计入营收（待处理、已取消、退款相关状态不计入）
func (s OrderStatus) CountsAsRevenue() bool {
	switch s {
	case StatusPaid, StatusProcessing, StatusShipped, StatusDelivered:
		return true
	}
	return false
}

func (s OrderStatus) String() string {
	return string(s)
}

// Order 订单实体（聚合根）
// 不变量：Total == SubTotal - Discount（Tax与ShippingCost按当前政策为0）
type Order struct {
	ID                uint
	OrderNumber       string // 业务单号，唯一且创建后不可修改
	UserID            uint
	ShippingAddressID *uint
	Status            OrderStatus
	SubTotal          decimal.Decimal
	Tax               decimal.Decimal
	ShippingCost      decimal.Decimal
	Discount          decimal.Decimal
	Total             decimal.Decimal
	CouponID          *uint
	CouponCode        string
	Notes             string // 只追加的备注日志
	CancelReason      string
	CancelledAt       *time.Time
	CancelledBy       string
	Items             []OrderItem
	Tracking          *Tracking
	Payment           *Payment
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OrderItem 订单明细（创建后不可修改）
// 商品名、SKU、单价都是下单时的快照，商品目录后续变化不影响历史订单
type OrderItem struct {
	ID           uint
	OrderID      uint
	ProductID    uint
	VariantID    uint
	ProductName  string
	VariantSKU   string
	Price        decimal.Decimal
	Quantity     int
	SubTotal     decimal.Decimal
	IsSupplement bool
}

// NewOrderItem 创建订单明细，小计 = 单价 × 数量
func NewOrderItem(productID, variantID uint, productName, sku string, price decimal.Decimal, quantity int, isSupplement bool) OrderItem {
	return OrderItem{
		ProductID:    productID,
		VariantID:    variantID,
		ProductName:  productName,
		VariantSKU:   sku,
		Price:        price,
		Quantity:     quantity,
		SubTotal:     price.Mul(decimal.NewFromInt(int64(quantity))).Round(2),
		IsSupplement: isSupplement,
	}
}

// NewOrder 创建新订单（工厂方法）
// 小计由明细计算，折扣由调用方按优惠券或人工折扣给出
func NewOrder(orderNumber string, userID uint, addressID *uint, items []OrderItem, discount decimal.Decimal) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrInvalidOrderItems
	}
	subtotal := decimal.Zero
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		subtotal = subtotal.Add(item.SubTotal)
	}
	if discount.IsNegative() || discount.GreaterThan(subtotal) {
		return nil, ErrInvalidDiscount
	}

	now := time.Now()
	return &Order{
		OrderNumber:       orderNumber,
		UserID:            userID,
		ShippingAddressID: addressID,
		Status:            StatusPending,
		SubTotal:          subtotal.Round(2),
		Tax:               decimal.Zero,
		ShippingCost:      decimal.Zero,
		Discount:          discount.Round(2),
		Total:             subtotal.Sub(discount).Round(2),
		Items:             items,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// CalculateSubTotal 按明细重新计算小计
func (o *Order) CalculateSubTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total.Round(2)
}

// TotalConsistent 校验金额不变量
func (o *Order) TotalConsistent() bool {
	expected := o.SubTotal.Add(o.Tax).Add(o.ShippingCost).Sub(o.Discount)
	return o.Total.Equal(expected)
}

// TransitionTo 状态转换，非法转换时错误信息包含当前状态与目标状态
func (o *Order) TransitionTo(target OrderStatus) error {
	if !CanTransition(o.Status, target) {
		return ErrInvalidStatusTransition.WithMessage("订单状态不能从 %s 变更为 %s", o.Status, target)
	}
	o.Status = target
	o.UpdatedAt = time.Now()
	return nil
}

// MarkRefundPending 网关退款失败时进入待退款状态
func (o *Order) MarkRefundPending() {
	o.Status = StatusRefundPending
	o.UpdatedAt = time.Now()
}

// Cancel 记录取消信息（状态由TransitionTo负责）
func (o *Order) Cancel(reason, actor string, at time.Time) {
	if strings.TrimSpace(reason) == "" {
		reason = "cancelled by " + actor
	}
	o.CancelReason = reason
	o.CancelledAt = &at
	o.CancelledBy = actor
}

// AppendNote 追加备注：[时间] 操作人: 状态 - 备注
func (o *Order) AppendNote(actor string, status OrderStatus, note string, at time.Time) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	line := fmt.Sprintf("[%s] %s: %s - %s", at.Format(time.RFC3339), actor, status, note)
	if o.Notes == "" {
		o.Notes = line
		return
	}
	o.Notes = o.Notes + "\n" + line
}

// IsOwnedBy 检查订单是否属于指定用户
func (o *Order) IsOwnedBy(userID uint) bool {
	return o.UserID == userID
}
