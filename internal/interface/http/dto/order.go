package dto

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xiebiao/supplestore/internal/domain/order"
	"github.com/xiebiao/supplestore/internal/domain/payment"
	"github.com/xiebiao/supplestore/internal/domain/shared"
)

// OrderItemRequest 下单明细
type OrderItemRequest struct {
	VariantID uint `json:"variant_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,gt=0"`
}

// CreateOrderRequest 后台录单
// 优惠券（coupon_code或coupon_id）与人工折扣discount不能同时使用
type CreateOrderRequest struct {
	UserID            uint               `json:"user_id" binding:"required"`
	Items             []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	ShippingAddressID *uint              `json:"shipping_address_id"`
	CouponCode        string             `json:"coupon_code" binding:"omitempty,max=50"`
	CouponID          *uint              `json:"coupon_id"`
	Discount          *decimal.Decimal   `json:"discount" swaggertype:"string" example:"100.00"`
	Notes             string             `json:"notes" binding:"omitempty,max=1000"`
	MarkPaid          bool               `json:"mark_paid"`
}

// UpdateStatusRequest 订单状态变更
// 物流字段只在SHIPPED/DELIVERED时使用
type UpdateStatusRequest struct {
	Status            string     `json:"status" binding:"required,order_status" example:"SHIPPED"`
	Notes             string     `json:"notes" binding:"omitempty,max=1000"`
	TrackingNumber    string     `json:"tracking_number" binding:"omitempty,max=100"`
	Carrier           string     `json:"carrier" binding:"omitempty,max=100"`
	Location          string     `json:"location" binding:"omitempty,max=255"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
}

// UpdateTrackingRequest 更新物流（不改变订单状态）
type UpdateTrackingRequest struct {
	TrackingNumber    string     `json:"tracking_number" binding:"omitempty,max=100"`
	Carrier           string     `json:"carrier" binding:"omitempty,max=100"`
	Status            string     `json:"status" binding:"omitempty,oneof=PROCESSING SHIPPED DELIVERED processing shipped delivered"`
	Location          string     `json:"location" binding:"omitempty,max=255"`
	Description       string     `json:"description" binding:"omitempty,max=1000"`
	EstimatedDelivery *time.Time `json:"estimated_delivery"`
}

// ListOrdersQuery 订单列表查询
// 日期为yyyy-mm-dd（UTC），endDate当天包含在内；limit是page_size的别名
type ListOrdersQuery struct {
	Page      int        `form:"page" binding:"omitempty,min=1"`
	PageSize  int        `form:"page_size" binding:"omitempty,min=1,max=100"`
	Limit     int        `form:"limit" binding:"omitempty,min=1,max=100"`
	Status    string     `form:"status" binding:"omitempty,order_status_filter"`
	UserID    uint       `form:"user_id"`
	Search    string     `form:"search" binding:"omitempty,max=100"`
	StartDate *time.Time `form:"startDate" time_format:"2006-01-02" time_utc:"1"`
	EndDate   *time.Time `form:"endDate" time_format:"2006-01-02" time_utc:"1"`
	Sort      string     `form:"sort" binding:"omitempty,oneof=created_at total status order_number"`
	Order     string     `form:"order" binding:"omitempty,oneof=asc desc ASC DESC"`
}

// ToListParams 转换为仓储查询参数
func (q ListOrdersQuery) ToListParams() (order.ListParams, error) {
	size := q.PageSize
	if size == 0 {
		size = q.Limit
	}
	params := order.ListParams{
		Page:    shared.Page{Page: q.Page, PageSize: size}.Normalize(),
		UserID:  q.UserID,
		Keyword: strings.TrimSpace(q.Search),
		From:    q.StartDate,
		SortBy:  order.SortField(q.Sort),
		Asc:     strings.EqualFold(q.Order, "asc"),
	}
	if q.EndDate != nil {
		to := q.EndDate.AddDate(0, 0, 1)
		params.To = &to
	}
	if q.Status != "" {
		status, err := order.ParseFilterStatus(q.Status)
		if err != nil {
			return params, err
		}
		params.Status = status
	}
	return params, nil
}

// StatsQuery 统计周期
type StatsQuery struct {
	Period string `form:"period" binding:"omitempty,oneof=day week month year"`
}

// CheckoutRequest 购物车结账
type CheckoutRequest struct {
	ShippingAddressID uint   `json:"shipping_address_id" binding:"required"`
	CouponCode        string `json:"coupon_code" binding:"omitempty,max=50"`
	Notes             string `json:"notes" binding:"omitempty,max=1000"`
}

// VerifyPaymentRequest 支付回调校验（Razorpay字段命名）
type VerifyPaymentRequest struct {
	OrderID           uint   `json:"order_id" binding:"required"`
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
}

// OrderItemResponse 订单明细
type OrderItemResponse struct {
	ID           uint            `json:"id"`
	ProductID    uint            `json:"product_id"`
	VariantID    uint            `json:"variant_id"`
	ProductName  string          `json:"product_name"`
	VariantSKU   string          `json:"variant_sku"`
	Price        decimal.Decimal `json:"price" swaggertype:"string"`
	Quantity     int             `json:"quantity"`
	SubTotal     decimal.Decimal `json:"sub_total" swaggertype:"string"`
	IsSupplement bool            `json:"is_supplement"`
}

// TrackingUpdateResponse 物流节点
type TrackingUpdateResponse struct {
	Status      string    `json:"status"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// TrackingResponse 物流信息
type TrackingResponse struct {
	TrackingNumber    string                   `json:"tracking_number"`
	Carrier           string                   `json:"carrier"`
	Status            string                   `json:"status"`
	ShippedAt         *time.Time               `json:"shipped_at,omitempty"`
	DeliveredAt       *time.Time               `json:"delivered_at,omitempty"`
	EstimatedDelivery *time.Time               `json:"estimated_delivery,omitempty"`
	Updates           []TrackingUpdateResponse `json:"updates"`
}

// RefundResponse 退款记录
type RefundResponse struct {
	GatewayRefundID string          `json:"gateway_refund_id"`
	Amount          decimal.Decimal `json:"amount" swaggertype:"string"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

// PaymentResponse 支付记录（不含签名等敏感信息）
type PaymentResponse struct {
	Provider         string           `json:"provider"`
	Status           string           `json:"status"`
	Amount           decimal.Decimal  `json:"amount" swaggertype:"string"`
	Currency         string           `json:"currency"`
	GatewayOrderID   string           `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string           `json:"gateway_payment_id,omitempty"`
	FailureReason    string           `json:"failure_reason,omitempty"`
	Refunds          []RefundResponse `json:"refunds,omitempty"`
}

// OrderResponse 订单详情
type OrderResponse struct {
	ID                uint                `json:"id"`
	OrderNumber       string              `json:"order_number"`
	UserID            uint                `json:"user_id"`
	ShippingAddressID *uint               `json:"shipping_address_id,omitempty"`
	Status            string              `json:"status"`
	SubTotal          decimal.Decimal     `json:"sub_total" swaggertype:"string"`
	Tax               decimal.Decimal     `json:"tax" swaggertype:"string"`
	ShippingCost      decimal.Decimal     `json:"shipping_cost" swaggertype:"string"`
	Discount          decimal.Decimal     `json:"discount" swaggertype:"string"`
	Total             decimal.Decimal     `json:"total" swaggertype:"string"`
	CouponCode        string              `json:"coupon_code,omitempty"`
	Notes             string              `json:"notes,omitempty"`
	CancelReason      string              `json:"cancel_reason,omitempty"`
	CancelledAt       *time.Time          `json:"cancelled_at,omitempty"`
	CancelledBy       string              `json:"cancelled_by,omitempty"`
	Items             []OrderItemResponse `json:"items"`
	Tracking          *TrackingResponse   `json:"tracking,omitempty"`
	Payment           *PaymentResponse    `json:"payment,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// ToOrderResponse 领域实体 → 响应
func ToOrderResponse(o *order.Order) *OrderResponse {
	resp := &OrderResponse{
		ID:                o.ID,
		OrderNumber:       o.OrderNumber,
		UserID:            o.UserID,
		ShippingAddressID: o.ShippingAddressID,
		Status:            string(o.Status),
		SubTotal:          o.SubTotal,
		Tax:               o.Tax,
		ShippingCost:      o.ShippingCost,
		Discount:          o.Discount,
		Total:             o.Total,
		CouponCode:        o.CouponCode,
		Notes:             o.Notes,
		CancelReason:      o.CancelReason,
		CancelledAt:       o.CancelledAt,
		CancelledBy:       o.CancelledBy,
		Items:             make([]OrderItemResponse, 0, len(o.Items)),
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ID:           item.ID,
			ProductID:    item.ProductID,
			VariantID:    item.VariantID,
			ProductName:  item.ProductName,
			VariantSKU:   item.VariantSKU,
			Price:        item.Price,
			Quantity:     item.Quantity,
			SubTotal:     item.SubTotal,
			IsSupplement: item.IsSupplement,
		})
	}
	if t := o.Tracking; t != nil {
		tr := &TrackingResponse{
			TrackingNumber:    t.TrackingNumber,
			Carrier:           t.Carrier,
			Status:            string(t.Status),
			ShippedAt:         t.ShippedAt,
			DeliveredAt:       t.DeliveredAt,
			EstimatedDelivery: t.EstimatedDelivery,
			Updates:           make([]TrackingUpdateResponse, 0, len(t.Updates)),
		}
		for _, u := range t.Updates {
			tr.Updates = append(tr.Updates, TrackingUpdateResponse{
				Status:      string(u.Status),
				Location:    u.Location,
				Description: u.Description,
				CreatedAt:   u.CreatedAt,
			})
		}
		resp.Tracking = tr
	}
	if p := o.Payment; p != nil {
		pr := &PaymentResponse{
			Provider:         p.Provider,
			Status:           string(p.Status),
			Amount:           p.Amount,
			Currency:         p.Currency,
			GatewayOrderID:   p.GatewayOrderID,
			GatewayPaymentID: p.GatewayPaymentID,
			FailureReason:    p.FailureReason,
		}
		for _, rf := range p.Refunds {
			pr.Refunds = append(pr.Refunds, RefundResponse{
				GatewayRefundID: rf.GatewayRefundID,
				Amount:          rf.Amount,
				Status:          rf.Status,
				CreatedAt:       rf.CreatedAt,
			})
		}
		resp.Payment = pr
	}
	return resp
}

// ToOrderList 批量转换
func ToOrderList(list []*order.Order) []*OrderResponse {
	out := make([]*OrderResponse, 0, len(list))
	for _, o := range list {
		out = append(out, ToOrderResponse(o))
	}
	return out
}

// CheckoutResponse 结账结果，前端用payment拉起收银台
type CheckoutResponse struct {
	Order   *OrderResponse       `json:"order"`
	Payment *payment.RemoteOrder `json:"payment"`
}
