package order

import (
	"time"
)

// TrackingStatus 物流状态
type TrackingStatus string

const (
	TrackingProcessing TrackingStatus = "PROCESSING"
	TrackingShipped    TrackingStatus = "SHIPPED"
	TrackingDelivered  TrackingStatus = "DELIVERED"
)

// DefaultCarrier 未指定承运商时使用
const DefaultCarrier = "Standard Shipping"

// Tracking 物流信息（与订单一对一）
type Tracking struct {
	ID                uint
	OrderID           uint
	TrackingNumber    string
	Carrier           string
	Status            TrackingStatus
	ShippedAt         *time.Time
	DeliveredAt       *time.Time
	EstimatedDelivery *time.Time
	Updates           []TrackingUpdate // 只追加
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TrackingUpdate 物流节点
type TrackingUpdate struct {
	ID          uint
	TrackingID  uint
	Status      TrackingStatus
	Location    string
	Description string
	CreatedAt   time.Time
}

// NewTracking 创建物流信息
func NewTracking(orderID uint, number, carrier string, status TrackingStatus, now time.Time) *Tracking {
	if carrier == "" {
		carrier = DefaultCarrier
	}
	return &Tracking{
		OrderID:        orderID,
		TrackingNumber: number,
		Carrier:        carrier,
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// AddUpdate 追加物流节点，返回新节点（待持久化）
// 只记录节点，不改变订单状态
func (t *Tracking) AddUpdate(status TrackingStatus, location, description string, now time.Time) *TrackingUpdate {
	u := TrackingUpdate{
		TrackingID:  t.ID,
		Status:      status,
		Location:    location,
		Description: description,
		CreatedAt:   now,
	}
	t.Updates = append(t.Updates, u)
	t.UpdatedAt = now
	return &t.Updates[len(t.Updates)-1]
}

// MarkShipped 标记已发货
func (t *Tracking) MarkShipped(now time.Time) {
	t.Status = TrackingShipped
	if t.ShippedAt == nil {
		t.ShippedAt = &now
	}
	t.UpdatedAt = now
}

// MarkDelivered 标记已送达
func (t *Tracking) MarkDelivered(now time.Time) {
	t.Status = TrackingDelivered
	t.DeliveredAt = &now
	t.UpdatedAt = now
}
