// Package notification 通知与领域事件契约
package notification

import "context"

// 事件路由键（RabbitMQ topic exchange）
const (
	RoutingKeyEmail              = "notification.email"
	RoutingKeyOrderCreated       = "order.created"
	RoutingKeyOrderStatusChanged = "order.status_changed"
)

// EmailMessage 邮件消息（渲染与SMTP投递由下游消费者完成）
type EmailMessage struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
}

// Sender 邮件发送器
// 调用方记录并忽略错误，通知失败不影响业务
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// EventPublisher 领域事件发布器
type EventPublisher interface {
	PublishEvent(ctx context.Context, routingKey string, event interface{}) error
}

// OrderStatusChanged 订单状态变更事件
type OrderStatusChanged struct {
	OrderID     uint   `json:"order_id"`
	OrderNumber string `json:"order_number"`
	From        string `json:"from"`
	To          string `json:"to"`
	Actor       string `json:"actor"`
	OccurredAt  int64  `json:"occurred_at"`
}

// OrderCreated 订单创建事件
type OrderCreated struct {
	OrderID     uint   `json:"order_id"`
	OrderNumber string `json:"order_number"`
	UserID      uint   `json:"user_id"`
	Total       string `json:"total"`
	OccurredAt  int64  `json:"occurred_at"`
}
