package order

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/supplestore/internal/domain/notification"
	"github.com/xiebiao/supplestore/internal/domain/order"
	"github.com/xiebiao/supplestore/internal/domain/user"
	"github.com/xiebiao/supplestore/pkg/logger"
)

// Notifier 订单事件与客户邮件
// 只在事务提交后调用；失败只记录日志，不影响订单结果
type Notifier struct {
	sender    notification.Sender
	events    notification.EventPublisher
	userRepo  user.Repository
	storeName string
}

// NewNotifier 创建订单通知器
func NewNotifier(sender notification.Sender, events notification.EventPublisher, userRepo user.Repository, storeName string) *Notifier {
	if storeName == "" {
		storeName = "Supplestore"
	}
	return &Notifier{sender: sender, events: events, userRepo: userRepo, storeName: storeName}
}

// OrderCreated 发布order.created事件
func (n *Notifier) OrderCreated(ctx context.Context, o *order.Order) {
	n.publish(ctx, notification.RoutingKeyOrderCreated, notification.OrderCreated{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Total:       o.Total.StringFixed(2),
		OccurredAt:  time.Now().Unix(),
	})
}

// OrderPlaced 结账成功，提醒客户完成支付
func (n *Notifier) OrderPlaced(ctx context.Context, o *order.Order) {
	n.emailCustomer(ctx, o,
		fmt.Sprintf("%s order %s placed", n.storeName, o.OrderNumber),
		fmt.Sprintf("<p>We received your order <b>%s</b>. Amount due: %s.</p>", o.OrderNumber, o.Total.StringFixed(2)))
}

// OrderConfirmed 支付成功确认邮件
func (n *Notifier) OrderConfirmed(ctx context.Context, o *order.Order) {
	n.emailCustomer(ctx, o,
		fmt.Sprintf("%s order %s confirmed", n.storeName, o.OrderNumber),
		fmt.Sprintf("<p>Payment received for order <b>%s</b> (%s). We are preparing it for dispatch.</p>",
			o.OrderNumber, o.Total.StringFixed(2)))
}

// StatusChanged 发布order.status_changed事件；发货、送达、取消、退款时通知客户
func (n *Notifier) StatusChanged(ctx context.Context, o *order.Order, from order.OrderStatus, actor string) {
	n.publish(ctx, notification.RoutingKeyOrderStatusChanged, notification.OrderStatusChanged{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		From:        string(from),
		To:          string(o.Status),
		Actor:       actor,
		OccurredAt:  time.Now().Unix(),
	})

	var body string
	switch o.Status {
	case order.StatusShipped:
		body = fmt.Sprintf("<p>Your order <b>%s</b> has shipped.</p>", o.OrderNumber)
		if o.Tracking != nil {
			body += fmt.Sprintf("<p>Carrier: %s, tracking number: %s</p>", o.Tracking.Carrier, o.Tracking.TrackingNumber)
		}
	case order.StatusDelivered:
		body = fmt.Sprintf("<p>Your order <b>%s</b> was delivered.</p>", o.OrderNumber)
	case order.StatusCancelled:
		body = fmt.Sprintf("<p>Your order <b>%s</b> was cancelled: %s</p>", o.OrderNumber, o.CancelReason)
	case order.StatusRefunded:
		body = fmt.Sprintf("<p>A refund of %s for order <b>%s</b> has been issued.</p>", o.Total.StringFixed(2), o.OrderNumber)
	default:
		return
	}
	n.emailCustomer(ctx, o, fmt.Sprintf("%s order %s %s", n.storeName, o.OrderNumber, o.Status), body)
}

func (n *Notifier) publish(ctx context.Context, routingKey string, event interface{}) {
	if n.events == nil {
		return
	}
	if err := n.events.PublishEvent(ctx, routingKey, event); err != nil {
		logger.FromContext(ctx).Warn("发布订单事件失败", zap.String("routing_key", routingKey), zap.Error(err))
	}
}

func (n *Notifier) emailCustomer(ctx context.Context, o *order.Order, subject, body string) {
	if n.sender == nil {
		return
	}
	log := logger.FromContext(ctx).With(zap.Uint("order_id", o.ID))
	u, err := n.userRepo.FindByID(ctx, o.UserID)
	if err != nil {
		log.Warn("查询收件人失败", zap.Error(err))
		return
	}
	if err := n.sender.Send(ctx, u.Email, subject, body); err != nil {
		log.Warn("发送订单邮件失败", zap.String("subject", subject), zap.Error(err))
	}
}
