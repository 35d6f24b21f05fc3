// Package notify 通知与领域事件的投递实现
//
// 邮件只发布到RabbitMQ，由下游消费者渲染并通过SMTP发送；
// MQ未启用时退化为LogNotifier，只写日志。
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/supplestore/internal/domain/notification"
	"github.com/xiebiao/supplestore/pkg/metrics"
)

// DefaultTimeout 单条消息发布超时
const DefaultTimeout = 3 * time.Second

// Publisher 消息发布（由*mq.Publisher实现）
type Publisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}

// MQNotifier 通过RabbitMQ投递邮件与事件
type MQNotifier struct {
	publisher Publisher
	timeout   time.Duration
	log       *zap.Logger
}

var (
	_ notification.Sender         = (*MQNotifier)(nil)
	_ notification.EventPublisher = (*MQNotifier)(nil)
)

// NewMQNotifier 创建MQ通知器，timeout<=0时使用DefaultTimeout
func NewMQNotifier(publisher Publisher, timeout time.Duration, log *zap.Logger) *MQNotifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &MQNotifier{publisher: publisher, timeout: timeout, log: log}
}

// Send 发布邮件消息
func (n *MQNotifier) Send(ctx context.Context, to, subject, htmlBody string) error {
	return n.publish(ctx, notification.RoutingKeyEmail, notification.EmailMessage{
		To:       to,
		Subject:  subject,
		HTMLBody: htmlBody,
	})
}

// PublishEvent 发布领域事件
func (n *MQNotifier) PublishEvent(ctx context.Context, routingKey string, event interface{}) error {
	return n.publish(ctx, routingKey, event)
}

func (n *MQNotifier) publish(ctx context.Context, routingKey string, message interface{}) error {
	// 请求结束后仍要完成投递
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	err := n.publisher.Publish(ctx, routingKey, message)
	result := "success"
	if err != nil {
		result = "failure"
		n.log.Warn("publish message failed", zap.String("routing_key", routingKey), zap.Error(err))
	}
	metrics.IncCounterVec(metrics.MessagesPublishedTotal, routingKey, result)
	return err
}

// LogNotifier 只记录日志的通知器（本地开发、MQ未启用时使用）
type LogNotifier struct {
	log *zap.Logger
}

var (
	_ notification.Sender         = (*LogNotifier)(nil)
	_ notification.EventPublisher = (*LogNotifier)(nil)
)

// NewLogNotifier 创建日志通知器
func NewLogNotifier(log *zap.Logger) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(_ context.Context, to, subject, htmlBody string) error {
	n.log.Info("email (not delivered)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(htmlBody)),
	)
	return nil
}

func (n *LogNotifier) PublishEvent(_ context.Context, routingKey string, event interface{}) error {
	n.log.Info("domain event (not published)", zap.String("routing_key", routingKey), zap.Any("event", event))
	return nil
}
