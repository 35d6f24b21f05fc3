package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	appinventory "github.com/xiebiao/supplestore/internal/application/inventory"
	"github.com/xiebiao/supplestore/internal/domain/activity"
	"github.com/xiebiao/supplestore/internal/domain/inventory"
	"github.com/xiebiao/supplestore/internal/domain/order"
	"github.com/xiebiao/supplestore/internal/domain/payment"
	"github.com/xiebiao/supplestore/internal/domain/shared"
	"github.com/xiebiao/supplestore/pkg/logger"
	"github.com/xiebiao/supplestore/pkg/metrics"
	"github.com/xiebiao/supplestore/pkg/tracing"
)

// ActorSystem 系统自动操作（支付回调等）
const ActorSystem = "system"

// TransitionRequest 状态变更请求
// 物流字段只在SHIPPED/DELIVERED时使用，未提供运单号时自动生成
type TransitionRequest struct {
	OrderID           uint
	Status            order.OrderStatus
	Notes             string
	Actor             string
	TrackingNumber    string
	Carrier           string
	Location          string
	EstimatedDelivery *time.Time
}

// TransitionStatusUseCase 订单状态流转
type TransitionStatusUseCase struct {
	txManager    shared.TxManager
	orderRepo    order.Repository
	activityRepo activity.Repository
	ledger       *appinventory.Ledger
	gateway      payment.Gateway
	cache        order.Cache
	notifier     *Notifier
	now          func() time.Time
}

// NewTransitionStatusUseCase 创建状态流转用例
func NewTransitionStatusUseCase(
	txManager shared.TxManager,
	orderRepo order.Repository,
	activityRepo activity.Repository,
	ledger *appinventory.Ledger,
	gateway payment.Gateway,
	cache order.Cache,
	notifier *Notifier,
) *TransitionStatusUseCase {
	return &TransitionStatusUseCase{
		txManager:    txManager,
		orderRepo:    orderRepo,
		activityRepo: activityRepo,
		ledger:       ledger,
		gateway:      gateway,
		cache:        cache,
		notifier:     notifier,
		now:          time.Now,
	}
}

// transitionResult 事务内的流转结果，提交后用于缓存失效与通知
type transitionResult struct {
	order     *order.Order
	from      order.OrderStatus
	refund    *order.Refund // 已落库的pending退款，提交后调用网关
	refundErr error
}

// Execute 在一个事务内完成状态变更及其副作用
//
// 经网关退款分两个事务：第一个事务把订单置为REFUND_PENDING并写入pending退款记录，
// 提交后调用网关，第二个事务按网关结果完成退款或记录失败。网关失败时订单停留在
// REFUND_PENDING并返回nil错误，之后再次请求REFUNDED会重试；第二个事务失败时
// pending记录保留，重试返回ErrRefundInDoubt，不会重复退款
func (uc *TransitionStatusUseCase) Execute(ctx context.Context, req TransitionRequest) (*order.Order, error) {
	ctx, span := tracing.StartSpan(ctx, "order.transition",
		attribute.Int64("order.id", int64(req.OrderID)),
		attribute.String("order.status.to", string(req.Status)),
	)
	var res *transitionResult
	err := uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		var err error
		res, err = uc.apply(txCtx, req)
		return err
	})
	if err == nil && res.refund != nil {
		invalidateOrder(ctx, uc.cache, res.order.ID)
		err = uc.completeRefund(ctx, res, req)
	}
	tracing.EndSpan(span, err)
	if err != nil {
		return nil, err
	}

	uc.afterCommit(ctx, res, req.Actor)
	return uc.orderRepo.FindByID(ctx, req.OrderID)
}

// apply 必须在事务内调用
func (uc *TransitionStatusUseCase) apply(ctx context.Context, req TransitionRequest) (*transitionResult, error) {
	if !req.Status.Requestable() {
		return nil, order.ErrUnknownStatus.WithMessage("未知的订单状态: %s", req.Status)
	}

	o, err := uc.orderRepo.LockByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	res := &transitionResult{order: o, from: o.Status}
	now := uc.now()

	// 先校验状态边，再执行副作用
	if !order.CanTransition(o.Status, req.Status) {
		return nil, order.ErrInvalidStatusTransition.WithMessage("订单状态不能从 %s 变更为 %s", o.Status, req.Status)
	}

	switch req.Status {
	case order.StatusCancelled:
		err = uc.cancel(ctx, o, req, now)
	case order.StatusShipped:
		err = uc.ship(ctx, o, req, now)
	case order.StatusDelivered:
		err = uc.deliver(ctx, o, req, now)
	case order.StatusPaid:
		err = uc.capture(ctx, o)
	case order.StatusRefunded:
		res.refund, err = uc.prepareRefund(ctx, o, req.Notes, now)
	}
	if err != nil {
		return nil, err
	}

	if res.refund != nil {
		o.MarkRefundPending()
	} else if err := o.TransitionTo(req.Status); err != nil {
		return nil, err
	}
	o.AppendNote(req.Actor, o.Status, req.Notes, now)

	if err := uc.orderRepo.Update(ctx, o); err != nil {
		return nil, err
	}
	if o.Status == res.from {
		return res, nil
	}
	if err := uc.activityRepo.Create(ctx, activity.New(req.Actor, "status_changed", activity.EntityOrder, o.ID,
		"status updated from %s to %s", res.from, o.Status)); err != nil {
		return nil, err
	}
	return res, nil
}

// completeRefund 第一个事务提交后调用网关，再在第二个事务内落地结果
func (uc *TransitionStatusUseCase) completeRefund(ctx context.Context, res *transitionResult, req TransitionRequest) error {
	rf := res.refund
	p := res.order.Payment

	result, gwErr := uc.gateway.Refund(ctx, p.GatewayPaymentID, rf.Amount, req.Notes)
	if gwErr != nil {
		res.refundErr = fmt.Errorf("refund %s via %s: %w", p.GatewayPaymentID, p.Provider, gwErr)
	}

	return uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		o, err := uc.orderRepo.LockByID(txCtx, res.order.ID)
		if err != nil {
			return err
		}
		now := uc.now()

		if res.refundErr != nil {
			rf.Fail(gwErr.Error(), now)
			if err := uc.orderRepo.UpdateRefund(txCtx, rf); err != nil {
				return err
			}
			res.order = o
			return uc.activityRepo.Create(txCtx, activity.New(req.Actor, "refund_failed", activity.EntityOrder, o.ID,
				"gateway refund failed, order left in %s: %v", o.Status, res.refundErr))
		}

		rf.Complete(result.RefundID, result.Status, result.Amount, now)
		if err := uc.orderRepo.UpdateRefund(txCtx, rf); err != nil {
			return err
		}
		o.Payment.MarkRefunded()
		if err := uc.orderRepo.SavePayment(txCtx, o.Payment); err != nil {
			return err
		}
		if err := o.TransitionTo(order.StatusRefunded); err != nil {
			return err
		}
		o.AppendNote(req.Actor, o.Status, "gateway refund "+result.RefundID, now)
		if err := uc.orderRepo.Update(txCtx, o); err != nil {
			return err
		}
		res.order = o
		return uc.activityRepo.Create(txCtx, activity.New(req.Actor, "status_changed", activity.EntityOrder, o.ID,
			"status updated from %s to %s (refund %s)", order.StatusRefundPending, o.Status, result.RefundID))
	})
}

// afterCommit 缓存失效、指标、事件与客户通知
func (uc *TransitionStatusUseCase) afterCommit(ctx context.Context, res *transitionResult, actor string) {
	o := res.order
	log := logger.FromContext(ctx).With(zap.Uint("order_id", o.ID))

	invalidateOrder(ctx, uc.cache, o.ID)
	metrics.IncCounterVec(metrics.OrderTransitionsTotal, string(res.from), string(o.Status))

	if res.refundErr != nil {
		log.Error("网关退款失败，订单进入待退款", zap.String("order_number", o.OrderNumber), zap.Error(res.refundErr))
	} else {
		log.Info("订单状态已变更", zap.String("from", string(res.from)), zap.String("to", string(o.Status)), zap.String("actor", actor))
	}
	uc.notifier.StatusChanged(ctx, o, res.from, actor)
}

// cancel 记录取消信息，每个明细退回库存并记return流水
func (uc *TransitionStatusUseCase) cancel(ctx context.Context, o *order.Order, req TransitionRequest, now time.Time) error {
	o.Cancel(req.Notes, req.Actor, now)
	for _, item := range o.Items {
		if _, err := uc.ledger.Apply(ctx, appinventory.Change{
			VariantID:   item.VariantID,
			Delta:       item.Quantity,
			Reason:      inventory.ReasonReturn,
			ReferenceID: &o.ID,
			Notes:       "order " + o.OrderNumber + " cancelled",
			Actor:       req.Actor,
		}); err != nil {
			return err
		}
	}
	return nil
}

// ship 没有物流信息时创建（附一个初始节点），已有时标记已发货并追加节点
func (uc *TransitionStatusUseCase) ship(ctx context.Context, o *order.Order, req TransitionRequest, now time.Time) error {
	t := o.Tracking
	if t == nil {
		number := strings.TrimSpace(req.TrackingNumber)
		if number == "" {
			number = order.GenerateTrackingNumber(now)
		}
		t = order.NewTracking(o.ID, number, req.Carrier, order.TrackingShipped, now)
	} else {
		if req.TrackingNumber != "" {
			t.TrackingNumber = strings.TrimSpace(req.TrackingNumber)
		}
		if req.Carrier != "" {
			t.Carrier = req.Carrier
		}
	}
	t.MarkShipped(now)
	if req.EstimatedDelivery != nil {
		t.EstimatedDelivery = req.EstimatedDelivery
	}
	return uc.saveTracking(ctx, o, t, req.Location, describe(req.Notes, "Order shipped via "+t.Carrier), now)
}

// deliver 物流标记送达，缺失时补建
func (uc *TransitionStatusUseCase) deliver(ctx context.Context, o *order.Order, req TransitionRequest, now time.Time) error {
	t := o.Tracking
	if t == nil {
		number := strings.TrimSpace(req.TrackingNumber)
		if number == "" {
			number = order.GenerateTrackingNumber(now)
		}
		t = order.NewTracking(o.ID, number, req.Carrier, order.TrackingDelivered, now)
	}
	t.MarkDelivered(now)
	return uc.saveTracking(ctx, o, t, req.Location, describe(req.Notes, "Order delivered"), now)
}

func (uc *TransitionStatusUseCase) saveTracking(ctx context.Context, o *order.Order, t *order.Tracking, location, description string, now time.Time) error {
	if err := uc.orderRepo.SaveTracking(ctx, t); err != nil {
		return err
	}
	u := t.AddUpdate(t.Status, location, description, now)
	if err := uc.orderRepo.AddTrackingUpdate(ctx, u); err != nil {
		return err
	}
	o.Tracking = t
	return nil
}

// capture 未确认的支付记录标记为CAPTURED
func (uc *TransitionStatusUseCase) capture(ctx context.Context, o *order.Order) error {
	p := o.Payment
	if p == nil || p.Status == order.PaymentCaptured {
		return nil
	}
	p.Capture("")
	return uc.orderRepo.SavePayment(ctx, p)
}

// prepareRefund 有网关支付号时写入pending退款记录，由completeRefund调用网关
// 手工收款或未经网关支付的订单直接退款完成，返回nil
func (uc *TransitionStatusUseCase) prepareRefund(ctx context.Context, o *order.Order, notes string, now time.Time) (*order.Refund, error) {
	p := o.Payment
	if !p.Refundable() {
		if p != nil && p.Status == order.PaymentCaptured {
			p.MarkRefunded()
			return nil, uc.orderRepo.SavePayment(ctx, p)
		}
		return nil, nil
	}
	// TODO: 增加按网关退款列表核对pending记录的后台任务，替代人工核对
	if p.RefundInDoubt() {
		return nil, order.ErrRefundInDoubt
	}

	rf := order.NewPendingRefund(p.ID, o.Total, notes, now)
	if err := uc.orderRepo.CreateRefund(ctx, rf); err != nil {
		return nil, err
	}
	return rf, nil
}

func describe(notes, fallback string) string {
	if s := strings.TrimSpace(notes); s != "" {
		return s
	}
	return fallback
}
