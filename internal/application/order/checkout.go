package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/supplestore/internal/domain/cart"
	"github.com/xiebiao/supplestore/internal/domain/order"
	"github.com/xiebiao/supplestore/internal/domain/payment"
	"github.com/xiebiao/supplestore/internal/domain/shared"
	apperrors "github.com/xiebiao/supplestore/pkg/errors"
	"github.com/xiebiao/supplestore/pkg/logger"
	"github.com/xiebiao/supplestore/pkg/saga"
	"github.com/xiebiao/supplestore/pkg/tracing"
)

// CartReader 结账读取并清空购物车（由cart.Service实现）
type CartReader interface {
	Items(ctx context.Context, userID uint) ([]cart.Line, error)
	Clear(ctx context.Context, userID uint) error
}

// CheckoutRequest 结账请求
type CheckoutRequest struct {
	UserID            uint
	ShippingAddressID uint
	CouponCode        string
	Notes             string
}

// CheckoutResult 结账结果，前端用RemoteOrder拉起收银台
type CheckoutResult struct {
	Order       *order.Order         `json:"order"`
	RemoteOrder *payment.RemoteOrder `json:"payment"`
}

// CheckoutUseCase 购物车结账（saga）
// 1. 由购物车下单；补偿：取消订单（退回库存）
// 2. 网关创建支付单并保存支付记录（CREATED）
// 成功后清空购物车并通知客户，这两步失败只记录日志
type CheckoutUseCase struct {
	create     *CreateOrderUseCase
	transition *TransitionStatusUseCase
	cart       CartReader
	orderRepo  order.Repository
	gateway    payment.Gateway
	notifier   *Notifier
	currency   string
	timeout    time.Duration
}

// NewCheckoutUseCase 创建结账用例；timeout为整个saga的超时
func NewCheckoutUseCase(
	create *CreateOrderUseCase,
	transition *TransitionStatusUseCase,
	cartReader CartReader,
	orderRepo order.Repository,
	gateway payment.Gateway,
	notifier *Notifier,
	currency string,
	timeout time.Duration,
) *CheckoutUseCase {
	return &CheckoutUseCase{
		create:     create,
		transition: transition,
		cart:       cartReader,
		orderRepo:  orderRepo,
		gateway:    gateway,
		notifier:   notifier,
		currency:   currency,
		timeout:    timeout,
	}
}

// Execute 结账
func (uc *CheckoutUseCase) Execute(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	log := logger.FromContext(ctx).With(zap.Uint("user_id", req.UserID))

	lines, err := uc.cart.Items(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, cart.ErrCartEmpty
	}
	items := make([]ItemRequest, 0, len(lines))
	for _, l := range lines {
		items = append(items, ItemRequest{VariantID: l.VariantID, Quantity: l.Quantity})
	}

	actor := fmt.Sprintf("user:%d", req.UserID)
	addressID := req.ShippingAddressID
	result := &CheckoutResult{}

	s := saga.NewSaga("checkout", uc.timeout, log)
	s.AddStep("create_order",
		func(ctx context.Context) error {
			o, err := uc.create.Execute(ctx, CreateOrderRequest{
				UserID:            req.UserID,
				Items:             items,
				ShippingAddressID: &addressID,
				CouponCode:        strings.TrimSpace(req.CouponCode),
				Notes:             req.Notes,
				Actor:             actor,
				Source:            SourceCheckout,
			})
			if err != nil {
				return err
			}
			result.Order = o
			return nil
		},
		func(ctx context.Context) error {
			_, err := uc.transition.Execute(ctx, TransitionRequest{
				OrderID: result.Order.ID,
				Status:  order.StatusCancelled,
				Notes:   "checkout failed: payment could not be initiated",
				Actor:   ActorSystem,
			})
			return err
		},
	)
	s.AddStep("create_remote_order",
		func(ctx context.Context) error {
			o := result.Order
			ctx, span := tracing.StartSpan(ctx, "checkout.create_remote_order", attribute.String("order.number", o.OrderNumber))
			remote, err := uc.gateway.CreateRemoteOrder(ctx, o.Total, uc.currency, o.OrderNumber)
			tracing.EndSpan(span, err)
			if err != nil {
				if errors.Is(err, payment.ErrGatewayUnavailable) {
					return apperrors.External(err, "支付服务暂不可用，请稍后重试")
				}
				return apperrors.External(err, "创建支付单失败")
			}

			p := order.NewPayment(o.ID, o.Total, uc.currency, uc.gateway.Provider(), remote.ID)
			if err := uc.orderRepo.SavePayment(ctx, p); err != nil {
				return err
			}
			invalidateOrder(ctx, uc.create.cache, o.ID)
			o.Payment = p
			result.RemoteOrder = remote
			return nil
		},
		nil,
	)

	if err := s.Execute(ctx); err != nil {
		log.Warn("结账失败", zap.String("step", saga.FailedStep(err)), zap.Error(err))
		return nil, unwrapStep(err)
	}

	if err := uc.cart.Clear(ctx, req.UserID); err != nil {
		log.Warn("清空购物车失败", zap.Error(err))
	}
	uc.notifier.OrderPlaced(ctx, result.Order)
	return result, nil
}

// unwrapStep 返回saga步骤的原始错误，便于上层按错误码处理
func unwrapStep(err error) error {
	var se *saga.StepError
	if errors.As(err, &se) {
		return se.Err
	}
	return err
}

// VerifyPaymentRequest 支付回调校验
type VerifyPaymentRequest struct {
	UserID           uint // 非0时校验订单归属
	OrderID          uint
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// VerifyPaymentUseCase 校验支付签名并确认订单
type VerifyPaymentUseCase struct {
	txManager  shared.TxManager
	orderRepo  order.Repository
	gateway    payment.Gateway
	transition *TransitionStatusUseCase
	notifier   *Notifier
}

// NewVerifyPaymentUseCase 创建支付校验用例
func NewVerifyPaymentUseCase(
	txManager shared.TxManager,
	orderRepo order.Repository,
	gateway payment.Gateway,
	transition *TransitionStatusUseCase,
	notifier *Notifier,
) *VerifyPaymentUseCase {
	return &VerifyPaymentUseCase{
		txManager:  txManager,
		orderRepo:  orderRepo,
		gateway:    gateway,
		transition: transition,
		notifier:   notifier,
	}
}

// Execute 先校验签名，再信任回调内容
// 支付记录按网关订单号查找，OrderID非0时必须与之对应
// 签名不符：支付记录标记FAILED，返回ErrInvalidSignature，订单状态不变
// 签名通过：保存网关支付号并把订单置为PAID（操作人system），发送确认邮件
// 已确认过的支付重复回调（包括并发回调）直接返回当前订单
func (uc *VerifyPaymentUseCase) Execute(ctx context.Context, req VerifyPaymentRequest) (*order.Order, error) {
	ctx, span := tracing.StartSpan(ctx, "payment.verify", attribute.Int64("order.id", int64(req.OrderID)))
	o, err := uc.verify(ctx, req)
	tracing.EndSpan(span, err)
	return o, err
}

func (uc *VerifyPaymentUseCase) verify(ctx context.Context, req VerifyPaymentRequest) (*order.Order, error) {
	log := logger.FromContext(ctx).With(zap.Uint("order_id", req.OrderID))

	if strings.TrimSpace(req.GatewayOrderID) == "" {
		return nil, order.ErrPaymentMismatch
	}
	p, err := uc.orderRepo.FindPaymentByGatewayOrderID(ctx, req.GatewayOrderID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, order.ErrPaymentMismatch
		}
		return nil, err
	}
	o, err := uc.orderRepo.FindByID(ctx, p.OrderID)
	if err != nil {
		return nil, err
	}
	if req.UserID != 0 && !o.IsOwnedBy(req.UserID) {
		return nil, order.ErrOrderNotFound
	}
	// 网关订单号只能对应订单当前的支付记录
	if (req.OrderID != 0 && req.OrderID != o.ID) || o.Payment == nil || o.Payment.ID != p.ID {
		return nil, order.ErrPaymentMismatch
	}
	if p.Status == order.PaymentCaptured && p.GatewayPaymentID == req.GatewayPaymentID {
		return o, nil
	}

	ok, err := uc.gateway.VerifyPaymentSignature(ctx, req.GatewayOrderID, req.GatewayPaymentID, req.Signature)
	if err != nil {
		return nil, apperrors.External(err, "支付校验服务暂不可用")
	}
	if !ok {
		// 已入账的支付不因伪造回调改为失败
		if p.Status != order.PaymentCaptured {
			p.Fail("signature verification failed")
			if err := uc.orderRepo.SavePayment(ctx, p); err != nil {
				return nil, err
			}
			invalidateOrder(ctx, uc.transition.cache, o.ID)
		}
		log.Warn("支付签名校验失败", zap.String("gateway_order_id", req.GatewayOrderID))
		return nil, order.ErrInvalidSignature
	}

	var res *transitionResult
	err = uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		// 签名校验期间可能有并发回调已确认订单，以加锁后的状态为准
		locked, err := uc.orderRepo.LockByID(txCtx, o.ID)
		if err != nil {
			return err
		}
		lp := locked.Payment
		if lp == nil || lp.ID != p.ID {
			return order.ErrPaymentMismatch
		}
		lp.Capture(req.GatewayPaymentID)
		if err := uc.orderRepo.SavePayment(txCtx, lp); err != nil {
			return err
		}
		if locked.Status == order.StatusPaid {
			return nil
		}
		res, err = uc.transition.apply(txCtx, TransitionRequest{
			OrderID: o.ID,
			Status:  order.StatusPaid,
			Notes:   "payment " + req.GatewayPaymentID + " verified",
			Actor:   ActorSystem,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if res == nil {
		invalidateOrder(ctx, uc.transition.cache, o.ID)
		log.Info("支付已由其他回调确认", zap.String("gateway_payment_id", req.GatewayPaymentID))
		return uc.orderRepo.FindByID(ctx, o.ID)
	}
	uc.transition.afterCommit(ctx, res, ActorSystem)
	log.Info("支付已确认", zap.String("gateway_payment_id", req.GatewayPaymentID))

	confirmed, err := uc.orderRepo.FindByID(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	uc.notifier.OrderConfirmed(ctx, confirmed)
	return confirmed, nil
}
