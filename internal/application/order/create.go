// Package order 订单用例：下单、状态流转、物流、查询统计、结账与支付校验
package order

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	appinventory "github.com/xiebiao/supplestore/internal/application/inventory"
	"github.com/xiebiao/supplestore/internal/domain/activity"
	"github.com/xiebiao/supplestore/internal/domain/catalog"
	"github.com/xiebiao/supplestore/internal/domain/coupon"
	"github.com/xiebiao/supplestore/internal/domain/inventory"
	"github.com/xiebiao/supplestore/internal/domain/order"
	"github.com/xiebiao/supplestore/internal/domain/shared"
	"github.com/xiebiao/supplestore/internal/domain/user"
	apperrors "github.com/xiebiao/supplestore/pkg/errors"
	"github.com/xiebiao/supplestore/pkg/logger"
	"github.com/xiebiao/supplestore/pkg/metrics"
	"github.com/xiebiao/supplestore/pkg/tracing"
)

// 下单来源（指标标签）
const (
	SourceCheckout = "checkout"
	SourceAdmin    = "admin"
)

// ErrDiscountConflict 优惠券与人工折扣只能二选一
var ErrDiscountConflict = apperrors.New(apperrors.ErrCodeInvalidParams, "优惠券与人工折扣不能同时使用")

// ItemRequest 下单明细
type ItemRequest struct {
	VariantID uint
	Quantity  int
}

// CreateOrderRequest 下单请求
type CreateOrderRequest struct {
	UserID            uint
	Items             []ItemRequest
	ShippingAddressID *uint
	CouponCode        string
	CouponID          *uint
	// Discount 后台人工折扣，范围[0, 小计]
	Discount *decimal.Decimal
	Notes    string
	// MarkPaid 后台录单时直接记为已收款（PAID + CAPTURED手工支付记录）
	MarkPaid bool
	Actor    string
	Source   string
}

// CreateOrderUseCase 下单
type CreateOrderUseCase struct {
	txManager    shared.TxManager
	orderRepo    order.Repository
	catalogRepo  catalog.Repository
	couponRepo   coupon.Repository
	userRepo     user.Repository
	addressRepo  user.AddressRepository
	activityRepo activity.Repository
	ledger       *appinventory.Ledger
	cache        order.Cache
	notifier     *Notifier
	currency     string
	now          func() time.Time
}

// NewCreateOrderUseCase 创建下单用例
func NewCreateOrderUseCase(
	txManager shared.TxManager,
	orderRepo order.Repository,
	catalogRepo catalog.Repository,
	couponRepo coupon.Repository,
	userRepo user.Repository,
	addressRepo user.AddressRepository,
	activityRepo activity.Repository,
	ledger *appinventory.Ledger,
	cache order.Cache,
	notifier *Notifier,
	currency string,
) *CreateOrderUseCase {
	return &CreateOrderUseCase{
		txManager:    txManager,
		orderRepo:    orderRepo,
		catalogRepo:  catalogRepo,
		couponRepo:   couponRepo,
		userRepo:     userRepo,
		addressRepo:  addressRepo,
		activityRepo: activityRepo,
		ledger:       ledger,
		cache:        cache,
		notifier:     notifier,
		currency:     currency,
		now:          time.Now,
	}
}

// Execute 下单
// 1. 校验用户、地址，解析优惠券
// 2. 事务内按规格ID顺序加锁（SELECT ... FOR UPDATE），校验库存，按锁定时的价格计算小计
// 3. 同一事务写订单与明细、扣库存记流水、递增优惠券使用次数、写审计日志
// 任一步失败整单回滚：没有订单，库存不变
func (uc *CreateOrderUseCase) Execute(ctx context.Context, req CreateOrderRequest) (o *order.Order, err error) {
	if req.Source == "" {
		req.Source = SourceAdmin
	}
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "order.create",
		attribute.Int64("user.id", int64(req.UserID)),
		attribute.String("order.source", req.Source),
	)
	defer func() {
		tracing.EndSpan(span, err)
		metrics.OrderCreationDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.IncCounterVec(metrics.OrdersFailedTotal, req.Source, strconv.Itoa(apperrors.GetAppError(err).Code))
			return
		}
		metrics.IncCounterVec(metrics.OrdersCreatedTotal, req.Source)
	}()

	items, err := mergeItems(req.Items)
	if err != nil {
		return nil, err
	}
	if req.Discount != nil && (req.CouponCode != "" || req.CouponID != nil) {
		return nil, ErrDiscountConflict
	}

	if _, err := uc.userRepo.FindByID(ctx, req.UserID); err != nil {
		return nil, err
	}
	if req.ShippingAddressID != nil {
		addr, err := uc.addressRepo.FindByID(ctx, *req.ShippingAddressID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil, order.ErrAddressNotFound
			}
			return nil, err
		}
		if !addr.BelongsTo(req.UserID) {
			return nil, order.ErrAddressNotFound
		}
	}

	c, err := uc.resolveCoupon(ctx, req)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	orderNumber := order.GenerateOrderNumber(now)

	err = uc.txManager.Transaction(ctx, func(txCtx context.Context) error {
		lines := make([]order.OrderItem, 0, len(items))
		subtotal := decimal.Zero
		for _, it := range items {
			v, err := uc.catalogRepo.LockVariantByID(txCtx, it.VariantID)
			if err != nil {
				return variantNotFound(err, it.VariantID)
			}
			if !v.IsActive {
				return catalog.ErrVariantNotFound.WithMessage("商品规格不存在: %d", it.VariantID)
			}
			if v.Quantity < it.Quantity {
				return appinventory.InsufficientStock(v, it.Quantity)
			}
			line := order.NewOrderItem(v.ProductID, v.ID, v.ProductName, v.SKU, v.EffectivePrice(), it.Quantity, v.IsSupplement)
			subtotal = subtotal.Add(line.SubTotal)
			lines = append(lines, line)
		}

		discount := decimal.Zero
		if req.Discount != nil {
			discount = *req.Discount
		}
		if c != nil {
			eval, err := coupon.Evaluate(c, subtotal, now)
			if err != nil {
				return err
			}
			discount = eval.Discount
		}

		newOrder, err := order.NewOrder(orderNumber, req.UserID, req.ShippingAddressID, lines, discount)
		if err != nil {
			return err
		}
		if c != nil {
			newOrder.CouponID = &c.ID
			newOrder.CouponCode = c.Code
		}
		newOrder.AppendNote(req.Actor, newOrder.Status, req.Notes, now)

		if err := uc.orderRepo.Create(txCtx, newOrder); err != nil {
			return err
		}

		for _, line := range newOrder.Items {
			if _, err := uc.ledger.Apply(txCtx, appinventory.Change{
				VariantID:   line.VariantID,
				Delta:       -line.Quantity,
				Reason:      inventory.ReasonSale,
				ReferenceID: &newOrder.ID,
				Notes:       "order " + newOrder.OrderNumber,
				Actor:       req.Actor,
			}); err != nil {
				return err
			}
		}

		if c != nil {
			// 条件递增：used_count < max_uses
			if err := uc.couponRepo.IncrementUsage(txCtx, c.ID); err != nil {
				return err
			}
		}

		if req.MarkPaid {
			if err := newOrder.TransitionTo(order.StatusPaid); err != nil {
				return err
			}
			if err := uc.orderRepo.Update(txCtx, newOrder); err != nil {
				return err
			}
			p := order.NewManualPayment(newOrder.ID, newOrder.Total, uc.currency)
			if err := uc.orderRepo.SavePayment(txCtx, p); err != nil {
				return err
			}
			newOrder.Payment = p
		}

		o = newOrder
		return uc.activityRepo.Create(txCtx, activity.New(req.Actor, "order_created", activity.EntityOrder, newOrder.ID,
			"order %s created with %d items, total %s (%s)",
			newOrder.OrderNumber, len(newOrder.Items), newOrder.Total.StringFixed(2), newOrder.Status))
	})
	if err != nil {
		logger.FromContext(ctx).Info("下单失败", zap.Uint("user_id", req.UserID), zap.Error(err))
		return nil, err
	}

	logger.FromContext(ctx).Info("订单已创建",
		zap.Uint("order_id", o.ID),
		zap.String("order_number", o.OrderNumber),
		zap.String("total", o.Total.StringFixed(2)),
	)
	// 统计缓存随订单缓存一起清除
	invalidateOrder(ctx, uc.cache, o.ID)
	uc.notifier.OrderCreated(ctx, o)

	return uc.orderRepo.FindByID(ctx, o.ID)
}

func (uc *CreateOrderUseCase) resolveCoupon(ctx context.Context, req CreateOrderRequest) (*coupon.Coupon, error) {
	switch {
	case req.CouponCode != "":
		return uc.couponRepo.FindActiveByCode(ctx, coupon.NormalizeCode(req.CouponCode))
	case req.CouponID != nil:
		c, err := uc.couponRepo.FindByID(ctx, *req.CouponID)
		if err != nil {
			return nil, err
		}
		if !c.IsActive {
			return nil, coupon.ErrInvalidCouponCode
		}
		return c, nil
	}
	return nil, nil
}

// mergeItems 合并同一规格的明细并按规格ID排序（固定加锁顺序）
func mergeItems(items []ItemRequest) ([]ItemRequest, error) {
	if len(items) == 0 {
		return nil, order.ErrInvalidOrderItems
	}
	qty := make(map[uint]int, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			return nil, order.ErrInvalidQuantity
		}
		qty[it.VariantID] += it.Quantity
	}
	out := make([]ItemRequest, 0, len(qty))
	for id, q := range qty {
		out = append(out, ItemRequest{VariantID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VariantID < out[j].VariantID })
	return out, nil
}

func variantNotFound(err error, variantID uint) error {
	if apperrors.IsNotFound(err) {
		return catalog.ErrVariantNotFound.WithMessage("商品规格不存在: %d", variantID)
	}
	return err
}
