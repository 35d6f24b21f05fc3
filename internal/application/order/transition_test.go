package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/supplestore/internal/domain/activity"
	"github.com/xiebiao/supplestore/internal/domain/catalog"
	"github.com/xiebiao/supplestore/internal/domain/inventory"
	"github.com/xiebiao/supplestore/internal/domain/notification"
	"github.com/xiebiao/supplestore/internal/domain/order"
	"github.com/xiebiao/supplestore/internal/domain/payment"
	apperrors "github.com/xiebiao/supplestore/pkg/errors"
)

func TestTransition_Grid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.store.SeedVariant(t, "Whey", "WHEY-1KG", "1000", 1000)

	for _, from := range order.AllStatuses() {
		for _, to := range order.AllStatuses() {
			if !to.Requestable() {
				continue
			}
			t.Run(fmt.Sprintf("%s→%s", from, to), func(t *testing.T) {
				o := f.placeOrder(t, []*catalog.ProductVariant{v}, 1)
				f.forceStatus(t, o.ID, from)

				got, err := f.transition.Execute(ctx, TransitionRequest{OrderID: o.ID, Status: to, Actor: "admin"})
				if order.CanTransition(from, to) {
					require.NoError(t, err)
					assert.Equal(t, to, got.Status)
					return
				}
				assert.ErrorIs(t, err, order.ErrInvalidStatusTransition)
				assert.Contains(t, err.Error(), string(from))
				assert.Contains(t, err.Error(), string(to))
				assert.Equal(t, from, f.reload(t, o.ID).Status)
			})
		}
	}
}

func TestTransition_RefundPendingNotRequestable(t *testing.T) {
	f := newFixture(t)
	v := f.store.SeedVariant(t, "Whey", "WHEY-1KG", "1000", 10)
	o := f.placeOrder(t, []*catalog.ProductVariant{v}, 1)

	_, err := f.transition.Execute(context.Background(), TransitionRequest{OrderID: o.ID, Status: order.StatusRefundPending})
	assert.ErrorIs(t, err, order.ErrUnknownStatus)
	assert.Equal(t, order.StatusPending, f.reload(t, o.ID).Status)
}

func TestTransition_CancelReturnsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.store.SeedVariant(t, "Whey", "WHEY-1KG", "1000", 10)
	b := f.store.SeedVariant(t, "Creatine", "CR-300", "500", 5)
	o := f.placeOrder(t, []*catalog.ProductVariant{a, b}, 2)
	require.Equal(t, 8, f.store.Quantity(t, a.ID))
	require.Equal(t, 3, f.store.Quantity(t, b.ID))

	got, err := f.transition.Execute(ctx, TransitionRequest{OrderID: o.ID, Status: order.StatusCancelled, Notes: "customer request", Actor: "admin@store.in"})
	require.NoError(t, err)

	assert.Equal(t, order.StatusCancelled, got.Status)
	assert.Equal(t, "customer request", got.CancelReason)
	assert.Equal(t, "admin@store.in", got.CancelledBy)
	require.NotNil(t, got.CancelledAt)
	assert.Contains(t, got.Notes, "admin@store.in: CANCELLED - customer request")

	assert.Equal(t, 10, f.store.Quantity(t, a.ID))
	assert.Equal(t, 5, f.store.Quantity(t, b.ID))

	returns, err := f.store.Inventory().ListByReference(ctx, o.ID, inventory.ReasonReturn)
	require.NoError(t, err)
	require.Len(t, returns, 2, "每个明细一条return流水")
	for _, l := range returns {
		assert.Equal(t, 2, l.QuantityChange)
	}

	acts, err := f.store.Activities().ListByEntity(ctx, activity.EntityOrder, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "status updated from PENDING to CANCELLED", acts[len(acts)-1].Description)

	assert.Contains(t, f.cache.Deleted, o.ID)
	emails := f.notifier.SentEmails()
	require.NotEmpty(t, emails)
	assert.Equal(t, "buyer@store.in", emails[len(emails)-1].To)

	events := f.notifier.PublishedEvents()
	last := events[len(events)-1]
	assert.Equal(t, notification.RoutingKeyOrderStatusChanged, last.RoutingKey)
	changed, ok := last.Payload.(notification.OrderStatusChanged)
	require.True(t, ok)
	assert.Equal(t, "PENDING", changed.From)
	assert.Equal(t, "CANCELLED", changed.To)

	t.Run("默认取消原因", func(t *testing.T) {
		o := f.placeOrder(t, []*catalog.ProductVariant{a}, 1)
		got, err := f.transition.Execute(ctx, TransitionRequest{OrderID: o.ID, Status: order.StatusCancelled, Actor: "admin"})
		require.NoError(t, err)
		assert.Equal(t, "cancelled by admin", got.CancelReason)
	})
}

func TestTransition_CancelRollsBackWhenLogFails(t *testing.T) {
	f := newFixture(t)
	a := f.store.SeedVariant(t, "Whey", "WHEY-1KG", "1000", 10)
	o := f.placeOrder(t, []*catalog.ProductVariant{a}, 3)

	f.store.FailOn("inventory.Create", errors.New("disk full"))
	defer f.store.FailOn("inventory.Create", nil)

	_, err := f.transition.Execute(context.Background(), TransitionRequest{OrderID: o.ID, Status: order.StatusCancelled, Actor: "admin"})
	require.Error(t, err)
	assert.Equal(t, 7, f.store.Quantity(t, a.ID))
	assert.Equal(t, order.StatusPending, f.reload(t, o.ID).Status)
}

func TestTransition_Shipping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.store.SeedVariant(t, "Whey", "WHEY-1KG", "1000", 10)
	o := f.placeOrder(t, []*catalog.ProductVariant{v}, 1)

	_, err := f.transition.Execute(ctx, TransitionRequest{OrderID: o.ID, Status: order.StatusShipped, Actor: "admin"})
	assert.ErrorIs(t, err, order.ErrInvalidStatusTransition)
	assert.Nil(t, f.reload(t, o.ID).Tracking)

	_, err = f.transition.Execute(ctx, TransitionRequest{OrderID: o.ID, Status: order.StatusProcessing, Actor: "admin"})
	require.NoError(t, err)

	shipped, err := f.transition.Execute(ctx, TransitionRequest{OrderID: o.ID, Status: order.StatusShipped, Actor: "admin", Location: "Mumbai hub"})
	require.NoError(t, err)
	require.NotNil(t, shipped.Tracking)
	assert.True(t, strings.HasPrefix(shipped.Tracking.TrackingNumber, "TRK"))
	assert.Equal(t, order.DefaultCarrier, shipped.Tracking.Carrier)
	assert.Equal(t, order.TrackingShipped, shipped.Tracking.Status)
	assert.NotNil(t, shipped.Tracking.ShippedAt)
	require.Len(t, shipped.Tracking.Updates, 1)
	assert.Equal(t, "Mumbai hub", shipped.Tracking.Updates[0].Location)

	delivered, err := f.transition.Execute(ctx, TransitionRequest{OrderID: o.ID, Status: order.StatusDelivered, Actor: "admin"})
	require.NoError(t, err)
	assert.Equal(t, order.TrackingDelivered, delivered.Tracking.Status)
	assert.NotNil(t, delivered.Tracking.DeliveredAt)
	assert.Len(t, delivered.Tracking.Updates, 2)
	assert.Equal(t, shipped.Tracking.TrackingNumber, delivered.Tracking.TrackingNumber)

	t.Run("指定运单号与承运商", func(t *testing.T) {
		o := f.placeOrder(t, []*catalog.ProductVariant{v}, 1)
		f.forceStatus(t, o.ID, order.StatusPaid)
		got, err := f.transition.Execute(ctx, TransitionRequest{
			OrderID: o.ID, Status: order.StatusShipped, TrackingNumber: "DTDC123", Carrier: "DTDC", Actor: "admin",
		})
		require.NoError(t, err)
		assert.Equal(t, "DTDC123", got.Tracking.TrackingNumber)
		assert.Equal(t, "DTDC", got.Tracking.Carrier)
	})
}

func TestTransition_PaidCapturesPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.store.SeedVariant(t, "Whey", "WHEY-1KG", "1000", 10)
	o := f.placeOrder(t, []*catalog.ProductVariant{v}, 1)
	require.NoError(t, f.store.Orders().SavePayment(ctx, order.NewPayment(o.ID, o.Total, "INR", "razorpay", "order_x")))

	got, err := f.transition.Execute(ctx, TransitionRequest{OrderID: o.ID, Status: order.StatusPaid, Actor: "admin"})
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, got.Status)
	assert.Equal(t, order.PaymentCaptured, got.Payment.Status)
}

func TestTransition_Refund(t *testing.T) {
	ctx := context.Background()

	t.Run("经网关退款全额", func(t *testing.T) {
		f := newFixture(t)
		v := f.store.SeedVariant(t, "Whey", "WHEY-1KG", "250", 10)
		o := f.placeOrder(t, []*catalog.ProductVariant{v}, 2)
		require.True(t, o.Total.Equal(dec("500")))
		f.attachGatewayPayment(t, o, "pay_123")
		f.forceStatus(t, o.ID, order.StatusPaid)

		got, err := f.transition.Execute(ctx, TransitionRequest{OrderID: o.ID, Status: order.StatusRefunded, Notes: "damaged", Actor: "admin"})
		require.NoError(t, err)

		require.Len(t, f.gateway.Refunds, 1)
		assert.Equal(t, "pay_123", f.gateway.Refunds[0].PaymentID)
		assert.True(t, f.gateway.Refunds[0].Amount.Equal(dec("500")))
		assert.Equal(t, "damaged", f.gateway.Refunds[0].Notes)

		assert.Equal(t, order.StatusRefunded, got.Status)
		assert.Equal(t, order.PaymentRefunded, got.Payment.Status)
		require.Len(t, got.Payment.Refunds, 1)
		assert.True(t, got.Payment.Refunds[0].Amount.Equal(dec("500")))
		assert.NotEmpty(t, got.Payment.Refunds[0].GatewayRefundID)
	})

	t.Run("网关失败进入REFUND_PENDING，重试成功", func(t *testing.T) {
		f := newFixture(t)
		v := f.store.SeedVariant(t, "Whey", "WHEY-1KG", "250", 10)
		o := f.placeOrder(t, []*catalog.ProductVariant{v}, 2)
		f.attachGatewayPayment(t, o, "pay_456")
		f.forceStatus(t, o.ID, order.StatusDelivered)

		f.gateway.RefundErr = fmt.Errorf("%w: breaker open", payment.ErrGatewayUnavailable)
		got, err := f.transition.Execute(ctx, TransitionRequest{OrderID: o.ID, Status: order.StatusRefunded, Actor: "admin"})
		require.NoError(t, err)
		assert.Equal(t, order.StatusRefundPending, got.Status)
		assert.Equal(t, order.PaymentCaptured, got.Payment.Status)
		require.Len(t, got.Payment.Refunds, 1)
		assert.Equal(t, order.RefundFailed, got.Payment.Refunds[0].Status)
		assert.Contains(t, got.Payment.Refunds[0].Notes, "breaker open")

		acts, err := f.store.Activities().ListByEntity(ctx, activity.EntityOrder, o.ID)
		require.NoError(t, err)
		var actions []string
		for _, a := range acts {
			actions = append(actions, a.Action)
		}
		assert.Contains(t, actions, "refund_failed")

		// 再次失败仍停留在REFUND_PENDING
		got, err = f.transition.Execute(ctx, TransitionRequest{OrderID: o.ID, Status: order.StatusRefunded, Actor: "admin"})
		require.NoError(t, err)
		assert.Equal(t, order.StatusRefundPending, got.Status)

		f.gateway.RefundErr = nil
		got, err = f.transition.Execute(ctx, TransitionRequest{OrderID: o.ID, Status: order.StatusRefunded, Actor: "admin"})
		require.NoError(t, err)
		assert.Equal(t, order.StatusRefunded, got.Status)
		assert.Equal(t, order.PaymentRefunded, got.Payment.Status)
		assert.Len(t, f.gateway.Refunds, 3)
		require.Len(t, got.Payment.Refunds, 3)
		assert.Equal(t, order.RefundFailed, got.Payment.Refunds[1].Status)
		assert.Equal(t, "processed", got.Payment.Refunds[2].Status)
		assert.Equal(t, "rfnd_fake_3", got.Payment.Refunds[2].GatewayRefundID)
	})

	t.Run("网关退款后落库失败，重试不会再次退款", func(t *testing.T) {
		f := newFixture(t)
		v := f.store.SeedVariant(t, "Whey", "WHEY-1KG", "250", 10)
		o := f.placeOrder(t, []*catalog.ProductVariant{v}, 2)
		f.attachGatewayPayment(t, o, "pay_789")
		f.forceStatus(t, o.ID, order.StatusPaid)

		// 网关已退款，随后的订单更新失败
		dbDown := errors.New("mysql: connection reset")
		f.gateway.BeforeRefund = func() { f.store.FailOn("order.Update", dbDown) }
		_, err := f.transition.Execute(ctx, TransitionRequest{OrderID: o.ID, Status: order.StatusRefunded, Actor: "admin"})
		require.ErrorIs(t, err, dbDown)
		require.Len(t, f.gateway.Refunds, 1)

		f.store.FailOn("order.Update", nil)
		f.gateway.BeforeRefund = nil

		stored := f.reload(t, o.ID)
		assert.Equal(t, order.StatusRefundPending, stored.Status)
		assert.Equal(t, order.PaymentCaptured, stored.Payment.Status)
		require.Len(t, stored.Payment.Refunds, 1)
		assert.True(t, stored.Payment.Refunds[0].InDoubt())

		_, err = f.transition.Execute(ctx, TransitionRequest{OrderID: o.ID, Status: order.StatusRefunded, Actor: "admin"})
		assert.ErrorIs(t, err, order.ErrRefundInDoubt)
		assert.True(t, apperrors.IsConflict(err))
		assert.Len(t, f.gateway.Refunds, 1)
		assert.Equal(t, order.StatusRefundPending, f.reload(t, o.ID).Status)
	})

	t.Run("退款状态变更清除缓存", func(t *testing.T) {
		f := newFixture(t)
		v := f.store.SeedVariant(t, "Whey", "WHEY-1KG", "250", 10)
		o := f.placeOrder(t, []*catalog.ProductVariant{v}, 1)
		f.attachGatewayPayment(t, o, "pay_321")
		f.forceStatus(t, o.ID, order.StatusPaid)

		// 网关处理期间读取详情，缓存的是REFUND_PENDING
		f.gateway.BeforeRefund = func() {
			got, err := f.get.Execute(ctx, o.ID, 0)
			require.NoError(t, err)
			require.Equal(t, order.StatusRefundPending, got.Status)
		}
		_, err := f.transition.Execute(ctx, TransitionRequest{OrderID: o.ID, Status: order.StatusRefunded, Actor: "admin"})
		require.NoError(t, err)

		got, err := f.get.Execute(ctx, o.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, order.StatusRefunded, got.Status)
	})

	t.Run("手工收款直接退款", func(t *testing.T) {
		f := newFixture(t)
		v := f.store.SeedVariant(t, "Whey", "WHEY-1KG", "250", 10)
		o, err := f.create.Execute(ctx, CreateOrderRequest{
			UserID: f.customer.ID, Items: []ItemRequest{{VariantID: v.ID, Quantity: 1}}, MarkPaid: true, Actor: "admin",
		})
		require.NoError(t, err)

		got, err := f.transition.Execute(ctx, TransitionRequest{OrderID: o.ID, Status: order.StatusRefunded, Actor: "admin"})
		require.NoError(t, err)
		assert.Equal(t, order.StatusRefunded, got.Status)
		assert.Equal(t, order.PaymentRefunded, got.Payment.Status)
		assert.Empty(t, f.gateway.Refunds)
	})
}

func TestUpdateTracking_DoesNotChangeOrderStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.store.SeedVariant(t, "Whey", "WHEY-1KG", "1000", 10)
	o := f.placeOrder(t, []*catalog.ProductVariant{v}, 1)
	f.forceStatus(t, o.ID, order.StatusProcessing)

	first, err := f.tracking.Execute(ctx, UpdateTrackingRequest{OrderID: o.ID, TrackingNumber: "BD1", Carrier: "BlueDart", Location: "Pune", Actor: "admin"})
	require.NoError(t, err)
	assert.Equal(t, order.TrackingProcessing, first.Tracking.Status)

	second, err := f.tracking.Execute(ctx, UpdateTrackingRequest{OrderID: o.ID, Status: "shipped", Location: "Mumbai", Description: "In transit", Actor: "admin"})
	require.NoError(t, err)

	assert.Equal(t, order.StatusProcessing, second.Status)
	assert.Equal(t, "BD1", second.Tracking.TrackingNumber)
	assert.Equal(t, order.TrackingShipped, second.Tracking.Status)
	require.Len(t, second.Tracking.Updates, 2)
	assert.Equal(t, "In transit", second.Tracking.Updates[1].Description)

	_, err = f.tracking.Execute(ctx, UpdateTrackingRequest{OrderID: o.ID, Status: "LOST"})
	assert.ErrorIs(t, err, ErrInvalidTrackingStatus)

	_, err = f.tracking.Execute(ctx, UpdateTrackingRequest{OrderID: 999})
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}
