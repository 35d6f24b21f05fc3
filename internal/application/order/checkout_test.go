package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/supplestore/internal/domain/cart"
	"github.com/xiebiao/supplestore/internal/domain/catalog"
	"github.com/xiebiao/supplestore/internal/domain/order"
	"github.com/xiebiao/supplestore/internal/domain/payment"
	apperrors "github.com/xiebiao/supplestore/pkg/errors"
)

func TestCheckout_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.store.SeedVariant(t, "Whey", "WHEY-1KG", "1200", 10)
	_, err := f.carts.SetItem(ctx, f.customer.ID, v.ID, 2)
	require.NoError(t, err)

	res, err := f.checkout.Execute(ctx, CheckoutRequest{UserID: f.customer.ID, ShippingAddressID: f.address.ID, Notes: "leave at door"})
	require.NoError(t, err)

	require.NotNil(t, res.RemoteOrder)
	assert.Equal(t, "order_fake_1", res.RemoteOrder.ID)
	assert.True(t, res.RemoteOrder.Amount.Equal(dec("2400")))
	assert.Equal(t, res.Order.OrderNumber, res.RemoteOrder.Receipt)

	o := f.reload(t, res.Order.ID)
	assert.Equal(t, order.StatusPending, o.Status)
	require.NotNil(t, o.Payment)
	assert.Equal(t, order.PaymentCreated, o.Payment.Status)
	assert.Equal(t, "order_fake_1", o.Payment.GatewayOrderID)
	assert.Equal(t, "fake", o.Payment.Provider)
	assert.Equal(t, 8, f.store.Quantity(t, v.ID))

	c, err := f.carts.Get(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.Empty(t, c.Lines, "结账成功后清空购物车")
	_, err = f.carts.Items(ctx, f.customer.ID)
	assert.ErrorIs(t, err, cart.ErrCartEmpty)

	emails := f.notifier.SentEmails()
	require.Len(t, emails, 1)
	assert.Contains(t, emails[0].Subject, "placed")
}

func TestCheckout_RefreshesCachedOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.store.SeedVariant(t, "Whey", "WHEY-1KG", "1200", 10)
	_, err := f.carts.SetItem(ctx, f.customer.ID, v.ID, 1)
	require.NoError(t, err)

	// 网关下单期间客户查看订单，缓存中的订单还没有支付记录
	f.gateway.BeforeCreate = func() {
		orders, _, err := f.store.Orders().List(ctx, order.ListParams{})
		require.NoError(t, err)
		require.Len(t, orders, 1)
		got, err := f.get.Execute(ctx, orders[0].ID, f.customer.ID)
		require.NoError(t, err)
		require.Nil(t, got.Payment)
	}

	res, err := f.checkout.Execute(ctx, CheckoutRequest{UserID: f.customer.ID, ShippingAddressID: f.address.ID})
	require.NoError(t, err)

	got, err := f.get.Execute(ctx, res.Order.ID, f.customer.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Payment)
	assert.Equal(t, res.RemoteOrder.ID, got.Payment.GatewayOrderID)
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.checkout.Execute(context.Background(), CheckoutRequest{UserID: f.customer.ID, ShippingAddressID: f.address.ID})
	assert.ErrorIs(t, err, cart.ErrCartEmpty)
	assert.Equal(t, 0, f.store.Orders().Count())
}

func TestCheckout_GatewayFailureCancelsOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.store.SeedVariant(t, "Whey", "WHEY-1KG", "1200", 10)
	_, err := f.carts.SetItem(ctx, f.customer.ID, v.ID, 3)
	require.NoError(t, err)

	f.gateway.CreateErr = fmt.Errorf("%w: no credentials", payment.ErrGatewayUnavailable)
	_, err = f.checkout.Execute(ctx, CheckoutRequest{UserID: f.customer.ID, ShippingAddressID: f.address.ID})
	require.Error(t, err)
	assert.True(t, apperrors.IsExternal(err))
	assert.ErrorIs(t, err, payment.ErrGatewayUnavailable)

	// 补偿：订单取消、库存退回，购物车保留
	require.Equal(t, 1, f.store.Orders().Count())
	orders, _, err := f.store.Orders().List(ctx, order.ListParams{})
	require.NoError(t, err)
	o := orders[0]
	assert.Equal(t, order.StatusCancelled, o.Status)
	assert.Equal(t, ActorSystem, o.CancelledBy)
	assert.Nil(t, o.Payment)
	assert.Equal(t, 10, f.store.Quantity(t, v.ID))

	lines, err := f.carts.Items(ctx, f.customer.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
}

func TestCheckout_InsufficientStockCreatesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.store.SeedVariant(t, "Whey", "WHEY-1KG", "1200", 1)
	_, err := f.carts.SetItem(ctx, f.customer.ID, v.ID, 1)
	require.NoError(t, err)
	require.NoError(t, f.store.Catalog().UpdateVariantQuantity(ctx, v.ID, -1))

	_, err = f.checkout.Execute(ctx, CheckoutRequest{UserID: f.customer.ID, ShippingAddressID: f.address.ID})
	assert.ErrorIs(t, err, catalog.ErrInsufficientStock)
	assert.Equal(t, 0, f.store.Orders().Count())
	assert.Empty(t, f.gateway.Created)
}

func TestVerifyPayment(t *testing.T) {
	ctx := context.Background()

	checkout := func(t *testing.T, f *fixture) *CheckoutResult {
		t.Helper()
		v := f.store.SeedVariant(t, "Whey", "WHEY-1KG", "1200", 10)
		_, err := f.carts.SetItem(ctx, f.customer.ID, v.ID, 1)
		require.NoError(t, err)
		res, err := f.checkout.Execute(ctx, CheckoutRequest{UserID: f.customer.ID, ShippingAddressID: f.address.ID})
		require.NoError(t, err)
		return res
	}

	t.Run("签名通过，订单置为PAID", func(t *testing.T) {
		f := newFixture(t)
		res := checkout(t, f)
		f.gateway.VerifyOK = true

		req := VerifyPaymentRequest{
			UserID: f.customer.ID, OrderID: res.Order.ID,
			GatewayOrderID: res.RemoteOrder.ID, GatewayPaymentID: "pay_abc", Signature: "sig",
		}
		o, err := f.verify.Execute(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, order.StatusPaid, o.Status)
		assert.Equal(t, order.PaymentCaptured, o.Payment.Status)
		assert.Equal(t, "pay_abc", o.Payment.GatewayPaymentID)
		assert.Contains(t, o.Notes, "system: PAID - payment pay_abc verified")

		emails := f.notifier.SentEmails()
		assert.Contains(t, emails[len(emails)-1].Subject, "confirmed")

		// 重复回调幂等
		again, err := f.verify.Execute(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, order.StatusPaid, again.Status)
	})

	t.Run("签名不符，支付FAILED且订单不变", func(t *testing.T) {
		f := newFixture(t)
		res := checkout(t, f)
		f.gateway.VerifyOK = false

		_, err := f.verify.Execute(ctx, VerifyPaymentRequest{
			OrderID: res.Order.ID, GatewayOrderID: res.RemoteOrder.ID, GatewayPaymentID: "pay_bad", Signature: "forged",
		})
		assert.ErrorIs(t, err, order.ErrInvalidSignature)

		o := f.reload(t, res.Order.ID)
		assert.Equal(t, order.StatusPending, o.Status)
		assert.Equal(t, order.PaymentFailed, o.Payment.Status)
		assert.NotEmpty(t, o.Payment.FailureReason)
	})

	t.Run("签名不符后读取详情得到FAILED", func(t *testing.T) {
		f := newFixture(t)
		res := checkout(t, f)
		cached, err := f.get.Execute(ctx, res.Order.ID, f.customer.ID)
		require.NoError(t, err)
		require.Equal(t, order.PaymentCreated, cached.Payment.Status)

		_, err = f.verify.Execute(ctx, VerifyPaymentRequest{
			UserID: f.customer.ID, OrderID: res.Order.ID,
			GatewayOrderID: res.RemoteOrder.ID, GatewayPaymentID: "pay_bad", Signature: "forged",
		})
		require.ErrorIs(t, err, order.ErrInvalidSignature)

		got, err := f.get.Execute(ctx, res.Order.ID, f.customer.ID)
		require.NoError(t, err)
		assert.Equal(t, order.PaymentFailed, got.Payment.Status)
	})

	t.Run("伪造回调不改动已入账的支付", func(t *testing.T) {
		f := newFixture(t)
		res := checkout(t, f)
		f.gateway.VerifyOK = true
		_, err := f.verify.Execute(ctx, VerifyPaymentRequest{
			OrderID: res.Order.ID, GatewayOrderID: res.RemoteOrder.ID, GatewayPaymentID: "pay_abc", Signature: "sig",
		})
		require.NoError(t, err)

		f.gateway.VerifyOK = false
		_, err = f.verify.Execute(ctx, VerifyPaymentRequest{
			OrderID: res.Order.ID, GatewayOrderID: res.RemoteOrder.ID, GatewayPaymentID: "pay_evil", Signature: "forged",
		})
		assert.ErrorIs(t, err, order.ErrInvalidSignature)

		o := f.reload(t, res.Order.ID)
		assert.Equal(t, order.StatusPaid, o.Status)
		assert.Equal(t, order.PaymentCaptured, o.Payment.Status)
		assert.Equal(t, "pay_abc", o.Payment.GatewayPaymentID)
	})

	t.Run("并发重复回调都成功，只确认一次", func(t *testing.T) {
		f := newFixture(t)
		res := checkout(t, f)
		f.gateway.VerifyOK = true
		req := VerifyPaymentRequest{
			UserID: f.customer.ID, OrderID: res.Order.ID,
			GatewayOrderID: res.RemoteOrder.ID, GatewayPaymentID: "pay_abc", Signature: "sig",
		}

		// 第一个回调校验签名期间，第二个回调已完成确认
		var inner *order.Order
		var innerErr error
		f.gateway.BeforeVerify = func() {
			f.gateway.BeforeVerify = nil
			inner, innerErr = f.verify.Execute(ctx, req)
		}

		o, err := f.verify.Execute(ctx, req)
		require.NoError(t, innerErr)
		require.NoError(t, err)
		assert.Equal(t, order.StatusPaid, inner.Status)
		assert.Equal(t, order.StatusPaid, o.Status)
		assert.Equal(t, order.PaymentCaptured, o.Payment.Status)

		var confirmed int
		for _, e := range f.notifier.SentEmails() {
			if strings.Contains(e.Subject, "confirmed") {
				confirmed++
			}
		}
		assert.Equal(t, 1, confirmed)
		assert.Equal(t, 1, strings.Count(o.Notes, "verified"))
	})

	t.Run("OrderID与网关订单号不对应", func(t *testing.T) {
		f := newFixture(t)
		first := checkout(t, f)
		v := f.store.SeedVariant(t, "Creatine", "CR-300", "500", 10)
		second := f.placeOrder(t, []*catalog.ProductVariant{v}, 1)
		f.gateway.VerifyOK = true

		_, err := f.verify.Execute(ctx, VerifyPaymentRequest{
			OrderID: second.ID, GatewayOrderID: first.RemoteOrder.ID, GatewayPaymentID: "pay_abc", Signature: "sig",
		})
		assert.ErrorIs(t, err, order.ErrPaymentMismatch)
		assert.Equal(t, order.StatusPending, f.reload(t, first.Order.ID).Status)
		assert.Equal(t, order.StatusPending, f.reload(t, second.ID).Status)
	})

	t.Run("支付单不匹配", func(t *testing.T) {
		f := newFixture(t)
		res := checkout(t, f)
		f.gateway.VerifyOK = true

		_, err := f.verify.Execute(ctx, VerifyPaymentRequest{
			OrderID: res.Order.ID, GatewayOrderID: "order_other", GatewayPaymentID: "pay_abc", Signature: "sig",
		})
		assert.ErrorIs(t, err, order.ErrPaymentMismatch)
		assert.Equal(t, order.StatusPending, f.reload(t, res.Order.ID).Status)
	})

	t.Run("他人订单按不存在处理", func(t *testing.T) {
		f := newFixture(t)
		res := checkout(t, f)

		_, err := f.verify.Execute(ctx, VerifyPaymentRequest{
			UserID: f.customer.ID + 100, OrderID: res.Order.ID, GatewayOrderID: res.RemoteOrder.ID,
		})
		assert.ErrorIs(t, err, order.ErrOrderNotFound)
	})

	t.Run("网关不可用", func(t *testing.T) {
		f := newFixture(t)
		res := checkout(t, f)
		f.gateway.VerifyErr = errors.New("timeout")

		_, err := f.verify.Execute(ctx, VerifyPaymentRequest{
			OrderID: res.Order.ID, GatewayOrderID: res.RemoteOrder.ID, GatewayPaymentID: "pay_abc", Signature: "sig",
		})
		assert.True(t, apperrors.IsExternal(err))
		assert.Equal(t, order.PaymentCreated, f.reload(t, res.Order.ID).Payment.Status)
	})
}
