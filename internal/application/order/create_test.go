package order

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/supplestore/internal/domain/activity"
	"github.com/xiebiao/supplestore/internal/domain/catalog"
	"github.com/xiebiao/supplestore/internal/domain/coupon"
	"github.com/xiebiao/supplestore/internal/domain/inventory"
	"github.com/xiebiao/supplestore/internal/domain/notification"
	"github.com/xiebiao/supplestore/internal/domain/order"
	"github.com/xiebiao/supplestore/internal/domain/shared"
	"github.com/xiebiao/supplestore/internal/domain/user"
	apperrors "github.com/xiebiao/supplestore/pkg/errors"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCreateOrder_Success(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	whey := f.store.SeedVariant(t, "Whey", "WHEY-1KG", "1500", 10)
	sale := dec("450")
	creatine := f.store.SeedVariant(t, "Creatine", "CR-300", "500", 4)
	creatine.SalePrice = &sale
	require.NoError(t, f.store.Catalog().UpdateVariant(ctx, creatine))

	o, err := f.create.Execute(ctx, CreateOrderRequest{
		UserID: f.customer.ID,
		Items: []ItemRequest{
			{VariantID: creatine.ID, Quantity: 1},
			{VariantID: whey.ID, Quantity: 2},
			{VariantID: creatine.ID, Quantity: 1},
		},
		ShippingAddressID: &f.address.ID,
		Notes:             "leave at the gate",
		Actor:             "buyer@store.in",
	})
	require.NoError(t, err)

	assert.Regexp(t, `^ORD\d{14}\d{6}$`, o.OrderNumber)
	assert.Equal(t, order.StatusPending, o.Status)
	require.Len(t, o.Items, 2, "同一规格的明细合并")
	assert.True(t, o.SubTotal.Equal(dec("3900")), "促销价优先：1500×2 + 450×2")
	assert.True(t, o.Total.Equal(o.SubTotal))
	assert.True(t, o.TotalConsistent())
	assert.Contains(t, o.Notes, "buyer@store.in: PENDING - leave at the gate")

	assert.Equal(t, 8, f.store.Quantity(t, whey.ID))
	assert.Equal(t, 2, f.store.Quantity(t, creatine.ID))

	logs, _, err := f.store.Inventory().ListByVariant(ctx, whey.ID, shared.Page{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, inventory.ReasonSale, logs[0].Reason)
	assert.Equal(t, -2, logs[0].QuantityChange)
	assert.Equal(t, 10, logs[0].PreviousQuantity)
	assert.Equal(t, 8, logs[0].NewQuantity)
	require.NotNil(t, logs[0].ReferenceID)
	assert.Equal(t, o.ID, *logs[0].ReferenceID)

	acts, err := f.store.Activities().ListByEntity(ctx, activity.EntityOrder, o.ID)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, "order_created", acts[0].Action)

	events := f.notifier.PublishedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, notification.RoutingKeyOrderCreated, events[0].RoutingKey)
}

func TestCreateOrder_InsufficientStockLeavesStoreUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	plenty := f.store.SeedVariant(t, "Whey", "WHEY-1KG", "1500", 10)
	scarce := f.store.SeedVariant(t, "Omega 3", "OM-60", "600", 3)
	logsBefore := f.store.Inventory().Count()

	_, err := f.create.Execute(ctx, CreateOrderRequest{
		UserID: f.customer.ID,
		Items: []ItemRequest{
			{VariantID: plenty.ID, Quantity: 1},
			{VariantID: scarce.ID, Quantity: 5},
		},
		Actor: "admin",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrInsufficientStock)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "insufficient stock")
	assert.Contains(t, err.Error(), "Omega 3")

	assert.Equal(t, 3, f.store.Quantity(t, scarce.ID))
	assert.Equal(t, 10, f.store.Quantity(t, plenty.ID))
	assert.Equal(t, 0, f.store.Orders().Count())
	assert.Equal(t, 0, f.store.Orders().ItemCount())
	assert.Equal(t, logsBefore, f.store.Inventory().Count())
}

// 并发下单不超卖：库存5，10个请求各买1件
func TestCreateOrder_ConcurrentNoOversell(t *testing.T) {
	f := newFixture(t)
	v := f.store.SeedVariant(t, "Pre-Workout", "PRE-300", "999", 5)

	const buyers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.create.Execute(context.Background(), CreateOrderRequest{
				UserID: f.customer.ID,
				Items:  []ItemRequest{{VariantID: v.ID, Quantity: 1}},
				Actor:  "admin",
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errors.Is(err, catalog.ErrInsufficientStock) {
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 5, rejected)
	assert.Equal(t, 0, f.store.Quantity(t, v.ID))
	assert.Equal(t, 5, f.store.Orders().Count())
}

func TestCreateOrder_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.store.SeedVariant(t, "Whey", "WHEY-1KG", "1000", 10)
	stranger := f.store.SeedUser(t, "other@store.in", user.RoleCustomer)
	foreign := f.store.SeedAddress(t, stranger.ID)
	items := []ItemRequest{{VariantID: v.ID, Quantity: 1}}

	tests := []struct {
		name string
		req  CreateOrderRequest
		want error
	}{
		{"没有明细", CreateOrderRequest{UserID: f.customer.ID}, order.ErrInvalidOrderItems},
		{"数量为0", CreateOrderRequest{UserID: f.customer.ID, Items: []ItemRequest{{VariantID: v.ID}}}, order.ErrInvalidQuantity},
		{"用户不存在", CreateOrderRequest{UserID: 999, Items: items}, apperrors.ErrUserNotFound},
		{"地址不属于该用户", CreateOrderRequest{UserID: f.customer.ID, Items: items, ShippingAddressID: &foreign.ID}, order.ErrAddressNotFound},
		{"规格不存在", CreateOrderRequest{UserID: f.customer.ID, Items: []ItemRequest{{VariantID: 999, Quantity: 1}}}, catalog.ErrVariantNotFound},
		{"优惠码无效", CreateOrderRequest{UserID: f.customer.ID, Items: items, CouponCode: "NOPE"}, coupon.ErrInvalidCouponCode},
		{"人工折扣超过小计", CreateOrderRequest{UserID: f.customer.ID, Items: items, Discount: decPtr("1000.01")}, order.ErrInvalidDiscount},
		{"人工折扣为负", CreateOrderRequest{UserID: f.customer.ID, Items: items, Discount: decPtr("-1")}, order.ErrInvalidDiscount},
		{"优惠券与人工折扣同时使用", CreateOrderRequest{UserID: f.customer.ID, Items: items, CouponCode: "X", Discount: decPtr("1")}, ErrDiscountConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.create.Execute(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 10, f.store.Quantity(t, v.ID))
	assert.Equal(t, 0, f.store.Orders().Count())
}

func TestCreateOrder_AddressLookupFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.store.SeedVariant(t, "Whey", "WHEY-1KG", "1000", 10)
	items := []ItemRequest{{VariantID: v.ID, Quantity: 1}}

	t.Run("地址不存在返回404", func(t *testing.T) {
		missing := uint(999)
		_, err := f.create.Execute(ctx, CreateOrderRequest{UserID: f.customer.ID, Items: items, ShippingAddressID: &missing})
		assert.ErrorIs(t, err, order.ErrAddressNotFound)
		assert.True(t, apperrors.IsNotFound(err))
	})

	t.Run("查询失败原样返回", func(t *testing.T) {
		dbDown := apperrors.Wrap(errors.New("connection refused"), "查询地址失败")
		f.store.FailOn("address.FindByID", dbDown)
		defer f.store.FailOn("address.FindByID", nil)

		_, err := f.create.Execute(ctx, CreateOrderRequest{UserID: f.customer.ID, Items: items, ShippingAddressID: &f.address.ID})
		require.Error(t, err)
		assert.NotErrorIs(t, err, order.ErrAddressNotFound)
		assert.False(t, apperrors.IsNotFound(err))
		assert.Equal(t, apperrors.ErrCodeInternal, apperrors.GetAppError(err).Code)
	})

	assert.Equal(t, 0, f.store.Orders().Count())
	assert.Equal(t, 10, f.store.Quantity(t, v.ID))
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestCreateOrder_Coupon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.store.SeedVariant(t, "Whey", "WHEY-1KG", "1000", 10)
	maxUses := 1
	c := f.store.SeedCoupon(t, "HALF", coupon.DiscountPercentage, "50", func(c *coupon.Coupon) { c.MaxUses = &maxUses })

	o, err := f.create.Execute(ctx, CreateOrderRequest{
		UserID: f.customer.ID, Items: []ItemRequest{{VariantID: v.ID, Quantity: 1}}, CouponCode: "half", Actor: "buyer",
	})
	require.NoError(t, err)
	assert.True(t, o.Discount.Equal(dec("500")))
	assert.True(t, o.Total.Equal(dec("500")))
	assert.Equal(t, "HALF", o.CouponCode)
	require.NotNil(t, o.CouponID)
	assert.Equal(t, c.ID, *o.CouponID)

	stored, err := f.store.Coupons().FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.UsedCount)

	t.Run("达到使用上限后整单失败", func(t *testing.T) {
		_, err := f.create.Execute(ctx, CreateOrderRequest{
			UserID: f.customer.ID, Items: []ItemRequest{{VariantID: v.ID, Quantity: 1}}, CouponID: &c.ID,
		})
		assert.ErrorIs(t, err, coupon.ErrUsageExceeded)
		assert.Equal(t, 9, f.store.Quantity(t, v.ID))
		assert.Equal(t, 1, f.store.Orders().Count())
	})

	t.Run("固定金额折扣不超过小计90%", func(t *testing.T) {
		f.store.SeedCoupon(t, "FLAT200", coupon.DiscountFixedAmount, "200")
		cheap := f.store.SeedVariant(t, "Shaker", "SHAKER", "100", 5)
		o, err := f.create.Execute(ctx, CreateOrderRequest{
			UserID: f.customer.ID, Items: []ItemRequest{{VariantID: cheap.ID, Quantity: 1}}, CouponCode: "FLAT200",
		})
		require.NoError(t, err)
		assert.True(t, o.Discount.Equal(dec("90")))
		assert.True(t, o.Total.Equal(dec("10")))
	})
}

func TestCreateOrder_ManualPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.store.SeedVariant(t, "Whey", "WHEY-1KG", "1000", 10)

	o, err := f.create.Execute(ctx, CreateOrderRequest{
		UserID:   f.customer.ID,
		Items:    []ItemRequest{{VariantID: v.ID, Quantity: 2}},
		Discount: decPtr("150"),
		MarkPaid: true,
		Actor:    "admin@store.in",
	})
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, o.Status)
	assert.True(t, o.Total.Equal(dec("1850")))
	require.NotNil(t, o.Payment)
	assert.Equal(t, order.PaymentCaptured, o.Payment.Status)
	assert.Equal(t, order.ProviderManual, o.Payment.Provider)
	assert.True(t, o.Payment.Amount.Equal(o.Total))

	t.Run("支付记录写入失败整单回滚", func(t *testing.T) {
		f.store.FailOn("order.SavePayment", errors.New("db down"))
		defer f.store.FailOn("order.SavePayment", nil)

		_, err := f.create.Execute(ctx, CreateOrderRequest{
			UserID: f.customer.ID, Items: []ItemRequest{{VariantID: v.ID, Quantity: 1}}, MarkPaid: true,
		})
		require.Error(t, err)
		assert.Equal(t, 8, f.store.Quantity(t, v.ID))
		assert.Equal(t, 1, f.store.Orders().Count())
	})
}
