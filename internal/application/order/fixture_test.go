package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appcart "github.com/xiebiao/supplestore/internal/application/cart"
	appinventory "github.com/xiebiao/supplestore/internal/application/inventory"
	"github.com/xiebiao/supplestore/internal/domain/catalog"
	"github.com/xiebiao/supplestore/internal/domain/order"
	"github.com/xiebiao/supplestore/internal/domain/user"
	"github.com/xiebiao/supplestore/internal/testutil/memstore"
)

type fixture struct {
	store    *memstore.Store
	gateway  *memstore.Gateway
	notifier *memstore.Notifier
	cache    *memstore.OrderCache
	carts    *appcart.Service

	create     *CreateOrderUseCase
	transition *TransitionStatusUseCase
	tracking   *UpdateTrackingUseCase
	get        *GetOrderUseCase
	stats      *StatsUseCase
	checkout   *CheckoutUseCase
	verify     *VerifyPaymentUseCase

	customer *user.User
	address  *user.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	f := &fixture{
		store:    store,
		gateway:  &memstore.Gateway{},
		notifier: &memstore.Notifier{},
		cache:    memstore.NewOrderCache(),
		carts:    appcart.NewService(memstore.NewCartStore(), store.Catalog()),
	}

	ledger := appinventory.NewLedger(store.Catalog(), store.Inventory())
	notifier := NewNotifier(f.notifier, f.notifier, store.Users(), "Supplestore")

	f.create = NewCreateOrderUseCase(store, store.Orders(), store.Catalog(), store.Coupons(), store.Users(),
		store.Addresses(), store.Activities(), ledger, f.cache, notifier, "INR")
	f.transition = NewTransitionStatusUseCase(store, store.Orders(), store.Activities(), ledger, f.gateway, f.cache, notifier)
	f.tracking = NewUpdateTrackingUseCase(store, store.Orders(), store.Activities(), f.cache)
	f.get = NewGetOrderUseCase(store.Orders(), f.cache)
	f.stats = NewStatsUseCase(store.Orders(), f.cache)
	f.checkout = NewCheckoutUseCase(f.create, f.transition, f.carts, store.Orders(), f.gateway, notifier, "INR", 5*time.Second)
	f.verify = NewVerifyPaymentUseCase(store, store.Orders(), f.gateway, f.transition, notifier)

	f.customer = store.SeedUser(t, "buyer@store.in", user.RoleCustomer)
	f.address = store.SeedAddress(t, f.customer.ID)
	return f
}

// placeOrder 下单（每个规格1件以外的数量通过qty指定）
func (f *fixture) placeOrder(t *testing.T, variants []*catalog.ProductVariant, qty int) *order.Order {
	t.Helper()
	items := make([]ItemRequest, 0, len(variants))
	for _, v := range variants {
		items = append(items, ItemRequest{VariantID: v.ID, Quantity: qty})
	}
	o, err := f.create.Execute(context.Background(), CreateOrderRequest{
		UserID:            f.customer.ID,
		Items:             items,
		ShippingAddressID: &f.address.ID,
		Actor:             "admin",
	})
	require.NoError(t, err)
	return o
}

// forceStatus 直接改写订单状态（构造测试前置条件）
func (f *fixture) forceStatus(t *testing.T, id uint, status order.OrderStatus) {
	t.Helper()
	ctx := context.Background()
	o, err := f.store.Orders().FindByID(ctx, id)
	require.NoError(t, err)
	o.Status = status
	require.NoError(t, f.store.Orders().Update(ctx, o))
}

// attachGatewayPayment 模拟已通过网关支付的订单
func (f *fixture) attachGatewayPayment(t *testing.T, o *order.Order, paymentID string) {
	t.Helper()
	p := order.NewPayment(o.ID, o.Total, "INR", "razorpay", "order_"+o.OrderNumber)
	p.Capture(paymentID)
	require.NoError(t, f.store.Orders().SavePayment(context.Background(), p))
}

func (f *fixture) setCreatedAt(t *testing.T, id uint, at time.Time) {
	t.Helper()
	require.NoError(t, f.store.Orders().SetCreatedAt(id, at))
}

func (f *fixture) reload(t *testing.T, id uint) *order.Order {
	t.Helper()
	o, err := f.store.Orders().FindByID(context.Background(), id)
	require.NoError(t, err)
	return o
}
