package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appinventory "github.com/xiebiao/supplestore/internal/application/inventory"
	"github.com/xiebiao/supplestore/internal/domain/catalog"
	"github.com/xiebiao/supplestore/internal/domain/inventory"
	"github.com/xiebiao/supplestore/internal/domain/order"
	"github.com/xiebiao/supplestore/internal/domain/shared"
	"github.com/xiebiao/supplestore/internal/testutil/memstore"
)

func newService(store *memstore.Store) *Service {
	return newServiceWithCache(store, memstore.NewOrderCache())
}

func newServiceWithCache(store *memstore.Store, cache order.Cache) *Service {
	ledger := appinventory.NewLedger(store.Catalog(), store.Inventory())
	return NewService(store, store.Catalog(), store.Orders(), cache, ledger, store.Activities())
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCreateProductAndVariant(t *testing.T) {
	store := memstore.New()
	svc := newService(store)
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, "Protein Powders", "")
	require.NoError(t, err)
	assert.Equal(t, "protein-powders", cat.Slug)

	p, err := svc.CreateProduct(ctx, CreateProductRequest{Name: "Gold Whey", CategoryID: &cat.ID, IsSupplement: true, Actor: "admin"})
	require.NoError(t, err)
	assert.Equal(t, "gold-whey", p.Slug)

	t.Run("初始库存记adjustment流水", func(t *testing.T) {
		sale := dec("2499")
		v, err := svc.CreateVariant(ctx, CreateVariantRequest{
			ProductID: p.ID, SKU: "gw-choc-2kg", Flavor: "Chocolate", Weight: "2kg",
			Price: dec("2999"), SalePrice: &sale, Quantity: 25, Actor: "admin",
		})
		require.NoError(t, err)
		assert.Equal(t, "GW-CHOC-2KG", v.SKU)
		assert.Equal(t, 25, v.Quantity)
		assert.True(t, v.IsSupplement)

		logs, total, err := store.Inventory().ListByVariant(ctx, v.ID, shared.Page{Page: 1, PageSize: 10})
		require.NoError(t, err)
		require.Equal(t, int64(1), total)
		assert.Equal(t, inventory.ReasonAdjustment, logs[0].Reason)
		assert.Equal(t, 0, logs[0].PreviousQuantity)
		assert.Equal(t, 25, logs[0].NewQuantity)
	})

	t.Run("SKU重复", func(t *testing.T) {
		_, err := svc.CreateVariant(ctx, CreateVariantRequest{ProductID: p.ID, SKU: "GW-CHOC-2KG", Price: dec("100")})
		assert.ErrorIs(t, err, catalog.ErrSKUDuplicate)
	})

	t.Run("促销价不低于原价", func(t *testing.T) {
		sale := dec("100")
		_, err := svc.CreateVariant(ctx, CreateVariantRequest{ProductID: p.ID, SKU: "GW-X", Price: dec("100"), SalePrice: &sale})
		assert.Same(t, catalog.ErrInvalidSalePrice, err)
	})

	t.Run("商品不存在", func(t *testing.T) {
		_, err := svc.CreateVariant(ctx, CreateVariantRequest{ProductID: 999, SKU: "NOPE", Price: dec("1")})
		assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	})

	t.Run("分类不存在", func(t *testing.T) {
		missing := uint(42)
		_, err := svc.CreateProduct(ctx, CreateProductRequest{Name: "Creatine", CategoryID: &missing})
		assert.ErrorIs(t, err, catalog.ErrCategoryNotFound)
	})

	t.Run("流水写入失败整体回滚", func(t *testing.T) {
		store.FailOn("inventory.Create", errors.New("disk full"))
		defer store.FailOn("inventory.Create", nil)

		_, err := svc.CreateVariant(ctx, CreateVariantRequest{ProductID: p.ID, SKU: "GW-VAN-1KG", Price: dec("1599"), Quantity: 5})
		require.Error(t, err)

		got, err := svc.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.Len(t, got.Variants, 1)
	})
}

func TestUpdateVariant(t *testing.T) {
	store := memstore.New()
	svc := newService(store)
	ctx := context.Background()
	v := store.SeedVariant(t, "Creatine", "CR-300", "899", 10)

	t.Run("设置促销价并下架", func(t *testing.T) {
		sale := dec("799")
		inactive := false
		got, err := svc.UpdateVariant(ctx, UpdateVariantRequest{ID: v.ID, SalePrice: &sale, IsActive: &inactive, Actor: "admin"})
		require.NoError(t, err)
		assert.True(t, got.EffectivePrice().Equal(sale))
		assert.False(t, got.IsActive)
		assert.Equal(t, 10, got.Quantity)
	})

	t.Run("原价低于促销价被拒绝且不落库", func(t *testing.T) {
		price := dec("700")
		_, err := svc.UpdateVariant(ctx, UpdateVariantRequest{ID: v.ID, Price: &price})
		assert.Same(t, catalog.ErrInvalidSalePrice, err)

		stored, err := store.Catalog().FindVariantByID(ctx, v.ID)
		require.NoError(t, err)
		assert.True(t, stored.Price.Equal(dec("899")))
	})

	t.Run("取消促销价", func(t *testing.T) {
		price := dec("700")
		got, err := svc.UpdateVariant(ctx, UpdateVariantRequest{ID: v.ID, Price: &price, ClearSalePrice: true})
		require.NoError(t, err)
		assert.Nil(t, got.SalePrice)
		assert.True(t, got.EffectivePrice().Equal(price))
	})

	t.Run("不存在", func(t *testing.T) {
		_, err := svc.UpdateVariant(ctx, UpdateVariantRequest{ID: 999})
		assert.ErrorIs(t, err, catalog.ErrVariantNotFound)
	})
}

func TestDeleteProduct(t *testing.T) {
	store := memstore.New()
	cache := memstore.NewOrderCache()
	svc := newServiceWithCache(store, cache)
	ctx := context.Background()

	v := store.SeedVariant(t, "BCAA", "BCAA-250", "1200", 10)
	u := store.SeedUser(t, "buyer@store.in", "customer")
	item := order.NewOrderItem(v.ProductID, v.ID, v.ProductName, v.SKU, v.Price, 2, true)
	o, err := order.NewOrder("ORD1", u.ID, nil, []order.OrderItem{item}, decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, store.Orders().Create(ctx, o))

	t.Run("被订单引用时需要force", func(t *testing.T) {
		err := svc.DeleteProduct(ctx, v.ProductID, false, "admin")
		assert.ErrorIs(t, err, catalog.ErrProductInUse)

		_, err = svc.GetProduct(ctx, v.ProductID)
		assert.NoError(t, err)
	})

	t.Run("force删除明细、规格和商品，订单金额保留", func(t *testing.T) {
		cached, err := store.Orders().FindByID(ctx, o.ID)
		require.NoError(t, err)
		require.NoError(t, cache.SetOrder(ctx, cached))

		require.NoError(t, svc.DeleteProduct(ctx, v.ProductID, true, "admin"))

		_, err = svc.GetProduct(ctx, v.ProductID)
		assert.ErrorIs(t, err, catalog.ErrProductNotFound)
		_, err = store.Catalog().FindVariantByID(ctx, v.ID)
		assert.ErrorIs(t, err, catalog.ErrVariantNotFound)
		assert.Equal(t, 0, store.Orders().ItemCount())

		stored, err := store.Orders().FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.True(t, stored.Total.Equal(dec("2400")))

		_, hit, err := cache.GetOrder(ctx, o.ID)
		require.NoError(t, err)
		assert.False(t, hit, "删除明细后订单缓存失效")
	})

	t.Run("不存在", func(t *testing.T) {
		err := svc.DeleteProduct(ctx, 999, true, "admin")
		assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	})
}

func TestListProducts(t *testing.T) {
	store := memstore.New()
	svc := newService(store)
	ctx := context.Background()

	store.SeedVariant(t, "Whey Isolate", "WI-1", "3000", 1)
	store.SeedVariant(t, "Fish Oil", "FO-1", "600", 1)

	items, total, err := svc.ListProducts(ctx, catalog.ListParams{Keyword: "whey"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Len(t, items[0].Variants, 1)
}
