package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/supplestore/internal/domain/catalog"
	"github.com/xiebiao/supplestore/internal/domain/order"
	"github.com/xiebiao/supplestore/internal/domain/shared"
	"github.com/xiebiao/supplestore/internal/domain/user"
)

func TestGetOrder_CacheAside(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.store.SeedVariant(t, "Whey", "WHEY-1KG", "1000", 10)
	o := f.placeOrder(t, []*catalog.ProductVariant{v}, 1)

	got, err := f.get.Execute(ctx, o.ID, f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, got.OrderNumber)

	cached, hit, err := f.cache.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, order.StatusPending, cached.Status)

	// 状态变更后缓存失效，再次读取得到新状态
	_, err = f.transition.Execute(ctx, TransitionRequest{OrderID: o.ID, Status: order.StatusProcessing, Actor: "admin"})
	require.NoError(t, err)
	_, hit, _ = f.cache.GetOrder(ctx, o.ID)
	assert.False(t, hit)

	got, err = f.get.Execute(ctx, o.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, order.StatusProcessing, got.Status)

	_, err = f.get.Execute(ctx, o.ID, f.customer.ID+1)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	_, err = f.get.Execute(ctx, 404, 0)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.store.SeedVariant(t, "Whey", "WHEY-1KG", "1000", 10)
	a := f.placeOrder(t, []*catalog.ProductVariant{v}, 1)
	f.placeOrder(t, []*catalog.ProductVariant{v}, 1)
	f.forceStatus(t, a.ID, order.StatusPaid)

	uc := NewListOrdersUseCase(f.store.Orders())
	all, total, err := uc.Execute(ctx, order.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	paid, total, err := uc.Execute(ctx, order.ListParams{Status: order.StatusPaid, Page: shared.Page{Page: 1, PageSize: 10}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, paid, 1)
	assert.Equal(t, a.ID, paid[0].ID)
}

func TestListOrders_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	whey := f.store.SeedVariant(t, "Whey", "WHEY-1KG", "1000", 20)
	creatine := f.store.SeedVariant(t, "Creatine", "CR-300", "500", 20)

	cheap := f.placeOrder(t, []*catalog.ProductVariant{creatine}, 1)
	big := f.placeOrder(t, []*catalog.ProductVariant{whey}, 3)
	mid := f.placeOrder(t, []*catalog.ProductVariant{whey}, 1)
	f.forceStatus(t, big.ID, order.StatusRefundPending)

	stranger := f.store.SeedUser(t, "Lifter@Gym.in", user.RoleCustomer)
	other, err := f.create.Execute(ctx, CreateOrderRequest{
		UserID: stranger.ID, Items: []ItemRequest{{VariantID: creatine.ID, Quantity: 2}}, Actor: "admin",
	})
	require.NoError(t, err)

	// 创建时间分布在三天内
	day := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	f.setCreatedAt(t, cheap.ID, day)
	f.setCreatedAt(t, big.ID, day.AddDate(0, 0, 1))
	f.setCreatedAt(t, mid.ID, day.AddDate(0, 0, 2))
	f.setCreatedAt(t, other.ID, day.AddDate(0, 0, 2).Add(time.Hour))

	uc := NewListOrdersUseCase(f.store.Orders())
	ids := func(list []*order.Order) []uint {
		out := make([]uint, len(list))
		for i, o := range list {
			out[i] = o.ID
		}
		return out
	}

	t.Run("REFUND_PENDING可作为筛选条件", func(t *testing.T) {
		list, total, err := uc.Execute(ctx, order.ListParams{Status: order.StatusRefundPending})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, []uint{big.ID}, ids(list))
	})

	t.Run("按订单号搜索", func(t *testing.T) {
		list, _, err := uc.Execute(ctx, order.ListParams{Keyword: mid.OrderNumber})
		require.NoError(t, err)
		assert.Equal(t, []uint{mid.ID}, ids(list))
	})

	t.Run("按客户邮箱搜索，不区分大小写", func(t *testing.T) {
		list, _, err := uc.Execute(ctx, order.ListParams{Keyword: "lifter@gym"})
		require.NoError(t, err)
		assert.Equal(t, []uint{other.ID}, ids(list))
	})

	t.Run("日期区间左闭右开", func(t *testing.T) {
		from := day.AddDate(0, 0, 1).Truncate(24 * time.Hour)
		to := from.AddDate(0, 0, 1)
		list, total, err := uc.Execute(ctx, order.ListParams{From: &from, To: &to})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, []uint{big.ID}, ids(list))
	})

	t.Run("默认按创建时间倒序", func(t *testing.T) {
		list, _, err := uc.Execute(ctx, order.ListParams{})
		require.NoError(t, err)
		assert.Equal(t, []uint{other.ID, mid.ID, big.ID, cheap.ID}, ids(list))
	})

	t.Run("按金额升序", func(t *testing.T) {
		list, _, err := uc.Execute(ctx, order.ListParams{SortBy: order.SortByTotal, Asc: true})
		require.NoError(t, err)
		assert.Equal(t, []uint{cheap.ID, mid.ID, other.ID, big.ID}, ids(list))
	})

	t.Run("非白名单排序字段", func(t *testing.T) {
		_, _, err := uc.Execute(ctx, order.ListParams{SortBy: "user_id; DROP TABLE orders"})
		assert.ErrorIs(t, err, order.ErrInvalidSortField)
	})

	t.Run("开始日期不早于结束日期", func(t *testing.T) {
		_, _, err := uc.Execute(ctx, order.ListParams{From: &day, To: &day})
		assert.ErrorIs(t, err, order.ErrInvalidDateRange)
	})
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.stats.now = func() time.Time { return time.Now().Add(time.Minute) }

	whey := f.store.SeedVariant(t, "Whey", "WHEY-1KG", "1000", 50)
	creatine := f.store.SeedVariant(t, "Creatine", "CR-300", "500", 50)

	paid := f.placeOrder(t, []*catalog.ProductVariant{whey}, 2)        // 2000
	shipped := f.placeOrder(t, []*catalog.ProductVariant{creatine}, 3) // 1500
	pending := f.placeOrder(t, []*catalog.ProductVariant{whey}, 1)     // PENDING，不计入营收
	f.forceStatus(t, paid.ID, order.StatusPaid)
	f.forceStatus(t, shipped.ID, order.StatusShipped)

	s, err := f.stats.Execute(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, order.PeriodDay, s.Period)
	assert.Equal(t, 3, s.TotalOrders)
	assert.True(t, s.Revenue.Equal(dec("3500")), s.Revenue.String())
	assert.True(t, s.AverageOrderValue.Equal(dec("1750")))
	assert.Equal(t, 1, s.StatusCounts[order.StatusPending])
	assert.Equal(t, 0, s.StatusCounts[order.StatusRefundPending])
	assert.True(t, s.OrderGrowth.Equal(dec("100")))
	require.Len(t, s.TopProducts, 2)
	assert.Equal(t, "Creatine", s.TopProducts[0].ProductName)
	assert.Equal(t, 3, s.TopProducts[0].Quantity)

	t.Run("命中缓存", func(t *testing.T) {
		// 绕过用例直接改库，缓存不失效
		f.forceStatus(t, pending.ID, order.StatusProcessing)
		cached, err := f.stats.Execute(ctx, order.PeriodDay)
		require.NoError(t, err)
		assert.Equal(t, 1, cached.StatusCounts[order.StatusPending])
		assert.Equal(t, 0, cached.StatusCounts[order.StatusProcessing])
	})

	t.Run("下单清除统计缓存", func(t *testing.T) {
		f.placeOrder(t, []*catalog.ProductVariant{whey}, 1)
		fresh, err := f.stats.Execute(ctx, order.PeriodDay)
		require.NoError(t, err)
		assert.Equal(t, 4, fresh.TotalOrders)
		assert.Equal(t, 1, fresh.StatusCounts[order.StatusPending])
		assert.Equal(t, 1, fresh.StatusCounts[order.StatusProcessing])
	})

	t.Run("订单变更清除统计缓存", func(t *testing.T) {
		_, err := f.transition.Execute(ctx, TransitionRequest{OrderID: paid.ID, Status: order.StatusCancelled, Actor: "admin"})
		require.NoError(t, err)
		fresh, err := f.stats.Execute(ctx, order.PeriodDay)
		require.NoError(t, err)
		assert.Equal(t, 4, fresh.TotalOrders)
		assert.True(t, fresh.Revenue.Equal(dec("1500")))
	})

	t.Run("非法周期", func(t *testing.T) {
		_, err := f.stats.Execute(ctx, "decade")
		assert.ErrorIs(t, err, order.ErrInvalidPeriod)
	})
}
