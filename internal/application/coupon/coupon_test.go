package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcart "github.com/xiebiao/supplestore/internal/application/cart"
	"github.com/xiebiao/supplestore/internal/domain/activity"
	"github.com/xiebiao/supplestore/internal/domain/cart"
	"github.com/xiebiao/supplestore/internal/domain/coupon"
	"github.com/xiebiao/supplestore/internal/domain/shared"
	"github.com/xiebiao/supplestore/internal/testutil/memstore"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestVerifyCoupon(t *testing.T) {
	store := memstore.New()
	uc := NewVerifyCouponUseCase(store.Coupons())
	ctx := context.Background()

	store.SeedCoupon(t, "HALF", coupon.DiscountPercentage, "50")
	store.SeedCoupon(t, "FLAT200", coupon.DiscountFixedAmount, "200")
	store.SeedCoupon(t, "OFF", coupon.DiscountPercentage, "10", func(c *coupon.Coupon) { c.IsActive = false })

	t.Run("百分比折扣", func(t *testing.T) {
		eval, err := uc.Execute(ctx, " half ", d("1000"))
		require.NoError(t, err)
		assert.Equal(t, "HALF", eval.Code)
		assert.True(t, eval.Discount.Equal(d("500")))
		assert.True(t, eval.FinalTotal.Equal(d("500")))
	})

	t.Run("固定金额超过90%被截断", func(t *testing.T) {
		eval, err := uc.Execute(ctx, "FLAT200", d("100"))
		require.NoError(t, err)
		assert.True(t, eval.Discount.Equal(d("90")))
		assert.True(t, eval.FinalTotal.Equal(d("10")))
	})

	t.Run("未启用视为无效码", func(t *testing.T) {
		_, err := uc.Execute(ctx, "OFF", d("100"))
		assert.Same(t, coupon.ErrInvalidCouponCode, err)
	})

	t.Run("不存在", func(t *testing.T) {
		_, err := uc.Execute(ctx, "NOPE", d("100"))
		assert.Same(t, coupon.ErrInvalidCouponCode, err)
	})

	t.Run("空码", func(t *testing.T) {
		_, err := uc.Execute(ctx, "  ", d("100"))
		assert.Same(t, coupon.ErrInvalidCouponCode, err)
	})

	t.Run("试算不增加使用次数", func(t *testing.T) {
		c, err := store.Coupons().FindActiveByCode(ctx, "HALF")
		require.NoError(t, err)
		assert.Equal(t, 0, c.UsedCount)
	})

	t.Run("已过期", func(t *testing.T) {
		past := time.Now().Add(-time.Hour)
		store.SeedCoupon(t, "OLD", coupon.DiscountPercentage, "10", func(c *coupon.Coupon) { c.EndDate = &past })
		_, err := uc.Execute(ctx, "OLD", d("100"))
		assert.Same(t, coupon.ErrCouponExpired, err)
	})
}

func TestApplyCoupon(t *testing.T) {
	store := memstore.New()
	carts := memstore.NewCartStore()
	cartSvc := appcart.NewService(carts, store.Catalog())
	uc := NewApplyCouponUseCase(NewVerifyCouponUseCase(store.Coupons()), cartSvc)
	ctx := context.Background()

	store.SeedCoupon(t, "SAVE10", coupon.DiscountPercentage, "10")

	_, err := uc.Execute(ctx, 7, "SAVE10")
	assert.ErrorIs(t, err, cart.ErrCartEmpty)

	v := store.SeedVariant(t, "Whey", "WHEY-2KG", "1500", 5)
	_, err = cartSvc.SetItem(ctx, 7, v.ID, 2)
	require.NoError(t, err)

	eval, err := uc.Execute(ctx, 7, "save10")
	require.NoError(t, err)
	assert.True(t, eval.Subtotal.Equal(d("3000")))
	assert.True(t, eval.Discount.Equal(d("300")))
	assert.True(t, eval.FinalTotal.Equal(d("2700")))
}

func TestCouponAdmin(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()
	create := NewCreateCouponUseCase(store, store.Coupons(), store.Activities())
	update := NewUpdateCouponUseCase(store, store.Coupons(), store.Activities())
	list := NewListCouponsUseCase(store.Coupons())

	maxUses := 100
	c, err := create.Execute(ctx, CreateCouponRequest{
		Code:          "welcome15",
		DiscountType:  coupon.DiscountPercentage,
		DiscountValue: d("15"),
		MaxUses:       &maxUses,
		IsActive:      true,
		Actor:         "admin@store.in",
	})
	require.NoError(t, err)
	assert.Equal(t, "WELCOME15", c.Code)

	t.Run("重复优惠码", func(t *testing.T) {
		_, err := create.Execute(ctx, CreateCouponRequest{Code: "WELCOME15", DiscountType: coupon.DiscountFixedAmount, DiscountValue: d("10"), IsActive: true})
		assert.ErrorIs(t, err, coupon.ErrCodeDuplicate)
	})

	t.Run("配置校验", func(t *testing.T) {
		start := time.Now()
		end := start.Add(-time.Hour)
		tests := []struct {
			name string
			req  CreateCouponRequest
			want error
		}{
			{"百分比超过100", CreateCouponRequest{Code: "A", DiscountType: coupon.DiscountPercentage, DiscountValue: d("120")}, coupon.ErrInvalidDiscountValue},
			{"折扣值为0", CreateCouponRequest{Code: "B", DiscountType: coupon.DiscountFixedAmount, DiscountValue: d("0")}, coupon.ErrInvalidDiscountValue},
			{"类型非法", CreateCouponRequest{Code: "C", DiscountType: "BOGO", DiscountValue: d("1")}, coupon.ErrInvalidDiscountType},
			{"结束早于开始", CreateCouponRequest{Code: "D", DiscountType: coupon.DiscountFixedAmount, DiscountValue: d("1"), StartDate: &start, EndDate: &end}, coupon.ErrInvalidWindow},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := create.Execute(ctx, tt.req)
				assert.Same(t, tt.want, err)
			})
		}
	})

	t.Run("停用", func(t *testing.T) {
		inactive := false
		updated, err := update.Execute(ctx, UpdateCouponRequest{ID: c.ID, IsActive: &inactive, Actor: "admin"})
		require.NoError(t, err)
		assert.False(t, updated.IsActive)

		_, err = store.Coupons().FindActiveByCode(ctx, "WELCOME15")
		assert.Same(t, coupon.ErrInvalidCouponCode, err)

		logs, err := store.Activities().ListByEntity(ctx, activity.EntityCoupon, c.ID)
		require.NoError(t, err)
		assert.Len(t, logs, 2)
	})

	t.Run("修改后校验失败不落库", func(t *testing.T) {
		bad := d("150")
		_, err := update.Execute(ctx, UpdateCouponRequest{ID: c.ID, DiscountValue: &bad})
		assert.Same(t, coupon.ErrInvalidDiscountValue, err)

		stored, err := store.Coupons().FindByID(ctx, c.ID)
		require.NoError(t, err)
		assert.True(t, stored.DiscountValue.Equal(d("15")))
	})

	t.Run("不存在", func(t *testing.T) {
		_, err := update.Execute(ctx, UpdateCouponRequest{ID: 999})
		assert.ErrorIs(t, err, coupon.ErrCouponNotFound)
	})

	t.Run("列表", func(t *testing.T) {
		items, total, err := list.Execute(ctx, shared.Page{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Len(t, items, 1)
	})
}
