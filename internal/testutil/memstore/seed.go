package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/supplestore/internal/domain/catalog"
	"github.com/xiebiao/supplestore/internal/domain/coupon"
	"github.com/xiebiao/supplestore/internal/domain/inventory"
	"github.com/xiebiao/supplestore/internal/domain/user"
)

// SeedUser 写入用户（密码不可用于登录）
func (s *Store) SeedUser(t testing.TB, email string, role user.Role) *user.User {
	t.Helper()
	u := user.NewUser(email, "x", "Test User")
	u.Role = role
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

// SeedAddress 为用户写入地址
func (s *Store) SeedAddress(t testing.TB, userID uint) *user.Address {
	t.Helper()
	a := &user.Address{
		UserID:     userID,
		FullName:   "Test User",
		Phone:      "9999999999",
		Line1:      "1 MG Road",
		City:       "Bengaluru",
		State:      "KA",
		PostalCode: "560001",
		Country:    "IN",
	}
	require.NoError(t, s.Addresses().Create(context.Background(), a))
	return a
}

// SeedVariant 写入商品与一个规格，初始库存记一条adjustment流水
func (s *Store) SeedVariant(t testing.TB, productName, sku, price string, quantity int) *catalog.ProductVariant {
	t.Helper()
	ctx := context.Background()

	p := catalog.NewProduct(productName, "", "", nil, true)
	p.Slug = p.Slug + "-" + catalog.Slugify(sku)
	require.NoError(t, s.Catalog().CreateProduct(ctx, p))

	return s.SeedVariantFor(t, p.ID, sku, price, quantity)
}

// SeedVariantFor 为已有商品写入规格
func (s *Store) SeedVariantFor(t testing.TB, productID uint, sku, price string, quantity int) *catalog.ProductVariant {
	t.Helper()
	ctx := context.Background()

	v, err := catalog.NewVariant(productID, sku, "Chocolate", "1kg", decimal.RequireFromString(price), nil, 0)
	require.NoError(t, err)
	require.NoError(t, s.Catalog().CreateVariant(ctx, v))

	if quantity > 0 {
		log, err := inventory.NewLog(v.ID, 0, quantity, inventory.ReasonAdjustment, nil, "initial stock", "seed")
		require.NoError(t, err)
		require.NoError(t, s.Catalog().UpdateVariantQuantity(ctx, v.ID, quantity))
		require.NoError(t, s.Inventory().Create(ctx, log))
	}

	out, err := s.Catalog().FindVariantByID(ctx, v.ID)
	require.NoError(t, err)
	return out
}

// SeedCoupon 写入已启用的优惠券
func (s *Store) SeedCoupon(t testing.TB, code string, typ coupon.DiscountType, value string, mutate ...func(c *coupon.Coupon)) *coupon.Coupon {
	t.Helper()
	now := time.Now()
	c := &coupon.Coupon{
		Code:          coupon.NormalizeCode(code),
		DiscountType:  typ,
		DiscountValue: decimal.RequireFromString(value),
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, fn := range mutate {
		fn(c)
	}
	require.NoError(t, s.Coupons().Create(context.Background(), c))
	return c
}

// Quantity 规格当前库存
func (s *Store) Quantity(t testing.TB, variantID uint) int {
	t.Helper()
	v, err := s.Catalog().FindVariantByID(context.Background(), variantID)
	require.NoError(t, err)
	return v.Quantity
}
