package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/supplestore/internal/domain/cart"
	"github.com/xiebiao/supplestore/internal/domain/catalog"
	"github.com/xiebiao/supplestore/internal/testutil/memstore"
)

func TestCartService(t *testing.T) {
	store := memstore.New()
	svc := NewService(memstore.NewCartStore(), store.Catalog())
	ctx := context.Background()

	whey := store.SeedVariant(t, "Whey Protein", "WHEY-1KG", "2000", 10)
	crea := store.SeedVariant(t, "Creatine", "CREA-300G", "500", 1)

	t.Run("空购物车", func(t *testing.T) {
		c, err := svc.Get(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, c.Lines)
		assert.True(t, c.Subtotal.IsZero())

		_, err = svc.Subtotal(ctx, 1)
		assert.ErrorIs(t, err, cart.ErrCartEmpty)
	})

	t.Run("添加与小计", func(t *testing.T) {
		_, err := svc.SetItem(ctx, 1, whey.ID, 2)
		require.NoError(t, err)
		c, err := svc.SetItem(ctx, 1, crea.ID, 3)
		require.NoError(t, err)

		require.Len(t, c.Lines, 2)
		assert.True(t, c.Lines[0].LineTotal.Equal(decimal.NewFromInt(4000)))
		assert.True(t, c.Lines[0].InStock)
		assert.False(t, c.Lines[1].InStock, "库存1，需要3")
		assert.True(t, c.Subtotal.Equal(decimal.NewFromInt(5500)))
	})

	t.Run("促销价优先", func(t *testing.T) {
		sale := decimal.NewFromInt(1800)
		v, err := store.Catalog().FindVariantByID(ctx, whey.ID)
		require.NoError(t, err)
		require.NoError(t, v.UpdatePricing(v.Price, &sale))
		require.NoError(t, store.Catalog().UpdateVariant(ctx, v))

		sub, err := svc.Subtotal(ctx, 1)
		require.NoError(t, err)
		assert.True(t, sub.Equal(decimal.NewFromInt(5100)))
	})

	t.Run("数量非法", func(t *testing.T) {
		_, err := svc.SetItem(ctx, 1, whey.ID, 0)
		assert.ErrorIs(t, err, cart.ErrInvalidQuantity)
	})

	t.Run("规格不存在", func(t *testing.T) {
		_, err := svc.SetItem(ctx, 1, 999, 1)
		assert.ErrorIs(t, err, catalog.ErrVariantNotFound)
	})

	t.Run("删除与清空", func(t *testing.T) {
		c, err := svc.RemoveItem(ctx, 1, crea.ID)
		require.NoError(t, err)
		require.Len(t, c.Lines, 1)

		require.NoError(t, svc.Clear(ctx, 1))
		c, err = svc.Get(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, c.Lines)
	})
}
