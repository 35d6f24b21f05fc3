package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVariant(t *testing.T) {
	sale := decimal.NewFromInt(899)
	v, err := NewVariant(1, " whey-1kg ", "Chocolate", "1kg", decimal.NewFromInt(999), &sale, 5)
	require.NoError(t, err)
	assert.Equal(t, "WHEY-1KG", v.SKU)
	assert.True(t, v.EffectivePrice().Equal(sale))
	assert.True(t, v.CanSell(5))
	assert.False(t, v.CanSell(6))

	v.IsActive = false
	assert.False(t, v.CanSell(1))

	equal := decimal.NewFromInt(999)
	tests := []struct {
		name    string
		sku     string
		price   string
		sale    *decimal.Decimal
		qty     int
		wantErr error
	}{
		{"空SKU", " ", "10", nil, 0, ErrInvalidSKU},
		{"价格为0", "A", "0", nil, 0, ErrInvalidPrice},
		{"促销价不低于原价", "A", "999", &equal, 0, ErrInvalidSalePrice},
		{"负库存", "A", "10", nil, -1, ErrInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewVariant(1, tt.sku, "", "", decimal.RequireFromString(tt.price), tt.sale, tt.qty)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUpdatePricing_RestoresOnError(t *testing.T) {
	v, err := NewVariant(1, "A", "", "", decimal.NewFromInt(100), nil, 0)
	require.NoError(t, err)

	bad := decimal.NewFromInt(150)
	assert.ErrorIs(t, v.UpdatePricing(decimal.NewFromInt(120), &bad), ErrInvalidSalePrice)
	assert.True(t, v.Price.Equal(decimal.NewFromInt(100)))
	assert.Nil(t, v.SalePrice)

	sale := decimal.NewFromInt(80)
	require.NoError(t, v.UpdatePricing(decimal.NewFromInt(120), &sale))
	assert.True(t, v.EffectivePrice().Equal(sale))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "optimum-nutrition-gold-standard-whey", Slugify("  Optimum Nutrition: Gold Standard Whey! "))
	assert.Equal(t, "bcaa-2-1-1", Slugify("BCAA 2:1:1"))
	assert.Equal(t, "", Slugify("!!!"))
}
