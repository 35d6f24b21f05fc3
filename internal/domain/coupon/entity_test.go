package coupon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func active(typ DiscountType, value string) *Coupon {
	return &Coupon{ID: 1, Code: "SAVE", DiscountType: typ, DiscountValue: d(value), IsActive: true}
}

func TestEvaluate_Amounts(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name         string
		coupon       *Coupon
		subtotal     string
		wantDiscount string
		wantFinal    string
	}{
		{"百分比", active(DiscountPercentage, "10"), "3000", "300", "2700"},
		{"百分比截断到90%", active(DiscountPercentage, "100"), "1000", "900", "100"},
		{"固定金额", active(DiscountFixedAmount, "200"), "1000", "200", "800"},
		{"固定金额不超过小计90%", active(DiscountFixedAmount, "200"), "100", "90", "10"},
		{"四舍五入", active(DiscountPercentage, "15"), "99.99", "15", "84.99"},
		{"小计为0", active(DiscountFixedAmount, "50"), "0", "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Evaluate(tt.coupon, d(tt.subtotal), now)
			require.NoError(t, err)
			assert.True(t, ev.Discount.Equal(d(tt.wantDiscount)), "discount=%s", ev.Discount)
			assert.True(t, ev.FinalTotal.Equal(d(tt.wantFinal)), "final=%s", ev.FinalTotal)
			assert.True(t, ev.Discount.LessThanOrEqual(ev.Subtotal.Mul(MaxDiscountRate)))
		})
	}
}

func TestEvaluate_Rejections(t *testing.T) {
	now := time.Now()
	past, future := now.Add(-time.Hour), now.Add(time.Hour)
	minAmount := d("500")
	one := 1

	tests := []struct {
		name    string
		mutate  func(c *Coupon)
		wantErr error
	}{
		{"未启用", func(c *Coupon) { c.IsActive = false }, ErrInvalidCouponCode},
		{"未生效", func(c *Coupon) { c.StartDate = &future }, ErrCouponNotStarted},
		{"已过期", func(c *Coupon) { c.EndDate = &past }, ErrCouponExpired},
		{"未达最低消费", func(c *Coupon) { c.MinOrderAmount = &minAmount }, ErrMinOrderNotMet},
		{"次数用尽", func(c *Coupon) { c.MaxUses = &one; c.UsedCount = 1 }, ErrUsageExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := active(DiscountPercentage, "10")
			tt.mutate(c)
			_, err := Evaluate(c, d("100"), now)
			assert.ErrorIs(t, err, tt.wantErr)
			for _, other := range tests {
				if other.wantErr != tt.wantErr {
					assert.NotErrorIs(t, err, other.wantErr, other.name)
				}
			}
		})
	}

	_, err := Evaluate(nil, d("100"), now)
	assert.ErrorIs(t, err, ErrInvalidCouponCode)
}

func TestEvaluate_DoesNotMutate(t *testing.T) {
	c := active(DiscountFixedAmount, "50")
	_, err := Evaluate(c, d("1000"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, c.UsedCount)
}

func TestCoupon_Validate(t *testing.T) {
	start := time.Now()
	end := start.Add(-time.Minute)
	neg := d("-1")
	zero := 0

	tests := []struct {
		name    string
		mutate  func(c *Coupon)
		wantErr error
	}{
		{"合法", func(c *Coupon) {}, nil},
		{"空码", func(c *Coupon) { c.Code = "" }, ErrInvalidCouponCode},
		{"类型不合法", func(c *Coupon) { c.DiscountType = "BOGO" }, ErrInvalidDiscountType},
		{"折扣值为0", func(c *Coupon) { c.DiscountValue = decimal.Zero }, ErrInvalidDiscountValue},
		{"百分比超过100", func(c *Coupon) { c.DiscountValue = d("101") }, ErrInvalidDiscountValue},
		{"最低消费为负", func(c *Coupon) { c.MinOrderAmount = &neg }, ErrInvalidMinOrder},
		{"最大次数为0", func(c *Coupon) { c.MaxUses = &zero }, ErrInvalidMaxUses},
		{"结束早于开始", func(c *Coupon) { c.StartDate, c.EndDate = &start, &end }, ErrInvalidWindow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := active(DiscountPercentage, "20")
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Equal(t, "WELCOME10", NormalizeCode("  welcome10 "))
}
