package order

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statsOrder(status OrderStatus, total string, items ...OrderItem) *Order {
	return &Order{Status: status, Total: decimal.RequireFromString(total), Items: items}
}

func TestPeriod_Windows(t *testing.T) {
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

	curFrom, curTo, prevFrom, prevTo, err := PeriodWeek.Windows(now)
	require.NoError(t, err)
	assert.Equal(t, now, curTo)
	assert.Equal(t, now.AddDate(0, 0, -7), curFrom)
	assert.Equal(t, curFrom, prevTo)
	assert.Equal(t, now.AddDate(0, 0, -14), prevFrom)

	_, _, _, _, err = Period("quarter").Windows(now)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestComputeStats(t *testing.T) {
	whey := NewOrderItem(1, 10, "Whey", "W", decimal.NewFromInt(1000), 1, true)
	bcaa := NewOrderItem(2, 20, "BCAA", "B", decimal.NewFromInt(400), 3, true)

	current := []*Order{
		statsOrder(StatusPaid, "1000", whey),
		statsOrder(StatusDelivered, "1200", bcaa),
		statsOrder(StatusPending, "5000", whey),
		statsOrder(StatusCancelled, "700", bcaa),
		statsOrder(StatusRefundPending, "300", whey),
	}
	previous := []*Order{
		statsOrder(StatusShipped, "1100"),
		statsOrder(StatusRefunded, "900"),
	}

	s := ComputeStats(PeriodDay, time.Time{}, time.Time{}, current, previous)
	assert.Equal(t, 5, s.TotalOrders)
	assert.True(t, s.Revenue.Equal(decimal.NewFromInt(2200)))
	assert.True(t, s.AverageOrderValue.Equal(decimal.NewFromInt(1100)))
	assert.True(t, s.OrderGrowth.Equal(decimal.NewFromInt(150)))
	assert.True(t, s.RevenueGrowth.Equal(decimal.NewFromInt(100)), s.RevenueGrowth.String())

	assert.Len(t, s.StatusCounts, len(AllStatuses()))
	assert.Equal(t, 1, s.StatusCounts[StatusRefundPending])
	assert.Equal(t, 0, s.StatusCounts[StatusRefunded])

	require.Len(t, s.TopProducts, 2)
	assert.Equal(t, "BCAA", s.TopProducts[0].ProductName)
	assert.Equal(t, 3, s.TopProducts[0].Quantity)
	assert.True(t, s.TopProducts[0].Revenue.Equal(decimal.NewFromInt(1200)))
}

func TestComputeStats_Empty(t *testing.T) {
	s := ComputeStats(PeriodMonth, time.Time{}, time.Time{}, nil, nil)
	assert.Zero(t, s.TotalOrders)
	assert.True(t, s.AverageOrderValue.IsZero())
	assert.True(t, s.OrderGrowth.IsZero())
	assert.NotNil(t, s.TopProducts)
}

func TestGrowth(t *testing.T) {
	tests := []struct {
		cur, prev, want string
	}{
		{"0", "0", "0"},
		{"10", "0", "100"},
		{"150", "100", "50"},
		{"50", "100", "-50"},
		{"1", "3", "-66.67"},
	}
	for _, tt := range tests {
		got := Growth(decimal.RequireFromString(tt.cur), decimal.RequireFromString(tt.prev))
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "%s/%s = %s", tt.cur, tt.prev, got)
	}
}
