package order

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	allowed := map[OrderStatus][]OrderStatus{
		StatusPending:       {StatusProcessing, StatusPaid, StatusCancelled},
		StatusProcessing:    {StatusPaid, StatusCancelled, StatusShipped},
		StatusPaid:          {StatusProcessing, StatusShipped, StatusCancelled, StatusRefunded},
		StatusShipped:       {StatusDelivered, StatusCancelled, StatusProcessing},
		StatusDelivered:     {StatusRefunded},
		StatusCancelled:     {StatusRefunded},
		StatusRefundPending: {StatusRefunded},
	}

	for _, from := range AllStatuses() {
		for _, to := range AllStatuses() {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s → %s", from, to)
		}
	}

	assert.False(t, CanTransition(StatusRefunded, StatusPending), "REFUNDED是终态")
	assert.False(t, CanTransition("BOGUS", StatusPaid))
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" shipped ")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, s)

	_, err = ParseStatus("REFUND_PENDING")
	assert.ErrorIs(t, err, ErrUnknownStatus)

	_, err = ParseStatus("LOST")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestOrder_TransitionTo(t *testing.T) {
	o := &Order{Status: StatusPending}

	err := o.TransitionTo(StatusShipped)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	assert.Contains(t, err.Error(), "PENDING")
	assert.Contains(t, err.Error(), "SHIPPED")
	assert.Equal(t, StatusPending, o.Status)

	require.NoError(t, o.TransitionTo(StatusProcessing))
	assert.Equal(t, StatusProcessing, o.Status)
}

func TestNewOrder(t *testing.T) {
	items := []OrderItem{
		NewOrderItem(1, 10, "Whey", "WHEY-1KG", decimal.RequireFromString("999.99"), 2, true),
		NewOrderItem(2, 20, "Shaker", "SHK-01", decimal.RequireFromString("150"), 1, false),
	}

	o, err := NewOrder("ORD1", 7, nil, items, decimal.RequireFromString("100"))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	assert.True(t, o.SubTotal.Equal(decimal.RequireFromString("2149.98")))
	assert.True(t, o.Total.Equal(decimal.RequireFromString("2049.98")))
	assert.True(t, o.TotalConsistent())
	assert.True(t, o.CalculateSubTotal().Equal(o.SubTotal))

	tests := []struct {
		name     string
		items    []OrderItem
		discount string
		wantErr  error
	}{
		{"无明细", nil, "0", ErrInvalidOrderItems},
		{"数量为0", []OrderItem{NewOrderItem(1, 10, "Whey", "W", decimal.NewFromInt(10), 0, true)}, "0", ErrInvalidQuantity},
		{"负折扣", items, "-1", ErrInvalidDiscount},
		{"折扣超过小计", items, "2149.99", ErrInvalidDiscount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOrder("ORD1", 7, nil, tt.items, decimal.RequireFromString(tt.discount))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("折扣等于小计", func(t *testing.T) {
		o, err := NewOrder("ORD1", 7, nil, items, decimal.RequireFromString("2149.98"))
		require.NoError(t, err)
		assert.True(t, o.Total.IsZero())
	})
}

func TestOrder_NotesAndCancel(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	o := &Order{}

	o.AppendNote("admin", StatusProcessing, "  ", at)
	assert.Empty(t, o.Notes)

	o.AppendNote("admin", StatusProcessing, "packed", at)
	o.AppendNote("system", StatusPaid, "payment verified", at)
	lines := strings.Split(o.Notes, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[2026-01-02T03:04:05Z] admin: PROCESSING - packed", lines[0])
	assert.Equal(t, "[2026-01-02T03:04:05Z] system: PAID - payment verified", lines[1])

	o.Cancel("", "ops@store.in", at)
	assert.Equal(t, "cancelled by ops@store.in", o.CancelReason)
	assert.Equal(t, "ops@store.in", o.CancelledBy)
	assert.Equal(t, at, *o.CancelledAt)
}

func TestGenerateNumbers(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	assert.Regexp(t, regexp.MustCompile(`^ORD20240115103000\d{6}$`), GenerateOrderNumber(now))

	a, b := GenerateTrackingNumber(now), GenerateTrackingNumber(now)
	assert.True(t, strings.HasPrefix(a, "TRK"))
	assert.Len(t, a, 3+26)
	assert.NotEqual(t, a, b)
}

func TestPayment(t *testing.T) {
	p := NewPayment(1, decimal.NewFromInt(500), "INR", "razorpay", "order_1")
	assert.Equal(t, PaymentCreated, p.Status)
	assert.False(t, p.Refundable(), "未支付不经网关退款")

	p.Fail("bad signature")
	assert.Equal(t, PaymentFailed, p.Status)

	p.Capture("pay_1")
	assert.Equal(t, PaymentCaptured, p.Status)
	assert.Empty(t, p.FailureReason)
	assert.True(t, p.Refundable())

	p.MarkRefunded()
	assert.False(t, p.Refundable())

	m := NewManualPayment(1, decimal.NewFromInt(500), "INR")
	assert.Equal(t, PaymentCaptured, m.Status)
	assert.False(t, m.Refundable())
}
