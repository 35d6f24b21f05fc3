package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTracking(t *testing.T) {
	now := time.Now()
	tr := NewTracking(1, "TRK1", "", TrackingProcessing, now)
	assert.Equal(t, DefaultCarrier, tr.Carrier)

	tr.AddUpdate(tr.Status, "Pune", "Packed", now)
	tr.MarkShipped(now)
	later := now.Add(time.Hour)
	tr.MarkShipped(later)
	assert.Equal(t, now, *tr.ShippedAt, "首次发货时间不被覆盖")

	u := tr.AddUpdate(tr.Status, "Mumbai", "In transit", later)
	assert.Equal(t, TrackingShipped, u.Status)
	assert.Len(t, tr.Updates, 2)

	tr.MarkDelivered(later)
	assert.Equal(t, TrackingDelivered, tr.Status)
	assert.NotNil(t, tr.DeliveredAt)
}
