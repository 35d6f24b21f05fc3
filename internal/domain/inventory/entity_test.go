package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLog(t *testing.T) {
	orderID := uint(9)
	l, err := NewLog(1, 10, -3, ReasonSale, &orderID, "order ORD1", "admin")
	require.NoError(t, err)
	assert.Equal(t, 10, l.PreviousQuantity)
	assert.Equal(t, 7, l.NewQuantity)
	assert.True(t, l.Consistent())

	_, err = NewLog(1, 2, -3, ReasonSale, nil, "", "admin")
	assert.ErrorIs(t, err, ErrNegativeStock)

	_, err = NewLog(1, 2, 0, ReasonAdjustment, nil, "", "admin")
	assert.ErrorIs(t, err, ErrZeroChange)

	_, err = NewLog(1, 2, 1, "restock", nil, "", "admin")
	assert.ErrorIs(t, err, ErrInvalidReason)
}

func TestReplay(t *testing.T) {
	chain := []*InventoryLog{
		{ID: 1, PreviousQuantity: 0, QuantityChange: 10, NewQuantity: 10},
		{ID: 2, PreviousQuantity: 10, QuantityChange: -4, NewQuantity: 6},
		{ID: 3, PreviousQuantity: 6, QuantityChange: 2, NewQuantity: 8},
	}

	res := Replay(chain, 8)
	assert.Equal(t, 3, res.Entries)
	assert.Equal(t, 8, res.ReplayedQty)
	assert.True(t, res.ChainConsistent)
	assert.True(t, res.Matches)

	res = Replay(chain, 9)
	assert.False(t, res.Matches)
	assert.True(t, res.ChainConsistent)

	broken := append([]*InventoryLog{}, chain...)
	broken[2] = &InventoryLog{ID: 3, PreviousQuantity: 5, QuantityChange: 3, NewQuantity: 8}
	res = Replay(broken, 9)
	assert.False(t, res.ChainConsistent)
	assert.Equal(t, uint(3), res.BrokenAtLogID)
	assert.Equal(t, 9, res.ReplayedQty)

	empty := Replay(nil, 0)
	assert.True(t, empty.Matches)
	assert.True(t, empty.ChainConsistent)
}
