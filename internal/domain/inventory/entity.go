package inventory

import (
	"time"
)

// Reason 库存变动原因
type Reason string

const (
	ReasonSale       Reason = "sale"       // 下单扣减
	ReasonReturn     Reason = "return"     // 取消订单退回
	ReasonAdjustment Reason = "adjustment" // 后台人工调整
)

// Valid 是否为合法原因
func (r Reason) Valid() bool {
	switch r {
	case ReasonSale, ReasonReturn, ReasonAdjustment:
		return true
	}
	return false
}

// InventoryLog 库存流水（只追加，不修改不删除）
// 不变量：NewQuantity == PreviousQuantity + QuantityChange
type InventoryLog struct {
	ID               uint
	VariantID        uint
	QuantityChange   int // 正数入库，负数出库
	Reason           Reason
	PreviousQuantity int
	NewQuantity      int
	ReferenceID      *uint // sale/return时为订单ID
	Notes            string
	CreatedBy        string
	CreatedAt        time.Time
}

// NewLog 根据变动前库存和变动量生成流水
func NewLog(variantID uint, previous, change int, reason Reason, referenceID *uint, notes, createdBy string) (*InventoryLog, error) {
	if !reason.Valid() {
		return nil, ErrInvalidReason
	}
	if change == 0 {
		return nil, ErrZeroChange
	}
	next := previous + change
	if next < 0 {
		return nil, ErrNegativeStock
	}
	return &InventoryLog{
		VariantID:        variantID,
		QuantityChange:   change,
		Reason:           reason,
		PreviousQuantity: previous,
		NewQuantity:      next,
		ReferenceID:      referenceID,
		Notes:            notes,
		CreatedBy:        createdBy,
		CreatedAt:        time.Now(),
	}, nil
}

// Consistent 单条流水自洽
func (l *InventoryLog) Consistent() bool {
	return l.NewQuantity == l.PreviousQuantity+l.QuantityChange && l.NewQuantity >= 0
}

// ReplayResult 流水重放结果
type ReplayResult struct {
	Entries         int  `json:"entries"`
	ReplayedQty     int  `json:"replayed_quantity"`
	CurrentQty      int  `json:"current_quantity"`
	ChainConsistent bool `json:"chain_consistent"`
	BrokenAtLogID   uint `json:"broken_at_log_id,omitempty"`
	Matches         bool `json:"matches"`
}

// Replay 从0开始按时间顺序重放流水，校验链条连续性并与当前库存比对
// 链条连续：每条的PreviousQuantity等于上一条的NewQuantity（首条等于0）
func Replay(logs []*InventoryLog, currentQty int) ReplayResult {
	res := ReplayResult{
		Entries:         len(logs),
		CurrentQty:      currentQty,
		ChainConsistent: true,
	}

	running := 0
	for _, l := range logs {
		if res.ChainConsistent && (l.PreviousQuantity != running || !l.Consistent()) {
			res.ChainConsistent = false
			res.BrokenAtLogID = l.ID
		}
		running += l.QuantityChange
	}

	res.ReplayedQty = running
	res.Matches = running == currentQty
	return res
}
