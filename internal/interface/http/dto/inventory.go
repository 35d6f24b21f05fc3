package dto

import (
	"time"

	"github.com/xiebiao/supplestore/internal/domain/inventory"
)

// AdjustStockRequest 后台库存调整，delta为正入库、为负出库
type AdjustStockRequest struct {
	VariantID   uint   `json:"variant_id" binding:"required"`
	Delta       int    `json:"delta" binding:"required,ne=0"`
	Reason      string `json:"reason" binding:"omitempty,oneof=adjustment sale return"`
	ReferenceID *uint  `json:"reference_id"`
	Notes       string `json:"notes" binding:"omitempty,max=500"`
}

// InventoryLogResponse 库存流水
type InventoryLogResponse struct {
	ID               uint      `json:"id"`
	VariantID        uint      `json:"variant_id"`
	QuantityChange   int       `json:"quantity_change"`
	Reason           string    `json:"reason"`
	PreviousQuantity int       `json:"previous_quantity"`
	NewQuantity      int       `json:"new_quantity"`
	ReferenceID      *uint     `json:"reference_id,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	CreatedBy        string    `json:"created_by"`
	CreatedAt        time.Time `json:"created_at"`
}

func ToInventoryLogResponse(l *inventory.InventoryLog) InventoryLogResponse {
	return InventoryLogResponse{
		ID:               l.ID,
		VariantID:        l.VariantID,
		QuantityChange:   l.QuantityChange,
		Reason:           string(l.Reason),
		PreviousQuantity: l.PreviousQuantity,
		NewQuantity:      l.NewQuantity,
		ReferenceID:      l.ReferenceID,
		Notes:            l.Notes,
		CreatedBy:        l.CreatedBy,
		CreatedAt:        l.CreatedAt,
	}
}

func ToInventoryLogList(list []*inventory.InventoryLog) []InventoryLogResponse {
	out := make([]InventoryLogResponse, 0, len(list))
	for _, l := range list {
		out = append(out, ToInventoryLogResponse(l))
	}
	return out
}
