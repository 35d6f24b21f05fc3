package dto

// SetCartItemRequest 设置购物车数量（覆盖）
type SetCartItemRequest struct {
	VariantID uint `json:"variant_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,gt=0,lte=100"`
}
