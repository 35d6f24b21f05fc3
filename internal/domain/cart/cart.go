// Package cart 购物车
package cart

import (
	"context"

	"github.com/shopspring/decimal"

	apperrors "github.com/xiebiao/supplestore/pkg/errors"
)

var (
	ErrCartEmpty       = apperrors.New(apperrors.ErrCodeBusinessError, "购物车为空")
	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidParams, "购买数量必须大于0")
)

// Store 购物车存储（variantID → 数量）
type Store interface {
	Items(ctx context.Context, userID uint) (map[uint]int, error)
	SetItem(ctx context.Context, userID, variantID uint, quantity int) error
	RemoveItem(ctx context.Context, userID, variantID uint) error
	Clear(ctx context.Context, userID uint) error
}

// Line 购物车行（价格来自商品目录实时数据）
type Line struct {
	VariantID   uint            `json:"variant_id"`
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	LineTotal   decimal.Decimal `json:"line_total"`
	InStock     bool            `json:"in_stock"`
}

// Cart 购物车视图
type Cart struct {
	UserID   uint            `json:"user_id"`
	Lines    []Line          `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
}
