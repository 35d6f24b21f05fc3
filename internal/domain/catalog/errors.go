package catalog

import (
	apperrors "github.com/xiebiao/supplestore/pkg/errors"
)

// 商品领域错误定义
var (
	ErrProductNotFound  = apperrors.New(apperrors.ErrCodeProductNotFound, "商品不存在")
	ErrVariantNotFound  = apperrors.New(apperrors.ErrCodeProductNotFound, "商品规格不存在")
	ErrCategoryNotFound = apperrors.New(apperrors.ErrCodeCategoryNotFound, "分类不存在")

	ErrSKUDuplicate  = apperrors.New(apperrors.ErrCodeSKUDuplicate, "SKU已存在")
	ErrSlugDuplicate = apperrors.New(apperrors.ErrCodeSlugDuplicate, "slug已存在")
	// ErrProductInUse 已有订单引用，需要force删除
	ErrProductInUse = apperrors.New(apperrors.ErrCodeDuplicateEntry, "商品已被订单引用，如需删除请使用force=true")

	ErrInvalidSKU       = apperrors.New(apperrors.ErrCodeInvalidParams, "SKU不能为空")
	ErrInvalidPrice     = apperrors.New(apperrors.ErrCodeInvalidParams, "价格必须大于0")
	ErrInvalidSalePrice = apperrors.New(apperrors.ErrCodeInvalidParams, "促销价必须小于原价")
	ErrInvalidQuantity  = apperrors.New(apperrors.ErrCodeInvalidParams, "库存数量不能为负数")
	ErrInvalidName      = apperrors.New(apperrors.ErrCodeInvalidParams, "名称不能为空")

	// ErrInsufficientStock 库存不足（按规格/商品名附带上下文时使用WithMessage）
	ErrInsufficientStock = apperrors.New(apperrors.ErrCodeInsufficientStock, "库存不足")
)
