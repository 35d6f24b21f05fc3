package inventory

import (
	apperrors "github.com/xiebiao/supplestore/pkg/errors"
)

var (
	ErrInvalidReason = apperrors.New(apperrors.ErrCodeInvalidParams, "库存变动原因不合法")
	ErrZeroChange    = apperrors.New(apperrors.ErrCodeInvalidParams, "库存变动量不能为0")
	ErrNegativeStock = apperrors.New(apperrors.ErrCodeInsufficientStock, "insufficient stock: 调整后库存不能为负数")
)
