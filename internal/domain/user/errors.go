package user

import (
	apperrors "github.com/xiebiao/supplestore/pkg/errors"
)

var (
	ErrAddressNotFound = apperrors.New(apperrors.ErrCodeAddressNotFound, "收货地址不存在")
	// ErrTokenInvalid 令牌不存在、用途不符、已过期或已使用都返回同一错误
	ErrTokenInvalid = apperrors.New(apperrors.ErrCodeInvalidParams, "链接无效或已过期")
)
