package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_HTTPStatus(t *testing.T) {
	tests := []struct {
		code int
		want int
	}{
		{ErrCodeInvalidParams, http.StatusBadRequest},
		{ErrCodeInsufficientStock, http.StatusBadRequest},
		{ErrCodeInvalidToken, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{ErrCodeOrderNotFound, http.StatusNotFound},
		{ErrCodeSKUDuplicate, http.StatusConflict},
		{ErrCodePaymentGateway, http.StatusBadGateway},
		{ErrCodeDatabaseError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.code, "x").HTTPStatus())
		})
	}
}

func TestAppError_IsByOrigin(t *testing.T) {
	err := fmt.Errorf("checkout: %w", ErrInsufficientStock.WithMessage("规格%d库存不足", 7))

	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.False(t, errors.Is(err, ErrInvalidOrderStatus))
	assert.Equal(t, "规格7库存不足", GetAppError(err).Message)

	// 派生的派生仍指向最初的预定义错误
	twice := ErrInsufficientStock.WithMessage("a").WithMessage("b")
	assert.True(t, errors.Is(twice, ErrInsufficientStock))
}

func TestAppError_SameCodeDifferentReason(t *testing.T) {
	expired := New(ErrCodeInvalidCoupon, "优惠券已过期")
	exhausted := New(ErrCodeInvalidCoupon, "优惠券使用次数已达上限")

	assert.False(t, errors.Is(expired, exhausted))
	assert.False(t, errors.Is(expired.WithMessage("已过期: X"), exhausted))
	assert.True(t, IsValidation(expired))
	assert.True(t, IsValidation(exhausted))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, "数据库错误")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodeInternal, err.Code)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestGetAppError_PlainError(t *testing.T) {
	appErr := GetAppError(errors.New("boom"))

	assert.Equal(t, ErrCodeInternal, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.HTTPStatus())
}

func TestClassifiers(t *testing.T) {
	assert.True(t, IsNotFound(New(ErrCodeCouponNotFound, "")))
	assert.True(t, IsValidation(ErrInvalidParams))
	assert.True(t, IsConflict(New(ErrCodeSlugDuplicate, "")))
	assert.True(t, IsExternal(External(errors.New("timeout"), "支付网关错误")))
	assert.False(t, IsAppError(errors.New("plain")))
}
