package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError 自定义应用错误
// 设计说明：
// 1. Code用于客户端判断错误类型，前三位同时决定HTTP状态码（见HTTPStatus）
// 2. Message是用户友好的提示信息
// 3. Err是内部错误，仅记录到日志，不返回给客户端
type AppError struct {
	Code    int    `json:"code"`    // 业务错误码
	Message string `json:"message"` // 用户友好的错误提示
	Err     error  `json:"-"`       // 内部错误（不序列化）

	// base 派生来源：WithMessage得到的错误与其预定义错误视为同一个
	base *AppError
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Is和errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按来源比较：同码的不同预定义错误互不相等，WithMessage派生的错误等于其来源
// 按错误码类别判断使用IsNotFound、IsValidation等
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || t == nil {
		return false
	}
	return e.origin() == t.origin()
}

func (e *AppError) origin() *AppError {
	if e.base != nil {
		return e.base
	}
	return e
}

// HTTPStatus 错误码 → HTTP状态码
// 40000-40099 → 400, 40100 → 401, 40300 → 403, 40400 → 404, 40900 → 409, 50200 → 502, 其余 → 500
func (e *AppError) HTTPStatus() int {
	switch e.Code / 100 {
	case 400:
		return http.StatusBadRequest
	case 401:
		return http.StatusUnauthorized
	case 403:
		return http.StatusForbidden
	case 404:
		return http.StatusNotFound
	case 409:
		return http.StatusConflict
	case 502:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// New 创建新的AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf 以格式化消息创建AppError
func Newf(code int, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithMessage 复制错误码，替换提示信息（用于在预定义错误上附加上下文）
func (e *AppError) WithMessage(format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: fmt.Sprintf(format, args...),
		Err:     e.Err,
		base:    e.origin(),
	}
}

// Wrap 包装系统错误（如数据库错误、网络错误）
// 用途：将底层错误转换为业务错误，隐藏实现细节
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrapf 格式化包装错误
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// External 包装外部服务（支付网关等）错误，对应HTTP 502
func External(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeExternalService,
		Message: message,
		Err:     err,
	}
}

// =========================================
// 错误码定义
// =========================================
// 规范：
// - 400xx: 参数错误、业务规则校验失败（ValidationError）
// - 401xx/403xx: 认证授权
// - 404xx: 资源不存在（NotFound）
// - 409xx: 唯一性冲突、结果待核对（Conflict）
// - 500xx: 服务端错误
// - 502xx: 外部服务调用失败（ExternalServiceError）

const (
	// 系统级错误码
	ErrCodeInternal      = 50000 // 内部错误
	ErrCodeDatabaseError = 50001 // 数据库错误
	ErrCodeRedisError    = 50002 // Redis错误

	// 外部服务
	ErrCodeExternalService = 50200 // 外部服务调用失败
	ErrCodePaymentGateway  = 50201 // 支付网关错误

	// 认证授权
	ErrCodeUnauthorized    = 40100 // 未登录
	ErrCodeInvalidToken    = 40101 // Token无效
	ErrCodeTokenExpired    = 40102 // Token过期
	ErrCodeInvalidPassword = 40103 // 密码错误
	ErrCodeForbidden       = 40300 // 无权限

	// 资源不存在
	ErrCodeNotFound         = 40400 // 资源不存在(通用)
	ErrCodeUserNotFound     = 40401 // 用户不存在
	ErrCodeProductNotFound  = 40402 // 商品/规格不存在
	ErrCodeOrderNotFound    = 40403 // 订单不存在
	ErrCodeCouponNotFound   = 40404 // 优惠券不存在
	ErrCodeAddressNotFound  = 40405 // 地址不存在
	ErrCodeCategoryNotFound = 40406 // 分类不存在
	ErrCodeTokenNotFound    = 40407 // 一次性令牌不存在

	// 业务规则错误
	ErrCodeBusinessError      = 40000 // 业务错误(通用)
	ErrCodeInsufficientStock  = 40001 // 库存不足
	ErrCodeInvalidOrderStatus = 40002 // 订单状态非法
	ErrCodeInvalidCoupon      = 40003 // 优惠券不可用
	ErrCodeInvalidSignature   = 40004 // 支付签名校验失败
	ErrCodeWeakPassword       = 40005 // 密码强度不足
	ErrCodeInvalidParams      = 40010 // 参数错误
	ErrCodeBindError          = 40011 // 参数绑定失败

	// 唯一性冲突
	ErrCodeDuplicateEntry  = 40900 // 重复记录(通用)
	ErrCodeEmailDuplicate  = 40901 // 邮箱已存在
	ErrCodeSKUDuplicate    = 40902 // SKU已存在
	ErrCodeCouponDuplicate = 40903 // 优惠码已存在
	ErrCodeSlugDuplicate   = 40904 // slug已存在
	ErrCodeRefundInDoubt   = 40905 // 上一次网关退款结果未知
)

// =========================================
// 预定义错误
// =========================================

var (
	// 系统错误
	ErrInternal      = New(ErrCodeInternal, "系统内部错误")
	ErrDatabaseError = New(ErrCodeDatabaseError, "数据库错误")
	ErrRedisError    = New(ErrCodeRedisError, "缓存服务错误")

	// 认证授权
	ErrUnauthorized    = New(ErrCodeUnauthorized, "请先登录")
	ErrInvalidToken    = New(ErrCodeInvalidToken, "无效的Token")
	ErrTokenExpired    = New(ErrCodeTokenExpired, "Token已过期")
	ErrInvalidPassword = New(ErrCodeInvalidPassword, "邮箱或密码错误")
	ErrForbidden       = New(ErrCodeForbidden, "无权限访问")

	// 资源不存在
	ErrNotFound     = New(ErrCodeNotFound, "资源不存在")
	ErrUserNotFound = New(ErrCodeUserNotFound, "用户不存在")

	// 业务规则
	ErrInsufficientStock  = New(ErrCodeInsufficientStock, "库存不足")
	ErrInvalidOrderStatus = New(ErrCodeInvalidOrderStatus, "订单状态不允许此操作")
	ErrEmailDuplicate     = New(ErrCodeEmailDuplicate, "邮箱已被注册")
	ErrWeakPassword       = New(ErrCodeWeakPassword, "密码强度不足（需8-20位，包含字母和数字）")

	// 参数错误
	ErrInvalidParams = New(ErrCodeInvalidParams, "参数错误")
	ErrBindError     = New(ErrCodeBindError, "参数格式错误")
)

// =========================================
// 辅助函数
// =========================================

// IsAppError 判断是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 提取AppError（如果不是AppError则包装成Internal错误）
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, "系统内部错误")
}

// IsNotFound 是否为资源不存在类错误
func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code/100 == 404
}

// IsValidation 是否为参数/业务规则类错误
func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code/100 == 400
}

// IsConflict 是否为唯一性冲突
func IsConflict(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code/100 == 409
}

// IsExternal 是否为外部服务错误
func IsExternal(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code/100 == 502
}
