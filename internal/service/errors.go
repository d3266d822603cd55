package service

import "errors"

// 采样单相关错误
var (
	ErrOrderNotFound           = errors.New("sample order not found")
	ErrClinicNotFound          = errors.New("clinic not found")
	ErrUserNotFound            = errors.New("user not found")
	ErrWorkContentNotFound     = errors.New("work content not found")
	ErrWorkContentRequired     = errors.New("work content is required")
	ErrDispatcherRequired      = errors.New("dispatcher is required")
	ErrAssigneeRequired        = errors.New("assignee is required")
	ErrOrderStatusInvalid      = errors.New("sample order status transition not allowed")
	ErrOrderItemsEmpty         = errors.New("sample order clinic items are empty")
	ErrOrderItemInvalid        = errors.New("sample order clinic item is invalid")
	ErrOrderNotMultiStop       = errors.New("sample order is not a multi-stop order")
	ErrOrderConcurrentModified = errors.New("sample order was modified concurrently")
	ErrOrderCodeExhausted      = errors.New("sample order code generation retries exhausted")
	ErrNoAdminAvailable        = errors.New("no active admin available as dispatcher")
)

// 通知相关错误
var (
	ErrNotificationNotFound = errors.New("notification not found")
)

// 认证相关错误
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserDisabled       = errors.New("user is disabled")
	ErrTokenInvalid       = errors.New("token is invalid")
)

// 邮件相关错误
var (
	ErrEmailServiceDisabled      = errors.New("email service disabled")
	ErrEmailServiceNotConfigured = errors.New("email service not configured")
	ErrInvalidEmail              = errors.New("invalid email address")
	ErrEmailRecipientRejected    = errors.New("email recipient rejected")
)

// IsNotFound 资源不存在类错误
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrClinicNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrWorkContentNotFound) ||
		errors.Is(err, ErrNotificationNotFound)
}

// IsValidation 参数或状态校验类错误
func IsValidation(err error) bool {
	return errors.Is(err, ErrDispatcherRequired) ||
		errors.Is(err, ErrWorkContentRequired) ||
		errors.Is(err, ErrAssigneeRequired) ||
		errors.Is(err, ErrOrderStatusInvalid) ||
		errors.Is(err, ErrOrderItemsEmpty) ||
		errors.Is(err, ErrOrderItemInvalid) ||
		errors.Is(err, ErrOrderNotMultiStop)
}

// IsConflict 并发冲突
func IsConflict(err error) bool {
	return errors.Is(err, ErrOrderConcurrentModified)
}
