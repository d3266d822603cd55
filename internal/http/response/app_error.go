package response

import "fmt"

// AppError 处理器边界上的错误：业务码、对外消息与原始错误
type AppError struct {
	Code    int
	Message string
	Err     error
}

// NewAppError 按消息 key 构造错误
func NewAppError(code int, key string, err error) *AppError {
	return &AppError{Code: code, Message: Message(key), Err: err}
}

// WrapError 使用已渲染的消息构造错误
func WrapError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Internal 是否为服务端错误
func (e *AppError) Internal() bool {
	return e != nil && e.Code >= CodeInternal
}
