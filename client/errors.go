package client

import (
	"errors"
	"fmt"
)

// Error 客户端错误
type Error struct {
	Code    int
	Message string
	Err     error

	// RPCCode 节点返回的 JSON-RPC 错误码（仅 ErrCodeRPCError）
	RPCCode int
	// Data 节点返回的错误数据，revert 时通常为 ABI 编码的 Error(string)
	Data interface{}
}

func (e *Error) Error() string {
	if e.Code == ErrCodeRPCError {
		if e.Data != nil {
			return fmt.Sprintf("client error [%d]: RPC error [%d]: %s, data: %v", e.Code, e.RPCCode, e.Message, e.Data)
		}
		return fmt.Sprintf("client error [%d]: RPC error [%d]: %s", e.Code, e.RPCCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("client error [%d]: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("client error [%d]: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// 错误码定义
const (
	ErrCodeNetwork         = 1000 // 网络错误
	ErrCodeTimeout         = 1001 // 超时错误
	ErrCodeInvalidResponse = 1002 // 无效响应
	ErrCodeRPCError        = 1003 // JSON-RPC错误
	ErrCodeNotSupported    = 1004 // 不支持的操作
	ErrCodeHTTPStatus      = 1005 // HTTP 状态码错误
	ErrCodeClosed          = 1006 // 连接已关闭
)

// AsError 检查错误链中是否包含客户端错误
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// AsRPCError 检查错误链中是否包含 JSON-RPC 错误
func AsRPCError(err error) (*Error, bool) {
	e, ok := AsError(err)
	if !ok || e.Code != ErrCodeRPCError {
		return nil, false
	}
	return e, true
}

// NewNetworkError 创建网络错误
func NewNetworkError(err error) *Error {
	return &Error{
		Code:    ErrCodeNetwork,
		Message: "network error",
		Err:     err,
	}
}

// NewTimeoutError 创建超时错误
func NewTimeoutError() *Error {
	return &Error{
		Code:    ErrCodeTimeout,
		Message: "request timeout",
	}
}

// NewInvalidResponseError 创建无效响应错误
func NewInvalidResponseError(message string) *Error {
	return &Error{
		Code:    ErrCodeInvalidResponse,
		Message: message,
	}
}

// NewRPCError 创建JSON-RPC错误
func NewRPCError(code int, message string, data interface{}) *Error {
	return &Error{
		Code:    ErrCodeRPCError,
		Message: message,
		RPCCode: code,
		Data:    data,
	}
}

// NewHTTPStatusError 创建HTTP状态码错误
func NewHTTPStatusError(status int, body string) *Error {
	return &Error{
		Code:    ErrCodeHTTPStatus,
		Message: fmt.Sprintf("HTTP %d: %s", status, body),
		RPCCode: status,
	}
}

// NewNotSupportedError 创建不支持的操作错误
func NewNotSupportedError(operation string) *Error {
	return &Error{
		Code:    ErrCodeNotSupported,
		Message: fmt.Sprintf("operation not supported: %s", operation),
	}
}

// NewClosedError 创建连接已关闭错误
func NewClosedError() *Error {
	return &Error{
		Code:    ErrCodeClosed,
		Message: "connection closed",
	}
}
