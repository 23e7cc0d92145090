package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig 重试配置
type RetryConfig struct {
	// MaxRetries 最大重试次数
	MaxRetries int
	// InitialInterval 初始延迟
	InitialInterval time.Duration
	// MaxInterval 最大延迟
	MaxInterval time.Duration
	// Multiplier 退避倍数
	Multiplier float64
	// Retryable 判断错误是否可重试（nil 使用 IsRetryable）
	Retryable func(error) bool
	// OnRetry 重试前的回调函数
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig 返回默认重试配置
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2.0,
	}
}

// IsRetryable 判断错误是否可重试
//
// 仅网络错误、HTTP 5xx 与 429 可重试；JSON-RPC 错误（包括 revert）不重试
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if e, ok := AsError(err); ok {
		switch e.Code {
		case ErrCodeNetwork, ErrCodeTimeout:
			return true
		case ErrCodeHTTPStatus:
			return isRetryableHTTPStatus(e.RPCCode)
		default:
			return false
		}
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// isRetryableHTTPStatus 判断 HTTP 状态码是否可重试
func isRetryableHTTPStatus(statusCode int) bool {
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}

func (c *RetryConfig) backOff(ctx context.Context) backoff.BackOff {
	if c == nil {
		return backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 0), ctx)
	}
	b := backoff.NewExponentialBackOff()
	if c.InitialInterval > 0 {
		b.InitialInterval = c.InitialInterval
	}
	if c.MaxInterval > 0 {
		b.MaxInterval = c.MaxInterval
	}
	if c.Multiplier > 0 {
		b.Multiplier = c.Multiplier
	}
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.MaxRetries)), ctx)
}

// withRetry 带指数退避的执行器
func withRetry(ctx context.Context, fn func() error, config *RetryConfig) error {
	retryable := IsRetryable
	if config != nil && config.Retryable != nil {
		retryable = config.Retryable
	}

	attempt := 0
	op := func() error {
		err := fn()
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, _ time.Duration) {
		attempt++
		if config != nil && config.OnRetry != nil {
			config.OnRetry(attempt, err)
		}
	}
	return backoff.RetryNotify(op, config.backOff(ctx), notify)
}
