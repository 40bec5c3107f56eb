// Package backend 定义对象存储后端抽象及其实现（S3、Telegram 中继）.
package backend

import (
	"errors"
	"fmt"
	"time"
)

// 后端错误类型.
var (
	// ErrNotFound 定位符指向的对象不存在.
	ErrNotFound = errors.New("backend: object not found")
	// ErrThrottled 后端要求放慢请求速率.
	ErrThrottled = errors.New("backend: throttled")
	// ErrUnavailable 后端暂时不可达或熔断打开.
	ErrUnavailable = errors.New("backend: unavailable")
	// ErrTimeout 单个分块操作超出时限.
	ErrTimeout = errors.New("backend: operation timed out")
	// ErrNotConnected 尚未建立连接就发起操作.
	ErrNotConnected = errors.New("backend: not connected")
)

// ThrottledError 携带后端给出的等待时长的限流错误.
// errors.Is(err, ErrThrottled) 为 true.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("backend: throttled, retry after %s", e.RetryAfter)
}

func (e *ThrottledError) Unwrap() error {
	return ErrThrottled
}

// NewThrottledError 构造带等待时长的限流错误.
func NewThrottledError(retryAfter time.Duration) error {
	return &ThrottledError{RetryAfter: retryAfter}
}

// RetryAfterOf 提取错误中的建议等待时长；非限流错误返回 0,false.
func RetryAfterOf(err error) (time.Duration, bool) {
	var te *ThrottledError
	if errors.As(err, &te) {
		return te.RetryAfter, true
	}

	if errors.Is(err, ErrThrottled) {
		return 0, true
	}

	return 0, false
}
