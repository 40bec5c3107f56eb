package service

import (
	"errors"
	"time"

	"github.com/khaznati/chunkvault/pkg/internal/backend"
)

// retryWait 决定一次失败的分块操作是否可重试以及等多久.
// 限流错误优先采用后端给出的时长，瞬态故障走指数退避.
// 等待超过 maxWait 视为不可重试，避免把调用方无限挂起.
func retryWait(err error, attempt int, maxWait time.Duration) (time.Duration, bool) {
	wait, throttled := backend.RetryAfterOf(err)

	switch {
	case throttled:
		if wait <= 0 {
			wait = time.Duration(1<<attempt) * time.Second
		}
	case errors.Is(err, backend.ErrTimeout), errors.Is(err, backend.ErrUnavailable):
		wait = time.Duration(1<<attempt) * time.Second
	default:
		return 0, false
	}

	if wait > maxWait {
		return 0, false
	}

	return wait, true
}
