package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/khaznati/chunkvault/pkg/configs"
	nlog "github.com/khaznati/chunkvault/pkg/log"
)

// breakerBackend 为任意 ObjectBackend 加上熔断保护.
// 熔断打开时所有操作立即返回 ErrUnavailable.
type breakerBackend struct {
	inner ObjectBackend
	cb    *gobreaker.CircuitBreaker
}

// WrapWithBreaker 用熔断器包装后端.
func WrapWithBreaker(inner ObjectBackend, cfg *configs.BreakerConfig) ObjectBackend {
	settings := gobreaker.Settings{
		Name:        inner.Name() + "-backend",
		MaxRequests: cfg.MaxRequestsInHalf,
		Interval:    time.Duration(cfg.IntervalSeconds) * time.Second,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}

			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRate
		},
		// NotFound 和限流是后端的正常回答，不算故障
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrThrottled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			nlog.Logger().Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("backend breaker state changed")
		},
	}

	return &breakerBackend{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker(settings),
	}
}

func (b *breakerBackend) Name() string {
	return b.inner.Name()
}

func (b *breakerBackend) Connect(ctx context.Context) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.inner.Connect(ctx)
	})

	return mapBreakerError(err)
}

func (b *breakerBackend) Put(ctx context.Context, data []byte) (Locator, error) {
	loc, err := b.cb.Execute(func() (any, error) {
		return b.inner.Put(ctx, data)
	})
	if err != nil {
		return "", mapBreakerError(err)
	}

	result, ok := loc.(Locator)
	if !ok {
		return "", fmt.Errorf("unexpected breaker result type %T", loc)
	}

	return result, nil
}

func (b *breakerBackend) Get(ctx context.Context, loc Locator) ([]byte, error) {
	data, err := b.cb.Execute(func() (any, error) {
		return b.inner.Get(ctx, loc)
	})
	if err != nil {
		return nil, mapBreakerError(err)
	}

	result, ok := data.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected breaker result type %T", data)
	}

	return result, nil
}

func (b *breakerBackend) Delete(ctx context.Context, loc Locator) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.inner.Delete(ctx, loc)
	})

	return mapBreakerError(err)
}

func (b *breakerBackend) Close() error {
	return b.inner.Close()
}

// mapBreakerError 把熔断器自身的拒绝翻译为 ErrUnavailable.
func mapBreakerError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: circuit breaker open", ErrUnavailable)
	}

	return err
}
