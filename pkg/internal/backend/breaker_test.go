package backend

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/khaznati/chunkvault/pkg/configs"
)

// flakyBackend 按计划返回错误的桩后端.
type flakyBackend struct {
	err   error
	calls int
}

func (f *flakyBackend) Name() string                      { return "flaky" }
func (f *flakyBackend) Connect(context.Context) error     { return nil }
func (f *flakyBackend) Close() error                      { return nil }
func (f *flakyBackend) Delete(context.Context, Locator) error {
	f.calls++
	return f.err
}

func (f *flakyBackend) Put(context.Context, []byte) (Locator, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}

	return Locator(fmt.Sprintf("loc-%d", f.calls)), nil
}

func (f *flakyBackend) Get(context.Context, Locator) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}

	return []byte("data"), nil
}

func breakerTestConfig() *configs.BreakerConfig {
	return &configs.BreakerConfig{
		Enabled:           true,
		FailureRate:       0.5,
		MinRequests:       3,
		IntervalSeconds:   60,
		TimeoutSeconds:    60,
		MaxRequestsInHalf: 1,
	}
}

// TestBreakerTripsOnRepeatedFailures 连续故障后熔断打开，调用立即返回 ErrUnavailable 且不再触达后端.
func TestBreakerTripsOnRepeatedFailures(t *testing.T) {
	inner := &flakyBackend{err: errors.New("connection reset")}
	b := WrapWithBreaker(inner, breakerTestConfig())

	ctx := t.Context()

	for range 5 {
		_, _ = b.Put(ctx, []byte("x"))
	}

	callsBefore := inner.calls

	_, err := b.Put(ctx, []byte("x"))
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("put with open breaker = %v, want ErrUnavailable", err)
	}

	if inner.calls != callsBefore {
		t.Errorf("open breaker still reached backend: %d -> %d calls", callsBefore, inner.calls)
	}
}

// TestBreakerIgnoresNotFound NotFound 是正常回答，不应触发熔断.
func TestBreakerIgnoresNotFound(t *testing.T) {
	inner := &flakyBackend{err: ErrNotFound}
	b := WrapWithBreaker(inner, breakerTestConfig())

	ctx := t.Context()

	for range 10 {
		_, err := b.Get(ctx, "some-locator")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("get = %v, want ErrNotFound", err)
		}
	}
}

// TestBreakerPassesThroughSuccess 正常路径下结果原样返回.
func TestBreakerPassesThroughSuccess(t *testing.T) {
	inner := &flakyBackend{}
	b := WrapWithBreaker(inner, breakerTestConfig())

	loc, err := b.Put(t.Context(), []byte("payload"))
	if err != nil {
		t.Fatalf("put failed: %v", err)
	}

	if loc == "" {
		t.Error("put returned empty locator")
	}

	data, err := b.Get(t.Context(), loc)
	if err != nil || string(data) != "data" {
		t.Errorf("get = %q, %v; want \"data\", nil", data, err)
	}
}
