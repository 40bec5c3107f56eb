package backend

import (
	"context"
	"fmt"

	"github.com/khaznati/chunkvault/pkg/configs"
)

// Locator 后端定位符，足以取回或删除一个已写入的分块.
// S3 后端为对象键，Telegram 后端为消息ID.
type Locator string

// ObjectBackend 对象存储后端抽象.
// 实现必须保证 Put 成功返回的 Locator 在 Delete 之前一直可用于 Get.
type ObjectBackend interface {
	// Name 返回后端标识，写入分块记录用于路由.
	Name() string
	// Connect 建立或验证连接，幂等.
	Connect(ctx context.Context) error
	// Put 写入一个分块，返回定位符.
	Put(ctx context.Context, data []byte) (Locator, error)
	// Get 按定位符读回分块，对象不存在时返回 ErrNotFound.
	Get(ctx context.Context, loc Locator) ([]byte, error)
	// Delete 按定位符删除分块，删除不存在的对象不报错.
	Delete(ctx context.Context, loc Locator) error
	// Close 释放连接资源.
	Close() error
}

// BackendFactory 定义创建 ObjectBackend 的工厂函数类型.
type BackendFactory func(cfg *configs.AppConfig) (ObjectBackend, error)

// backendFactories 存储后端类型到工厂的映射.
var backendFactories = map[configs.BackendType]BackendFactory{}

// RegisterBackendFactory 注册后端工厂函数.
func RegisterBackendFactory(t configs.BackendType, factory BackendFactory) {
	backendFactories[t] = factory
}

// GetRegisteredBackendTypes 返回已注册的后端类型列表.
func GetRegisteredBackendTypes() []configs.BackendType {
	types := make([]configs.BackendType, 0, len(backendFactories))
	for t := range backendFactories {
		types = append(types, t)
	}

	return types
}

// New 按配置创建后端，并在启用时包上熔断装饰器.
func New(cfg *configs.AppConfig) (ObjectBackend, error) {
	factory, exists := backendFactories[configs.BackendType(cfg.Storage.Backend)]
	if !exists {
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Storage.Backend)
	}

	b, err := factory(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Breaker.Enabled {
		b = WrapWithBreaker(b, &cfg.Breaker)
	}

	return b, nil
}
