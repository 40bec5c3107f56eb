package configs

import "github.com/spf13/viper"

const (
	// 默认后端熔断配置.
	DefaultBreakerEnabled           = true
	DefaultBreakerFailureRate       = 0.5
	DefaultBreakerMinRequests       = 10
	DefaultBreakerIntervalSeconds   = 60
	DefaultBreakerTimeoutSeconds    = 30
	DefaultBreakerMaxRequestsInHalf = 3
)

// BreakerConfig 对象存储后端熔断配置.
// 熔断打开期间分块操作立即失败，避免对故障后端持续施压.
type BreakerConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	FailureRate       float64 `mapstructure:"failure_rate"`         // 统计窗口失败比例阈值 [0,1]
	MinRequests       uint32  `mapstructure:"min_requests"`         // 进入统计的最小请求数
	IntervalSeconds   int     `mapstructure:"interval_seconds"`     // 滑动窗口统计周期
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"`      // 打开状态持续时间（自动半开）
	MaxRequestsInHalf uint32  `mapstructure:"max_requests_in_half"` // 半开状态允许的并发请求数
}

func (c *BreakerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("breaker.enabled", DefaultBreakerEnabled)
	v.SetDefault("breaker.failure_rate", DefaultBreakerFailureRate)
	v.SetDefault("breaker.min_requests", DefaultBreakerMinRequests)
	v.SetDefault("breaker.interval_seconds", DefaultBreakerIntervalSeconds)
	v.SetDefault("breaker.timeout_seconds", DefaultBreakerTimeoutSeconds)
	v.SetDefault("breaker.max_requests_in_half", DefaultBreakerMaxRequestsInHalf)
}
