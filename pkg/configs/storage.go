package configs

import (
	"time"

	"github.com/spf13/viper"
)

// BackendType 对象存储后端类型.
type BackendType string

const (
	BackendS3       BackendType = "s3"
	BackendTelegram BackendType = "telegram"
)

const (
	DefaultBackendType        = string(BackendS3) // 默认后端
	DefaultChunkSizeMB        = 5                 // 默认分块大小（MB）
	DefaultMaxConcurrent      = 3                 // 每次上传/下载最多同时在途的分块数
	DefaultChunkOpTimeout     = 120               // 单个分块操作超时（秒）
	DefaultMaxRetries         = 3                 // 分块操作最大重试次数
	DefaultMaxThrottleWait    = 300               // 单次 Throttled 等待上限（秒）
	DefaultUserQuotaGB        = 5                 // 新用户默认配额（GB）
	DefaultSessionTTLMinutes  = 60                // 上传会话存活时间（分钟）
	DefaultTrashRetentionDays = 30                // 回收站保留天数，超过后由定时任务永久删除
)

// StorageConfig 分块流水线配置.
// 分块大小是系统级固定值，不针对单个文件协商；修改后已存文件无需迁移.
type StorageConfig struct {
	Backend            string `mapstructure:"backend"              rule:"oneof=s3 telegram"`
	ChunkSizeMB        int    `mapstructure:"chunk_size_mb"        rule:"min=1,max=2000"`
	MaxConcurrent      int    `mapstructure:"max_concurrent"       rule:"min=1,max=64"`
	ChunkOpTimeout     int    `mapstructure:"chunk_op_timeout"     rule:"min=1,max=3600"`
	MaxRetries         int    `mapstructure:"max_retries"          rule:"min=0,max=10"`
	MaxThrottleWait    int    `mapstructure:"max_throttle_wait"    rule:"min=1,max=3600"`
	UserQuotaGB        int    `mapstructure:"user_quota_gb"        rule:"min=0"`
	SessionTTLMinutes  int    `mapstructure:"session_ttl_minutes"  rule:"min=1"`
	TrashRetentionDays int    `mapstructure:"trash_retention_days" rule:"min=1"`
}

// ChunkSizeBytes 返回分块大小（字节）.
func (c *StorageConfig) ChunkSizeBytes() int64 {
	return int64(c.ChunkSizeMB) * 1024 * 1024
}

// GetChunkOpTimeout 返回单个分块操作超时.
func (c *StorageConfig) GetChunkOpTimeout() time.Duration {
	return time.Duration(c.ChunkOpTimeout) * time.Second
}

// GetMaxThrottleWait 返回 Throttled 等待上限.
func (c *StorageConfig) GetMaxThrottleWait() time.Duration {
	return time.Duration(c.MaxThrottleWait) * time.Second
}

// DefaultQuotaBytes 返回新用户默认配额（字节），0 表示不限制.
func (c *StorageConfig) DefaultQuotaBytes() int64 {
	return int64(c.UserQuotaGB) * 1024 * 1024 * 1024
}

// SessionTTL 返回上传会话存活时间.
func (c *StorageConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// setDefaults 设置分块流水线配置的默认值.
func (c *StorageConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", DefaultBackendType)
	v.SetDefault("storage.chunk_size_mb", DefaultChunkSizeMB)
	v.SetDefault("storage.max_concurrent", DefaultMaxConcurrent)
	v.SetDefault("storage.chunk_op_timeout", DefaultChunkOpTimeout)
	v.SetDefault("storage.max_retries", DefaultMaxRetries)
	v.SetDefault("storage.max_throttle_wait", DefaultMaxThrottleWait)
	v.SetDefault("storage.user_quota_gb", DefaultUserQuotaGB)
	v.SetDefault("storage.session_ttl_minutes", DefaultSessionTTLMinutes)
	v.SetDefault("storage.trash_retention_days", DefaultTrashRetentionDays)
}
