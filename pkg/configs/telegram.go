package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultTelegramAPIBase        = "https://api.telegram.org" // Bot API 基础地址
	DefaultTelegramRequestTimeout = 120                        // 单次 API 请求超时（秒）
)

// TelegramConfig Telegram Bot 中继后端配置.
// 所有分块作为 document 发送到一个私有存储频道，消息 ID 作为分块定位符.
type TelegramConfig struct {
	BotToken  string `mapstructure:"bot_token"`
	ChannelID int64  `mapstructure:"channel_id"`
	// APIBase 允许指向本地 Bot API server 或测试桩
	APIBase        string `mapstructure:"api_base"        rule:"omitempty,url"`
	RequestTimeout int    `mapstructure:"request_timeout" rule:"min=1,max=600"`
}

// GetRequestTimeout 返回单次请求超时时间.
func (c *TelegramConfig) GetRequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// setDefaults 设置 Telegram 配置的默认值.
func (c *TelegramConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.channel_id", 0)
	v.SetDefault("telegram.api_base", DefaultTelegramAPIBase)
	v.SetDefault("telegram.request_timeout", DefaultTelegramRequestTimeout)
}
