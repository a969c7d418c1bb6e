// Package clock 时间源配置
package clock

import "time"

// 默认值
const (
	defaultSyncInterval       = 10 * time.Minute
	defaultUnhealthyThreshold = 2 * time.Second
)

// ClockOptions 时间源配置选项
//
// 托管方令牌的 iat/exp 依赖本机时间，时钟偏差过大时令牌会被拒绝。
// 配置 ntp_server 后使用 NTP 校正的时钟，否则使用系统时钟。
type ClockOptions struct {
	NTPServer            string `json:"ntp_server" mapstructure:"ntp_server"`
	SyncIntervalMs       int    `json:"sync_interval_ms" mapstructure:"sync_interval_ms" validate:"gte=0"`
	UnhealthyThresholdMs int    `json:"unhealthy_threshold_ms" mapstructure:"unhealthy_threshold_ms" validate:"gte=0"`
}

// Config 时间源配置实现
type Config struct {
	ntpServer          string
	syncInterval       time.Duration
	unhealthyThreshold time.Duration
}

// New 创建时间源配置
func New(opts *ClockOptions) *Config {
	c := &Config{
		syncInterval:       defaultSyncInterval,
		unhealthyThreshold: defaultUnhealthyThreshold,
	}
	if opts == nil {
		return c
	}
	c.ntpServer = opts.NTPServer
	if opts.SyncIntervalMs > 0 {
		c.syncInterval = time.Duration(opts.SyncIntervalMs) * time.Millisecond
	}
	if opts.UnhealthyThresholdMs > 0 {
		c.unhealthyThreshold = time.Duration(opts.UnhealthyThresholdMs) * time.Millisecond
	}
	return c
}

// NTPServer NTP 服务器地址，为空表示使用系统时钟
func (c *Config) NTPServer() string { return c.ntpServer }

// SyncInterval NTP 同步间隔
func (c *Config) SyncInterval() time.Duration { return c.syncInterval }

// UnhealthyThreshold 偏移超过该值视为不健康
func (c *Config) UnhealthyThreshold() time.Duration { return c.unhealthyThreshold }
