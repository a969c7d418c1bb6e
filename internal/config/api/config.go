package api

import (
	"fmt"
	"time"
)

// APIOptions API服务配置选项
type APIOptions struct {
	Enabled *bool  `json:"enabled,omitempty" mapstructure:"enabled"` // 是否启用HTTP服务
	Host    string `json:"host" mapstructure:"host"`                  // 监听地址
	Port    int    `json:"port" mapstructure:"port" validate:"gte=0,lte=65535"`

	// 超时配置（毫秒）
	SignTimeoutMs  int `json:"sign_timeout_ms" mapstructure:"sign_timeout_ms" validate:"gte=0"`
	ReadTimeoutMs  int `json:"read_timeout_ms" mapstructure:"read_timeout_ms" validate:"gte=0"`
	WriteTimeoutMs int `json:"write_timeout_ms" mapstructure:"write_timeout_ms" validate:"gte=0"`

	MaxRequestSize int    `json:"max_request_size" mapstructure:"max_request_size" validate:"gte=0"` // 最大请求大小(字节)
	MetricsPath    string `json:"metrics_path" mapstructure:"metrics_path"`                          // 指标路径，为 "-" 时关闭
}

// Config API配置实现
type Config struct {
	enabled        bool
	host           string
	port           int
	signTimeout    time.Duration
	readTimeout    time.Duration
	writeTimeout   time.Duration
	maxRequestSize int
	metricsPath    string
}

// New 创建API配置实现
func New(userOptions *APIOptions) *Config {
	c := &Config{
		enabled:        defaultHTTPEnabled,
		host:           defaultHTTPHost,
		port:           defaultHTTPPort,
		signTimeout:    defaultSignTimeout,
		readTimeout:    defaultHTTPReadTimeout,
		writeTimeout:   defaultHTTPWriteTimeout,
		maxRequestSize: defaultMaxRequestSize,
		metricsPath:    defaultMetricsPath,
	}
	if userOptions == nil {
		return c
	}

	if userOptions.Enabled != nil {
		c.enabled = *userOptions.Enabled
	}
	if userOptions.Host != "" {
		c.host = userOptions.Host
	}
	if userOptions.Port > 0 {
		c.port = userOptions.Port
	}
	if userOptions.SignTimeoutMs > 0 {
		c.signTimeout = time.Duration(userOptions.SignTimeoutMs) * time.Millisecond
	}
	if userOptions.ReadTimeoutMs > 0 {
		c.readTimeout = time.Duration(userOptions.ReadTimeoutMs) * time.Millisecond
	}
	if userOptions.WriteTimeoutMs > 0 {
		c.writeTimeout = time.Duration(userOptions.WriteTimeoutMs) * time.Millisecond
	}
	if userOptions.MaxRequestSize > 0 {
		c.maxRequestSize = userOptions.MaxRequestSize
	}
	if userOptions.MetricsPath != "" {
		c.metricsPath = userOptions.MetricsPath
	}
	return c
}

// IsEnabled 是否启用HTTP服务
func (c *Config) IsEnabled() bool { return c.enabled }

// Address 监听地址 host:port
func (c *Config) Address() string { return fmt.Sprintf("%s:%d", c.host, c.port) }

// SignTimeout 签名请求超时
func (c *Config) SignTimeout() time.Duration { return c.signTimeout }

// ReadTimeout 读取超时
func (c *Config) ReadTimeout() time.Duration { return c.readTimeout }

// WriteTimeout 写入超时
func (c *Config) WriteTimeout() time.Duration { return c.writeTimeout }

// MaxRequestSize 最大请求大小
func (c *Config) MaxRequestSize() int { return c.maxRequestSize }

// MetricsPath 指标路径；为空表示关闭
func (c *Config) MetricsPath() string {
	if c.metricsPath == "-" {
		return ""
	}
	return c.metricsPath
}
