// Package event 事件总线配置
package event

// EventOptions 事件总线配置选项
type EventOptions struct {
	Enabled *bool `json:"enabled,omitempty" mapstructure:"enabled"` // 是否启用事件总线，默认启用
}

// Config 事件配置实现
type Config struct {
	enabled bool
}

// New 创建事件配置
func New(opts *EventOptions) *Config {
	c := &Config{enabled: defaultEnabled}
	if opts != nil && opts.Enabled != nil {
		c.enabled = *opts.Enabled
	}
	return c
}

// IsEnabled 事件系统是否启用
func (c *Config) IsEnabled() bool {
	return c != nil && c.enabled
}
