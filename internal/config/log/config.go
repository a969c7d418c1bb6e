package log

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// LogOptions 日志配置选项
type LogOptions struct {
	// === 基础配置 ===
	Level     string `json:"level" mapstructure:"level" validate:"omitempty,oneof=debug info warn error panic fatal"` // 日志级别
	ToConsole *bool  `json:"to_console,omitempty" mapstructure:"to_console"`                                        // 是否输出到控制台
	FilePath  string `json:"file_path" mapstructure:"file_path"`                                                    // 日志文件路径，为空时不写文件

	// === 轮转配置（lumberjack） ===
	MaxSize    int   `json:"max_size" mapstructure:"max_size" validate:"gte=0"`       // 单个日志文件最大大小(MB)
	MaxBackups int   `json:"max_backups" mapstructure:"max_backups" validate:"gte=0"` // 最大备份文件数
	MaxAge     int   `json:"max_age" mapstructure:"max_age" validate:"gte=0"`         // 日志文件最大保留天数
	Compress   *bool `json:"compress,omitempty" mapstructure:"compress"`              // 是否压缩历史日志文件

	// === 调试配置 ===
	EnableCaller     *bool `json:"enable_caller,omitempty" mapstructure:"enable_caller"`         // 是否启用调用者信息
	EnableStacktrace *bool `json:"enable_stacktrace,omitempty" mapstructure:"enable_stacktrace"` // 是否启用堆栈跟踪
}

// Config 日志配置实现
type Config struct {
	level            string
	toConsole        bool
	filePath         string
	maxSize          int
	maxBackups       int
	maxAge           int
	compress         bool
	enableCaller     bool
	enableStacktrace bool
	levelMap         map[string]zapcore.Level
}

// New 创建日志配置：先填充默认值，再用用户配置中实际出现的字段覆盖
func New(userOptions *LogOptions) *Config {
	c := &Config{
		level:            defaultLogLevel,
		toConsole:        defaultToConsole,
		filePath:         defaultFilePath,
		maxSize:          defaultMaxSize,
		maxBackups:       defaultMaxBackups,
		maxAge:           defaultMaxAge,
		compress:         defaultCompress,
		enableCaller:     defaultEnableCaller,
		enableStacktrace: defaultEnableStacktrace,
		levelMap:         defaultLevelMap,
	}
	if userOptions == nil {
		return c
	}

	if userOptions.Level != "" {
		c.level = strings.ToLower(userOptions.Level)
	}
	if userOptions.FilePath != "" {
		c.filePath = userOptions.FilePath
		c.toConsole = false // 指定文件路径时默认不输出到控制台
	}
	if userOptions.ToConsole != nil {
		c.toConsole = *userOptions.ToConsole
	}
	if userOptions.MaxSize > 0 {
		c.maxSize = userOptions.MaxSize
	}
	if userOptions.MaxBackups > 0 {
		c.maxBackups = userOptions.MaxBackups
	}
	if userOptions.MaxAge > 0 {
		c.maxAge = userOptions.MaxAge
	}
	if userOptions.Compress != nil {
		c.compress = *userOptions.Compress
	}
	if userOptions.EnableCaller != nil {
		c.enableCaller = *userOptions.EnableCaller
	}
	if userOptions.EnableStacktrace != nil {
		c.enableStacktrace = *userOptions.EnableStacktrace
	}
	return c
}

// GetLevel 获取日志级别
func (c *Config) GetLevel() string {
	return c.level
}

// GetZapLevel 获取zap日志级别
func (c *Config) GetZapLevel() zapcore.Level {
	if level, exists := c.levelMap[c.level]; exists {
		return level
	}
	return zapcore.InfoLevel
}

// IsConsoleEnabled 是否启用控制台输出
func (c *Config) IsConsoleEnabled() bool {
	return c.toConsole
}

// GetFilePath 获取日志文件路径
func (c *Config) GetFilePath() string {
	return c.filePath
}

// GetMaxSize 获取单个文件最大大小(MB)
func (c *Config) GetMaxSize() int {
	return c.maxSize
}

// GetMaxBackups 获取最大备份文件数
func (c *Config) GetMaxBackups() int {
	return c.maxBackups
}

// GetMaxAge 获取最大保留天数
func (c *Config) GetMaxAge() int {
	return c.maxAge
}

// IsCompressionEnabled 是否启用压缩
func (c *Config) IsCompressionEnabled() bool {
	return c.compress
}

// IsCallerEnabled 是否启用调用者信息
func (c *Config) IsCallerEnabled() bool {
	return c.enableCaller
}

// IsStacktraceEnabled 是否启用堆栈跟踪
func (c *Config) IsStacktraceEnabled() bool {
	return c.enableStacktrace
}

// CreateFileEncoder 创建文件编码器（JSON）
func (c *Config) CreateFileEncoder() zapcore.Encoder {
	return zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
	})
}

// CreateConsoleEncoder 创建控制台编码器
func (c *Config) CreateConsoleEncoder() zapcore.Encoder {
	return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.TimeEncoderOfLayout("15:04:05.000"),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
	})
}
