package log

import "github.com/weisyn/txsigner/pkg/types"

// LogLevel 日志级别（定义在 pkg/types，供配置层复用）
type LogLevel = types.LogLevel

const (
	DebugLevel = types.DebugLevel
	InfoLevel  = types.InfoLevel
	WarnLevel  = types.WarnLevel
	ErrorLevel = types.ErrorLevel
	FatalLevel = types.FatalLevel
)
