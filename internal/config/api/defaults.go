package api

import "time"

// API服务默认配置值
const (
	// defaultHTTPEnabled 默认启用HTTP API
	defaultHTTPEnabled = true

	// defaultHTTPHost HTTP监听地址，默认只监听本机
	defaultHTTPHost = "127.0.0.1"

	// defaultHTTPPort HTTP端口
	defaultHTTPPort = 8080

	// defaultSignTimeout 单个签名请求的处理超时
	// MPC 轮询默认 30 次 × 1 秒，超时需覆盖完整轮询预算
	defaultSignTimeout = 45 * time.Second

	// defaultHTTPReadTimeout HTTP读取超时
	defaultHTTPReadTimeout = 15 * time.Second

	// defaultHTTPWriteTimeout HTTP写入超时，需大于签名超时
	defaultHTTPWriteTimeout = 60 * time.Second

	// defaultMaxRequestSize 最大请求大小
	defaultMaxRequestSize = 1 * 1024 * 1024

	// defaultMetricsPath Prometheus 指标路径
	defaultMetricsPath = "/metrics"
)
