// Package types provides HTTP response type definitions.
package types

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string `json:"status"` // healthy
	Version   string `json:"version,omitempty"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
	Signers   int    `json:"signers"` // 已注册签名器数量
}
