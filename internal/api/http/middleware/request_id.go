package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader 请求ID请求/响应头
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "request_id"

	// maxRequestIDLength 客户端传入请求ID的最大长度，超出则重新生成
	maxRequestIDLength = 128
)

// RequestID 为每个请求分配追踪ID
//
// 客户端传入的 X-Request-ID 会被沿用（长度受限），否则生成 uuid。
// 该 ID 写入响应头，并出现在错误响应与请求日志中。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.NewString()
		}

		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

// GetRequestID 从上下文获取请求ID
func GetRequestID(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		if s, ok2 := v.(string); ok2 {
			return s
		}
	}
	return ""
}
