package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/log"
)

// Logger 请求日志中间件
//
// 每个请求结束后输出一条结构化日志，5xx 记为 Error，4xx 记为 Warn。
// 只记录路由、状态与耗时，不记录请求体（交易内容不落日志）。
func Logger(logger log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		if logger == nil {
			return
		}

		status := c.Writer.Status()
		latency := time.Since(start)
		requestID := GetRequestID(c)

		if zl := logger.GetZapLogger(); zl != nil {
			fields := []zap.Field{
				zap.String("request_id", requestID),
				zap.String("method", c.Request.Method),
				zap.String("path", path),
				zap.Int("status", status),
				zap.Duration("latency", latency),
				zap.String("client_ip", c.ClientIP()),
			}
			if len(c.Errors) > 0 {
				fields = append(fields, zap.String("errors", c.Errors.String()))
			}
			switch {
			case status >= 500:
				zl.Error("HTTP request", fields...)
			case status >= 400:
				zl.Warn("HTTP request", fields...)
			default:
				zl.Info("HTTP request", fields...)
			}
			return
		}

		switch {
		case status >= 500:
			logger.Errorf("HTTP request | id=%s method=%s path=%s status=%d latency=%s", requestID, c.Request.Method, path, status, latency)
		case status >= 400:
			logger.Warnf("HTTP request | id=%s method=%s path=%s status=%d latency=%s", requestID, c.Request.Method, path, status, latency)
		default:
			logger.Infof("HTTP request | id=%s method=%s path=%s status=%d latency=%s", requestID, c.Request.Method, path, status, latency)
		}
	}
}
