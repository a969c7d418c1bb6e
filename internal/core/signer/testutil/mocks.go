// Package testutil 提供签名模块测试的辅助工具
//
// 🧪 **测试辅助工具包**
//
// 本包提供测试所需的 Mock 对象，用于简化测试代码编写。
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/txsigner/pkg/types"
)

// ==================== Mock 对象 ====================

// MockLogger 统一的日志Mock实现
//
// ✅ **设计原则**：最小实现，所有方法返回空值，不记录日志
type MockLogger struct{}

func (m *MockLogger) Debug(msg string)                          {}
func (m *MockLogger) Debugf(format string, args ...interface{}) {}
func (m *MockLogger) Info(msg string)                           {}
func (m *MockLogger) Infof(format string, args ...interface{})  {}
func (m *MockLogger) Warn(msg string)                           {}
func (m *MockLogger) Warnf(format string, args ...interface{})  {}
func (m *MockLogger) Error(msg string)                          {}
func (m *MockLogger) Errorf(format string, args ...interface{}) {}
func (m *MockLogger) Fatal(msg string)                          {}
func (m *MockLogger) Fatalf(format string, args ...interface{}) {}
func (m *MockLogger) With(args ...interface{}) log.Logger       { return m }
func (m *MockLogger) Sync() error                               { return nil }
func (m *MockLogger) GetZapLogger() *zap.Logger                 { return zap.NewNop() }

// BehavioralMockLogger 行为Mock日志（记录调用）
//
// 📋 **使用场景**：需要验证日志内容的测试，例如确认密钥材料未被记录
type BehavioralMockLogger struct {
	logs  []string
	mutex sync.Mutex
}

func (m *BehavioralMockLogger) record(level, msg string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.logs = append(m.logs, level+": "+msg)
}

func (m *BehavioralMockLogger) Debug(msg string) { m.record("DEBUG", msg) }
func (m *BehavioralMockLogger) Debugf(format string, args ...interface{}) {
	m.record("DEBUG", fmt.Sprintf(format, args...))
}
func (m *BehavioralMockLogger) Info(msg string) { m.record("INFO", msg) }
func (m *BehavioralMockLogger) Infof(format string, args ...interface{}) {
	m.record("INFO", fmt.Sprintf(format, args...))
}
func (m *BehavioralMockLogger) Warn(msg string) { m.record("WARN", msg) }
func (m *BehavioralMockLogger) Warnf(format string, args ...interface{}) {
	m.record("WARN", fmt.Sprintf(format, args...))
}
func (m *BehavioralMockLogger) Error(msg string) { m.record("ERROR", msg) }
func (m *BehavioralMockLogger) Errorf(format string, args ...interface{}) {
	m.record("ERROR", fmt.Sprintf(format, args...))
}
func (m *BehavioralMockLogger) Fatal(msg string) { m.record("FATAL", msg) }
func (m *BehavioralMockLogger) Fatalf(format string, args ...interface{}) {
	m.record("FATAL", fmt.Sprintf(format, args...))
}
func (m *BehavioralMockLogger) With(args ...interface{}) log.Logger { return m }
func (m *BehavioralMockLogger) Sync() error                         { return nil }
func (m *BehavioralMockLogger) GetZapLogger() *zap.Logger           { return zap.NewNop() }

// GetLogs 获取所有日志
func (m *BehavioralMockLogger) GetLogs() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]string(nil), m.logs...)
}

// Contains 任一日志包含 s 时返回 true
func (m *BehavioralMockLogger) Contains(s string) bool {
	for _, l := range m.GetLogs() {
		if strings.Contains(l, s) {
			return true
		}
	}
	return false
}

// MockSigner 签名器 Mock
//
// 未设置 SignFunc 时返回固定响应。
type MockSigner struct {
	Type     types.SignerType
	SignFunc func(ctx context.Context, req *types.SignRequest) (*types.SignResponse, error)

	mu    sync.Mutex
	calls int
}

// NewMockSigner 创建指定类型的 Mock 签名器
func NewMockSigner(t types.SignerType) *MockSigner {
	return &MockSigner{Type: t}
}

func (m *MockSigner) Sign(ctx context.Context, req *types.SignRequest) (*types.SignResponse, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if req == nil || req.Transaction == "" || req.ChainType == "" {
		return nil, types.NewSignerError(types.ErrorKindInvalidRequest, "transaction and chainType are required", nil)
	}
	if m.SignFunc != nil {
		return m.SignFunc(ctx, req)
	}
	return &types.SignResponse{
		Signature:         "signed_" + req.Transaction,
		SignedTransaction: "signed_" + req.Transaction,
		SignerType:        m.Type,
	}, nil
}

func (m *MockSigner) ValidateRequest(req *types.SignRequest) bool {
	return req != nil && req.Transaction != "" && req.ChainType != ""
}

func (m *MockSigner) GetSignerType() types.SignerType { return m.Type }

// Calls 返回 Sign 调用次数
func (m *MockSigner) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MockProvider MPC 提供方 Mock
type MockProvider struct {
	ProviderName string
	SignFunc     func(ctx context.Context, req *types.SignRequest) (string, error)
}

func (m *MockProvider) Sign(ctx context.Context, req *types.SignRequest) (string, error) {
	if m.SignFunc != nil {
		return m.SignFunc(ctx, req)
	}
	return "provider_signed_" + req.Transaction, nil
}

func (m *MockProvider) Name() string { return m.ProviderName }
