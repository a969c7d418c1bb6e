package mpc

import (
	"context"
	"fmt"
	"time"

	"github.com/weisyn/txsigner/pkg/types"
)

// GenericProvider 通用提供方
//
// 不连接任何远端，模拟短暂延迟后返回带提供方名称的占位签名，
// 用于验证 MPC 后端的分派逻辑或对接非托管集成。
type GenericProvider struct {
	name    string
	latency time.Duration
}

// NewGenericProvider 创建通用提供方
func NewGenericProvider(name string, latency time.Duration) *GenericProvider {
	return &GenericProvider{name: name, latency: latency}
}

// Name 实现 Provider
func (p *GenericProvider) Name() string { return p.name }

// Sign 实现 Provider
//
// 返回 mpc_signature_<name>_<交易前 16 个字符>。
func (p *GenericProvider) Sign(ctx context.Context, req *types.SignRequest) (string, error) {
	if req == nil || req.Transaction == "" {
		return "", types.NewSignerError(types.ErrorKindInvalidRequest, "transaction is required", nil)
	}

	if p.latency > 0 {
		timer := time.NewTimer(p.latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", fmt.Errorf("模拟签名已取消: %w", ctx.Err())
		case <-timer.C:
		}
	}

	token := req.Transaction
	if len(token) > 16 {
		token = token[:16]
	}
	return fmt.Sprintf("mpc_signature_%s_%s", p.name, token), nil
}
