// Package mpc 提供 MPC（多方计算）签名后端
//
// 🏦 **提供方变体**（构造时一次性解析）：
// - fireblocks: 远端托管方，提交签名任务后轮询直至终态
// - 其他任意类型: 通用提供方，以类型字符串为名称
//
// 后端自身不做链相关处理，整个签名任务委托给提供方，提供方直接返回已签名交易。
package mpc

import (
	"context"
	"net/http"
	"strings"
	"time"

	signerconfig "github.com/weisyn/txsigner/internal/config/signer"
	"github.com/weisyn/txsigner/internal/core/signer/base"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/log"
	signerif "github.com/weisyn/txsigner/pkg/interfaces/signer"
	"github.com/weisyn/txsigner/pkg/types"
)

// Signer MPC 签名器
type Signer struct {
	base.Signer

	provider signerif.Provider
	logger   log.Logger
}

// New 创建 MPC 签名器
//
// 参数：
//   - cfg: 提供方描述（provider 为 nil 时使用）
//   - provider: 现成的提供方实例（优先）
//   - logger: 日志服务（可为 nil）
//
// 返回：
//   - *Signer: 签名器实例
//   - error: MissingProvider
func New(cfg *signerconfig.MPCConfig, provider signerif.Provider, logger log.Logger) (*Signer, error) {
	if provider == nil {
		p, err := ResolveProvider(cfg, ProviderDeps{}, logger)
		if err != nil {
			return nil, err
		}
		provider = p
	}

	if logger != nil {
		logger.Infof("✅ MPC 签名器已创建: provider=%s", provider.Name())
	}

	return &Signer{
		Signer:   base.New(types.SignerTypeMPC),
		provider: provider,
		logger:   logger,
	}, nil
}

// ProviderDeps 远端托管方的可选协作者
type ProviderDeps struct {
	HTTPClient *http.Client // 为 nil 时使用默认客户端
	Clock      clock.Clock  // 令牌时间源，为 nil 时使用系统时钟
}

// ResolveProvider 将提供方描述解析为具体提供方
func ResolveProvider(cfg *signerconfig.MPCConfig, deps ProviderDeps, logger log.Logger) (signerif.Provider, error) {
	if cfg == nil || cfg.Provider == "" {
		return nil, types.NewSignerError(types.ErrorKindMissingProvider, "provider instance or descriptor is required", nil)
	}

	if strings.EqualFold(cfg.Provider, ProviderFireblocks) {
		custodian, err := signerconfig.CustodianConfigFromMap(cfg.Config)
		if err != nil {
			return nil, types.NewSignerError(types.ErrorKindMissingProvider, "invalid fireblocks config", err)
		}
		client, err := NewFireblocksClient(custodian, deps.HTTPClient, logger)
		if err != nil {
			return nil, err
		}
		provider, err := NewCustodianProvider(client.WithClock(deps.Clock), custodian, cfg.Poll, logger)
		if err != nil {
			return nil, err
		}
		return provider, nil
	}

	latency := time.Duration(cfg.SimulatedLatencyMs) * time.Millisecond
	return NewGenericProvider(cfg.Provider, latency), nil
}

// Provider 返回提供方
func (s *Signer) Provider() signerif.Provider {
	return s.provider
}

// Sign 对交易签名
func (s *Signer) Sign(ctx context.Context, req *types.SignRequest) (*types.SignResponse, error) {
	if err := base.CheckRequest(req); err != nil {
		return nil, err
	}
	if req.ChainType != types.ChainBTC && req.ChainType != types.ChainETH {
		return nil, types.NewSignerError(types.ErrorKindUnsupportedChain, req.ChainType.String(), nil)
	}

	signed, err := s.provider.Sign(ctx, req)
	if err != nil {
		if s.logger != nil {
			s.logger.Errorf("MPC 签名失败: provider=%s, chain=%s, err=%v", s.provider.Name(), req.ChainType, err)
		}
		return nil, err
	}

	if s.logger != nil {
		s.logger.Infof("✅ MPC 签名完成: provider=%s, chain=%s", s.provider.Name(), req.ChainType)
	}

	return &types.SignResponse{
		Signature:         signed,
		SignedTransaction: signed,
		SignerType:        types.SignerTypeMPC,
	}, nil
}
