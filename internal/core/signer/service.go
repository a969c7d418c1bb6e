package signer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/weisyn/txsigner/pkg/constants/events"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/log"
	signerif "github.com/weisyn/txsigner/pkg/interfaces/signer"
	"github.com/weisyn/txsigner/pkg/types"
)

// Service 签名服务
//
// 🎯 **职责**：按 id 在注册表中定位签名器并执行签名，
// 为每次调用分配关联 id，记录指标并发布签名事件。
// 事件与日志只包含元数据，不含交易内容与签名结果。
type Service struct {
	registry signerif.Registry
	metrics  *Metrics
	eventBus event.EventBus
	logger   log.Logger
}

// NewService 创建签名服务
func NewService(registry signerif.Registry, metrics *Metrics, eventBus event.EventBus, logger log.Logger) *Service {
	return &Service{
		registry: registry,
		metrics:  metrics,
		eventBus: eventBus,
		logger:   logger,
	}
}

// Registry 返回底层注册表
func (s *Service) Registry() signerif.Registry {
	return s.registry
}

// Sign 使用指定签名器对交易签名
//
// 返回：
//   - *types.SignResponse: 签名结果
//   - error: SignerNotFound，或签名器返回的带类别错误
func (s *Service) Sign(ctx context.Context, signerID string, req *types.SignRequest) (*types.SignResponse, error) {
	sgn, ok := s.registry.Get(signerID)
	if !ok {
		return nil, types.Errorf(types.ErrorKindSignerNotFound, "signer %q not found", signerID)
	}

	correlationID := uuid.NewString()
	var chain types.ChainType
	if req != nil {
		chain = req.ChainType
	}

	logger := s.logger
	if logger != nil {
		logger = logger.With("correlation_id", correlationID, "signer_id", signerID)
		logger.Debugf("开始签名: type=%s, chain=%s", sgn.GetSignerType(), chain)
	}

	start := time.Now()
	resp, err := sgn.Sign(ctx, req)
	elapsed := time.Since(start)

	s.metrics.Observe(sgn.GetSignerType(), chain, err, elapsed)
	publishSignEvent(s.eventBus, &events.SignEvent{
		CorrelationID: correlationID,
		SignerID:      signerID,
		SignerType:    sgn.GetSignerType(),
		ChainType:     chain,
		Duration:      elapsed,
		ErrorKind:     types.ErrorKindOf(err),
	}, err)

	if err != nil {
		if logger != nil {
			logger.Warnf("签名失败: kind=%s, 耗时=%s, err=%v", resultLabel(err), elapsed, err)
		}
		return nil, err
	}

	if logger != nil {
		logger.Infof("✅ 签名完成: type=%s, chain=%s, 耗时=%s", sgn.GetSignerType(), chain, elapsed)
	}
	return resp, nil
}

// ListSigners 按注册顺序列出签名器，filter 非空时只返回该类型
//
// filter 不是合法签名器类型时返回 InvalidRequest。
func (s *Service) ListSigners(filter string) ([]types.SignerInfo, error) {
	all := s.registry.List()
	if filter == "" {
		return all, nil
	}

	t, ok := types.ParseSignerType(filter)
	if !ok {
		return nil, types.Errorf(types.ErrorKindInvalidRequest, "unknown signer type %q", filter)
	}
	matched := make([]types.SignerInfo, 0, len(all))
	for _, info := range all {
		if info.Type == t {
			matched = append(matched, info)
		}
	}
	return matched, nil
}
