package signer

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	signerconfig "github.com/weisyn/txsigner/internal/config/signer"
	"github.com/weisyn/txsigner/internal/core/signer/hsm"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/log"
	signerif "github.com/weisyn/txsigner/pkg/interfaces/signer"
)

// ============================================================================
//                              模块输入依赖
// ============================================================================

// ModuleInput 定义 signer 模块的输入依赖
type ModuleInput struct {
	fx.In

	Lifecycle fx.Lifecycle

	Options    *signerconfig.SignerOptions `optional:"true"` // 签名器配置
	Logger     log.Logger                  `optional:"true"` // 日志记录器
	EventBus   event.EventBus              `optional:"true"` // 事件总线
	Clock      clock.Clock                 `optional:"true"` // 托管方令牌时间源
	Registerer prometheus.Registerer       `optional:"true"` // 指标注册器（缺省使用全局注册器）

	// 嵌入方可注入的外部协作者
	HSMClient hsm.SigningClient `optional:"true"`
	Provider  signerif.Provider `optional:"true"`
}

// ============================================================================
//                              模块输出服务
// ============================================================================

// ModuleOutput 定义 signer 模块的输出服务
type ModuleOutput struct {
	fx.Out

	Registry signerif.Registry
	Service  *Service
	Metrics  *Metrics
}

// ProvideServices 构建注册表与签名服务
func ProvideServices(input ModuleInput) (ModuleOutput, error) {
	var logger log.Logger
	if input.Logger != nil {
		logger = input.Logger.With("module", "signer")
	}

	registerer := input.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	metrics, err := NewMetrics(registerer)
	if err != nil {
		return ModuleOutput{}, err
	}

	registry, err := BuildRegistry(input.Options, Dependencies{
		HSMClient: input.HSMClient,
		Provider:  input.Provider,
		Clock:     input.Clock,
		Logger:    logger,
	}, input.EventBus)
	if err != nil {
		return ModuleOutput{}, err
	}

	input.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error {
			if logger != nil {
				logger.Info("关闭签名器注册表")
			}
			return registry.Close()
		},
	})

	return ModuleOutput{
		Registry: registry,
		Service:  NewService(registry, metrics, input.EventBus, logger),
		Metrics:  metrics,
	}, nil
}

// Module 返回 signer 模块的 fx 配置
func Module() fx.Option {
	return fx.Module("signer",
		fx.Provide(ProvideServices),
	)
}
