package http

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	apiconfig "github.com/weisyn/txsigner/internal/config/api"
	"github.com/weisyn/txsigner/internal/core/signer"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/log"
	signerif "github.com/weisyn/txsigner/pkg/interfaces/signer"
)

// ModuleInput HTTP 模块输入依赖
type ModuleInput struct {
	fx.In

	Lifecycle fx.Lifecycle
	Service   *signer.Service
	Registry  signerif.Registry

	Options    *apiconfig.APIOptions `optional:"true"`
	Logger     log.Logger            `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
	Gatherer   prometheus.Gatherer   `optional:"true"`
	Clock      clock.Clock           `optional:"true"`
	Version    string                `name:"version" optional:"true"`
}

// ProvideServer 创建服务器并挂接生命周期
//
// 配置关闭 HTTP 时仍返回服务器实例，但不监听端口。
func ProvideServer(input ModuleInput) (*Server, error) {
	cfg := apiconfig.New(input.Options)

	var logger log.Logger
	if input.Logger != nil {
		logger = input.Logger.With("module", "http")
	}

	registerer := input.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	server, err := NewServer(cfg, ServerDeps{
		Service:    input.Service,
		Registry:   input.Registry,
		Registerer: registerer,
		Gatherer:   input.Gatherer,
		Clock:      input.Clock,
		Version:    input.Version,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	if !cfg.IsEnabled() {
		if logger != nil {
			logger.Info("HTTP API 在配置中被禁用")
		}
		return server, nil
	}

	input.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return server.Start()
		},
		OnStop: func(ctx context.Context) error {
			return server.Stop(ctx)
		},
	})
	return server, nil
}

// Module 返回 HTTP 模块
func Module() fx.Option {
	return fx.Module("http",
		fx.Provide(ProvideServer),
		fx.Invoke(func(*Server) {}),
	)
}
