package config

import (
	"go.uber.org/fx"

	apiconfig "github.com/weisyn/txsigner/internal/config/api"
	clockconfig "github.com/weisyn/txsigner/internal/config/clock"
	eventconfig "github.com/weisyn/txsigner/internal/config/event"
	logconfig "github.com/weisyn/txsigner/internal/config/log"
	signerconfig "github.com/weisyn/txsigner/internal/config/signer"
)

// Module 返回配置模块
//
// 依赖 *AppConfig（由 cmd 通过 fx.Supply 提供），向各模块提供具体的配置类型。
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			NewProvider,
			func(p *Provider) *logconfig.LogOptions { return p.GetLog() },
			func(p *Provider) *apiconfig.APIOptions { return p.GetAPI() },
			func(p *Provider) *eventconfig.EventOptions { return p.GetEvent() },
			func(p *Provider) *clockconfig.ClockOptions { return p.GetClock() },
			func(p *Provider) *signerconfig.SignerOptions { return p.GetSigner() },
		),
	)
}
