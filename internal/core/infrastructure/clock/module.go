package clock

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	clockconfig "github.com/weisyn/txsigner/internal/config/clock"
	infraClock "github.com/weisyn/txsigner/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/log"
)

// ModuleInput 时钟模块输入依赖
type ModuleInput struct {
	fx.In

	Options    *clockconfig.ClockOptions `optional:"true"`
	Registerer prometheus.Registerer     `optional:"true"`
	Logger     log.Logger                `optional:"true"`
}

// ProvideClock 按配置创建时间源
//
// 未配置 NTP 服务器时返回系统时钟。
func ProvideClock(input ModuleInput) (infraClock.Clock, error) {
	cfg := clockconfig.New(input.Options)
	if cfg.NTPServer() == "" {
		return NewSystemClock(), nil
	}

	c := NewNTPClock(cfg.NTPServer(), cfg.SyncInterval(), cfg.UnhealthyThreshold())
	if input.Logger != nil {
		healthy, offset, _, err := c.Health()
		if healthy {
			input.Logger.Infof("✅ NTP 时钟已同步: server=%s, offset=%s", cfg.NTPServer(), offset)
		} else {
			input.Logger.Warnf("⚠️ NTP 时钟不健康，暂用本地时间: server=%s, offset=%s, err=%v", cfg.NTPServer(), offset, err)
		}
	}

	registerer := input.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if err := RegisterNTPMetrics(registerer, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Module 返回时钟模块
func Module() fx.Option {
	return fx.Module("clock",
		fx.Provide(ProvideClock),
	)
}
