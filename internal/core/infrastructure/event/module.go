// Package event 提供事件管理功能
package event

import (
	"go.uber.org/fx"

	eventconfig "github.com/weisyn/txsigner/internal/config/event"
	eventInterface "github.com/weisyn/txsigner/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/log"
)

// ModuleInput 事件模块输入依赖
type ModuleInput struct {
	fx.In

	Options *eventconfig.EventOptions `optional:"true"` // 事件配置（可选）
	Logger  log.Logger                `optional:"true"` // 日志记录器（可选）
}

// ModuleOutput 事件模块输出服务
type ModuleOutput struct {
	fx.Out

	EventBus eventInterface.EventBus // 基础事件总线
}

// Module 返回事件模块
func Module() fx.Option {
	return fx.Module("event",
		fx.Provide(
			func(input ModuleInput) ModuleOutput {
				cfg := eventconfig.New(input.Options)
				if input.Logger != nil {
					input.Logger.Infof("✅ 事件总线初始化完成 (enabled=%v)", cfg.IsEnabled())
				}
				return ModuleOutput{EventBus: New(cfg)}
			},
		),
	)
}
