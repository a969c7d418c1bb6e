package config

import (
	apiconfig "github.com/weisyn/txsigner/internal/config/api"
	clockconfig "github.com/weisyn/txsigner/internal/config/clock"
	eventconfig "github.com/weisyn/txsigner/internal/config/event"
	logconfig "github.com/weisyn/txsigner/internal/config/log"
	signerconfig "github.com/weisyn/txsigner/internal/config/signer"
)

// Provider 配置提供者
//
// 为各模块提供各自的配置选项；缺失的配置块返回 nil，由模块使用默认值。
type Provider struct {
	appConfig *AppConfig
}

// NewProvider 创建配置提供者
func NewProvider(appConfig *AppConfig) *Provider {
	if appConfig == nil {
		appConfig = &AppConfig{}
	}
	return &Provider{appConfig: appConfig}
}

// GetLog 获取日志配置
func (p *Provider) GetLog() *logconfig.LogOptions {
	return p.appConfig.Log
}

// GetAPI 获取API配置
func (p *Provider) GetAPI() *apiconfig.APIOptions {
	return p.appConfig.API
}

// GetEvent 获取事件配置
func (p *Provider) GetEvent() *eventconfig.EventOptions {
	return p.appConfig.Event
}

// GetClock 获取时间源配置
func (p *Provider) GetClock() *clockconfig.ClockOptions {
	return p.appConfig.Clock
}

// GetSigner 获取签名器配置
func (p *Provider) GetSigner() *signerconfig.SignerOptions {
	return &signerconfig.SignerOptions{Signers: p.appConfig.Signers}
}
