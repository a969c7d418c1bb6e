// Package config 提供应用配置管理功能
//
// 配置来源优先级：环境变量（TXSIGNER_ 前缀）> 配置文件（JSON/YAML）> 默认值。
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	apiconfig "github.com/weisyn/txsigner/internal/config/api"
	clockconfig "github.com/weisyn/txsigner/internal/config/clock"
	eventconfig "github.com/weisyn/txsigner/internal/config/event"
	logconfig "github.com/weisyn/txsigner/internal/config/log"
	signerconfig "github.com/weisyn/txsigner/internal/config/signer"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "TXSIGNER"

// AppConfig 应用配置
type AppConfig struct {
	Log     *logconfig.LogOptions      `json:"log,omitempty" mapstructure:"log"`
	API     *apiconfig.APIOptions      `json:"api,omitempty" mapstructure:"api"`
	Event   *eventconfig.EventOptions  `json:"event,omitempty" mapstructure:"event"`
	Clock   *clockconfig.ClockOptions  `json:"clock,omitempty" mapstructure:"clock"`
	Signers []signerconfig.SignerEntry `json:"signers" mapstructure:"signers" validate:"dive"`
}

// boundEnvKeys 可直接由环境变量覆盖的标量配置项
var boundEnvKeys = []string{
	"log.level",
	"log.file_path",
	"api.host",
	"api.port",
	"api.sign_timeout_ms",
	"event.enabled",
	"clock.ntp_server",
}

// Load 加载配置
//
// 参数：
//   - path: 配置文件路径，为空时只使用环境变量与默认值
//
// 返回：
//   - *AppConfig: 已补齐默认值并通过校验的配置
//   - error: 读取、解析或校验失败
func Load(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range boundEnvKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("绑定环境变量 %s 失败: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败 %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	signerconfig.ApplyDefaults(&signerconfig.SignerOptions{Signers: cfg.Signers})

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
