package signer

import (
	"os"
	"time"
)

// 默认值
const (
	// DefaultPollIntervalMs 轮询间隔
	DefaultPollIntervalMs = 1000
	// DefaultPollMaxAttempts 最大轮询次数
	DefaultPollMaxAttempts = 30
	// DefaultHSMSessionPoolSize PKCS#11 Session池大小
	DefaultHSMSessionPoolSize = 10
	// DefaultHSMSignTimeoutMs 单次 HSM 签名超时
	DefaultHSMSignTimeoutMs = 5000
	// DefaultSimulatedLatencyMs 通用提供方模拟延迟
	DefaultSimulatedLatencyMs = 150
	// DefaultCustodianBasePath 托管方沙箱地址
	DefaultCustodianBasePath = "https://sandbox-api.fireblocks.io/v1"
)

// 环境变量名
const (
	EnvPrivateKey              = "TXSIGNER_PRIVATE_KEY"
	EnvHSMKeyID                = "TXSIGNER_HSM_KEY_ID"
	EnvHSMRegion               = "TXSIGNER_HSM_REGION"
	EnvHSMLibraryPath          = "TXSIGNER_HSM_LIBRARY_PATH"
	EnvHSMPIN                  = "TXSIGNER_HSM_PIN"
	EnvCustodianAPIKey         = "TXSIGNER_CUSTODIAN_API_KEY"
	EnvCustodianSecretKey      = "TXSIGNER_CUSTODIAN_SECRET_KEY"
	EnvCustodianVaultAccountID = "TXSIGNER_CUSTODIAN_VAULT_ACCOUNT_ID"
	EnvCustodianBasePath       = "TXSIGNER_CUSTODIAN_BASE_PATH"
)

// DefaultPollConfig 获取默认轮询配置
func DefaultPollConfig() PollConfig {
	return PollConfig{
		IntervalMs:  DefaultPollIntervalMs,
		MaxAttempts: DefaultPollMaxAttempts,
	}
}

// ApplyDefaults 为每个条目补齐默认值并应用环境变量覆盖
//
// 环境变量只填充配置文件中为空的字段。
func ApplyDefaults(opts *SignerOptions) {
	if opts == nil {
		return
	}
	for i := range opts.Signers {
		applyEntryDefaults(&opts.Signers[i])
	}
}

func applyEntryDefaults(e *SignerEntry) {
	switch e.Type {
	case "direct_key":
		if e.DirectKey == nil {
			e.DirectKey = &DirectKeyConfig{}
		}
		setIfEmpty(&e.DirectKey.PrivateKey, os.Getenv(EnvPrivateKey))
		setIfEmpty(&e.DirectKey.Environment, getEnvironment())
	case "hsm":
		if e.HSM == nil {
			e.HSM = &HSMConfig{}
		}
		setIfEmpty(&e.HSM.KeyID, os.Getenv(EnvHSMKeyID))
		setIfEmpty(&e.HSM.Region, os.Getenv(EnvHSMRegion))
		setIfEmpty(&e.HSM.LibraryPath, os.Getenv(EnvHSMLibraryPath))
		setIfEmpty(&e.HSM.PIN, os.Getenv(EnvHSMPIN))
		if e.HSM.SessionPoolSize == 0 {
			e.HSM.SessionPoolSize = DefaultHSMSessionPoolSize
		}
		if e.HSM.SignTimeoutMs == 0 {
			e.HSM.SignTimeoutMs = DefaultHSMSignTimeoutMs
		}
	case "mpc":
		if e.MPC == nil {
			e.MPC = &MPCConfig{}
		}
		if e.MPC.Poll.IntervalMs == 0 {
			e.MPC.Poll.IntervalMs = DefaultPollIntervalMs
		}
		if e.MPC.Poll.MaxAttempts == 0 {
			e.MPC.Poll.MaxAttempts = DefaultPollMaxAttempts
		}
		if e.MPC.SimulatedLatencyMs == 0 {
			e.MPC.SimulatedLatencyMs = DefaultSimulatedLatencyMs
		}
		if e.MPC.Provider == "fireblocks" {
			if e.MPC.Config == nil {
				e.MPC.Config = map[string]interface{}{}
			}
			setMapIfEmpty(e.MPC.Config, os.Getenv(EnvCustodianAPIKey), "apiKey", "api_key", "apikey")
			setMapIfEmpty(e.MPC.Config, os.Getenv(EnvCustodianSecretKey), "secretKey", "secret_key", "secretkey")
			setMapIfEmpty(e.MPC.Config, os.Getenv(EnvCustodianVaultAccountID), "vaultAccountId", "vault_account_id", "vaultaccountid")
			setMapIfEmpty(e.MPC.Config, os.Getenv(EnvCustodianBasePath), "basePath", "base_path", "basepath")
		}
	}
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

// setMapIfEmpty 所有键名变体均为空时以 keys[0] 写入 v
func setMapIfEmpty(m map[string]interface{}, v string, keys ...string) {
	if v == "" {
		return
	}
	for _, k := range keys {
		if cur, ok := m[k].(string); ok && cur != "" {
			return
		}
	}
	m[keys[0]] = v
}

// getEnvironment 获取环境标识
//
// 优先级：
// 1. 环境变量 ENV
// 2. 环境变量 ENVIRONMENT
// 3. 默认值 "development"
func getEnvironment() string {
	if envVar := os.Getenv("ENV"); envVar != "" {
		return envVar
	}
	if envVar := os.Getenv("ENVIRONMENT"); envVar != "" {
		return envVar
	}
	return "development"
}

// DefaultSignTimeout 获取默认签名超时
func DefaultSignTimeout() time.Duration {
	return DefaultHSMSignTimeoutMs * time.Millisecond
}
