package signer

import (
	"fmt"
	"time"
)

// SignerOptions 签名器配置选项
//
// 🎯 **配置职责**：描述需要构建并注册到目录中的全部签名器
//
// 📋 **配置分类**：
// - 用户配置：私钥、HSM 密钥标识、托管方凭证（用户必须提供，可由环境变量覆盖）
// - 内部配置：轮询间隔、尝试次数、超时（有默认值）
type SignerOptions struct {
	Signers []SignerEntry `json:"signers" mapstructure:"signers" validate:"dive"`
}

// SignerEntry 单个签名器配置
//
// 按 Type 选择对应的后端配置块，其他块被忽略。
type SignerEntry struct {
	ID   string `json:"id" mapstructure:"id" validate:"required"`
	Type string `json:"type" mapstructure:"type" validate:"required,oneof=direct_key hsm mpc"`

	DirectKey *DirectKeyConfig `json:"direct_key,omitempty" mapstructure:"direct_key"`
	HSM       *HSMConfig       `json:"hsm,omitempty" mapstructure:"hsm"`
	MPC       *MPCConfig       `json:"mpc,omitempty" mapstructure:"mpc"`
}

// DirectKeyConfig 本地私钥签名器配置
//
// ⚠️ **安全警告**：私钥以明文十六进制存放于进程内存，生产环境应使用 HSM 或 MPC
type DirectKeyConfig struct {
	// 私钥（64 位十六进制，可带 0x 前缀）
	// 优先级：配置文件 > 环境变量 TXSIGNER_PRIVATE_KEY
	PrivateKey string `json:"private_key" mapstructure:"private_key"`

	// 环境标识（development, testing, production）
	Environment string `json:"environment" mapstructure:"environment"`
}

// HSMCredentials HSM 静态凭证（可选）
type HSMCredentials struct {
	AccessKeyID     string `json:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" mapstructure:"secret_access_key"`
	SessionToken    string `json:"session_token,omitempty" mapstructure:"session_token"`
}

// HSMConfig HSM签名器配置
type HSMConfig struct {
	// 密钥标识符（PKCS#11 中对应 CKA_LABEL）
	KeyID string `json:"key_id" mapstructure:"key_id"`

	// 区域（PKCS#11 中对应 token label，用于选择 slot）
	Region string `json:"region" mapstructure:"region"`

	// 可选静态凭证
	Credentials *HSMCredentials `json:"credentials,omitempty" mapstructure:"credentials"`

	// PKCS#11库路径
	LibraryPath string `json:"library_path" mapstructure:"library_path"`

	// 用户 PIN
	PIN string `json:"pin" mapstructure:"pin"`

	// Session池大小
	SessionPoolSize int `json:"session_pool_size" mapstructure:"session_pool_size" validate:"gte=0"`

	// 单次远端签名超时（毫秒）
	SignTimeoutMs int `json:"sign_timeout_ms" mapstructure:"sign_timeout_ms" validate:"gte=0"`
}

// UserPIN 返回 PKCS#11 用户登录 PIN
//
// 未配置 pin 时使用静态凭证组成 "<accessKeyId>:<secretAccessKey>"（CloudHSM 等设备的用户:口令格式）。
func (c *HSMConfig) UserPIN() string {
	if c == nil {
		return ""
	}
	if c.PIN != "" {
		return c.PIN
	}
	if c.Credentials == nil || c.Credentials.SecretAccessKey == "" {
		return ""
	}
	if c.Credentials.AccessKeyID == "" {
		return c.Credentials.SecretAccessKey
	}
	return c.Credentials.AccessKeyID + ":" + c.Credentials.SecretAccessKey
}

// MPCConfig MPC签名器配置
//
// Provider 为提供方类型："fireblocks" 对应远端托管方，其他任意字符串对应通用提供方（以该字符串为名称）。
type MPCConfig struct {
	Provider string                 `json:"provider" mapstructure:"provider"`
	Config   map[string]interface{} `json:"config,omitempty" mapstructure:"config"`

	// 轮询配置（仅远端托管方使用）
	Poll PollConfig `json:"poll" mapstructure:"poll"`

	// 通用提供方模拟延迟（毫秒）
	SimulatedLatencyMs int `json:"simulated_latency_ms" mapstructure:"simulated_latency_ms" validate:"gte=0"`
}

// PollConfig 异步签名轮询配置
type PollConfig struct {
	IntervalMs  int `json:"interval_ms" mapstructure:"interval_ms" validate:"gte=0"`   // 轮询间隔（毫秒）
	MaxAttempts int `json:"max_attempts" mapstructure:"max_attempts" validate:"gte=0"` // 最大轮询次数
	TimeoutMs   int `json:"timeout_ms" mapstructure:"timeout_ms" validate:"gte=0"`     // 整体超时（毫秒，0 表示只受次数限制）
}

// Interval 轮询间隔
func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMs) * time.Millisecond
}

// Timeout 整体超时
func (p PollConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

// CustodianConfig 远端托管方提供方配置
type CustodianConfig struct {
	APIKey         string `json:"apiKey" mapstructure:"apiKey"`
	SecretKey      string `json:"secretKey" mapstructure:"secretKey"` // RSA 私钥 PEM
	VaultAccountID string `json:"vaultAccountId" mapstructure:"vaultAccountId"`
	BasePath       string `json:"basePath,omitempty" mapstructure:"basePath"`
}

// Missing 返回缺失的必填字段名
func (c *CustodianConfig) Missing() []string {
	var missing []string
	if c.APIKey == "" {
		missing = append(missing, "apiKey")
	}
	if c.SecretKey == "" {
		missing = append(missing, "secretKey")
	}
	if c.VaultAccountID == "" {
		missing = append(missing, "vaultAccountId")
	}
	return missing
}

// CustodianConfigFromMap 从提供方描述的 config 映射中读取托管方配置
//
// 同时接受 camelCase 与 snake_case 键名；非字符串值视为类型错误。
func CustodianConfigFromMap(m map[string]interface{}) (*CustodianConfig, error) {
	cfg := &CustodianConfig{}
	fields := []struct {
		dst  *string
		keys []string
	}{
		{&cfg.APIKey, []string{"apiKey", "api_key", "apikey"}},
		{&cfg.SecretKey, []string{"secretKey", "secret_key", "secretkey"}},
		{&cfg.VaultAccountID, []string{"vaultAccountId", "vault_account_id", "vaultaccountid"}},
		{&cfg.BasePath, []string{"basePath", "base_path", "basepath"}},
	}
	for _, f := range fields {
		for _, k := range f.keys {
			v, ok := m[k]
			if !ok || v == nil {
				continue
			}
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("custodian config field %q must be a string, got %T", k, v)
			}
			if s == "" {
				continue
			}
			*f.dst = s
			break
		}
	}
	return cfg, nil
}
