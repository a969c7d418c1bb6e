package signer

import (
	"io"
	"net/http"

	signerconfig "github.com/weisyn/txsigner/internal/config/signer"
	"github.com/weisyn/txsigner/internal/core/signer/direct"
	"github.com/weisyn/txsigner/internal/core/signer/hsm"
	"github.com/weisyn/txsigner/internal/core/signer/mpc"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/log"
	signerif "github.com/weisyn/txsigner/pkg/interfaces/signer"
	"github.com/weisyn/txsigner/pkg/types"
)

// Dependencies 构造签名器时可注入的外部协作者
//
// 全部可选：未提供时由配置决定（HSM 使用 PKCS#11 库路径，MPC 解析提供方描述）。
type Dependencies struct {
	HSMClient  hsm.SigningClient // HSM 签名端点客户端
	Provider   signerif.Provider // MPC 提供方实例
	HTTPClient *http.Client      // 远端托管方 HTTP 客户端
	Clock      clock.Clock       // 托管方令牌时间源
	Logger     log.Logger
}

// NewSigner 按签名器类型构造后端
//
// 🎯 **唯一分派点**：类型集合封闭，未知类型返回 UnsupportedSignerType。
func NewSigner(entry signerconfig.SignerEntry, deps Dependencies) (signerif.Signer, error) {
	signerType, ok := types.ParseSignerType(entry.Type)
	if !ok {
		return nil, types.NewSignerError(types.ErrorKindUnsupportedSignerType, entry.Type, nil)
	}

	logger := deps.Logger
	if logger != nil && entry.ID != "" {
		logger = logger.With("signer_id", entry.ID)
	}

	switch signerType {
	case types.SignerTypeDirectKey:
		s, err := direct.New(entry.DirectKey, logger)
		if err != nil {
			return nil, err
		}
		return s, nil

	case types.SignerTypeHSM:
		return newHSMSigner(entry.HSM, deps.HSMClient, logger)

	case types.SignerTypeMPC:
		provider := deps.Provider
		if provider == nil {
			p, err := mpc.ResolveProvider(entry.MPC, mpc.ProviderDeps{HTTPClient: deps.HTTPClient, Clock: deps.Clock}, logger)
			if err != nil {
				return nil, err
			}
			provider = p
		}
		s, err := mpc.New(entry.MPC, provider, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	return nil, types.NewSignerError(types.ErrorKindUnsupportedSignerType, entry.Type, nil)
}

// newHSMSigner 未注入客户端时按库路径创建 PKCS#11 客户端
func newHSMSigner(cfg *signerconfig.HSMConfig, client hsm.SigningClient, logger log.Logger) (signerif.Signer, error) {
	if cfg == nil || cfg.KeyID == "" || cfg.Region == "" {
		return nil, types.NewSignerError(types.ErrorKindMissingHSMParams, "keyId and region are required", nil)
	}

	var owned *hsm.PKCS11Client
	if client == nil {
		if cfg.LibraryPath == "" {
			return nil, types.NewSignerError(types.ErrorKindMissingHSMParams, "library_path is required when no signing client is provided", nil)
		}
		c, err := hsm.NewPKCS11Client(cfg, logger)
		if err != nil {
			return nil, types.NewSignerError(types.ErrorKindMissingHSMParams, "PKCS#11 client unavailable", err)
		}
		owned = c
		client = c
	}

	var opts []hsm.Option
	if owned != nil {
		opts = append(opts, hsm.WithOwnedClient())
	}
	s, err := hsm.New(cfg, client, logger, opts...)
	if err != nil {
		if owned != nil {
			_ = owned.Close()
		}
		return nil, err
	}
	return s, nil
}

// newSigner 构造函数，测试中可替换
var newSigner = NewSigner

// closeSigner 关闭持有外部资源的签名器
func closeSigner(s signerif.Signer) {
	if closer, ok := s.(io.Closer); ok {
		_ = closer.Close()
	}
}

// BuildRegistry 构造配置中的全部签名器并按配置顺序注册
//
// 任一条目失败时关闭已构造的签名器并返回错误。
func BuildRegistry(opts *signerconfig.SignerOptions, deps Dependencies, eventBus event.EventBus) (*Registry, error) {
	registry := NewRegistry(eventBus, deps.Logger)
	if opts == nil {
		return registry, nil
	}

	for _, entry := range opts.Signers {
		s, err := newSigner(entry, deps)
		if err != nil {
			_ = registry.Close()
			return nil, wrapEntryError(entry.ID, err)
		}
		if err := registry.Register(entry.ID, s); err != nil {
			// 未注册的签名器不归注册表管理，需单独关闭
			closeSigner(s)
			_ = registry.Close()
			return nil, err
		}
	}

	if deps.Logger != nil {
		deps.Logger.Infof("✅ 签名器注册表构建完成: %d 个签名器", registry.Size())
	}
	return registry, nil
}

// wrapEntryError 在错误详情前附加条目 id，保持错误类别不变
func wrapEntryError(id string, err error) error {
	se, ok := types.IsSignerError(err)
	if !ok {
		return err
	}
	detail := "signer " + id
	if se.Detail != "" {
		detail += ": " + se.Detail
	}
	return types.NewSignerError(se.Kind, detail, se.Cause)
}
