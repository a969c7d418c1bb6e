//go:build !android && !ios && cgo
// +build !android,!ios,cgo

package hsm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/miekg/pkcs11"

	signerconfig "github.com/weisyn/txsigner/internal/config/signer"
	"github.com/weisyn/txsigner/internal/core/signer/base"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/log"
)

// PKCS11Client 基于 PKCS#11 的签名端点客户端
//
// 🔒 **安全保证**：私钥存储在 HSM 设备中，签名操作在硬件内部完成
type PKCS11Client struct {
	pctx *pkcs11Context
	pool *SessionPool

	mu   sync.Mutex
	keys map[string]pkcs11.ObjectHandle // keyId → 私钥句柄

	logger log.Logger
}

// NewPKCS11Client 加载 PKCS#11 库并创建 Session 池
func NewPKCS11Client(cfg *signerconfig.HSMConfig, logger log.Logger) (*PKCS11Client, error) {
	if cfg == nil || cfg.LibraryPath == "" {
		return nil, fmt.Errorf("PKCS#11库路径不能为空，HSM签名器需要真实的硬件支持")
	}

	pctx, err := newPKCS11Context(cfg.LibraryPath, cfg.Region, logger)
	if err != nil {
		return nil, fmt.Errorf("PKCS#11初始化失败: %w", err)
	}

	pool, err := NewSessionPool(pctx, &SessionPoolConfig{
		MaxSize:         cfg.SessionPoolSize,
		PIN:             cfg.UserPIN(),
		CleanupInterval: 5 * time.Minute,
	}, logger)
	if err != nil {
		_ = pctx.Finalize()
		return nil, fmt.Errorf("创建Session池失败: %w", err)
	}

	return &PKCS11Client{
		pctx:   pctx,
		pool:   pool,
		keys:   make(map[string]pkcs11.ObjectHandle),
		logger: logger,
	}, nil
}

// Sign 实现 SigningClient
//
// 摘要已由编解码器计算，使用 CKM_ECDSA 直接对摘要签名，返回 r||s。
func (c *PKCS11Client) Sign(ctx context.Context, keyID string, digest []byte, alg SigningAlgorithm) ([]byte, error) {
	mechanism, err := mechanismFor(alg)
	if err != nil {
		return nil, err
	}

	session, err := c.pool.AcquireSession(ctx)
	if err != nil {
		return nil, err
	}

	handle, err := c.keyHandle(session, keyID)
	if err != nil {
		c.pool.ReleaseSession(session)
		return nil, err
	}

	signature, err := c.pctx.SignData(session, handle, digest, mechanism)
	if err != nil {
		c.pool.DiscardSession(session)
		return nil, fmt.Errorf("HSM签名失败: %w", err)
	}
	c.pool.ReleaseSession(session)

	if c.logger != nil {
		c.logger.Debugf("PKCS#11 签名完成: keyId=%s, 签名%d字节", base.MaskKeyID(keyID), len(signature))
	}
	return signature, nil
}

// keyHandle 查找并缓存私钥句柄
func (c *PKCS11Client) keyHandle(session pkcs11.SessionHandle, keyID string) (pkcs11.ObjectHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if h, ok := c.keys[keyID]; ok {
		return h, nil
	}
	h, err := c.pctx.FindKeyByLabel(session, keyID)
	if err != nil {
		return 0, fmt.Errorf("查找密钥失败（keyId=%s）: %w", base.MaskKeyID(keyID), err)
	}
	c.keys[keyID] = h
	return h, nil
}

// Close 关闭 Session 池并释放 PKCS#11 库
func (c *PKCS11Client) Close() error {
	if err := c.pool.Close(); err != nil {
		return err
	}
	return c.pctx.Finalize()
}

// mechanismFor 签名算法 → PKCS#11 机制
func mechanismFor(alg SigningAlgorithm) (uint, error) {
	switch alg {
	case AlgorithmECDSASHA256:
		return pkcs11.CKM_ECDSA, nil
	default:
		return 0, fmt.Errorf("不支持的签名算法: %s", alg)
	}
}
