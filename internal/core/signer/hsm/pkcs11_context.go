//go:build !android && !ios && cgo
// +build !android,!ios,cgo

// pkcs11_context.go: PKCS#11 CGO 封装
//
// ⚠️ **构建标签**：需要 CGO 支持，排除 Android/iOS 平台
//
// 🎯 **核心职责**：封装 PKCS#11 C API，提供 Go 友好的接口
//
// 💡 **映射关系**：
// - region → token label（选择 slot）
// - keyId  → 私钥对象的 CKA_LABEL
package hsm

import (
	"fmt"
	"strings"

	"github.com/miekg/pkcs11"

	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/log"
)

// pkcs11Context PKCS#11 上下文封装
type pkcs11Context struct {
	ctx    *pkcs11.Ctx
	slotID uint
	logger log.Logger
}

// newPKCS11Context 加载 PKCS#11 库并选择 token label 与 tokenLabel 匹配的 slot
//
// 未找到匹配的 token 时回退到第一个可用 slot 并告警。
func newPKCS11Context(libraryPath, tokenLabel string, logger log.Logger) (*pkcs11Context, error) {
	if libraryPath == "" {
		return nil, fmt.Errorf("PKCS#11库路径不能为空")
	}

	// 1. 加载 PKCS#11 库
	ctx := pkcs11.New(libraryPath)
	if ctx == nil {
		return nil, fmt.Errorf("无法加载PKCS#11库: %s", libraryPath)
	}

	// 2. 初始化库
	if err := ctx.Initialize(); err != nil {
		ctx.Destroy()
		return nil, fmt.Errorf("PKCS#11初始化失败: %w", err)
	}

	// 3. 获取 Slot 列表（仅获取有 token 的 slot）
	slots, err := ctx.GetSlotList(true)
	if err != nil {
		ctx.Finalize()
		ctx.Destroy()
		return nil, fmt.Errorf("获取Slot列表失败: %w", err)
	}
	if len(slots) == 0 {
		ctx.Finalize()
		ctx.Destroy()
		return nil, fmt.Errorf("未找到可用的HSM Slot")
	}

	slotID := slots[0]
	matched := false
	for _, slot := range slots {
		info, err := ctx.GetTokenInfo(slot)
		if err != nil {
			continue
		}
		if strings.TrimSpace(info.Label) == tokenLabel {
			slotID = slot
			matched = true
			break
		}
	}
	if !matched && logger != nil {
		logger.Warnf("⚠️ 未找到 token label 为 %s 的 Slot，使用第一个可用 Slot: %d", tokenLabel, slotID)
	}

	if logger != nil {
		logger.Infof("✅ PKCS#11上下文初始化成功，库路径: %s, Slot ID: %d", libraryPath, slotID)
	}

	return &pkcs11Context{
		ctx:    ctx,
		slotID: slotID,
		logger: logger,
	}, nil
}

// FindKeyByLabel 根据标签查找私钥对象句柄
func (c *pkcs11Context) FindKeyByLabel(session pkcs11.SessionHandle, label string) (pkcs11.ObjectHandle, error) {
	template := []*pkcs11.Attribute{
		pkcs11.NewAttribute(pkcs11.CKA_CLASS, pkcs11.CKO_PRIVATE_KEY),
		pkcs11.NewAttribute(pkcs11.CKA_LABEL, label),
	}

	if err := c.ctx.FindObjectsInit(session, template); err != nil {
		return 0, fmt.Errorf("FindObjectsInit失败: %w", err)
	}
	defer c.ctx.FindObjectsFinal(session)

	handles, _, err := c.ctx.FindObjects(session, 1)
	if err != nil {
		return 0, fmt.Errorf("FindObjects失败: %w", err)
	}
	if len(handles) == 0 {
		return 0, fmt.Errorf("未找到指定标签的密钥")
	}
	return handles[0], nil
}

// SignData 使用 HSM 对已哈希的摘要签名
func (c *pkcs11Context) SignData(
	session pkcs11.SessionHandle,
	keyHandle pkcs11.ObjectHandle,
	digest []byte,
	mechanism uint,
) ([]byte, error) {
	mech := []*pkcs11.Mechanism{pkcs11.NewMechanism(mechanism, nil)}
	if err := c.ctx.SignInit(session, mech, keyHandle); err != nil {
		return nil, fmt.Errorf("SignInit失败: %w", err)
	}
	signature, err := c.ctx.Sign(session, digest)
	if err != nil {
		return nil, fmt.Errorf("Sign失败: %w", err)
	}
	return signature, nil
}

// OpenSession 打开读写串行 Session
func (c *pkcs11Context) OpenSession() (pkcs11.SessionHandle, error) {
	session, err := c.ctx.OpenSession(c.slotID, pkcs11.CKF_SERIAL_SESSION|pkcs11.CKF_RW_SESSION)
	if err != nil {
		return 0, fmt.Errorf("OpenSession失败: %w", err)
	}
	return session, nil
}

// Login 以用户身份登录；token 已登录时视为成功
func (c *pkcs11Context) Login(session pkcs11.SessionHandle, pin string) error {
	err := c.ctx.Login(session, pkcs11.CKU_USER, pin)
	if perr, ok := err.(pkcs11.Error); ok && perr == pkcs11.CKR_USER_ALREADY_LOGGED_IN {
		return nil
	}
	if err != nil {
		return fmt.Errorf("Login失败: %w", err)
	}
	return nil
}

// CloseSession 关闭 Session
func (c *pkcs11Context) CloseSession(session pkcs11.SessionHandle) error {
	return c.ctx.CloseSession(session)
}

// SessionValid 检查 Session 是否仍然有效
func (c *pkcs11Context) SessionValid(session pkcs11.SessionHandle) bool {
	info, err := c.ctx.GetSessionInfo(session)
	if err != nil {
		return false
	}
	return info.State != 0
}

// Finalize 清理 PKCS#11 上下文
func (c *pkcs11Context) Finalize() error {
	if c.ctx == nil {
		return nil
	}
	err := c.ctx.Finalize()
	c.ctx.Destroy()
	c.ctx = nil
	return err
}
