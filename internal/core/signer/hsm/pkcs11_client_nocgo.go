//go:build android || ios || !cgo
// +build android ios !cgo

package hsm

import (
	"context"
	"fmt"

	signerconfig "github.com/weisyn/txsigner/internal/config/signer"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/log"
)

// PKCS11Client 在不支持 CGO 的平台上不可用
type PKCS11Client struct{}

// NewPKCS11Client 返回错误：PKCS#11 需要 CGO
func NewPKCS11Client(*signerconfig.HSMConfig, log.Logger) (*PKCS11Client, error) {
	return nil, fmt.Errorf("PKCS#11客户端需要CGO支持")
}

// Sign 实现 SigningClient
func (c *PKCS11Client) Sign(context.Context, string, []byte, SigningAlgorithm) ([]byte, error) {
	return nil, fmt.Errorf("PKCS#11客户端需要CGO支持")
}

// Close 无操作
func (c *PKCS11Client) Close() error { return nil }
