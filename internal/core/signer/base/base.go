// Package base 提供各签名后端共享的请求校验与类型标识
package base

import (
	"github.com/weisyn/txsigner/pkg/types"
)

// Signer 签名后端公共部分，由具体后端嵌入
type Signer struct {
	signerType types.SignerType
}

// New 创建公共部分
func New(signerType types.SignerType) Signer {
	return Signer{signerType: signerType}
}

// ValidateRequest 结构校验：transaction 与 chainType 均非空
func (b Signer) ValidateRequest(req *types.SignRequest) bool {
	return ValidateRequest(req)
}

// GetSignerType 返回签名器类型
func (b Signer) GetSignerType() types.SignerType {
	return b.signerType
}

// ValidateRequest 结构校验，不涉及链支持与编码
func ValidateRequest(req *types.SignRequest) bool {
	return req != nil && req.Transaction != "" && req.ChainType != ""
}

// CheckRequest 在任何链相关或网络操作之前执行，失败时返回 InvalidRequest
func CheckRequest(req *types.SignRequest) error {
	if ValidateRequest(req) {
		return nil
	}
	if req == nil {
		return types.NewSignerError(types.ErrorKindInvalidRequest, "request is nil", nil)
	}
	return types.NewSignerError(types.ErrorKindInvalidRequest, "transaction and chainType are required", nil)
}

// MaskKeyID 对密钥标识做掩码处理，用于日志
func MaskKeyID(keyID string) string {
	if len(keyID) <= 8 {
		return "****"
	}
	return keyID[:4] + "****" + keyID[len(keyID)-4:]
}
