// Package signer provides port interfaces for transaction signing.
package signer

import (
	"context"

	"github.com/weisyn/txsigner/pkg/types"
)

// ================================================================================================
// ✍️ Signer（签名服务端口）
// ================================================================================================

// Signer 签名器接口
//
// 🎯 **核心职责**：对链上交易进行数字签名，调用方无需关心密钥实际存放位置
//
// 🔌 **适配器实现**：
// 1. direct.Signer: 进程内持有私钥，同步签名
// 2. hsm.Signer: 将摘要发送到远端签名端点，同步等待签名结果
// 3. mpc.Signer: 委托给 Provider，远端托管方异步签名并轮询结果
//
// ⚠️ **核心约束**：
// - Sign 必须先执行 ValidateRequest，失败时返回 InvalidRequest，且不做任何链相关或网络操作
// - Sign 不得修改签名器实例状态
// - GetSignerType 在实例生命周期内恒定
type Signer interface {
	// Sign 对请求中的交易签名
	//
	// 返回：
	//   - *types.SignResponse: 签名结果
	//   - error: 带类别的签名错误（*types.SignerError）
	Sign(ctx context.Context, req *types.SignRequest) (*types.SignResponse, error)

	// ValidateRequest 结构校验：transaction 与 chainType 均非空时为 true
	//
	// 不做链支持、编码或密码学校验。
	ValidateRequest(req *types.SignRequest) bool

	// GetSignerType 返回签名器类型
	GetSignerType() types.SignerType
}

// ================================================================================================
// 🏦 Provider（MPC 签名提供方端口）
// ================================================================================================

// Provider MPC 签名提供方
//
// 提供方负责完整的远端签名流程，直接返回已签名交易的十六进制编码。
type Provider interface {
	// Sign 提交签名任务并返回已签名交易
	Sign(ctx context.Context, req *types.SignRequest) (string, error)

	// Name 提供方名称
	Name() string
}

// ================================================================================================
// 📒 Registry（签名器目录端口）
// ================================================================================================

// Registry 签名器目录
//
// 并发安全；id 在任意时刻唯一，重复注册返回 DuplicateId 且不覆盖已有条目。
type Registry interface {
	Register(id string, s Signer) error
	Get(id string) (Signer, bool)
	Remove(id string) bool
	List() []types.SignerInfo
	FindByType(t types.SignerType) []Signer
	Size() int
	Clear()
}
