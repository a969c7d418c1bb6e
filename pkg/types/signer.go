// Package types 定义交易签名相关的公共数据类型
//
// 📋 **签名数据模型**
//
// 本文件定义签名请求/响应、签名器类型与链类型：
// - SignRequest：待签名交易（十六进制）+ 链类型 + 可选参数
// - SignResponse：签名结果，由签名器在一次成功签名后产出
// - SignerType：封闭集合 {direct_key, hsm, mpc}
// - ChainType：开放字符串，编解码器仅识别 BTC / ETH
package types

import "strings"

// SignerType 签名器类型
type SignerType string

const (
	// SignerTypeDirectKey 本地私钥签名
	SignerTypeDirectKey SignerType = "direct_key"
	// SignerTypeHSM 硬件安全模块签名
	SignerTypeHSM SignerType = "hsm"
	// SignerTypeMPC 多方计算托管签名
	SignerTypeMPC SignerType = "mpc"
)

// AllSignerTypes 返回全部签名器类型（顺序固定）
func AllSignerTypes() []SignerType {
	return []SignerType{SignerTypeDirectKey, SignerTypeHSM, SignerTypeMPC}
}

// ParseSignerType 解析签名器类型字符串
func ParseSignerType(s string) (SignerType, bool) {
	t := SignerType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case SignerTypeDirectKey, SignerTypeHSM, SignerTypeMPC:
		return t, true
	default:
		return "", false
	}
}

// String 返回类型字符串
func (t SignerType) String() string { return string(t) }

// ChainType 链类型
//
// 开放字符串：数据模型接受任意值，但各签名后端只支持 BTC 与 ETH。
type ChainType string

const (
	ChainBTC ChainType = "BTC"
	ChainETH ChainType = "ETH"
	ChainSOL ChainType = "SOL"
	ChainDOT ChainType = "DOT"
)

// String 返回链类型字符串
func (c ChainType) String() string { return string(c) }

// SignRequest 签名请求
type SignRequest struct {
	// Transaction 待签名交易的十六进制编码（BTC 为 PSBT，ETH 为 RLP）
	Transaction string `json:"transaction"`
	// ChainType 链类型标签
	ChainType ChainType `json:"chainType"`
	// Options 透传参数，核心逻辑不解释
	Options map[string]interface{} `json:"options,omitempty"`
}

// SignResponse 签名响应
type SignResponse struct {
	Signature         string     `json:"signature"`
	SignedTransaction string     `json:"signedTransaction,omitempty"`
	SignerType        SignerType `json:"signerType"`
	PublicKey         string     `json:"publicKey,omitempty"`
}

// SignerInfo 注册表条目摘要 (id, type)
type SignerInfo struct {
	ID   string     `json:"id"`
	Type SignerType `json:"type"`
}
