// Package direct 提供进程内私钥签名后端
//
// ⚠️ **安全警告**：私钥以明文形式保存在进程内存中，生产环境应使用 HSM 或 MPC 后端！
//
// 🎯 **适用场景**：
// - 开发环境：快速开发和调试
// - 测试环境：自动化测试
// - CI/CD：持续集成测试
//
// 📋 **设计原则**：
// - 构造即校验：私钥缺失或无效时构造失败，而不是等到第一次签名
// - 明确警告：构造时打印警告日志，检测到生产环境时额外告警
// - 私钥不出实例：不写入日志、错误信息或响应；每次签名后清零派生出的密钥对象
// - 无网络 I/O：签名完全同步
package direct

import (
	"context"
	"encoding/hex"
	"os"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
	"github.com/ethereum/go-ethereum/crypto"

	signerconfig "github.com/weisyn/txsigner/internal/config/signer"
	"github.com/weisyn/txsigner/internal/core/signer/base"
	"github.com/weisyn/txsigner/internal/core/signer/codec"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/txsigner/pkg/types"
)

// Signer 本地私钥签名器
//
// ⚠️ **安全约束**：
// - 私钥存储在进程内存中（不安全）
// - 无审计日志
// - 无密钥轮换机制
type Signer struct {
	base.Signer

	mu       sync.RWMutex
	keyBytes []byte // 私钥字节（32字节），Close 后清零并置空
	logger   log.Logger
}

// New 创建本地签名器实例
//
// 参数：
//   - cfg: 签名器配置
//   - logger: 日志服务（可为 nil）
//
// 返回：
//   - *Signer: 签名器实例
//   - error: MissingKey（私钥为空）或 InvalidKey（私钥无法解析为有效的 secp256k1 标量）
func New(cfg *signerconfig.DirectKeyConfig, logger log.Logger) (*Signer, error) {
	if cfg == nil || strings.TrimSpace(cfg.PrivateKey) == "" {
		return nil, types.NewSignerError(types.ErrorKindMissingKey, "private key is required", nil)
	}

	keyBytes, err := parsePrivateKeyHex(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}

	checkEnvironment(cfg.Environment, logger)

	if logger != nil {
		logger.Warn("⚠️  使用 DirectKey 签名器（私钥保存在进程内存中）")
		logger.Warnf("⚠️  环境: %s", cfg.Environment)
	}

	return &Signer{
		Signer:   base.New(types.SignerTypeDirectKey),
		keyBytes: keyBytes,
		logger:   logger,
	}, nil
}

// Sign 对交易签名
//
// 流程：
// 1. 结构校验（InvalidRequest）
// 2. 按链类型分派：BTC 逐输入签名并定稿，ETH 对未签名摘要签名并回填
// 3. 返回已签名交易；signature 与 signedTransaction 相同
func (s *Signer) Sign(ctx context.Context, req *types.SignRequest) (*types.SignResponse, error) {
	if err := base.CheckRequest(req); err != nil {
		return nil, err
	}

	switch req.ChainType {
	case types.ChainBTC, types.ChainETH:
	default:
		return nil, types.NewSignerError(types.ErrorKindUnsupportedChain, req.ChainType.String(), nil)
	}

	key, err := s.privateKey()
	if err != nil {
		return nil, err
	}
	defer key.Zero()

	var resp *types.SignResponse
	if req.ChainType == types.ChainBTC {
		resp, err = s.signBTC(ctx, req.Transaction, key)
	} else {
		resp, err = s.signETH(req.Transaction, key)
	}
	if err != nil {
		if s.logger != nil {
			s.logger.Warnf("[DirectSigner] 签名失败: chain=%s, err=%v", req.ChainType, err)
		}
		return nil, err
	}

	if s.logger != nil {
		s.logger.Debugf("[DirectSigner] 签名完成: chain=%s, 签名交易%d字符", req.ChainType, len(resp.SignedTransaction))
	}
	return resp, nil
}

// signBTC 使用私钥驱动 BTC 编解码器
func (s *Signer) signBTC(ctx context.Context, txHex string, key *btcec.PrivateKey) (*types.SignResponse, error) {
	tx, err := codec.ParseBTC(txHex)
	if err != nil {
		return nil, err
	}
	signer := &inputSigner{key: key}
	signed, err := codec.SignBTC(ctx, tx, signer)
	if err != nil {
		return nil, err
	}
	return &types.SignResponse{
		Signature:         signed,
		SignedTransaction: signed,
		SignerType:        types.SignerTypeDirectKey,
		PublicKey:         hex.EncodeToString(signer.PublicKey()),
	}, nil
}

// signETH 对未签名摘要签名并回填 (r, s, v)
func (s *Signer) signETH(txHex string, key *btcec.PrivateKey) (*types.SignResponse, error) {
	tx, err := codec.ParseETH(txHex)
	if err != nil {
		return nil, err
	}

	raw := key.Serialize()
	ecdsaKey, err := crypto.ToECDSA(raw)
	for i := range raw {
		raw[i] = 0
	}
	if err != nil {
		return nil, types.NewSignerError(types.ErrorKindInvalidKey, "derive ethereum key", nil)
	}
	defer ecdsaKey.D.SetInt64(0)

	sig, err := crypto.Sign(tx.Digest(), ecdsaKey)
	if err != nil {
		return nil, types.NewSignerError(types.ErrorKindInvalidKey, "sign digest", err)
	}
	signed, err := tx.WithSignature(sig[:32], sig[32:64], uint64(sig[64]))
	if err != nil {
		return nil, err
	}
	return &types.SignResponse{
		Signature:         signed,
		SignedTransaction: signed,
		SignerType:        types.SignerTypeDirectKey,
		PublicKey:         hex.EncodeToString(crypto.FromECDSAPub(&ecdsaKey.PublicKey)),
	}, nil
}

// privateKey 从私钥字节派生一次性使用的密钥对象，调用方负责 Zero
func (s *Signer) privateKey() (*btcec.PrivateKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.keyBytes == nil {
		return nil, types.NewSignerError(types.ErrorKindMissingKey, "signer is closed", nil)
	}
	key, _ := btcec.PrivKeyFromBytes(s.keyBytes)
	return key, nil
}

// PublicKey 返回压缩公钥（33字节）
func (s *Signer) PublicKey() ([]byte, error) {
	key, err := s.privateKey()
	if err != nil {
		return nil, err
	}
	defer key.Zero()
	return key.PubKey().SerializeCompressed(), nil
}

// Close 清零私钥，之后的签名请求返回 MissingKey
func (s *Signer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.keyBytes {
		s.keyBytes[i] = 0
	}
	s.keyBytes = nil
	return nil
}

// inputSigner 绑定私钥的 BTC 按输入签名函数
type inputSigner struct {
	key *btcec.PrivateKey
}

func (k *inputSigner) PublicKey() []byte {
	return k.key.PubKey().SerializeCompressed()
}

func (k *inputSigner) SignECDSA(_ context.Context, digest []byte) ([]byte, error) {
	sig := ecdsa.Sign(k.key, digest)
	return append(sig.Serialize(), byte(txscript.SigHashAll)), nil
}

func (k *inputSigner) SignSchnorr(_ context.Context, digest []byte) ([]byte, error) {
	sig, err := schnorr.Sign(k.key, digest)
	if err != nil {
		return nil, types.NewSignerError(types.ErrorKindInvalidKey, "schnorr sign", err)
	}
	return sig.Serialize(), nil
}

// ================================================================================================
// 内部辅助方法
// ================================================================================================

// checkEnvironment 检查运行环境
//
// 检测到生产环境时只告警，不阻止构造。
func checkEnvironment(env string, logger log.Logger) {
	if logger == nil {
		return
	}
	sources := map[string]string{
		"ENV":                os.Getenv("ENV"),
		"ENVIRONMENT":        os.Getenv("ENVIRONMENT"),
		"config.Environment": env,
	}
	for source, value := range sources {
		if strings.Contains(strings.ToLower(value), "prod") {
			logger.Warnf("❌ DirectKey 签名器不应在生产环境使用（%s=%s）", source, value)
		}
	}
}

// parsePrivateKeyHex 解析 Hex 编码的私钥
//
// 要求 64 个十六进制字符（可带 0x 前缀），且数值位于 [1, n-1]。
// 错误信息不包含私钥内容。
func parsePrivateKeyHex(hexKey string) ([]byte, error) {
	hexKey = strings.TrimSpace(hexKey)
	hexKey = strings.TrimPrefix(hexKey, "0x")
	hexKey = strings.TrimPrefix(hexKey, "0X")

	if len(hexKey) != 64 {
		return nil, types.Errorf(types.ErrorKindInvalidKey, "expected 64 hex characters, got %d", len(hexKey))
	}

	keyBytes, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, types.NewSignerError(types.ErrorKindInvalidKey, "private key is not valid hex", nil)
	}

	var scalar btcec.ModNScalar
	overflow := scalar.SetByteSlice(keyBytes)
	zero := scalar.IsZero()
	scalar.Zero()
	if overflow || zero {
		for i := range keyBytes {
			keyBytes[i] = 0
		}
		return nil, types.NewSignerError(types.ErrorKindInvalidKey, "private key is out of range", nil)
	}
	return keyBytes, nil
}
