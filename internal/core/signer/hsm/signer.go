// Package hsm 提供 HSM（Hardware Security Module）签名后端
//
// 🔒 **安全特性**：
// - 私钥永不离开签名端点：本后端只发送摘要，接收原始签名
// - 每次签名调用一次远端，不重试；重试与退避属于签名端点客户端
// - 密钥标识在日志中掩码处理
//
// 🎯 **签名流程**：
// 1. 结构校验（InvalidRequest）
// 2. 链类型 → 签名算法（固定映射表，未知链返回 UnsupportedChain）
// 3. BTC：取第一个输入的派生公钥，逐输入调用远端并 DER 编码；ETH：对未签名摘要调用一次远端，拆分 (r, s, v) 后回填
package hsm

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/txscript"

	signerconfig "github.com/weisyn/txsigner/internal/config/signer"
	"github.com/weisyn/txsigner/internal/core/signer/base"
	"github.com/weisyn/txsigner/internal/core/signer/codec"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/txsigner/pkg/types"
)

// SigningAlgorithm 远端签名算法标识
type SigningAlgorithm string

const (
	// AlgorithmECDSASHA256 secp256k1 ECDSA，输入为 32 字节摘要
	AlgorithmECDSASHA256 SigningAlgorithm = "ECDSA_SHA_256"
)

// DefaultRecoveryID 远端响应不含 v 时使用的默认恢复值
const DefaultRecoveryID = 27

// algorithms 链类型 → 签名算法
var algorithms = map[types.ChainType]SigningAlgorithm{
	types.ChainBTC: AlgorithmECDSASHA256,
	types.ChainETH: AlgorithmECDSASHA256,
}

// AlgorithmFor 查询链类型对应的签名算法
func AlgorithmFor(chain types.ChainType) (SigningAlgorithm, bool) {
	alg, ok := algorithms[chain]
	return alg, ok
}

// SigningClient 远端签名端点客户端（用于依赖注入和测试）
//
// 🎯 **设计理念**：
// 定义最小化的签名操作接口。生产环境使用 PKCS#11 客户端，测试环境使用 mock。
type SigningClient interface {
	// Sign 使用 keyID 指定的密钥对摘要签名
	//
	// 返回：
	//   - []byte: 原始签名 r(32) || s(32) [|| v(1)]
	//   - error: 签名失败的原因
	Sign(ctx context.Context, keyID string, digest []byte, alg SigningAlgorithm) ([]byte, error)
}

// Signer HSM 签名器
type Signer struct {
	base.Signer

	client      SigningClient
	ownsClient  bool // 仅关闭自己创建的客户端，注入的共享客户端由调用方负责
	keyID       string
	region      string
	signTimeout time.Duration
	logger      log.Logger
}

// Option 签名器构造选项
type Option func(*Signer)

// WithOwnedClient 声明客户端归签名器所有，Close 时一并关闭
func WithOwnedClient() Option {
	return func(s *Signer) { s.ownsClient = true }
}

// New 创建 HSM 签名器实例
//
// 参数：
//   - cfg: HSM 配置（keyId 与 region 必填）
//   - client: 签名端点客户端
//   - logger: 日志服务（可为 nil）
//   - opts: 构造选项
//
// 返回：
//   - *Signer: 签名器实例
//   - error: MissingHSMParams
func New(cfg *signerconfig.HSMConfig, client SigningClient, logger log.Logger, opts ...Option) (*Signer, error) {
	if cfg == nil || cfg.KeyID == "" || cfg.Region == "" {
		return nil, types.NewSignerError(types.ErrorKindMissingHSMParams, "keyId and region are required", nil)
	}
	if client == nil {
		return nil, types.NewSignerError(types.ErrorKindMissingHSMParams, "signing client is required", nil)
	}

	timeout := time.Duration(cfg.SignTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = signerconfig.DefaultSignTimeout()
	}

	if logger != nil {
		logger.Infof("✅ HSM 签名器已创建: keyId=%s, region=%s", base.MaskKeyID(cfg.KeyID), cfg.Region)
	}

	s := &Signer{
		Signer:      base.New(types.SignerTypeHSM),
		client:      client,
		keyID:       cfg.KeyID,
		region:      cfg.Region,
		signTimeout: timeout,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sign 对交易签名
func (s *Signer) Sign(ctx context.Context, req *types.SignRequest) (*types.SignResponse, error) {
	if err := base.CheckRequest(req); err != nil {
		return nil, err
	}

	alg, ok := AlgorithmFor(req.ChainType)
	if !ok {
		return nil, types.NewSignerError(types.ErrorKindUnsupportedChain, req.ChainType.String(), nil)
	}

	var (
		signed string
		err    error
	)
	switch req.ChainType {
	case types.ChainBTC:
		signed, err = s.signBTC(ctx, req.Transaction, alg)
	case types.ChainETH:
		signed, err = s.signETH(ctx, req.Transaction, alg)
	}
	if err != nil {
		if s.logger != nil {
			s.logger.Warnf("[HSMSigner] 签名失败: keyId=%s, chain=%s, err=%v", base.MaskKeyID(s.keyID), req.ChainType, err)
		}
		return nil, err
	}

	if s.logger != nil {
		s.logger.Infof("✅ HSM 签名成功: keyId=%s, chain=%s", base.MaskKeyID(s.keyID), req.ChainType)
	}
	return &types.SignResponse{
		Signature:         signed,
		SignedTransaction: signed,
		SignerType:        types.SignerTypeHSM,
	}, nil
}

// signBTC 使用第一个输入的派生公钥驱动 BTC 编解码器
func (s *Signer) signBTC(ctx context.Context, txHex string, alg SigningAlgorithm) (string, error) {
	tx, err := codec.ParseBTC(txHex)
	if err != nil {
		return "", err
	}
	signer := &remoteInputSigner{
		parent: s,
		alg:    alg,
		pubKey: tx.FirstInputPublicKey(),
	}
	return codec.SignBTC(ctx, tx, signer)
}

// signETH 对未签名摘要调用一次远端并回填 (r, s, v)
func (s *Signer) signETH(ctx context.Context, txHex string, alg SigningAlgorithm) (string, error) {
	tx, err := codec.ParseETH(txHex)
	if err != nil {
		return "", err
	}
	raw, err := s.remoteSign(ctx, tx.Digest(), alg)
	if err != nil {
		return "", err
	}
	if len(raw) < 64 {
		return "", types.Errorf(types.ErrorKindFinalizationFailed, "HSM signature has %d bytes, expected at least 64", len(raw))
	}
	v := uint64(DefaultRecoveryID)
	hasV := len(raw) > 64
	if hasV {
		v = uint64(raw[64])
	}

	// 以太坊只接受低 S 签名（EIP-2），高 S 取 n-s，同时翻转端点给出的恢复位
	var ss btcec.ModNScalar
	if overflow := ss.SetByteSlice(raw[32:64]); overflow || ss.IsZero() {
		return "", types.NewSignerError(types.ErrorKindFinalizationFailed, "HSM signature s is out of range", nil)
	}
	if ss.IsOverHalfOrder() {
		ss.Negate()
		if hasV {
			v = uint64(codec.NormalizeRecoveryID(v) ^ 1)
		}
	}
	sBytes := ss.Bytes()
	return tx.WithSignature(raw[:32], sBytes[:], v)
}

// remoteSign 调用签名端点，单次调用受 signTimeout 约束
func (s *Signer) remoteSign(ctx context.Context, digest []byte, alg SigningAlgorithm) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.signTimeout)
	defer cancel()

	sig, err := s.client.Sign(callCtx, s.keyID, digest, alg)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, types.NewSignerError(types.ErrorKindSigningTimeout, "HSM sign call", err)
		}
		return nil, types.NewSignerError(types.ErrorKindEmptySignatureFromHSM, "HSM sign call failed", err)
	}
	if len(sig) == 0 {
		return nil, types.NewSignerError(types.ErrorKindEmptySignatureFromHSM, "", nil)
	}
	return sig, nil
}

// Close 关闭自己持有的签名端点客户端
func (s *Signer) Close() error {
	if !s.ownsClient {
		return nil
	}
	if closer, ok := s.client.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// remoteInputSigner 每个输入摘要调用一次远端的 BTC 签名函数
type remoteInputSigner struct {
	parent *Signer
	alg    SigningAlgorithm
	pubKey []byte
}

func (r *remoteInputSigner) PublicKey() []byte { return r.pubKey }

// SignECDSA 远端返回 r||s，转换为低 S 的 DER 编码并附加 SIGHASH_ALL
func (r *remoteInputSigner) SignECDSA(ctx context.Context, digest []byte) ([]byte, error) {
	raw, err := r.parent.remoteSign(ctx, digest, r.alg)
	if err != nil {
		return nil, err
	}
	der, err := encodeDER(raw)
	if err != nil {
		return nil, err
	}
	return append(der, byte(txscript.SigHashAll)), nil
}

func (r *remoteInputSigner) SignSchnorr(context.Context, []byte) ([]byte, error) {
	return nil, types.NewSignerError(types.ErrorKindFinalizationFailed, "HSM does not produce schnorr signatures", nil)
}

// encodeDER 将原始 r||s 编码为 DER
func encodeDER(raw []byte) ([]byte, error) {
	if len(raw) < 64 {
		return nil, types.Errorf(types.ErrorKindFinalizationFailed, "HSM signature has %d bytes, expected at least 64", len(raw))
	}
	var rs, ss btcec.ModNScalar
	if overflow := rs.SetByteSlice(raw[:32]); overflow || rs.IsZero() {
		return nil, types.NewSignerError(types.ErrorKindFinalizationFailed, "HSM signature r is out of range", nil)
	}
	if overflow := ss.SetByteSlice(raw[32:64]); overflow || ss.IsZero() {
		return nil, types.NewSignerError(types.ErrorKindFinalizationFailed, "HSM signature s is out of range", nil)
	}
	return ecdsa.NewSignature(&rs, &ss).Serialize(), nil
}
