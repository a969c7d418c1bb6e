// Package codec 提供链交易编解码
//
// 📋 **职责**
// - 将十六进制交易解析为结构化对象（BTC: PSBT，ETH: RLP）
// - 暴露签名所需的摘要与结构校验
// - 将原始签名回填为可广播的已签名交易
//
// 所有后端共享同一套编解码语义与失败类别，只有原始签名的来源不同。
package codec

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/weisyn/txsigner/pkg/types"
)

// InputSigner BTC 按输入签名的外部签名函数
//
// 后端提供实现：Direct 在进程内签名，HSM 每个摘要调用一次远端。
type InputSigner interface {
	// PublicKey 33 字节压缩公钥，用于匹配输入与回填部分签名
	PublicKey() []byte

	// SignECDSA 对摘要签名，返回 DER 编码 + SIGHASH_ALL 标志字节
	SignECDSA(ctx context.Context, digest []byte) ([]byte, error)

	// SignSchnorr 对 Taproot 摘要签名，返回 64 字节签名
	SignSchnorr(ctx context.Context, digest []byte) ([]byte, error)
}

// BTCTransaction 已解析的 PSBT
type BTCTransaction struct {
	packet *psbt.Packet
}

// DecodeHex 解码十六进制字符串，接受 0x 前缀，大小写不敏感
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	return hex.DecodeString(s)
}

// ParseBTC 解析十六进制 PSBT
func ParseBTC(txHex string) (*BTCTransaction, error) {
	raw, err := DecodeHex(txHex)
	if err != nil {
		return nil, types.NewSignerError(types.ErrorKindMalformedTransaction, "invalid hex", err)
	}
	packet, err := psbt.NewFromRawBytes(bytes.NewReader(raw), false)
	if err != nil {
		return nil, types.NewSignerError(types.ErrorKindMalformedTransaction, "invalid PSBT", err)
	}
	return &BTCTransaction{packet: packet}, nil
}

// NewBTCTransaction 包装已构造的 PSBT
func NewBTCTransaction(packet *psbt.Packet) *BTCTransaction {
	return &BTCTransaction{packet: packet}
}

// Packet 返回底层 PSBT
func (t *BTCTransaction) Packet() *psbt.Packet {
	return t.packet
}

// InputCount 输入数量
func (t *BTCTransaction) InputCount() int {
	return len(t.packet.UnsignedTx.TxIn)
}

// OutputCount 输出数量
func (t *BTCTransaction) OutputCount() int {
	return len(t.packet.UnsignedTx.TxOut)
}

// Outputs 未签名交易的输出
func (t *BTCTransaction) Outputs() []*wire.TxOut {
	return t.packet.UnsignedTx.TxOut
}

// RequireInputs 零输入时返回 NoInputsToSign
func (t *BTCTransaction) RequireInputs() error {
	if t.InputCount() == 0 {
		return types.NewSignerError(types.ErrorKindNoInputsToSign, "PSBT has no inputs", nil)
	}
	return nil
}

// FirstInputPublicKey 第一个输入的公钥
//
// 依次取 BIP32 派生公钥、taproot 内部密钥（x-only，补 0x02 前缀）；都缺失时返回 33 字节全零占位。
func (t *BTCTransaction) FirstInputPublicKey() []byte {
	if len(t.packet.Inputs) > 0 {
		in := t.packet.Inputs[0]
		if len(in.Bip32Derivation) > 0 && len(in.Bip32Derivation[0].PubKey) > 0 {
			return append([]byte(nil), in.Bip32Derivation[0].PubKey...)
		}
		if len(in.TaprootInternalKey) == 32 {
			return append([]byte{0x02}, in.TaprootInternalKey...)
		}
	}
	return make([]byte, 33)
}

// prevOutput 返回输入花费的前序输出
func (t *BTCTransaction) prevOutput(idx int) *wire.TxOut {
	in := t.packet.Inputs[idx]
	if in.WitnessUtxo != nil {
		return in.WitnessUtxo
	}
	if in.NonWitnessUtxo != nil {
		outIdx := t.packet.UnsignedTx.TxIn[idx].PreviousOutPoint.Index
		if int(outIdx) < len(in.NonWitnessUtxo.TxOut) {
			return in.NonWitnessUtxo.TxOut[outIdx]
		}
	}
	return nil
}

// prevOutFetcher 为全部输入构建前序输出查询器
//
// Taproot 摘要需要所有输入的前序输出；缺失的输入以空输出占位。
func (t *BTCTransaction) prevOutFetcher() *txscript.MultiPrevOutFetcher {
	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for i, txIn := range t.packet.UnsignedTx.TxIn {
		prev := t.prevOutput(i)
		if prev == nil {
			prev = wire.NewTxOut(0, nil)
		}
		fetcher.AddPrevOut(txIn.PreviousOutPoint, prev)
	}
	return fetcher
}

// SignInputs 对所有可由 signer 签名的输入计算摘要并回填签名
//
// 与 signer 公钥不匹配或无法识别脚本类型的输入被跳过，
// 由 Finalize 报告缺少签名；签名函数本身的错误立即返回。
//
// 返回已签名的输入数量。
func (t *BTCTransaction) SignInputs(ctx context.Context, signer InputSigner) (int, error) {
	updater, err := psbt.NewUpdater(t.packet)
	if err != nil {
		return 0, types.NewSignerError(types.ErrorKindMalformedTransaction, "invalid PSBT", err)
	}

	pub := signer.PublicKey()
	fetcher := t.prevOutFetcher()
	sigHashes := txscript.NewTxSigHashes(t.packet.UnsignedTx, fetcher)

	signed := 0
	for idx := range t.packet.Inputs {
		if err := ctx.Err(); err != nil {
			return signed, err
		}
		ok, err := t.signInput(ctx, updater, idx, pub, fetcher, sigHashes, signer)
		if err != nil {
			return signed, err
		}
		if ok {
			signed++
		}
	}
	return signed, nil
}

func (t *BTCTransaction) signInput(
	ctx context.Context,
	updater *psbt.Updater,
	idx int,
	pub []byte,
	fetcher txscript.PrevOutputFetcher,
	sigHashes *txscript.TxSigHashes,
	signer InputSigner,
) (bool, error) {
	pIn := &t.packet.Inputs[idx]
	if pIn.FinalScriptSig != nil || pIn.FinalScriptWitness != nil {
		return false, nil
	}
	prevOut := t.prevOutput(idx)
	if prevOut == nil || len(pub) != 33 {
		return false, nil
	}

	tx := t.packet.UnsignedTx
	pkScript := prevOut.PkScript
	pubHash := btcutil.Hash160(pub)

	switch {
	case txscript.IsPayToTaproot(pkScript):
		// 仅支持输出密钥即签名者密钥的 key-path 花费
		if !bytes.Equal(pkScript[2:34], pub[1:33]) {
			return false, nil
		}
		digest, err := txscript.CalcTaprootSignatureHash(sigHashes, txscript.SigHashDefault, tx, idx, fetcher)
		if err != nil {
			return false, fmt.Errorf("calc taproot sighash for input %d: %w", idx, err)
		}
		sig, err := signer.SignSchnorr(ctx, digest)
		if err != nil {
			return false, err
		}
		if _, err := schnorr.ParseSignature(sig); err != nil {
			return false, types.NewSignerError(types.ErrorKindFinalizationFailed,
				fmt.Sprintf("invalid schnorr signature for input %d", idx), err)
		}
		pIn.TaprootKeySpendSig = sig
		return true, nil

	case txscript.IsPayToWitnessPubKeyHash(pkScript):
		if !bytes.Equal(pkScript[2:], pubHash) {
			return false, nil
		}
		digest, err := txscript.CalcWitnessSigHash(pkScript, sigHashes, txscript.SigHashAll, tx, idx, prevOut.Value)
		if err != nil {
			return false, fmt.Errorf("calc witness sighash for input %d: %w", idx, err)
		}
		return attachECDSA(ctx, updater, idx, digest, signer, pub, nil, nil)

	case txscript.IsPayToScriptHash(pkScript) && txscript.IsPayToWitnessPubKeyHash(pIn.RedeemScript):
		if !bytes.Equal(pIn.RedeemScript[2:], pubHash) {
			return false, nil
		}
		digest, err := txscript.CalcWitnessSigHash(pIn.RedeemScript, sigHashes, txscript.SigHashAll, tx, idx, prevOut.Value)
		if err != nil {
			return false, fmt.Errorf("calc nested witness sighash for input %d: %w", idx, err)
		}
		return attachECDSA(ctx, updater, idx, digest, signer, pub, pIn.RedeemScript, nil)

	case txscript.IsPayToWitnessScriptHash(pkScript) && len(pIn.WitnessScript) > 0:
		if !bytes.Contains(pIn.WitnessScript, pub) {
			return false, nil
		}
		digest, err := txscript.CalcWitnessSigHash(pIn.WitnessScript, sigHashes, txscript.SigHashAll, tx, idx, prevOut.Value)
		if err != nil {
			return false, fmt.Errorf("calc witness script sighash for input %d: %w", idx, err)
		}
		return attachECDSA(ctx, updater, idx, digest, signer, pub, nil, pIn.WitnessScript)

	case txscript.IsPayToPubKeyHash(pkScript):
		if !bytes.Equal(pkScript[3:23], pubHash) {
			return false, nil
		}
		digest, err := txscript.CalcSignatureHash(pkScript, txscript.SigHashAll, tx, idx)
		if err != nil {
			return false, fmt.Errorf("calc legacy sighash for input %d: %w", idx, err)
		}
		return attachECDSA(ctx, updater, idx, digest, signer, pub, nil, nil)

	default:
		return false, nil
	}
}

// attachECDSA 调用签名函数并把部分签名写入 PSBT
func attachECDSA(
	ctx context.Context,
	updater *psbt.Updater,
	idx int,
	digest []byte,
	signer InputSigner,
	pub, redeemScript, witnessScript []byte,
) (bool, error) {
	sig, err := signer.SignECDSA(ctx, digest)
	if err != nil {
		return false, err
	}
	outcome, err := updater.Sign(idx, sig, pub, redeemScript, witnessScript)
	if err != nil {
		return false, types.NewSignerError(types.ErrorKindFinalizationFailed,
			fmt.Sprintf("attach signature to input %d", idx), err)
	}
	return outcome == psbt.SignSuccesful, nil
}

// Finalize 为每个输入生成最终的 scriptSig / witness
//
// 任一输入缺少可用签名时返回 FinalizationFailed。
func (t *BTCTransaction) Finalize() error {
	for idx := range t.packet.UnsignedTx.TxIn {
		ok, err := psbt.MaybeFinalize(t.packet, idx)
		if err != nil {
			return types.NewSignerError(types.ErrorKindFinalizationFailed,
				fmt.Sprintf("input %d", idx), err)
		}
		if !ok {
			return types.NewSignerError(types.ErrorKindFinalizationFailed,
				fmt.Sprintf("input %d is not finalizable", idx), nil)
		}
	}
	return nil
}

// Extract 从已定稿的 PSBT 中提取网络交易并编码为十六进制
func (t *BTCTransaction) Extract() (string, error) {
	finalTx, err := psbt.Extract(t.packet)
	if err != nil {
		return "", types.NewSignerError(types.ErrorKindFinalizationFailed, "extract transaction", err)
	}
	var buf bytes.Buffer
	if err := finalTx.Serialize(&buf); err != nil {
		return "", fmt.Errorf("serialize transaction: %w", err)
	}
	return hex.EncodeToString(buf.Bytes()), nil
}

// Serialize 将 PSBT 编码为十六进制
func (t *BTCTransaction) Serialize() (string, error) {
	var buf bytes.Buffer
	if err := t.packet.Serialize(&buf); err != nil {
		return "", fmt.Errorf("serialize PSBT: %w", err)
	}
	return hex.EncodeToString(buf.Bytes()), nil
}

// SignBTC 签名流程：校验输入 → 逐输入签名 → 定稿 → 提取
func SignBTC(ctx context.Context, tx *BTCTransaction, signer InputSigner) (string, error) {
	if err := tx.RequireInputs(); err != nil {
		return "", err
	}
	signed, err := tx.SignInputs(ctx, signer)
	if err != nil {
		return "", err
	}
	if signed == 0 {
		return "", types.NewSignerError(types.ErrorKindFinalizationFailed, "no inputs were signed", nil)
	}
	if err := tx.Finalize(); err != nil {
		return "", err
	}
	return tx.Extract()
}
