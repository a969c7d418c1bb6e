package codec

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/weisyn/txsigner/pkg/types"
)

// ETHTransaction 已解析且未签名的以太坊交易
type ETHTransaction struct {
	tx      *ethtypes.Transaction
	signer  ethtypes.Signer
	chainID *big.Int
}

// unsignedLegacyTx 不带签名字段的传统交易（6 字段 RLP 列表）
type unsignedLegacyTx struct {
	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	To       *common.Address `rlp:"nil"`
	Value    *big.Int
	Data     []byte
}

// unsignedAccessListTx 不带签名字段的 EIP-2930 交易
type unsignedAccessListTx struct {
	ChainID    *big.Int
	Nonce      uint64
	GasPrice   *big.Int
	Gas        uint64
	To         *common.Address `rlp:"nil"`
	Value      *big.Int
	Data       []byte
	AccessList ethtypes.AccessList
}

// unsignedDynamicFeeTx 不带签名字段的 EIP-1559 交易
type unsignedDynamicFeeTx struct {
	ChainID    *big.Int
	Nonce      uint64
	GasTipCap  *big.Int
	GasFeeCap  *big.Int
	Gas        uint64
	To         *common.Address `rlp:"nil"`
	Value      *big.Int
	Data       []byte
	AccessList ethtypes.AccessList
}

// ParseETH 解析十六进制 RLP 交易
//
// 接受带零签名字段的完整编码，也接受省略签名字段的未签名编码。
// 已包含签名（r 或 s 非零）时返回 AlreadySigned。
func ParseETH(txHex string) (*ETHTransaction, error) {
	raw, err := DecodeHex(txHex)
	if err != nil {
		return nil, types.NewSignerError(types.ErrorKindMalformedTransaction, "invalid hex", err)
	}
	if len(raw) == 0 {
		return nil, types.NewSignerError(types.ErrorKindMalformedTransaction, "empty transaction", nil)
	}

	tx := new(ethtypes.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		fallback, ferr := decodeUnsigned(raw)
		if ferr != nil {
			return nil, types.NewSignerError(types.ErrorKindMalformedTransaction, "invalid RLP transaction", err)
		}
		tx = fallback
	}

	v, r, s := tx.RawSignatureValues()
	if (r != nil && r.Sign() != 0) || (s != nil && s.Sign() != 0) {
		return nil, types.NewSignerError(types.ErrorKindAlreadySigned, "transaction already carries a signature", nil)
	}

	parsed := &ETHTransaction{tx: tx}
	if tx.Type() == ethtypes.LegacyTxType {
		// 未签名的 EIP-155 交易在 v 位置携带链 ID
		if v != nil && v.Sign() > 0 {
			parsed.chainID = new(big.Int).Set(v)
			parsed.signer = ethtypes.NewEIP155Signer(parsed.chainID)
		} else {
			parsed.signer = ethtypes.HomesteadSigner{}
		}
	} else {
		parsed.chainID = tx.ChainId()
		parsed.signer = ethtypes.LatestSignerForChainID(parsed.chainID)
	}
	return parsed, nil
}

// decodeUnsigned 解码省略签名字段的编码
func decodeUnsigned(raw []byte) (*ethtypes.Transaction, error) {
	if raw[0] > 0x7f {
		var data unsignedLegacyTx
		if err := rlp.DecodeBytes(raw, &data); err != nil {
			return nil, err
		}
		return ethtypes.NewTx(&ethtypes.LegacyTx{
			Nonce:    data.Nonce,
			GasPrice: data.GasPrice,
			Gas:      data.Gas,
			To:       data.To,
			Value:    data.Value,
			Data:     data.Data,
		}), nil
	}

	switch raw[0] {
	case ethtypes.AccessListTxType:
		var data unsignedAccessListTx
		if err := rlp.DecodeBytes(raw[1:], &data); err != nil {
			return nil, err
		}
		return ethtypes.NewTx(&ethtypes.AccessListTx{
			ChainID:    data.ChainID,
			Nonce:      data.Nonce,
			GasPrice:   data.GasPrice,
			Gas:        data.Gas,
			To:         data.To,
			Value:      data.Value,
			Data:       data.Data,
			AccessList: data.AccessList,
		}), nil
	case ethtypes.DynamicFeeTxType:
		var data unsignedDynamicFeeTx
		if err := rlp.DecodeBytes(raw[1:], &data); err != nil {
			return nil, err
		}
		return ethtypes.NewTx(&ethtypes.DynamicFeeTx{
			ChainID:    data.ChainID,
			Nonce:      data.Nonce,
			GasTipCap:  data.GasTipCap,
			GasFeeCap:  data.GasFeeCap,
			Gas:        data.Gas,
			To:         data.To,
			Value:      data.Value,
			Data:       data.Data,
			AccessList: data.AccessList,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported transaction type %d", raw[0])
	}
}

// Transaction 返回底层交易
func (t *ETHTransaction) Transaction() *ethtypes.Transaction {
	return t.tx
}

// ChainID 返回链 ID；无重放保护的传统交易返回 nil
func (t *ETHTransaction) ChainID() *big.Int {
	return t.chainID
}

// To 接收地址（十六进制，带校验大小写）；合约创建返回空串
func (t *ETHTransaction) To() string {
	if t.tx.To() == nil {
		return ""
	}
	return t.tx.To().Hex()
}

// Value 转账金额（wei）
func (t *ETHTransaction) Value() *big.Int {
	return t.tx.Value()
}

// Digest 32 字节签名摘要（keccak256）
func (t *ETHTransaction) Digest() []byte {
	return t.signer.Hash(t.tx).Bytes()
}

// Unsigned 未签名交易的十六进制编码，不含 0x 前缀
func (t *ETHTransaction) Unsigned() (string, error) {
	raw, err := t.tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("encode transaction: %w", err)
	}
	return hex.EncodeToString(raw), nil
}

// NormalizeRecoveryID 将 v 规范化为 0/1
//
// 接受 0/1、27/28 以及 EIP-155 编码（35 + 2*chainID + {0,1}）。
func NormalizeRecoveryID(v uint64) byte {
	switch {
	case v >= 35:
		return byte((v - 35) % 2)
	case v >= 27:
		return byte(v - 27)
	default:
		return byte(v)
	}
}

// WithSignature 回填 (r, s, v) 并返回已签名交易的十六进制编码（不含 0x 前缀）
func (t *ETHTransaction) WithSignature(r, s []byte, v uint64) (string, error) {
	if len(r) > 32 || len(s) > 32 {
		return "", types.NewSignerError(types.ErrorKindFinalizationFailed, "signature component exceeds 32 bytes", nil)
	}
	sig := make([]byte, 65)
	copy(sig[32-len(r):32], r)
	copy(sig[64-len(s):64], s)
	sig[64] = NormalizeRecoveryID(v)

	signed, err := t.tx.WithSignature(t.signer, sig)
	if err != nil {
		return "", types.NewSignerError(types.ErrorKindFinalizationFailed, "attach signature", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("encode signed transaction: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
