package mpc

import (
	"context"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/google/uuid"

	signerconfig "github.com/weisyn/txsigner/internal/config/signer"
	"github.com/weisyn/txsigner/internal/core/signer/base"
	"github.com/weisyn/txsigner/internal/core/signer/codec"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/txsigner/pkg/types"
)

// ProviderFireblocks 远端托管方提供方类型
const ProviderFireblocks = "fireblocks"

// 托管方请求常量
const (
	operationRaw        = "RAW"
	peerVaultAccount    = "VAULT_ACCOUNT"
	peerExternalWallet  = "EXTERNAL_WALLET"
	productionAPIDomain = "api.fireblocks.io"
)

// CustodianProvider 远端托管方提供方
//
// 🔄 **签名流程**：
// 1. 本地解析交易并做前置检查（无输入 / 已签名直接失败，不发起远端调用）
// 2. 提交 RAW 签名任务，原始交易作为不透明消息
// 3. 按固定间隔轮询任务状态直到终态
type CustodianProvider struct {
	api            CustodianAPI
	vaultAccountID string
	basePath       string
	poller         *Poller
	logger         log.Logger
}

// NewCustodianProvider 创建托管方提供方
func NewCustodianProvider(api CustodianAPI, cfg *signerconfig.CustodianConfig, poll signerconfig.PollConfig, logger log.Logger) (*CustodianProvider, error) {
	if api == nil {
		return nil, types.NewSignerError(types.ErrorKindMissingProvider, "custodian client is required", nil)
	}
	if cfg == nil || cfg.VaultAccountID == "" {
		return nil, types.NewSignerError(types.ErrorKindMissingProvider, "fireblocks provider requires vaultAccountId", nil)
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = signerconfig.DefaultCustodianBasePath
	}
	return &CustodianProvider{
		api:            api,
		vaultAccountID: cfg.VaultAccountID,
		basePath:       basePath,
		poller:         NewPoller(poll, logger),
		logger:         logger,
	}, nil
}

// Name 实现 Provider
func (p *CustodianProvider) Name() string { return ProviderFireblocks }

// Poller 返回轮询器
func (p *CustodianProvider) Poller() *Poller { return p.poller }

// Sign 实现 Provider
func (p *CustodianProvider) Sign(ctx context.Context, req *types.SignRequest) (string, error) {
	if err := base.CheckRequest(req); err != nil {
		return "", err
	}

	job, err := p.buildJob(req)
	if err != nil {
		return "", err
	}

	created, err := p.api.CreateTransaction(ctx, job)
	if err != nil {
		return "", types.NewSignerError(types.ErrorKindSubmissionFailed, "create transaction request failed", err)
	}
	if created == nil || created.ID == "" {
		return "", types.NewSignerError(types.ErrorKindSubmissionFailed, "custodian did not return a transaction id", nil)
	}

	if p.logger != nil {
		p.logger.Infof("📤 签名任务已提交: job=%s, asset=%s, externalTxId=%s", created.ID, job.AssetID, job.ExternalTxID)
	}

	return p.poller.Wait(ctx, created.ID, p.status)
}

// status 查询任务状态并取第一条已签名消息
func (p *CustodianProvider) status(ctx context.Context, jobID string) (*JobStatus, error) {
	tx, err := p.api.GetTransaction(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, nil
	}
	st := &JobStatus{Status: tx.Status}
	if len(tx.SignedMessages) > 0 {
		st.SignedContent = tx.SignedMessages[0].Content
	}
	return st, nil
}

// buildJob 解析交易并构造签名任务
func (p *CustodianProvider) buildJob(req *types.SignRequest) (*CreateTransactionRequest, error) {
	var destination, amount string

	switch req.ChainType {
	case types.ChainBTC:
		tx, err := codec.ParseBTC(req.Transaction)
		if err != nil {
			return nil, err
		}
		if err := tx.RequireInputs(); err != nil {
			return nil, err
		}
		outputs := tx.Outputs()
		if len(outputs) == 0 {
			return nil, types.NewSignerError(types.ErrorKindMalformedTransaction, "PSBT has no outputs", nil)
		}
		var total int64
		for _, out := range outputs {
			total += out.Value
		}
		amount = strconv.FormatFloat(btcutil.Amount(total).ToBTC(), 'f', -1, 64)
		destination = outputAddress(outputs[0].PkScript)
	case types.ChainETH:
		tx, err := codec.ParseETH(req.Transaction)
		if err != nil {
			return nil, err
		}
		destination = tx.To()
		amount = tx.Value().String()
	default:
		return nil, types.NewSignerError(types.ErrorKindUnsupportedChain, req.ChainType.String(), nil)
	}

	content := strings.TrimPrefix(strings.TrimPrefix(req.Transaction, "0x"), "0X")
	return &CreateTransactionRequest{
		AssetID:   p.assetID(req.ChainType),
		Operation: operationRaw,
		Source:    TransferPeer{Type: peerVaultAccount, ID: p.vaultAccountID},
		Destination: DestinationPeer{
			Type:           peerExternalWallet,
			OneTimeAddress: &OneTimeAddress{Address: destination},
		},
		Amount: amount,
		ExtraParameters: &ExtraParameters{
			RawMessageData: RawMessageData{Messages: []RawMessage{{Content: content}}},
		},
		ExternalTxID: uuid.NewString(),
	}, nil
}

// assetID 生产地址使用主网资产，其余（含沙箱）使用测试网资产
func (p *CustodianProvider) assetID(chain types.ChainType) string {
	mainnet := strings.Contains(p.basePath, productionAPIDomain) && !strings.Contains(p.basePath, "sandbox")
	switch chain {
	case types.ChainBTC:
		if mainnet {
			return "BTC"
		}
		return "BTC_TEST"
	default:
		if mainnet {
			return "ETH"
		}
		return "ETH_TEST5"
	}
}

// outputAddress 按测试网参数解析输出地址，无法解析时返回空串
func outputAddress(pkScript []byte) string {
	_, addrs, _, err := txscript.ExtractPkScriptAddrs(pkScript, &chaincfg.TestNet3Params)
	if err != nil || len(addrs) == 0 {
		return ""
	}
	return addrs[0].EncodeAddress()
}
