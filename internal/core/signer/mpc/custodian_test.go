package mpc

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	signerconfig "github.com/weisyn/txsigner/internal/config/signer"
	"github.com/weisyn/txsigner/internal/core/signer/codec"
	"github.com/weisyn/txsigner/pkg/types"
)

// MockCustodianAPI 托管方 API Mock
type MockCustodianAPI struct {
	CreateFunc func(ctx context.Context, req *CreateTransactionRequest) (*CreateTransactionResponse, error)
	GetFunc    func(ctx context.Context, txID string) (*TransactionResponse, error)

	mu      sync.Mutex
	created []*CreateTransactionRequest
	gets    int
}

func (m *MockCustodianAPI) CreateTransaction(ctx context.Context, req *CreateTransactionRequest) (*CreateTransactionResponse, error) {
	m.mu.Lock()
	m.created = append(m.created, req)
	m.mu.Unlock()
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, req)
	}
	return &CreateTransactionResponse{ID: "job-1", Status: "SUBMITTED"}, nil
}

func (m *MockCustodianAPI) GetTransaction(ctx context.Context, txID string) (*TransactionResponse, error) {
	m.mu.Lock()
	m.gets++
	m.mu.Unlock()
	if m.GetFunc != nil {
		return m.GetFunc(ctx, txID)
	}
	return &TransactionResponse{
		ID:             txID,
		Status:         StatusCompleted,
		SignedMessages: []SignedMessage{{Content: "signed-" + txID}},
	}, nil
}

func newTestCustodian(t *testing.T, api CustodianAPI, basePath string, attempts int) *CustodianProvider {
	t.Helper()
	p, err := NewCustodianProvider(api, &signerconfig.CustodianConfig{
		VaultAccountID: "vault-7",
		BasePath:       basePath,
	}, signerconfig.PollConfig{IntervalMs: 1, MaxAttempts: attempts}, nil)
	require.NoError(t, err)
	return p
}

func p2wpkhTestnet(t *testing.T) ([]byte, string) {
	t.Helper()
	key, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	hash := btcutil.Hash160(key.PubKey().SerializeCompressed())
	addr, err := btcutil.NewAddressWitnessPubKeyHash(hash, &chaincfg.TestNet3Params)
	require.NoError(t, err)
	script, err := txscript.PayToAddrScript(addr)
	require.NoError(t, err)
	return script, addr.EncodeAddress()
}

func psbtHex(t *testing.T, inputs []*wire.OutPoint, outputs []*wire.TxOut) string {
	t.Helper()
	packet, err := psbt.New(inputs, outputs, 2, 0, make([]uint32, len(inputs)))
	require.NoError(t, err)
	out, err := codec.NewBTCTransaction(packet).Serialize()
	require.NoError(t, err)
	return out
}

var testETHRecipient = common.HexToAddress("0x3535353535353535353535353535353535353535")

func unsignedETHHex(t *testing.T) string {
	t.Helper()
	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		GasPrice: big.NewInt(10_000_000_000),
		Gas:      21000,
		To:       &testETHRecipient,
		Value:    big.NewInt(1_000_000_000_000_000_000),
		V:        big.NewInt(1),
		R:        big.NewInt(0),
		S:        big.NewInt(0),
	})
	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return hex.EncodeToString(raw)
}

// TestNewCustodianProvider_Missing 测试缺少客户端或金库账户
func TestNewCustodianProvider_Missing(t *testing.T) {
	_, err := NewCustodianProvider(nil, &signerconfig.CustodianConfig{VaultAccountID: "v"}, signerconfig.PollConfig{}, nil)
	assert.True(t, errors.Is(err, types.ErrMissingProvider))

	_, err = NewCustodianProvider(&MockCustodianAPI{}, &signerconfig.CustodianConfig{}, signerconfig.PollConfig{}, nil)
	assert.True(t, errors.Is(err, types.ErrMissingProvider))
}

// TestCustodianProvider_BTCJob 测试 BTC 签名任务内容
func TestCustodianProvider_BTCJob(t *testing.T) {
	script, addr := p2wpkhTestnet(t)
	txHex := psbtHex(t,
		[]*wire.OutPoint{wire.NewOutPoint(&chainhash.Hash{1}, 0)},
		[]*wire.TxOut{wire.NewTxOut(100_000_000, script), wire.NewTxOut(23_450_000, script)},
	)

	api := &MockCustodianAPI{}
	p := newTestCustodian(t, api, "", 3)

	out, err := p.Sign(context.Background(), &types.SignRequest{Transaction: "0x" + txHex, ChainType: types.ChainBTC})
	require.NoError(t, err)
	assert.Equal(t, "signed-job-1", out)

	require.Len(t, api.created, 1)
	job := api.created[0]
	assert.Equal(t, "BTC_TEST", job.AssetID)
	assert.Equal(t, "RAW", job.Operation)
	assert.Equal(t, TransferPeer{Type: "VAULT_ACCOUNT", ID: "vault-7"}, job.Source)
	assert.Equal(t, "EXTERNAL_WALLET", job.Destination.Type)
	assert.Equal(t, addr, job.Destination.OneTimeAddress.Address)
	assert.Equal(t, "1.2345", job.Amount)
	require.Len(t, job.ExtraParameters.RawMessageData.Messages, 1)
	assert.Equal(t, txHex, job.ExtraParameters.RawMessageData.Messages[0].Content)
	_, err = uuid.Parse(job.ExternalTxID)
	assert.NoError(t, err)
}

// TestCustodianProvider_ETHJob 测试 ETH 签名任务内容与主网资产
func TestCustodianProvider_ETHJob(t *testing.T) {
	api := &MockCustodianAPI{}
	p := newTestCustodian(t, api, "https://api.fireblocks.io/v1", 3)

	txHex := unsignedETHHex(t)
	_, err := p.Sign(context.Background(), &types.SignRequest{Transaction: txHex, ChainType: types.ChainETH})
	require.NoError(t, err)

	job := api.created[0]
	assert.Equal(t, "ETH", job.AssetID)
	assert.Equal(t, testETHRecipient.Hex(), job.Destination.OneTimeAddress.Address)
	assert.Equal(t, "1000000000000000000", job.Amount)
	assert.Equal(t, txHex, job.ExtraParameters.RawMessageData.Messages[0].Content)
}

// TestCustodianProvider_AssetID 测试资产标识选择
func TestCustodianProvider_AssetID(t *testing.T) {
	cases := []struct {
		basePath string
		chain    types.ChainType
		want     string
	}{
		{"https://sandbox-api.fireblocks.io/v1", types.ChainBTC, "BTC_TEST"},
		{"https://sandbox-api.fireblocks.io/v1", types.ChainETH, "ETH_TEST5"},
		{"https://api.fireblocks.io/v1", types.ChainBTC, "BTC"},
		{"http://127.0.0.1:8080/v1", types.ChainETH, "ETH_TEST5"},
	}
	for _, c := range cases {
		p := newTestCustodian(t, &MockCustodianAPI{}, c.basePath, 1)
		assert.Equal(t, c.want, p.assetID(c.chain), c.basePath)
	}
}

// TestCustodianProvider_PreconditionsSkipRemote 测试前置检查失败时不发起远端调用
func TestCustodianProvider_PreconditionsSkipRemote(t *testing.T) {
	script, _ := p2wpkhTestnet(t)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signedTx, err := ethtypes.SignNewTx(key, ethtypes.NewEIP155Signer(big.NewInt(1)), &ethtypes.LegacyTx{
		GasPrice: big.NewInt(1), Gas: 21000, To: &testETHRecipient, Value: big.NewInt(1),
	})
	require.NoError(t, err)
	signedRaw, err := signedTx.MarshalBinary()
	require.NoError(t, err)

	cases := []struct {
		name string
		req  *types.SignRequest
		want error
	}{
		{"no inputs", &types.SignRequest{
			Transaction: psbtHex(t, nil, []*wire.TxOut{wire.NewTxOut(1000, script)}),
			ChainType:   types.ChainBTC,
		}, types.ErrNoInputsToSign},
		{"no outputs", &types.SignRequest{
			Transaction: psbtHex(t, []*wire.OutPoint{wire.NewOutPoint(&chainhash.Hash{2}, 1)}, nil),
			ChainType:   types.ChainBTC,
		}, types.ErrMalformedTransaction},
		{"already signed", &types.SignRequest{
			Transaction: hex.EncodeToString(signedRaw),
			ChainType:   types.ChainETH,
		}, types.ErrAlreadySigned},
		{"malformed", &types.SignRequest{Transaction: "zz", ChainType: types.ChainBTC}, types.ErrMalformedTransaction},
		{"unsupported", &types.SignRequest{Transaction: "00", ChainType: types.ChainSOL}, types.ErrUnsupportedChain},
		{"invalid", &types.SignRequest{ChainType: types.ChainETH}, types.ErrInvalidRequest},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			api := &MockCustodianAPI{}
			p := newTestCustodian(t, api, "", 3)
			_, err := p.Sign(context.Background(), c.req)
			assert.True(t, errors.Is(err, c.want), "got %v", err)
			assert.Empty(t, api.created)
			assert.Equal(t, 0, api.gets)
		})
	}
}

// TestCustodianProvider_SubmissionFailed 测试提交失败
func TestCustodianProvider_SubmissionFailed(t *testing.T) {
	boom := errors.New("http 401: unauthorized")
	cases := map[string]func(context.Context, *CreateTransactionRequest) (*CreateTransactionResponse, error){
		"transport error": func(context.Context, *CreateTransactionRequest) (*CreateTransactionResponse, error) {
			return nil, boom
		},
		"empty id": func(context.Context, *CreateTransactionRequest) (*CreateTransactionResponse, error) {
			return &CreateTransactionResponse{Status: "SUBMITTED"}, nil
		},
	}
	for name, create := range cases {
		t.Run(name, func(t *testing.T) {
			api := &MockCustodianAPI{CreateFunc: create}
			p := newTestCustodian(t, api, "", 3)
			_, err := p.Sign(context.Background(), &types.SignRequest{Transaction: unsignedETHHex(t), ChainType: types.ChainETH})
			assert.True(t, errors.Is(err, types.ErrSubmissionFailed))
			assert.Equal(t, 0, api.gets)
		})
	}
}

// TestCustodianProvider_NeverTerminal 测试任务始终未到终态时超时而不是挂起
func TestCustodianProvider_NeverTerminal(t *testing.T) {
	api := &MockCustodianAPI{GetFunc: func(_ context.Context, id string) (*TransactionResponse, error) {
		return &TransactionResponse{ID: id, Status: "PENDING_AUTHORIZATION"}, nil
	}}
	p := newTestCustodian(t, api, "", 3)

	_, err := p.Sign(context.Background(), &types.SignRequest{Transaction: unsignedETHHex(t), ChainType: types.ChainETH})
	assert.True(t, errors.Is(err, types.ErrSigningTimeout))
	assert.Equal(t, 3, api.gets)
}

// TestCustodianProvider_JobNotFound 测试任务不存在
func TestCustodianProvider_JobNotFound(t *testing.T) {
	api := &MockCustodianAPI{GetFunc: func(context.Context, string) (*TransactionResponse, error) {
		return nil, nil
	}}
	p := newTestCustodian(t, api, "", 3)

	_, err := p.Sign(context.Background(), &types.SignRequest{Transaction: unsignedETHHex(t), ChainType: types.ChainETH})
	require.True(t, errors.Is(err, types.ErrRemoteSigningFailed))
	assert.Contains(t, err.Error(), "NOT_FOUND")
}

// TestCustodianProvider_Name 测试提供方名称
func TestCustodianProvider_Name(t *testing.T) {
	p := newTestCustodian(t, &MockCustodianAPI{}, "", 1)
	assert.Equal(t, "fireblocks", p.Name())
	assert.NotNil(t, p.Poller())
}
