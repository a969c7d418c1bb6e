package mpc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	signerconfig "github.com/weisyn/txsigner/internal/config/signer"
	infraclock "github.com/weisyn/txsigner/internal/core/infrastructure/clock"
	"github.com/weisyn/txsigner/internal/core/signer/testutil"
	"github.com/weisyn/txsigner/pkg/types"
)

// fakeCustodian 内存中的托管方 HTTP 服务
type fakeCustodian struct {
	t   *testing.T
	key *rsa.PublicKey

	mu       sync.Mutex
	jobs     map[string][]string // job id → 状态序列
	polls    map[string]int
	bodies   []CreateTransactionRequest
	failPost bool
}

func (f *fakeCustodian) verify(r *http.Request, body []byte) bool {
	if r.Header.Get("X-API-Key") != "api-key-1" {
		return false
	}
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	token, err := jwt.Parse(raw, func(*jwt.Token) (interface{}, error) { return f.key, nil },
		jwt.WithValidMethods([]string{"RS256"}))
	if err != nil || !token.Valid {
		return false
	}
	claims := token.Claims.(jwt.MapClaims)
	sum := sha256.Sum256(body)
	return claims["uri"] == r.URL.Path &&
		claims["sub"] == "api-key-1" &&
		claims["bodyHash"] == hex.EncodeToString(sum[:]) &&
		claims["nonce"] != ""
}

func (f *fakeCustodian) pollCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls[id]
}

func (f *fakeCustodian) createdBodies() []CreateTransactionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]CreateTransactionRequest(nil), f.bodies...)
}

func (f *fakeCustodian) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	if !f.verify(r, body) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/transactions":
		if f.failPost {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message":"internal"}`))
			return
		}
		var req CreateTransactionRequest
		require.NoError(f.t, json.Unmarshal(body, &req))
		f.bodies = append(f.bodies, req)
		_ = json.NewEncoder(w).Encode(CreateTransactionResponse{ID: "job-1", Status: "SUBMITTED"})
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/transactions/"):
		id := strings.TrimPrefix(r.URL.Path, "/v1/transactions/")
		statuses, ok := f.jobs[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		n := f.polls[id]
		f.polls[id]++
		if n >= len(statuses) {
			n = len(statuses) - 1
		}
		resp := TransactionResponse{ID: id, Status: statuses[n]}
		if statuses[n] == StatusCompleted {
			resp.SignedMessages = []SignedMessage{{Content: "f86c80850254"}}
		}
		_ = json.NewEncoder(w).Encode(resp)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func rsaPEM(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	return key, string(pem.EncodeToMemory(block))
}

func startCustodian(t *testing.T) (*fakeCustodian, *httptest.Server, *signerconfig.CustodianConfig) {
	t.Helper()
	key, secret := rsaPEM(t)
	fake := &fakeCustodian{
		t:     t,
		key:   &key.PublicKey,
		jobs:  map[string][]string{"job-1": {"SUBMITTED", "PENDING_SIGNATURE", StatusCompleted}},
		polls: map[string]int{},
	}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, srv, &signerconfig.CustodianConfig{
		APIKey:         "api-key-1",
		SecretKey:      secret,
		VaultAccountID: "0",
		BasePath:       srv.URL + "/v1",
	}
}

// TestNewFireblocksClient_Validation 测试构造校验
func TestNewFireblocksClient_Validation(t *testing.T) {
	_, secret := rsaPEM(t)

	_, err := NewFireblocksClient(nil, nil, nil)
	assert.True(t, errors.Is(err, types.ErrMissingProvider))

	_, err = NewFireblocksClient(&signerconfig.CustodianConfig{APIKey: "k"}, nil, nil)
	require.True(t, errors.Is(err, types.ErrMissingProvider))
	assert.Contains(t, err.Error(), "secretKey, vaultAccountId")

	_, err = NewFireblocksClient(&signerconfig.CustodianConfig{APIKey: "k", SecretKey: "not-a-pem", VaultAccountID: "0"}, nil, nil)
	require.True(t, errors.Is(err, types.ErrMissingProvider))
	assert.NotContains(t, err.Error(), "not-a-pem")

	c, err := NewFireblocksClient(&signerconfig.CustodianConfig{APIKey: "k", SecretKey: secret, VaultAccountID: "0"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "/v1", c.baseURL.Path)
	assert.Equal(t, "sandbox-api.fireblocks.io", c.baseURL.Host)
}

// TestFireblocksClient_SignedRequests 测试请求认证与响应解析
func TestFireblocksClient_SignedRequests(t *testing.T) {
	fake, srv, cfg := startCustodian(t)
	c, err := NewFireblocksClient(cfg, srv.Client(), nil)
	require.NoError(t, err)

	created, err := c.CreateTransaction(context.Background(), &CreateTransactionRequest{
		AssetID:   "ETH_TEST5",
		Operation: "RAW",
		Source:    TransferPeer{Type: "VAULT_ACCOUNT", ID: "0"},
		Amount:    "1",
	})
	require.NoError(t, err)
	assert.Equal(t, "job-1", created.ID)
	bodies := fake.createdBodies()
	require.Len(t, bodies, 1)
	assert.Equal(t, "ETH_TEST5", bodies[0].AssetID)

	tx, err := c.GetTransaction(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "SUBMITTED", tx.Status)

	missing, err := c.GetTransaction(context.Background(), "job-404")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

// TestFireblocksClient_HTTPError 测试非 2xx 响应
func TestFireblocksClient_HTTPError(t *testing.T) {
	fake, srv, cfg := startCustodian(t)
	fake.mu.Lock()
	fake.failPost = true
	fake.mu.Unlock()
	c, err := NewFireblocksClient(cfg, srv.Client(), nil)
	require.NoError(t, err)

	_, err = c.CreateTransaction(context.Background(), &CreateTransactionRequest{Operation: "RAW"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 500")
}

// TestFireblocksClient_BadCredentialsRejected 测试错误密钥签发的令牌被拒绝
func TestFireblocksClient_BadCredentialsRejected(t *testing.T) {
	_, srv, cfg := startCustodian(t)
	_, otherSecret := rsaPEM(t)
	cfg.SecretKey = otherSecret

	c, err := NewFireblocksClient(cfg, srv.Client(), nil)
	require.NoError(t, err)
	_, err = c.GetTransaction(context.Background(), "job-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 401")
}

// TestMPCSigner_FireblocksEndToEnd 测试从描述构造到轮询完成的完整流程
func TestMPCSigner_FireblocksEndToEnd(t *testing.T) {
	fake, _, cfg := startCustodian(t)
	logger := &testutil.BehavioralMockLogger{}

	s, err := New(&signerconfig.MPCConfig{
		Provider: "fireblocks",
		Config: map[string]interface{}{
			"apiKey":         cfg.APIKey,
			"secretKey":      cfg.SecretKey,
			"vaultAccountId": cfg.VaultAccountID,
			"basePath":       cfg.BasePath,
		},
		Poll: signerconfig.PollConfig{IntervalMs: 1, MaxAttempts: 5},
	}, nil, logger)
	require.NoError(t, err)
	assert.Equal(t, "fireblocks", s.Provider().Name())

	resp, err := s.Sign(context.Background(), &types.SignRequest{Transaction: unsignedETHHex(t), ChainType: types.ChainETH})
	require.NoError(t, err)
	assert.Equal(t, "f86c80850254", resp.Signature)
	assert.Equal(t, resp.Signature, resp.SignedTransaction)
	assert.Equal(t, types.SignerTypeMPC, resp.SignerType)
	assert.Equal(t, 3, fake.pollCount("job-1"))
	assert.False(t, logger.Contains("PRIVATE KEY"))
}

// TestFireblocksClient_TokenUsesClock 测试令牌时间戳取自注入的时钟
func TestFireblocksClient_TokenUsesClock(t *testing.T) {
	_, srv, cfg := startCustodian(t)
	issued := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c, err := NewFireblocksClient(cfg, srv.Client(), nil)
	require.NoError(t, err)
	c.WithClock(infraclock.NewMockClock(issued))

	raw, err := c.signRequest("/v1/transactions", []byte(`{}`))
	require.NoError(t, err)
	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(raw, claims)
	require.NoError(t, err)
	assert.Equal(t, float64(issued.Unix()), claims["iat"])
	assert.Equal(t, float64(issued.Add(tokenLifetime).Unix()), claims["exp"])

	// 过期时间已过的令牌被托管方拒绝
	_, err = c.GetTransaction(context.Background(), "job-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 401")

	c.WithClock(nil)
	c.WithClock(infraclock.NewMockClock(time.Now()))
	tx, err := c.GetTransaction(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "SUBMITTED", tx.Status)
}
