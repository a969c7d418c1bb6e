package mpc

import (
	"bytes"
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	signerconfig "github.com/weisyn/txsigner/internal/config/signer"
	infraclock "github.com/weisyn/txsigner/internal/core/infrastructure/clock"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/txsigner/pkg/types"
)

// tokenLifetime 请求令牌有效期（托管方要求不超过 60 秒）
const tokenLifetime = 55 * time.Second

// ===== 托管方 API 数据结构 =====

// TransferPeer 交易来源
type TransferPeer struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// OneTimeAddress 一次性外部地址
type OneTimeAddress struct {
	Address string `json:"address"`
}

// DestinationPeer 交易目标
type DestinationPeer struct {
	Type           string          `json:"type"`
	OneTimeAddress *OneTimeAddress `json:"oneTimeAddress,omitempty"`
}

// RawMessage 原始待签名消息
type RawMessage struct {
	Content string `json:"content"`
}

// RawMessageData 原始消息集合
type RawMessageData struct {
	Messages []RawMessage `json:"messages"`
}

// ExtraParameters 附加参数
type ExtraParameters struct {
	RawMessageData RawMessageData `json:"rawMessageData"`
}

// CreateTransactionRequest 创建签名任务请求
type CreateTransactionRequest struct {
	AssetID         string           `json:"assetId"`
	Operation       string           `json:"operation"`
	Source          TransferPeer     `json:"source"`
	Destination     DestinationPeer  `json:"destination"`
	Amount          string           `json:"amount"`
	ExtraParameters *ExtraParameters `json:"extraParameters,omitempty"`
	ExternalTxID    string           `json:"externalTxId,omitempty"`
	Note            string           `json:"note,omitempty"`
}

// CreateTransactionResponse 创建签名任务响应
type CreateTransactionResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// SignedMessage 已签名消息
type SignedMessage struct {
	Content   string `json:"content"`
	Algorithm string `json:"algorithm,omitempty"`
}

// TransactionResponse 签名任务详情
type TransactionResponse struct {
	ID             string          `json:"id"`
	Status         string          `json:"status"`
	SubStatus      string          `json:"subStatus,omitempty"`
	SignedMessages []SignedMessage `json:"signedMessages,omitempty"`
}

// CustodianAPI 托管方 API 客户端（用于依赖注入和测试）
type CustodianAPI interface {
	// CreateTransaction 提交签名任务
	CreateTransaction(ctx context.Context, req *CreateTransactionRequest) (*CreateTransactionResponse, error)

	// GetTransaction 查询签名任务；任务不存在时返回 (nil, nil)
	GetTransaction(ctx context.Context, txID string) (*TransactionResponse, error)
}

// FireblocksClient 托管方 REST 客户端
//
// 🔐 **认证方式**：每个请求携带 X-API-Key 与 RS256 签名的 Bearer 令牌，
// 令牌声明包含请求路径、随机数与请求体哈希。
type FireblocksClient struct {
	baseURL    *url.URL
	apiKey     string
	signingKey *rsa.PrivateKey
	httpClient *http.Client
	logger     log.Logger
	clock      clock.Clock
}

// NewFireblocksClient 创建托管方客户端
//
// httpClient 为 nil 时使用默认连接池配置。
func NewFireblocksClient(cfg *signerconfig.CustodianConfig, httpClient *http.Client, logger log.Logger) (*FireblocksClient, error) {
	if cfg == nil {
		return nil, types.NewSignerError(types.ErrorKindMissingProvider, "custodian config is required", nil)
	}
	if missing := cfg.Missing(); len(missing) > 0 {
		return nil, types.Errorf(types.ErrorKindMissingProvider, "fireblocks provider requires %s", strings.Join(missing, ", "))
	}

	basePath := cfg.BasePath
	if basePath == "" {
		basePath = signerconfig.DefaultCustodianBasePath
	}
	baseURL, err := url.Parse(strings.TrimRight(basePath, "/"))
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, types.Errorf(types.ErrorKindMissingProvider, "invalid basePath %q", basePath)
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.SecretKey))
	if err != nil {
		return nil, types.NewSignerError(types.ErrorKindMissingProvider, "secretKey is not a valid RSA private key", err)
	}

	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return &FireblocksClient{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		signingKey: key,
		httpClient: httpClient,
		logger:     logger,
		clock:      infraclock.NewSystemClock(),
	}, nil
}

// WithClock 设置令牌时间戳使用的时间源，nil 时保持不变
func (c *FireblocksClient) WithClock(clk clock.Clock) *FireblocksClient {
	if clk != nil {
		c.clock = clk
	}
	return c
}

// CreateTransaction 实现 CustodianAPI
func (c *FireblocksClient) CreateTransaction(ctx context.Context, req *CreateTransactionRequest) (*CreateTransactionResponse, error) {
	var out CreateTransactionResponse
	if _, err := c.do(ctx, http.MethodPost, "/transactions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTransaction 实现 CustodianAPI
func (c *FireblocksClient) GetTransaction(ctx context.Context, txID string) (*TransactionResponse, error) {
	var out TransactionResponse
	status, err := c.do(ctx, http.MethodGet, "/transactions/"+url.PathEscape(txID), nil, &out)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	return &out, nil
}

// do 发送已签名的请求
//
// GET 请求遇到 404 时返回 (404, nil)，由调用方解释为任务不存在。
func (c *FireblocksClient) do(ctx context.Context, method, path string, body, result interface{}) (int, error) {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal body: %w", err)
		}
		payload = data
	}

	token, err := c.signRequest(c.baseURL.Path+path, payload)
	if err != nil {
		return 0, fmt.Errorf("sign request: %w", err)
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, bodyReader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("http request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil && c.logger != nil {
			c.logger.Warnf("关闭响应体失败: %v", err)
		}
	}()

	if method == http.MethodGet && resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// signRequest 生成请求令牌
func (c *FireblocksClient) signRequest(uri string, body []byte) (string, error) {
	now := c.clock.Now()
	sum := sha256.Sum256(body)
	claims := jwt.MapClaims{
		"uri":      uri,
		"nonce":    uuid.NewString(),
		"iat":      now.Unix(),
		"exp":      now.Add(tokenLifetime).Unix(),
		"sub":      c.apiKey,
		"bodyHash": hex.EncodeToString(sum[:]),
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.signingKey)
}
