// Package handlers 提供签名服务的 HTTP 处理器
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/txsigner/internal/api/http/middleware"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/txsigner/pkg/types"
)

// SigningService 处理器依赖的签名服务
type SigningService interface {
	Sign(ctx context.Context, signerID string, req *types.SignRequest) (*types.SignResponse, error)
	ListSigners(filter string) ([]types.SignerInfo, error)
}

// SignerHandlers 签名器相关端点
type SignerHandlers struct {
	service     SigningService
	signTimeout time.Duration
	logger      log.Logger
}

// NewSignerHandlers 创建签名器处理器
//
// signTimeout 为单次签名的处理上限，0 表示只受请求上下文约束。
func NewSignerHandlers(service SigningService, signTimeout time.Duration, logger log.Logger) *SignerHandlers {
	return &SignerHandlers{
		service:     service,
		signTimeout: signTimeout,
		logger:      logger,
	}
}

// RegisterRoutes 注册路由
//
//	GET  /signers[?type=hsm]
//	POST /signers/:id/sign
func (h *SignerHandlers) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/signers")
	group.GET("", h.ListSigners)
	group.POST("/:id/sign", h.Sign)
}

// signRequestBody 签名请求体
type signRequestBody struct {
	Transaction string                 `json:"transaction" binding:"required"`
	ChainType   string                 `json:"chainType" binding:"required"`
	Options     map[string]interface{} `json:"options"`
}

// ListSigners 按注册顺序列出签名器
func (h *SignerHandlers) ListSigners(c *gin.Context) {
	infos, err := h.service.ListSigners(c.Query("type"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, infos)
}

// Sign 使用指定签名器签名
func (h *SignerHandlers) Sign(c *gin.Context) {
	var body signRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(c, http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE", "request body exceeds size limit")
			return
		}
		_ = c.Error(types.NewSignerError(types.ErrorKindInvalidRequest, "invalid request body", err))
		return
	}

	ctx := c.Request.Context()
	if h.signTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.signTimeout)
		defer cancel()
	}

	resp, err := h.service.Sign(ctx, c.Param("id"), &types.SignRequest{
		Transaction: body.Transaction,
		ChainType:   types.ChainType(body.ChainType),
		Options:     body.Options,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
