package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apitypes "github.com/weisyn/txsigner/internal/api/http/types"
	infraclock "github.com/weisyn/txsigner/internal/core/infrastructure/clock"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/clock"
	signerif "github.com/weisyn/txsigner/pkg/interfaces/signer"
)

// HealthHandler 健康检查端点
type HealthHandler struct {
	registry  signerif.Registry
	version   string
	clock     clock.Clock
	startTime time.Time
}

// NewHealthHandler 创建健康检查处理器
//
// registry 可为 nil；clk 为 nil 时使用系统时钟。
func NewHealthHandler(registry signerif.Registry, version string, clk clock.Clock) *HealthHandler {
	if clk == nil {
		clk = infraclock.NewSystemClock()
	}
	return &HealthHandler{
		registry:  registry,
		version:   version,
		clock:     clk,
		startTime: clk.Now(),
	}
}

// Health 返回进程存活状态与已注册签名器数量
func (h *HealthHandler) Health(c *gin.Context) {
	now := h.clock.Now()
	resp := apitypes.HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Uptime:    now.Sub(h.startTime).Truncate(time.Second).String(),
		Timestamp: now.UTC().Format(time.RFC3339),
	}
	if h.registry != nil {
		resp.Signers = h.registry.Size()
	}
	c.JSON(http.StatusOK, resp)
}
