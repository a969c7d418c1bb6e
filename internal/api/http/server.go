// Package http 提供签名服务的 HTTP API
//
// 📡 **端点**
//
//	GET  /v1/signers[?type=]     按注册顺序列出签名器
//	POST /v1/signers/:id/sign    使用指定签名器签名
//	GET  /health                 健康检查
//	GET  /metrics                Prometheus 指标（可关闭）
//
// 错误统一以 ErrorResponse 返回，错误码为签名错误类别。
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weisyn/txsigner/internal/api/http/handlers"
	"github.com/weisyn/txsigner/internal/api/http/middleware"
	apiconfig "github.com/weisyn/txsigner/internal/config/api"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/clock"
	"github.com/weisyn/txsigner/pkg/interfaces/infrastructure/log"
	signerif "github.com/weisyn/txsigner/pkg/interfaces/signer"
)

// shutdownTimeout 优雅关闭的最长等待时间
const shutdownTimeout = 5 * time.Second

// Server HTTP API 服务器
type Server struct {
	router     *gin.Engine  // Gin路由引擎
	httpServer *http.Server // 标准HTTP服务器
	config     *apiconfig.Config
	logger     log.Logger

	mu       sync.Mutex
	listener net.Listener
	done     chan struct{}
}

// ServerDeps 服务器依赖
type ServerDeps struct {
	Service    handlers.SigningService // 签名服务（必需）
	Registry   signerif.Registry       // 注册表，用于健康检查（可选）
	Registerer prometheus.Registerer   // HTTP 指标注册器，nil 时不注册
	Gatherer   prometheus.Gatherer     // /metrics 数据源，nil 时使用全局 Gatherer
	Clock      clock.Clock             // 健康检查时间源，nil 时使用系统时钟
	Version    string
	Logger     log.Logger
}

// NewServer 创建HTTP服务器并注册路由
func NewServer(cfg *apiconfig.Config, deps ServerDeps) (*Server, error) {
	if cfg == nil {
		cfg = apiconfig.New(nil)
	}
	if deps.Service == nil {
		return nil, errors.New("HTTP服务器缺少签名服务")
	}

	metrics, err := middleware.NewMetrics(deps.Registerer)
	if err != nil {
		return nil, fmt.Errorf("注册HTTP指标失败: %w", err)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(deps.Logger),
		metrics.Middleware(),
		bodyLimit(cfg.MaxRequestSize()),
		middleware.ErrorHandler(deps.Logger),
	)

	s := &Server{
		router: router,
		config: cfg,
		logger: deps.Logger,
	}
	s.setupRoutes(deps)
	return s, nil
}

// setupRoutes 注册全部路由
func (s *Server) setupRoutes(deps ServerDeps) {
	v1 := s.router.Group("/v1")
	handlers.NewSignerHandlers(deps.Service, s.config.SignTimeout(), deps.Logger).RegisterRoutes(v1)

	health := handlers.NewHealthHandler(deps.Registry, deps.Version, deps.Clock)
	s.router.GET("/health", health.Health)

	if path := s.config.MetricsPath(); path != "" {
		gatherer := deps.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		s.router.GET(path, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	if s.logger != nil {
		s.logger.Debugf("HTTP路由注册完成: metrics=%q", s.config.MetricsPath())
	}
}

// Handler 返回路由处理器
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start 监听配置地址并在后台提供服务
//
// 端口被占用时直接返回错误，不自动漂移到其他端口。
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return errors.New("HTTP服务器已启动")
	}

	addr := s.config.Address()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("HTTP服务器监听失败 %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout(),
		WriteTimeout: s.config.WriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}
	s.listener = ln
	s.done = make(chan struct{})

	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			if s.logger != nil {
				s.logger.Errorf("❌ HTTP服务器运行失败: %v", err)
			}
		}
	}(s.httpServer, s.done)

	if s.logger != nil {
		s.logger.Infof("✅ HTTP服务器启动成功，监听地址: %s", ln.Addr())
	}
	return nil
}

// Addr 返回实际监听地址；未启动时为空
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop 优雅关闭服务器，等待进行中的请求完成
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, done := s.httpServer, s.done
	s.httpServer, s.listener, s.done = nil, nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if s.logger != nil {
		s.logger.Info("正在关闭HTTP服务器")
	}

	stopCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(stopCtx); err != nil {
		if s.logger != nil {
			s.logger.Errorf("HTTP服务器关闭出错: %v", err)
		}
		return err
	}
	<-done

	if s.logger != nil {
		s.logger.Info("HTTP服务器已关闭")
	}
	return nil
}

// bodyLimit 限制请求体大小
func bodyLimit(limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(limit))
		}
		c.Next()
	}
}
