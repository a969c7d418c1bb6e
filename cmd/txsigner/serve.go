package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	apihttp "github.com/weisyn/txsigner/internal/api/http"
	"github.com/weisyn/txsigner/internal/app/version"
	"github.com/weisyn/txsigner/internal/config"
	"github.com/weisyn/txsigner/internal/core/infrastructure/clock"
	"github.com/weisyn/txsigner/internal/core/infrastructure/event"
	"github.com/weisyn/txsigner/internal/core/infrastructure/log"
	"github.com/weisyn/txsigner/internal/core/signer"
)

func newServeCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 签名服务",
		Long: `启动 HTTP 签名服务，直到收到 SIGINT / SIGTERM。

端点:
  GET  /v1/signers[?type=]
  POST /v1/signers/:id/sign
  GET  /health
  GET  /metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			gin.SetMode(gin.ReleaseMode)
			return runApp(cmd.Context(), newApp(state.config))
		},
	}
}

// newApp 组装 fx 应用
func newApp(cfg *config.AppConfig, extra ...fx.Option) *fx.App {
	opts := []fx.Option{
		fx.Supply(cfg),
		fx.Supply(fx.Annotated{Name: "version", Target: version.GetVersion()}),
		fx.WithLogger(func(z *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: z.Named("fx")}
		}),
		config.Module(),
		log.Module(),
		event.Module(),
		clock.Module(),
		signer.Module(),
		apihttp.Module(),
	}
	return fx.New(append(opts, extra...)...)
}

// runApp 启动应用并阻塞到收到退出信号或 ctx 结束
func runApp(ctx context.Context, app *fx.App) error {
	if err := app.Err(); err != nil {
		return fmt.Errorf("装配应用失败: %w", err)
	}

	startCtx, cancel := context.WithTimeout(ctx, app.StartTimeout())
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}

	select {
	case <-app.Done():
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		return fmt.Errorf("停止失败: %w", err)
	}
	return nil
}
