package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/weisyn/txsigner/internal/config"
	logconfig "github.com/weisyn/txsigner/internal/config/log"
	"github.com/weisyn/txsigner/internal/core/infrastructure/log"
	logInterface "github.com/weisyn/txsigner/pkg/interfaces/infrastructure/log"
)

// defaultEnvFile 未指定 --env-file 时尝试加载的文件，不存在不报错
const defaultEnvFile = ".env"

// GlobalFlags 全局标志
type GlobalFlags struct {
	ConfigPath string // 配置文件路径
	EnvFile    string // .env 文件路径
	Verbose    bool   // 输出 debug 日志
}

// cliState 子命令共享的运行时状态，在 PersistentPreRunE 中初始化
type cliState struct {
	flags  GlobalFlags
	config *config.AppConfig
	logger logInterface.Logger
}

// newRootCmd 创建根命令
func newRootCmd() *cobra.Command {
	state := &cliState{}

	root := &cobra.Command{
		Use:   "txsigner",
		Short: "多后端交易签名服务",
		Long: `txsigner - BTC / ETH 交易签名服务

支持三种签名后端:
  direct_key   本地私钥（仅限开发环境）
  hsm          PKCS#11 硬件安全模块
  mpc          远程托管方（fireblocks）或模拟提供方

配置来源优先级: 环境变量（TXSIGNER_ 前缀）> 配置文件 > 默认值。
密钥等敏感字段建议通过 --env-file 指定的 .env 文件注入。`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return state.init()
		},
	}

	root.PersistentFlags().StringVarP(&state.flags.ConfigPath, "config", "c", "", "配置文件路径（JSON/YAML）")
	root.PersistentFlags().StringVar(&state.flags.EnvFile, "env-file", "", "加载环境变量的 .env 文件（默认尝试 ./.env）")
	root.PersistentFlags().BoolVarP(&state.flags.Verbose, "verbose", "v", false, "输出 debug 日志")

	root.AddCommand(
		newSignCmd(state),
		newSignersCmd(state),
		newServeCmd(state),
		newConfigCmd(),
		newVersionCmd(),
	)
	return root
}

// init 加载环境变量、配置与日志
func (s *cliState) init() error {
	if err := loadEnvFile(s.flags.EnvFile); err != nil {
		return err
	}

	cfg, err := config.Load(s.flags.ConfigPath)
	if err != nil {
		return fmt.Errorf("加载配置: %w", err)
	}
	if s.flags.Verbose {
		if cfg.Log == nil {
			cfg.Log = &logconfig.LogOptions{}
		}
		cfg.Log.Level = "debug"
	}

	logger, err := log.New(logconfig.New(cfg.Log))
	if err != nil {
		return fmt.Errorf("初始化日志: %w", err)
	}

	s.config = cfg
	s.logger = logger
	return nil
}

// loadEnvFile 通过 godotenv 加载 .env，已存在的环境变量不会被覆盖
func loadEnvFile(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("加载 env 文件 %s: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(defaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("加载 env 文件 %s: %w", defaultEnvFile, err)
	}
	return nil
}
