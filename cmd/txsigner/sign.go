package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	apiconfig "github.com/weisyn/txsigner/internal/config/api"
	signerconfig "github.com/weisyn/txsigner/internal/config/signer"
	"github.com/weisyn/txsigner/internal/core/signer"
	"github.com/weisyn/txsigner/pkg/types"
)

// signFlags sign 子命令标志
type signFlags struct {
	SignerID string
	Chain    string
	Tx       string
	TxFile   string
}

func newSignCmd(state *cliState) *cobra.Command {
	flags := &signFlags{}

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "使用指定签名器签名交易",
		Long: `使用配置中的签名器对一笔交易签名，结果以 JSON 输出到标准输出。

交易为十六进制编码：BTC 为 PSBT，ETH 为 RLP 未签名交易。
--tx-file 为 "-" 时从标准输入读取。`,
		Example: `  txsigner sign -c txsigner.json --signer dev-key --chain ETH --tx 0xe9808504...
  cat unsigned.psbt.hex | txsigner sign -c txsigner.json --signer vault-hsm --chain BTC --tx-file -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tx, err := readTransaction(cmd.InOrStdin(), flags)
			if err != nil {
				return err
			}
			return runSign(cmd, state, flags.SignerID, &types.SignRequest{
				Transaction: tx,
				ChainType:   types.ChainType(strings.ToUpper(flags.Chain)),
			})
		},
	}

	cmd.Flags().StringVarP(&flags.SignerID, "signer", "s", "", "签名器 id")
	cmd.Flags().StringVar(&flags.Chain, "chain", "", "链类型: BTC | ETH")
	cmd.Flags().StringVar(&flags.Tx, "tx", "", "交易十六进制")
	cmd.Flags().StringVar(&flags.TxFile, "tx-file", "", "从文件读取交易十六进制（- 表示标准输入）")
	_ = cmd.MarkFlagRequired("signer")
	_ = cmd.MarkFlagRequired("chain")
	cmd.MarkFlagsMutuallyExclusive("tx", "tx-file")
	return cmd
}

// readTransaction 从标志、文件或标准输入读取交易
func readTransaction(stdin io.Reader, flags *signFlags) (string, error) {
	switch {
	case flags.Tx != "":
		return flags.Tx, nil
	case flags.TxFile == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("读取标准输入: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	case flags.TxFile != "":
		data, err := os.ReadFile(flags.TxFile)
		if err != nil {
			return "", fmt.Errorf("读取交易文件: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	default:
		return "", fmt.Errorf("必须通过 --tx 或 --tx-file 提供交易")
	}
}

// runSign 构建注册表并执行一次签名
func runSign(cmd *cobra.Command, state *cliState, signerID string, req *types.SignRequest) error {
	registry, err := buildRegistry(state)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := registry.Close(); cerr != nil {
			state.logger.Warnf("关闭签名器失败: %v", cerr)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, apiconfig.New(state.config.API).SignTimeout())
	defer cancel()

	svc := signer.NewService(registry, nil, nil, state.logger)
	resp, err := svc.Sign(ctx, signerID, req)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), resp)
}

// buildRegistry 按配置构建全部签名器
func buildRegistry(state *cliState) (*signer.Registry, error) {
	opts := &signerconfig.SignerOptions{Signers: state.config.Signers}
	registry, err := signer.BuildRegistry(opts, signer.Dependencies{Logger: state.logger}, nil)
	if err != nil {
		return nil, fmt.Errorf("构建签名器: %w", err)
	}
	return registry, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
