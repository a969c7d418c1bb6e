package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/weisyn/txsigner/internal/core/signer"
)

func newSignersCmd(state *cliState) *cobra.Command {
	var (
		filter string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "signers",
		Short: "列出配置的签名器",
		Long:  "构建配置中的全部签名器并按注册顺序列出，构建失败（如缺少密钥）时报错。",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := buildRegistry(state)
			if err != nil {
				return err
			}
			defer registry.Close()

			infos, err := signer.NewService(registry, nil, nil, state.logger).ListSigners(filter)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), infos)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%s\n", info.ID, info.Type)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&filter, "type", "t", "", "按类型过滤: direct_key | hsm | mpc")
	cmd.Flags().BoolVar(&asJSON, "json", false, "以 JSON 输出")
	return cmd
}
