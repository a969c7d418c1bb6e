package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weisyn/txsigner/configs"
	"github.com/weisyn/txsigner/internal/app/version"
)

// skipInit 不需要加载配置的子命令
func skipInit(*cobra.Command, []string) error { return nil }

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "config",
		Short:             "配置相关工具",
		PersistentPreRunE: skipInit,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "example",
		Short: "输出示例配置（" + configs.ExampleConfigName + "）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := cmd.OutOrStdout().Write(configs.ExampleConfig())
			return err
		},
	})
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "version",
		Short:             "显示版本",
		Args:              cobra.NoArgs,
		PersistentPreRunE: skipInit,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.GetFullVersion())
			return err
		},
	}
}
