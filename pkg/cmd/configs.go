package cmd

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/yeisme/eduaccess/pkg/configs"
)

var (
	// config 子命令.
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "config subcommands",
	}

	// 打印当前使用的配置文件路径.
	pathCmd = &cobra.Command{
		Use:   "path",
		Short: "print the path of the current config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := configs.GetViper()
			if v == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "config not initialized")

				return nil
			}

			cfg := v.ConfigFileUsed()
			if cfg == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "no config file used (defaults and EDUACCESS_* env only)")

				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), cfg)

			return nil
		},
	}

	// 以 JSON 打印合并后的配置，--debug 时附带 viper 的 Debug 输出.
	debugCmd = &cobra.Command{
		Use:   "debug",
		Short: "print the current config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			v := configs.GetViper()
			if v == nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "config not initialized.")

				return nil
			}

			if debug {
				v.DebugTo(cmd.ErrOrStderr())
			}

			b, err := sonic.ConfigStd.MarshalIndent(configs.GetConfig(), "", "  ")
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(b))

			return nil
		},
	}

	// 仅校验配置.
	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "validate the current config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := configs.Validate(configs.GetConfig()); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "config ok")

			return nil
		},
	}
)

// registerConfigsCommands 注册 CLI 子命令.
func registerConfigsCommands() {
	configCmd.AddCommand(pathCmd)
	configCmd.AddCommand(debugCmd)
	configCmd.AddCommand(validateCmd)

	rootCmd.AddCommand(configCmd)
}
