package cmd

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/yeisme/eduaccess/pkg/app"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "run a full registry reconciliation once and print the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withComponents(cmd.Context(), func(ctx context.Context, c *app.Components) error {
			res := c.Registry.FullSync(ctx)

			b, err := sonic.ConfigStd.MarshalIndent(res, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal sync result: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(b))

			if err := c.Stats.Invalidate(ctx); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "invalidate stats cache:", err)
			}

			return nil
		})
	},
}

// registerSyncCommands 注册对账命令.
func registerSyncCommands() {
	rootCmd.AddCommand(syncCmd)
}
