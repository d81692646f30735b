package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/eduaccess/pkg/app"
)

var (
	// enqueueOnly 只投递任务，由 serve 进程中的 worker 执行.
	enqueueOnly bool

	processCmd = &cobra.Command{
		Use:   "process <material-id>",
		Short: "run the processing pipeline for one material",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]

			return withComponents(cmd.Context(), func(ctx context.Context, c *app.Components) error {
				if enqueueOnly {
					if err := c.Materials.Enqueue(ctx, id, ""); err != nil {
						return err
					}

					fmt.Fprintln(cmd.OutOrStdout(), "enqueued", id)

					return nil
				}

				if err := c.Pipeline.Run(ctx, id); err != nil {
					return fmt.Errorf("process %s: %w", id, err)
				}

				m, err := c.Materials.Get(ctx, id)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", m.ID, m.Status)

				return nil
			})
		},
	}
)

// registerProcessCommands 注册资料处理命令.
func registerProcessCommands() {
	processCmd.Flags().BoolVar(&enqueueOnly, "enqueue", false, "publish a processing request instead of running in-process")
	rootCmd.AddCommand(processCmd)
}
