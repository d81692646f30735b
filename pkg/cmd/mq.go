package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/eduaccess/pkg/configs"
	mq "github.com/yeisme/eduaccess/pkg/internal/storage/mq"
	"github.com/yeisme/eduaccess/pkg/queue"
)

var (
	mqCmd = &cobra.Command{
		Use:     "mq",
		Short:   "Message queue related commands",
		Aliases: []string{"messagequeue"},
	}

	mqListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list all registered mq types, the configured one is marked with *",
		Aliases: []string{"ls", "l"},
		Run: func(cmd *cobra.Command, args []string) {
			current := configs.GetConfig().MQ.GetMQType()

			fmt.Fprintln(cmd.OutOrStdout(), "Registered mq types:")

			for _, t := range mq.GetRegisteredMQTypes() {
				mark := " "
				if t == current {
					mark = "*"
				}

				fmt.Fprintf(cmd.OutOrStdout(), " %s - %s\n", mark, t)
			}
		},
	}

	mqTopicsCmd = &cobra.Command{
		Use:   "topics",
		Short: "list topics published and consumed by the service",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "Material topics:")

			for _, t := range queue.MaterialTopics {
				fmt.Fprintln(out, "   - "+t)
			}

			fmt.Fprintln(out, "Registry topics:")

			for _, t := range queue.RegistryTopics {
				fmt.Fprintln(out, "   - "+t)
			}
		},
	}
)

// registerMQCommands 注册 MQ 相关命令.
func registerMQCommands() {
	rootCmd.AddCommand(mqCmd)
	mqCmd.AddCommand(mqListCmd, mqTopicsCmd)
}
