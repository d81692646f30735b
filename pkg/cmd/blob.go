package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/eduaccess/pkg/configs"
	"github.com/yeisme/eduaccess/pkg/internal/storage/blob"

	// 注册对象存储后端.
	_ "github.com/yeisme/eduaccess/pkg/internal/storage/awss3"
	_ "github.com/yeisme/eduaccess/pkg/internal/storage/s3"
)

var (
	blobCmd = &cobra.Command{
		Use:     "blob",
		Short:   "Object storage related commands",
		Aliases: []string{"oss"},
	}

	blobListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list all registered blob store types, the configured one is marked with *",
		Aliases: []string{"ls", "l"},
		Run: func(cmd *cobra.Command, args []string) {
			current := configs.GetConfig().Blob.Type

			fmt.Fprintln(cmd.OutOrStdout(), "Registered blob types:")

			for _, t := range blob.GetRegisteredTypes() {
				mark := " "
				if t == current {
					mark = "*"
				}

				fmt.Fprintf(cmd.OutOrStdout(), " %s - %s\n", mark, t)
			}
		},
	}
)

// registerBlobCommands 注册对象存储相关命令.
func registerBlobCommands() {
	rootCmd.AddCommand(blobCmd)
	blobCmd.AddCommand(blobListCmd)
}
