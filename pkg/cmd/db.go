package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/eduaccess/pkg/configs"
	"github.com/yeisme/eduaccess/pkg/internal/storage/db"
)

var (
	dbCmd = &cobra.Command{
		Use:   "db",
		Short: "Database related commands",
	}

	dbListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list all registered database types",
		Aliases: []string{"ls", "l"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "Registered database types:")

			for _, dbType := range db.GetRegisteredDBTypes() {
				fmt.Fprintln(cmd.OutOrStdout(), "   - "+string(dbType))
			}
		},
	}

	dbMigrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "create or update the materials, profiles and perf log tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configs.GetConfig()

			client, err := db.New(cmd.Context(), &cfg.DB)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.Migrate(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "migrated", string(cfg.DB.Type))

			return nil
		},
	}
)

// registerDBCommands 注册数据库相关命令.
func registerDBCommands() {
	rootCmd.AddCommand(dbCmd)

	dbCmd.AddCommand(dbListCmd)
	dbCmd.AddCommand(dbMigrateCmd)
}
