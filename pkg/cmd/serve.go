package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yeisme/eduaccess/pkg/app"
	"github.com/yeisme/eduaccess/pkg/configs"
	"github.com/yeisme/eduaccess/pkg/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the HTTP API, the processing worker and scheduled jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.NewApp(ctx, configPath)
		if err != nil {
			return err
		}

		return a.Run(ctx)
	},
}

// registerServeCommands 注册服务启动命令.
func registerServeCommands() {
	rootCmd.AddCommand(serveCmd)

	// 不带子命令时直接启动服务.
	rootCmd.RunE = serveCmd.RunE
}

// withComponents 组装业务组件，执行 fn 后释放.
func withComponents(ctx context.Context, fn func(ctx context.Context, c *app.Components) error) error {
	c, err := app.Build(ctx, configs.GetConfig())
	if err != nil {
		return err
	}

	defer func() {
		if err := c.Close(); err != nil {
			log.Logger().Warn().Err(err).Msg("close components")
		}
	}()

	return fn(ctx, c)
}
