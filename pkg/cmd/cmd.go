// Package cmd contains the command line applications for the project.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yeisme/eduaccess/pkg/configs"
	"github.com/yeisme/eduaccess/pkg/log"
)

var (
	// configPath 配置文件或所在目录.
	configPath string
	// envFile 启动前加载的 dotenv 文件.
	envFile string
	// debug 打印更多调试信息.
	debug bool

	rootCmd = &cobra.Command{
		Use:           configs.AppName,
		Short:         "Accessible learning materials backend",
		Long:          "eduaccess processes uploaded course materials into summaries, simplified text and audio, and keeps the material registry consistent.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentPreRunE = prepare

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "config file or directory")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "print debug output")

	registerServeCommands()
	registerSyncCommands()
	registerProcessCommands()
	registerConfigsCommands()
	registerDBCommands()
	registerKVCommands()
	registerMQCommands()
	registerBlobCommands()
}

// prepare 加载 dotenv、配置与日志.
func prepare(cmd *cobra.Command, _ []string) error {
	if err := loadEnv(envFile); err != nil {
		return err
	}

	if cmd == rootCmd || cmd == serveCmd {
		// 服务进程由 app.NewApp 负责加载配置.
		return nil
	}

	if err := configs.InitConfig(configPath); err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	log.Init()

	return nil
}

// loadEnv 加载 dotenv 文件，文件不存在时忽略.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}

	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", path, err)
	}

	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
