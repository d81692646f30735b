package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/eduaccess/pkg/configs"
	kv "github.com/yeisme/eduaccess/pkg/internal/storage/kv"
	"github.com/yeisme/eduaccess/pkg/log"
)

var (
	kvCmd = &cobra.Command{
		Use:     "kv",
		Short:   "Key-Value store related commands",
		Aliases: []string{"keyvalue"},
	}

	kvListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list all registered kv types, the configured one is marked with *",
		Aliases: []string{"ls", "l"},
		Run: func(cmd *cobra.Command, args []string) {
			current := configs.GetConfig().KV.GetKVType()

			fmt.Fprintln(cmd.OutOrStdout(), "Registered kv types:")

			for _, t := range kv.GetRegisteredKVTypes() {
				mark := " "
				if t == current {
					mark = "*"
				}

				fmt.Fprintf(cmd.OutOrStdout(), " %s - %s\n", mark, t)
			}
		},
	}

	kvKeysCmd = &cobra.Command{
		Use:   "keys [prefix]",
		Short: "list live keys in the configured kv store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}

			return withKV(cmd, func(store kv.KVStore) error {
				keys, err := store.Keys(cmd.Context(), prefix)
				if err != nil {
					return err
				}

				for _, k := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}

				return nil
			})
		},
	}

	kvGetCmd = &cobra.Command{
		Use:   "get <key>",
		Short: "print the raw value of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKV(cmd, func(store kv.KVStore) error {
				val, err := store.Get(cmd.Context(), args[0])
				if errors.Is(err, kv.ErrNotFound) {
					return fmt.Errorf("key %q not found", args[0])
				}

				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), string(val))

				return nil
			})
		},
	}

	kvDelCmd = &cobra.Command{
		Use:     "del <key>...",
		Short:   "delete keys, e.g. admin:stats to drop the cached admin stats",
		Aliases: []string{"rm"},
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKV(cmd, func(store kv.KVStore) error {
				for _, key := range args {
					if err := store.Delete(cmd.Context(), key); err != nil {
						return fmt.Errorf("delete %s: %w", key, err)
					}
				}

				return nil
			})
		},
	}
)

// withKV 按配置打开 KV 存储，执行 fn 后关闭.
func withKV(cmd *cobra.Command, fn func(kv.KVStore) error) error {
	cfg := configs.GetConfig()

	store, err := kv.NewKVStore(cmd.Context(), &cfg.KV)
	if err != nil {
		return fmt.Errorf("open kv store: %w", err)
	}

	defer func() {
		if err := store.Close(); err != nil {
			log.Logger().Warn().Err(err).Msg("close kv store")
		}
	}()

	return fn(store)
}

// registerKVCommands 注册 KV 相关命令.
func registerKVCommands() {
	rootCmd.AddCommand(kvCmd)
	kvCmd.AddCommand(kvListCmd, kvKeysCmd, kvGetCmd, kvDelCmd)
}
