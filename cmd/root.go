package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ce-community/cebot/cebot"
	"github.com/ce-community/cebot/cebot/logger"
)

var (
	Version = "dev"
	Commit  = "unknown"

	configPath string
	verbose    bool
	cfg        *cebot.Config

	// openStores is replaced in tests.
	openStores = cebot.OpenStores
)

var rootCmd = &cobra.Command{
	Use:           "cectl",
	Short:         "Operator tool for the CEBot reconciliation engine",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger.Setup(level)

		if cmd.Annotations["config"] == "none" {
			return nil
		}
		loaded, err := cebot.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.toml", "path to config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")
}

// Execute runs the command line.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// withStores opens the configured stores for the duration of fn.
func withStores(ctx context.Context, fn func(*cebot.Stores) error) error {
	stores, err := openStores(ctx, *cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer stores.Close()
	return fn(stores)
}
